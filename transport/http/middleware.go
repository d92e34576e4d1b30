// Package http provides the gin pieces of the client: route/role guards for
// apps that embed the client behind a local web UI, and the callback listener
// for account flows that complete via a browser redirect.
package http

import (
	"context"
	"net/http"

	"github.com/bahodir0902/blogclient/ports"
	"github.com/gin-gonic/gin"
)

// SessionState is the read-only view the guards need. *session.Manager
// satisfies it.
type SessionState interface {
	Authenticated() bool
}

// RequireSession redirects unauthenticated requests to the entry point. The
// check is synchronous and in-memory; it never blocks on a network call.
func RequireSession(sessions SessionState, entryPoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessions.Authenticated() {
			c.Redirect(http.StatusFound, entryPoint)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole additionally resolves the account's profile and rejects
// requests whose role is not in the allowed set. The profile fetch goes out
// through the bearer transport.
func RequireRole(sessions SessionState, profiles ports.ProfileFetcher, entryPoint string, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		if !sessions.Authenticated() {
			c.Redirect(http.StatusFound, entryPoint)
			c.Abort()
			return
		}

		profile, err := profiles.Profile(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "failed to resolve profile"})
			return
		}

		if !allowed[profile.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Set("profile", profile)
		c.Next()
	}
}

// CredentialSink receives pairs minted outside the login exchange.
// *session.Manager satisfies it.
type CredentialSink interface {
	SetCredentials(ctx context.Context, access, refresh string) error
}
