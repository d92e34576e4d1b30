package ports

import (
	"context"

	"github.com/bahodir0902/blogclient/core"
)

// LoginRequest carries the credentials for the login exchange. OTPToken and
// OTPCode are set only when answering a second-factor challenge.
type LoginRequest struct {
	Identifier string
	Secret     string
	OTPToken   string
	OTPCode    string
}

// LoginResponse is one of two success variants: either the server demands a
// second factor (ChallengeRequired, with the token to echo back), or it
// issued a credential pair.
type LoginResponse struct {
	ChallengeRequired bool
	ChallengeToken    string

	Access  string
	Refresh string
}

// RenewResponse carries the freshly minted access credential. Refresh is
// empty unless the server rotated the refresh credential as well.
type RenewResponse struct {
	Access  string
	Refresh string
}

// AuthAPI is the network contract the session manager consumes. Exchange
// failures are returned unchanged; the manager never remaps them.
type AuthAPI interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)

	// Renew exchanges the refresh credential for a new access credential.
	Renew(ctx context.Context, refresh string) (RenewResponse, error)

	// Logout notifies the server that the session ended. The access
	// credential is attached as bearer auth; the response is ignored by
	// callers beyond the error.
	Logout(ctx context.Context, access, refresh string) error
}

// AccountAPI covers the account flows that mint credential pairs outside the
// login exchange. Callers feed the returned pair into the session manager via
// SetCredentials.
type AccountAPI interface {
	Register(ctx context.Context, email, password string) error
	VerifyRegistration(ctx context.Context, token string) (core.Credentials, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) (core.Credentials, error)
	SocialExchange(ctx context.Context, provider, code string) (core.Credentials, error)
}

// ProfileFetcher resolves the authenticated account's profile. Used by the
// role guard; calls go out through the bearer transport.
type ProfileFetcher interface {
	Profile(ctx context.Context) (core.Profile, error)
}
