package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bahodir0902/blogclient/core"
	clienthttp "github.com/bahodir0902/blogclient/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type sessionStub struct{ authenticated bool }

func (s sessionStub) Authenticated() bool { return s.authenticated }

type profilesStub struct {
	profile core.Profile
	err     error
}

func (p profilesStub) Profile(ctx context.Context) (core.Profile, error) {
	return p.profile, p.err
}

func guardedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRequireSessionRedirectsWhenUnauthenticated(t *testing.T) {
	router := guardedRouter(clienthttp.RequireSession(sessionStub{authenticated: false}, "/login"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireSessionPassesWhenAuthenticated(t *testing.T) {
	router := guardedRouter(clienthttp.RequireSession(sessionStub{authenticated: true}, "/login"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name     string
		session  sessionStub
		profiles profilesStub
		want     int
	}{
		{
			name:    "role allowed",
			session: sessionStub{authenticated: true},
			profiles: profilesStub{
				profile: core.Profile{ID: "user-1", Role: "editor"},
			},
			want: http.StatusOK,
		},
		{
			name:    "role denied",
			session: sessionStub{authenticated: true},
			profiles: profilesStub{
				profile: core.Profile{ID: "user-1", Role: "reader"},
			},
			want: http.StatusForbidden,
		},
		{
			name:     "profile fetch fails",
			session:  sessionStub{authenticated: true},
			profiles: profilesStub{err: errors.New("upstream down")},
			want:     http.StatusBadGateway,
		},
		{
			name:     "unauthenticated redirects before fetching",
			session:  sessionStub{authenticated: false},
			profiles: profilesStub{err: errors.New("must not be called")},
			want:     http.StatusFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := guardedRouter(clienthttp.RequireRole(tc.session, tc.profiles, "/login", "editor", "admin"))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

			require.Equal(t, tc.want, rec.Code)
		})
	}
}
