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

type sinkStub struct {
	access  string
	refresh string
}

func (s *sinkStub) SetCredentials(ctx context.Context, access, refresh string) error {
	s.access = access
	s.refresh = refresh
	return nil
}

type accountsStub struct{}

func (accountsStub) Register(ctx context.Context, email, password string) error { return nil }

func (accountsStub) VerifyRegistration(ctx context.Context, token string) (core.Credentials, error) {
	if token != "verify-1" {
		return core.Credentials{}, errors.New("unknown token")
	}
	return core.Credentials{Access: "a-verify", Refresh: "r-verify"}, nil
}

func (accountsStub) RequestPasswordReset(ctx context.Context, email string) error { return nil }

func (accountsStub) ConfirmPasswordReset(ctx context.Context, token, password string) (core.Credentials, error) {
	return core.Credentials{}, errors.New("not used")
}

func (accountsStub) SocialExchange(ctx context.Context, provider, code string) (core.Credentials, error) {
	if provider != "github" || code != "code-1" {
		return core.Credentials{}, errors.New("bad exchange")
	}
	return core.Credentials{Access: "a-social", Refresh: "r-social"}, nil
}

func callbackRouter(sink *sinkStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handlers := clienthttp.NewCallbackHandlers(sink, accountsStub{}, "/app")
	return clienthttp.SetupCallbackRouter(handlers)
}

func TestSocialCallbackInstallsCredentials(t *testing.T) {
	sink := &sinkStub{}
	router := callbackRouter(sink)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback/github?code=code-1", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/app", rec.Header().Get("Location"))
	require.Equal(t, "a-social", sink.access)
	require.Equal(t, "r-social", sink.refresh)
}

func TestSocialCallbackMissingCode(t *testing.T) {
	sink := &sinkStub{}
	router := callbackRouter(sink)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback/github", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, sink.access)
}

func TestVerifyCallbackInstallsCredentials(t *testing.T) {
	sink := &sinkStub{}
	router := callbackRouter(sink)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token=verify-1", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "a-verify", sink.access)
	require.Equal(t, "r-verify", sink.refresh)
}

func TestVerifyCallbackRejectsUnknownToken(t *testing.T) {
	sink := &sinkStub{}
	router := callbackRouter(sink)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token=bogus", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, sink.access)
}
