// Package transport decorates outbound calls with the session's access
// credential.
package transport

import (
	"net/http"

	"github.com/bahodir0902/blogclient/ports"
)

// BearerTransport is an http.RoundTripper that attaches the current access
// credential as bearer auth to every outbound request.
//
// It reads the credential from the store on every call, not from the session
// manager, so it always reflects the latest persisted value — including
// renewals performed by another process sharing the store. It never refreshes,
// never retries and never inspects the response; a 401 is the caller's
// problem.
type BearerTransport struct {
	store ports.CredentialStore
	base  http.RoundTripper
}

// NewBearerTransport wraps base with credential attachment. A nil base falls
// back to http.DefaultTransport.
func NewBearerTransport(store ports.CredentialStore, base http.RoundTripper) *BearerTransport {
	return &BearerTransport{store: store, base: base}
}

// RoundTrip implements http.RoundTripper. When no credential is stored, or a
// caller already set its own Authorization header, the request goes out
// untouched. Store read failures are treated as "no credential" — the call
// proceeds unauthenticated rather than failing.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		access, _, err := t.store.Read(req.Context())
		if err == nil && access != "" {
			// Clone per the RoundTripper contract: the caller's request must
			// not be mutated.
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	return t.transport().RoundTrip(req)
}

func (t *BearerTransport) transport() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}
