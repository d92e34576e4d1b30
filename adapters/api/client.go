// Package api implements the platform's authentication and account endpoints
// over JSON/HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bahodir0902/blogclient/core"
	"github.com/bahodir0902/blogclient/ports"
)

// StatusError is a server-side rejection (bad credentials, locked account,
// invalid refresh credential). It is returned unchanged to callers so the UI
// layer can branch on the status code and display the server's message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server rejected request with status %d: %s", e.Code, e.Message)
}

// Client talks to the platform API. It implements AuthAPI, AccountAPI and
// ProfileFetcher. Pass an http.Client whose transport is the bearer transport
// so authenticated endpoints pick up the stored access credential.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new API client. A nil httpClient falls back to
// http.DefaultClient (unauthenticated endpoints only).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type loginRequest struct {
	Identifier string `json:"identifier,omitempty"`
	Secret     string `json:"secret,omitempty"`
	OTPToken   string `json:"otp_token,omitempty"`
	OTPCode    string `json:"otp_code,omitempty"`
}

type loginResponse struct {
	ChallengeRequired bool   `json:"challenge_required,omitempty"`
	ChallengeToken    string `json:"challenge_token,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Login performs the login exchange.
func (c *Client) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResponse, error) {
	var resp loginResponse
	err := c.post(ctx, "/auth/login", loginRequest{
		Identifier: req.Identifier,
		Secret:     req.Secret,
		OTPToken:   req.OTPToken,
		OTPCode:    req.OTPCode,
	}, &resp, "")
	if err != nil {
		return ports.LoginResponse{}, err
	}

	return ports.LoginResponse{
		ChallengeRequired: resp.ChallengeRequired,
		ChallengeToken:    resp.ChallengeToken,
		Access:            resp.AccessToken,
		Refresh:           resp.RefreshToken,
	}, nil
}

// Renew exchanges the refresh credential for a fresh access credential. The
// refresh_token field of the response is set only when the server rotated
// the refresh credential.
func (c *Client) Renew(ctx context.Context, refresh string) (ports.RenewResponse, error) {
	var resp tokenPairResponse
	err := c.post(ctx, "/auth/refresh", map[string]string{"refresh_token": refresh}, &resp, "")
	if err != nil {
		return ports.RenewResponse{}, err
	}

	return ports.RenewResponse{Access: resp.AccessToken, Refresh: resp.RefreshToken}, nil
}

// Logout notifies the server that the session ended. The access credential is
// passed explicitly rather than read from the store: by the time this call is
// made, the local teardown has already cleared the store.
func (c *Client) Logout(ctx context.Context, access, refresh string) error {
	return c.post(ctx, "/auth/logout", map[string]string{"refresh_token": refresh}, nil, access)
}

// Register creates a new account. The credential pair arrives later, through
// VerifyRegistration.
func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.post(ctx, "/auth/register", map[string]string{"email": email, "password": password}, nil, "")
}

// VerifyRegistration exchanges the emailed verification token for the
// account's first credential pair.
func (c *Client) VerifyRegistration(ctx context.Context, token string) (core.Credentials, error) {
	return c.pairExchange(ctx, "/auth/verify", map[string]string{"token": token})
}

// RequestPasswordReset asks the server to email a reset token.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.post(ctx, "/auth/password/reset", map[string]string{"email": email}, nil, "")
}

// ConfirmPasswordReset sets the new password and returns a fresh pair.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, password string) (core.Credentials, error) {
	return c.pairExchange(ctx, "/auth/password/confirm", map[string]string{"token": token, "password": password})
}

// SocialExchange trades a social provider's authorization code for a
// credential pair.
func (c *Client) SocialExchange(ctx context.Context, provider, code string) (core.Credentials, error) {
	return c.pairExchange(ctx, "/auth/social/exchange", map[string]string{"provider": provider, "code": code})
}

// Profile returns the authenticated account's profile. Requires the bearer
// transport: the request carries whatever access credential is stored.
func (c *Client) Profile(ctx context.Context) (core.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return core.Profile{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Profile{}, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Profile{}, statusError(resp)
	}

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}

	return core.Profile{ID: out.ID, Email: out.Email, Role: out.Role}, nil
}

func (c *Client) pairExchange(ctx context.Context, path string, body any) (core.Credentials, error) {
	var resp tokenPairResponse
	if err := c.post(ctx, path, body, &resp, ""); err != nil {
		return core.Credentials{}, err
	}
	return core.Credentials{Access: resp.AccessToken, Refresh: resp.RefreshToken}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any, bearer string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}

	return nil
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	// Best effort: an empty or non-JSON body still yields a usable error.
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}

var (
	_ ports.AuthAPI        = (*Client)(nil)
	_ ports.AccountAPI     = (*Client)(nil)
	_ ports.ProfileFetcher = (*Client)(nil)
)
