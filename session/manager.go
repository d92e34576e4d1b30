// Package session owns the credential pair of an authenticated platform
// session and keeps it alive.
//
// A Manager holds the in-memory access/refresh pair, mirrors it into a
// CredentialStore, and runs a self-scheduling renewal loop: one pending timer
// at most, armed from a single scheduling function, with a guard flag so two
// renewal exchanges can never overlap. Any renewal failure is terminal — the
// session is torn down and the user has to authenticate again.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bahodir0902/blogclient/core"
	"github.com/bahodir0902/blogclient/ports"
	"github.com/bahodir0902/blogclient/token"
	"github.com/rs/zerolog"
)

// logoutNotifyTimeout bounds the detached best-effort server notification on
// logout. Local teardown has completed long before this fires.
const logoutNotifyTimeout = 10 * time.Second

// LoginResult is the outcome of a successful login exchange. When the server
// demands a second factor, ChallengeRequired is set, ChallengeToken must be
// echoed back via LoginOTP, and no credentials have been set.
type LoginResult struct {
	ChallengeRequired bool
	ChallengeToken    string
}

// Manager owns one session per application run. Construct it once with
// NewManager and hand it to consumers explicitly; all state lives behind its
// mutex, there are no package-level variables.
type Manager struct {
	cfg    Config
	api    ports.AuthAPI
	store  ports.CredentialStore
	events ports.EventPublisher
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	access    string
	refresh   string
	timer     *time.Timer
	lastDelay time.Duration
	inFlight  bool
	closed    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithNow sets the time source (primarily for testing).
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a Manager, hydrates its state from the store, and —
// when a renewable session was persisted — arms the renewal loop. The events
// publisher may be nil when no consumer subscribes to session transitions.
func NewManager(ctx context.Context, cfg Config, api ports.AuthAPI, store ports.CredentialStore, events ports.EventPublisher, options ...Option) (*Manager, error) {
	m := &Manager{
		cfg:    cfg.withDefaults(),
		api:    api,
		store:  store,
		events: events,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(m)
	}

	access, refresh, err := store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate credentials: %w", err)
	}

	if refresh == "" && access != "" {
		// A session without a refresh credential cannot be kept alive; drop
		// the orphaned access credential rather than serving it until it
		// silently expires.
		if err := store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear orphaned credentials: %w", err)
		}
		access = ""
	}

	m.mu.Lock()
	m.access = access
	m.refresh = refresh
	m.rescheduleLocked(m.renewDelayLocked())
	m.mu.Unlock()

	return m, nil
}

// Login performs the credential exchange. Exchange failures (bad credentials,
// locked account) are returned unchanged. A ChallengeRequired result is not
// an error: no credentials were set, and the caller must follow up with
// LoginOTP or abandon the attempt (which needs no cleanup).
func (m *Manager) Login(ctx context.Context, identifier, secret string) (LoginResult, error) {
	return m.exchange(ctx, ports.LoginRequest{Identifier: identifier, Secret: secret})
}

// LoginOTP answers a second-factor challenge with the token from the previous
// LoginResult and the code the user provided.
func (m *Manager) LoginOTP(ctx context.Context, challengeToken, code string) (LoginResult, error) {
	return m.exchange(ctx, ports.LoginRequest{OTPToken: challengeToken, OTPCode: code})
}

func (m *Manager) exchange(ctx context.Context, req ports.LoginRequest) (LoginResult, error) {
	resp, err := m.api.Login(ctx, req)
	if err != nil {
		return LoginResult{}, err
	}

	if resp.ChallengeRequired {
		return LoginResult{ChallengeRequired: true, ChallengeToken: resp.ChallengeToken}, nil
	}

	if err := m.SetCredentials(ctx, resp.Access, resp.Refresh); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{}, nil
}

// SetCredentials unconditionally installs a new pair: persisted, published,
// and the renewal loop rescheduled around the new access credential's expiry.
// Used directly by the social-login callback, registration verification and
// password-reset flows, which all mint pairs outside the login exchange.
func (m *Manager) SetCredentials(ctx context.Context, access, refresh string) error {
	if refresh == "" {
		// Cannot be kept alive; tear down instead of installing a pair the
		// renewal loop could never serve.
		m.teardown(ctx, "missing refresh credential")
		return core.ErrNoSession
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return core.ErrSessionClosed
	}
	m.access = access
	m.refresh = refresh
	saveErr := m.store.Save(ctx, access, refresh)
	m.rescheduleLocked(m.renewDelayLocked())
	m.mu.Unlock()

	if saveErr != nil {
		return fmt.Errorf("failed to persist credentials: %w", saveErr)
	}

	m.publishUpdated(ctx, access)
	return nil
}

// Logout tears the session down locally — state cleared, store cleared, timer
// cancelled — before anything touches the network, so Authenticated reports
// false the moment this returns. The server notification is spawned and
// detached; its failure is logged and otherwise ignored. Calling Logout on an
// already-ended session is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	snapshot := core.Credentials{Access: m.access, Refresh: m.refresh}
	m.access = ""
	m.refresh = ""
	m.stopTimerLocked()
	clearErr := m.store.Clear(ctx)
	m.mu.Unlock()

	if clearErr != nil {
		m.logger.Warn().Err(clearErr).Msg("failed to clear credential store on logout")
	}

	if snapshot.Renewable() {
		go m.notifyLogout(snapshot)
	}

	if !snapshot.Empty() {
		m.publishCleared(ctx, "logout")
	}

	return nil
}

func (m *Manager) notifyLogout(snapshot core.Credentials) {
	ctx, cancel := context.WithTimeout(context.Background(), logoutNotifyTimeout)
	defer cancel()

	if err := m.api.Logout(ctx, snapshot.Access, snapshot.Refresh); err != nil {
		m.logger.Warn().Err(err).Msg("logout notification failed")
	}
}

// Authenticated reports whether an access credential is present. Synchronous
// and in-memory; route guards call this on every request.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access != ""
}

// Credentials returns a snapshot of the current pair.
func (m *Manager) Credentials() core.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return core.Credentials{Access: m.access, Refresh: m.refresh}
}

// Close cancels the pending renewal timer and stops all further scheduling.
// It does not end the session on the server; use Logout for that.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopTimerLocked()
}

// renew is the timer callback: one attempt, then reschedule or tear down.
func (m *Manager) renew() {
	ctx := context.Background()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.inFlight {
		// A previous attempt is still running. Do not start a second
		// exchange, but do not starve the loop either.
		m.rescheduleLocked(m.cfg.RenewInterval)
		m.mu.Unlock()
		return
	}
	m.inFlight = true
	_, refresh, readErr := m.store.Read(ctx)
	m.mu.Unlock()

	if readErr != nil || refresh == "" {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
		if readErr != nil {
			m.logger.Warn().Err(readErr).Msg("failed to read credential store before renewal")
		}
		m.teardown(ctx, "no refresh credential")
		return
	}

	resp, err := m.api.Renew(ctx, refresh)

	if err != nil {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()

		// A concurrent logout may have already torn the session down while
		// the exchange was in flight; then there is nothing left to do.
		_, still, readErr := m.store.Read(ctx)
		if readErr == nil && still == "" {
			return
		}

		m.logger.Warn().Err(err).Msg("session renewal failed, tearing down session")
		m.teardown(ctx, "renewal failed")
		return
	}

	m.mu.Lock()
	m.inFlight = false
	if m.refresh == "" || m.closed {
		// Torn down while the exchange was in flight: discard the result
		// rather than resurrecting the session.
		m.mu.Unlock()
		return
	}
	m.access = resp.Access
	if resp.Refresh != "" {
		// The server rotated the refresh credential; every later renewal
		// must use the new one.
		m.refresh = resp.Refresh
	}
	access := m.access
	saveErr := m.store.Save(ctx, m.access, m.refresh)
	m.rescheduleLocked(m.renewDelayLocked())
	m.mu.Unlock()

	if saveErr != nil {
		m.logger.Warn().Err(saveErr).Msg("failed to persist renewed credentials")
	}

	m.publishUpdated(ctx, access)
}

// teardown is the terminal-failure path: same local effect as Logout, without
// the server notification.
func (m *Manager) teardown(ctx context.Context, reason string) {
	m.mu.Lock()
	hadSession := m.access != "" || m.refresh != ""
	m.access = ""
	m.refresh = ""
	m.stopTimerLocked()
	clearErr := m.store.Clear(ctx)
	m.mu.Unlock()

	if clearErr != nil {
		m.logger.Warn().Err(clearErr).Msg("failed to clear credential store")
	}

	if hadSession {
		m.logger.Info().Str("reason", reason).Msg("session torn down")
		m.publishCleared(ctx, reason)
	}
}

// rescheduleLocked is the only place allowed to arm the timer. It always
// cancels the previous one first, so at most one timer is pending. Callers
// must hold m.mu.
func (m *Manager) rescheduleLocked(delay time.Duration) {
	m.stopTimerLocked()
	if m.closed || m.refresh == "" {
		return
	}
	m.lastDelay = delay
	m.timer = time.AfterFunc(delay, m.renew)
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// renewDelayLocked computes the next delay from the access credential's
// expiry: max(MinDelay, timeToExpiry - RenewSkew), or the fallback interval
// when the expiry cannot be decoded. Callers must hold m.mu.
func (m *Manager) renewDelayLocked() time.Duration {
	remaining, ok := token.UntilExpiry(m.access, m.now())
	if !ok {
		return m.cfg.RenewInterval
	}

	delay := remaining - m.cfg.RenewSkew
	if delay < m.cfg.MinDelay {
		delay = m.cfg.MinDelay
	}
	return delay
}

func (m *Manager) publishUpdated(ctx context.Context, access string) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishUpdated(ctx, access); err != nil {
		m.logger.Warn().Err(err).Msg("failed to publish session update")
	}
}

func (m *Manager) publishCleared(ctx context.Context, reason string) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishCleared(ctx, reason); err != nil {
		m.logger.Warn().Err(err).Msg("failed to publish session teardown")
	}
}
