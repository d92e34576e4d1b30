// Package realtime maintains the platform's notification channel.
//
// The channel rides on the session: every time the access credential changes
// it tears the connection down and redials with the fresh credential, and it
// stops dialing entirely once the session is gone. Unexpected disconnects are
// retried with bounded exponential backoff.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bahodir0902/blogclient/adapters/events"
	"github.com/bahodir0902/blogclient/ports"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

const (
	// DefaultDialTimeout bounds a single dial attempt.
	DefaultDialTimeout = 10 * time.Second

	// DefaultMaxAttempts is how many consecutive failures are tolerated
	// before Run gives up.
	DefaultMaxAttempts = 5

	// DefaultBaseBackoff is the delay after the first failure; it doubles
	// per attempt.
	DefaultBaseBackoff = time.Second

	// DefaultMaxBackoff caps the doubling.
	DefaultMaxBackoff = 30 * time.Second
)

// Config defines the channel endpoint and its reconnect policy.
type Config struct {
	// URL is the WebSocket endpoint. The access credential is appended as
	// the token query parameter at dial time.
	URL string

	DialTimeout time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

// Handler receives each raw notification payload.
type Handler func(payload []byte)

// Channel connects to the realtime endpoint with the current access
// credential and follows the session through renewals and teardown.
type Channel struct {
	cfg        Config
	store      ports.CredentialStore
	subscriber message.Subscriber
	handler    Handler
	logger     zerolog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

// NewChannel creates a channel. The subscriber must deliver the session
// topics published by the session manager's event publisher.
func NewChannel(cfg Config, store ports.CredentialStore, subscriber message.Subscriber, handler Handler, options ...Option) *Channel {
	c := &Channel{
		cfg:        cfg.withDefaults(),
		store:      store,
		subscriber: subscriber,
		handler:    handler,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

var (
	errCredentialChanged = errors.New("access credential changed")
	errSessionCleared    = errors.New("session cleared")
)

// Run drives the connection until the context is cancelled, the event
// subscription ends, or the reconnect budget is exhausted.
func (c *Channel) Run(ctx context.Context) error {
	updated, err := c.subscriber.Subscribe(ctx, events.TopicSessionUpdated)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.TopicSessionUpdated, err)
	}
	cleared, err := c.subscriber.Subscribe(ctx, events.TopicSessionCleared)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.TopicSessionCleared, err)
	}

	attempts := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		access, _, err := c.store.Read(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to read credential store")
			access = ""
		}

		if access == "" {
			// No session: wait for the next transition instead of polling.
			attempts = 0
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg, ok := <-updated:
				if !ok {
					return nil
				}
				msg.Ack()
			case msg, ok := <-cleared:
				if !ok {
					return nil
				}
				msg.Ack()
			}
			continue
		}

		connected, err := c.serve(ctx, access, updated, cleared)
		if connected {
			attempts = 0
		}

		switch {
		case errors.Is(err, errCredentialChanged):
			// Redial immediately with the fresh credential.
			continue
		case errors.Is(err, errSessionCleared):
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		}

		attempts++
		if attempts >= c.cfg.MaxAttempts {
			return fmt.Errorf("realtime channel gave up after %d attempts: %w", attempts, err)
		}

		delay := c.backoff(attempts)
		c.logger.Warn().Err(err).Dur("retry_in", delay).Int("attempt", attempts).Msg("realtime connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// serve holds one connection open until the session changes, the connection
// drops, or the context ends. connected reports whether the dial succeeded,
// which resets the backoff budget.
func (c *Channel) serve(ctx context.Context, access string, updated, cleared <-chan *message.Message) (connected bool, err error) {
	endpoint, err := c.endpoint(access)
	if err != nil {
		return false, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, endpoint, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c.logger.Debug().Msg("realtime channel connected")

	readCtx, stopRead := context.WithCancel(ctx)
	defer stopRead()

	payloads := make(chan []byte)
	readFailed := make(chan error, 1)
	go func() {
		for {
			_, payload, err := conn.Read(readCtx)
			if err != nil {
				readFailed <- err
				return
			}
			select {
			case payloads <- payload:
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case payload := <-payloads:
			if c.handler != nil {
				c.handler(payload)
			}
		case err := <-readFailed:
			return true, fmt.Errorf("connection lost: %w", err)
		case msg, ok := <-updated:
			if !ok {
				return true, errSessionCleared
			}
			msg.Ack()
			return true, errCredentialChanged
		case msg, ok := <-cleared:
			if !ok {
				return true, errSessionCleared
			}
			msg.Ack()
			return true, errSessionCleared
		}
	}
}

func (c *Channel) endpoint(access string) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime URL: %w", err)
	}
	q := u.Query()
	q.Set("token", access)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Channel) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseBackoff << (attempt - 1)
	if delay > c.cfg.MaxBackoff || delay <= 0 {
		delay = c.cfg.MaxBackoff
	}
	return delay
}
