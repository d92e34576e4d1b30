package ports

import "context"

// EventPublisher notifies consumers about session transitions so they can
// react without polling the manager (the realtime channel redials on every
// update, guards observe teardown).
type EventPublisher interface {
	// PublishUpdated announces a new access credential.
	PublishUpdated(ctx context.Context, access string) error

	// PublishCleared announces that the session was torn down. The reason is
	// diagnostic ("logout", "renewal failed", ...).
	PublishCleared(ctx context.Context, reason string) error
}
