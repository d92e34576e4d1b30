package ports

import "context"

// CredentialStore persists the two credential slots across process restarts.
//
// It is the single source of truth shared between the session manager
// (read-write) and the outbound bearer transport (read-only). Implementations
// must be safe for concurrent use and must be usable before a session manager
// exists, since the manager hydrates its in-memory state from the store.
type CredentialStore interface {
	// Save writes both slots, unconditionally overwriting.
	Save(ctx context.Context, access, refresh string) error

	// Read returns the current slots. Absent slots read as empty strings.
	Read(ctx context.Context) (access, refresh string, err error)

	// Clear removes both slots.
	Clear(ctx context.Context) error
}
