package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bahodir0902/blogclient/ports"
)

// FileStore is a CredentialStore backed by a JSON file, so a session survives
// process restarts the way a browser session survives a page reload.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileSlots struct {
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// NewFileStore creates a file-backed store at path. The file is created on
// the first Save; a missing file reads as empty slots.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes both slots, overwriting the file atomically (write to a temp
// file, then rename) so a crash mid-write cannot corrupt the slots.
func (s *FileStore) Save(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(fileSlots{Access: access, Refresh: refresh})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to set credentials file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}

	return nil
}

// Read returns the current slots. A missing file is not an error.
func (s *FileStore) Read(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var slots fileSlots
	if err := json.Unmarshal(payload, &slots); err != nil {
		return "", "", fmt.Errorf("failed to decode credentials file: %w", err)
	}

	return slots.Access, slots.Refresh, nil
}

// Clear removes both slots by deleting the file. Clearing an already-missing
// file is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

var _ ports.CredentialStore = (*FileStore)(nil)
