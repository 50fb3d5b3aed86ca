// Package file persists the report snapshot as a JSON file on local disk.
// Writes go to a temporary file in the same directory that is renamed
// over the target, so readers never observe a partial snapshot.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xraph/auditledger/report"
	auditstore "github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/snapshot"
)

// compile-time interface check
var _ auditstore.Store = (*Store)(nil)

// Store implements store.Store on a single file.
type Store struct {
	mu   sync.Mutex
	path string
	perm fs.FileMode
}

// New creates a store writing to path. The file is created on first save.
func New(path string) *Store {
	return &Store{path: path, perm: 0o600}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Migrate ensures the parent directory exists.
func (s *Store) Migrate(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("auditledger/file: create directory: %w", err)
	}
	return nil
}

func (s *Store) Load(_ context.Context) ([]*report.ServiceReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*report.ServiceReport{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auditledger/file: read %s: %w", s.path, err)
	}
	return snapshot.Decode(data)
}

func (s *Store) SaveAll(_ context.Context, records []*report.ServiceReport) error {
	data, err := snapshot.Encode(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("auditledger/file: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("auditledger/file: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("auditledger/file: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("auditledger/file: close: %w", err)
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return fmt.Errorf("auditledger/file: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("auditledger/file: rename: %w", err)
	}
	return nil
}

// Ping checks that the directory is reachable.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("auditledger/file: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
