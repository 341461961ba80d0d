// Package file persists session snapshots as files in a directory.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
)

// Format selects the snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Store implements ports.SnapshotStore using the local filesystem.
// Each session is one <name>.json or <name>.yaml file under BasePath.
type Store struct {
	BasePath string
	Format   Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat selects JSON (the default) or YAML snapshots.
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.Format = f
	}
}

// New creates a Store rooted at basePath, defaulting to ".graff/sessions".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".graff", "sessions")
	}
	s := &Store{BasePath: basePath, Format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ext() string { return "." + string(s.Format) }

func (s *Store) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("session name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	return filepath.Join(s.BasePath, name+s.ext()), nil
}

// Encode renders a snapshot in the store's format.
func (s *Store) Encode(session *domain.Session) ([]byte, error) {
	if s.Format == FormatYAML {
		return codec.MarshalSnapshotYAML(session)
	}
	return codec.MarshalSnapshotIndent(session)
}

// Decode parses a snapshot in the store's format.
func (s *Store) Decode(data []byte) (*domain.Session, error) {
	if s.Format == FormatYAML {
		return codec.UnmarshalSnapshotYAML(data)
	}
	return codec.UnmarshalSnapshot(data)
}

// Save writes the snapshot atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, name string, session *domain.Session) error {
	destPath, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := s.Encode(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return WriteAtomic(destPath, data)
}

// WriteAtomic replaces path with data without ever exposing a partial file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove previous file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads a snapshot file.
func (s *Store) Load(ctx context.Context, name string) (*domain.Session, error) {
	filePath, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	session, err := s.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session %q: %w", name, err)
	}
	return session, nil
}

// Delete removes the snapshot file.
func (s *Store) Delete(ctx context.Context, name string) error {
	filePath, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the stored session names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		n := entry.Name()
		if entry.IsDir() || filepath.Ext(n) != s.ext() || strings.HasPrefix(n, "tmp-") {
			continue
		}
		names = append(names, strings.TrimSuffix(n, s.ext()))
	}
	sort.Strings(names)
	return names, nil
}
