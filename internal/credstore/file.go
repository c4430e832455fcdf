package credstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/and161185/stockfolio/internal/logger"
)

// FileName is the credentials document inside the config directory.
const FileName = "credentials.json"

// DefaultDir returns $XDG_CONFIG_HOME/stockfolio, falling back to ~/.config/stockfolio.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, DefaultNamespace)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", DefaultNamespace)
}

// FileStore keeps the session in a single JSON document. The document is
// the namespace: Clear removes the file.
type FileStore struct {
	path string
	log  *zap.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore stores credentials in dir/credentials.json.
func NewFileStore(dir string, log *zap.Logger) *FileStore {
	return &FileStore{path: filepath.Join(dir, FileName), log: logger.OrNop(log)}
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

// Read loads the document; a missing file is an empty snapshot.
func (s *FileStore) Read(context.Context) Snapshot {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("credstore: read failed, treating as empty", zap.String("path", s.path), zap.Error(err))
		}
		return Snapshot{}
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		s.log.Warn("credstore: corrupt document, treating as empty", zap.String("path", s.path), zap.Error(err))
		return Snapshot{}
	}
	return fromFields(m, s.log)
}

// Write replaces the document via temp file + rename so readers see either
// the old or the new snapshot.
func (s *FileStore) Write(_ context.Context, snap Snapshot) error {
	m, err := toFields(snap)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }() // no-op after a successful rename

	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the document.
func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
