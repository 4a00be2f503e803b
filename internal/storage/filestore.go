package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/natefinch/atomic"
)

// SnapshotFileName is the file the snapshot is kept in, inside the data directory.
const SnapshotFileName = "movies.json"

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

var ErrCorruptSnapshot = errors.New("corrupt snapshot")

var _ internal.SnapshotStore = (*FileStore)(nil)

// FileStore keeps the snapshot as indented JSON. Saves replace the file atomically,
// so a crash mid-write leaves the previous snapshot intact.
type FileStore struct {
	path string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, SnapshotFileName)}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (*internal.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no snapshot yet", "path", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot internal.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, s.path, err)
	}
	if snapshot.Movies == nil {
		snapshot.Movies = []internal.MovieRecord{}
	}
	return &snapshot, nil
}

func (s *FileStore) Save(_ context.Context, snapshot internal.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerms); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	// atomic.WriteFile keeps the temp file's permissions for new files
	if err := os.Chmod(s.path, filePerms); err != nil {
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	slog.Debug("saved snapshot", "path", s.path, "count", snapshot.Count)
	return nil
}
