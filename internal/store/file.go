package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bookshop-bot/internal/util"

	"go.uber.org/zap"
)

// FileBackend persists each collection as a pretty-printed JSON file in a
// data directory, the same on-disk shape the service has always used.
type FileBackend struct {
	dir    string
	logger *zap.Logger
}

// NewFileBackend creates the data directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	return &FileBackend{dir: dir, logger: util.GetLogger()}, nil
}

func (f *FileBackend) path(collection string) string {
	return filepath.Join(f.dir, collection+".json")
}

// Load reads a collection file into out. A missing file or undecodable
// content leaves out untouched and returns nil.
func (f *FileBackend) Load(_ context.Context, collection string, out interface{}) error {
	data, err := os.ReadFile(f.path(collection))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read collection %s: %w", collection, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		f.logger.Warn("Corrupt collection file, treating as empty",
			zap.String("collection", collection),
			zap.Error(err))
		return nil
	}
	return nil
}

// Replace writes the collection to a temp file and renames it into place,
// so a crash mid-write never leaves a half-written collection.
func (f *FileBackend) Replace(_ context.Context, collection string, data interface{}) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collection %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(f.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", collection, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", collection, err)
	}

	if err := os.Rename(tmpName, f.path(collection)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace collection %s: %w", collection, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (f *FileBackend) Close() error {
	return nil
}
