package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend persists the retained log slice as a single JSON array,
// written through a temp file and os.Rename — the same atomic-write idiom
// used by the credential FileStore.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a Backend backed by the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) LoadAll(_ context.Context) ([]LogEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (b *FileBackend) SaveAll(_ context.Context, entries []LogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entries == nil {
		entries = []LogEntry{}
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".usage-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
