package credential

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	apperrors "antigravity-gateway/internal/errors"
	log "github.com/sirupsen/logrus"
)

// FileStore persists the credential list as a single pretty-printed JSON
// array. Writes go through a temp file and
// os.Rename so a crash mid-write never leaves a truncated file behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a Store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) ([]*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() ([]*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageCorrupt("read credential store: " + err.Error())
	}
	if len(data) == 0 {
		return nil, nil
	}
	var list []*Credential
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, apperrors.StorageCorrupt("parse credential store: " + err.Error())
	}
	return list, nil
}

func (s *FileStore) Save(_ context.Context, list []*Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(list)
}

func (s *FileStore) saveLocked(list []*Credential) error {
	if list == nil {
		list = []*Credential{}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
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
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *FileStore) Import(_ context.Context, records []*Credential, opts ImportOptions) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadLocked()
	if err != nil {
		return ImportResult{}, err
	}
	merged, result := mergeImport(existing, records, opts)
	if err := s.saveLocked(merged); err != nil {
		return ImportResult{}, err
	}
	log.WithFields(log.Fields{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"total":    result.Total,
	}).Info("credential import complete")
	return result, nil
}

func (s *FileStore) ReplaceAt(_ context.Context, index int, record *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list[index] = record
	return s.saveLocked(list)
}

func (s *FileStore) RemoveAt(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list = append(list[:index], list[index+1:]...)
	return s.saveLocked(list)
}

func (s *FileStore) SetEnabled(_ context.Context, index int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list[index].Enabled = enabled
	return s.saveLocked(list)
}

// RemoveAllDisabled implements the panel's "delete all disabled" sweep
//.
func (s *FileStore) RemoveAllDisabled(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return 0, err
	}
	kept := list[:0]
	removed := 0
	for _, c := range list {
		if !c.Enabled {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	if err := s.saveLocked(kept); err != nil {
		return 0, err
	}
	return removed, nil
}
