package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt marks a roster snapshot that exists but cannot be decoded.
// The registry treats it as fatal at startup: better to stop than to run
// with partial or guessed state.
var ErrCorrupt = errors.New("registry snapshot is corrupt")

// Store persists the full roster snapshot.
type Store interface {
	// Load returns the persisted roster, or (nil, nil) when no snapshot
	// exists yet.
	Load() ([]Artist, error)

	// Save atomically overwrites the snapshot. A concurrent reader sees
	// either the old or the new complete content, never a partial write.
	Save(artists []Artist) error
}

type snapshot struct {
	Artists []Artist `json:"artists"`
}

// FileStore keeps the roster in a single pretty-printed JSON file, written
// via temp file + rename so readers never observe a torn snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]Artist, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if snap.Artists == nil {
		snap.Artists = []Artist{}
	}
	return snap.Artists, nil
}

func (s *FileStore) Save(artists []Artist) error {
	if artists == nil {
		artists = []Artist{}
	}
	b, err := json.MarshalIndent(snapshot{Artists: artists}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
