// Package state persists session metadata to disk. Conversation history
// lives with the agent; this store only tracks which sessions exist locally
// and where their workspace directories are.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/sketchd/internal/types"
)

// metaFile is the on-disk format of sessions.json.
type metaFile struct {
	Sessions []types.SessionMeta `json:"sessions"`
}

// MetaStore is a JSON-file-backed session metadata store. The index lives at
// sessions/sessions.json under the root, with one workspace directory per
// session at sessions/<sessionID>/.
type MetaStore struct {
	root string
	mu   sync.Mutex
}

// NewMetaStore creates a file-backed MetaStore rooted at the given
// directory.
func NewMetaStore(root string) *MetaStore {
	return &MetaStore{root: root}
}

func (m *MetaStore) indexPath() string {
	return filepath.Join(m.root, "sessions", "sessions.json")
}

func (m *MetaStore) sessionsDir() string {
	return filepath.Join(m.root, "sessions")
}

// Dir returns the session's workspace directory, creating it if needed.
func (m *MetaStore) Dir(id types.SessionID) string {
	dir := filepath.Join(m.sessionsDir(), string(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir
	}
	return dir
}

func (m *MetaStore) load() (*metaFile, error) {
	data, err := os.ReadFile(m.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &metaFile{}, nil
		}
		return nil, fmt.Errorf("read session index: %w", err)
	}
	var file metaFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal session index: %w", err)
	}
	return &file, nil
}

// save marshals with indentation and writes atomically via temp-and-rename.
func (m *MetaStore) save(file *metaFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session index: %w", err)
	}
	if err := os.MkdirAll(m.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}
	tmp := m.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := os.Rename(tmp, m.indexPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp index: %w", err)
	}
	return nil
}

// Save upserts the metadata record by session id.
func (m *MetaStore) Save(meta types.SessionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := m.load()
	if err != nil {
		return err
	}
	for i, existing := range file.Sessions {
		if existing.ID == meta.ID {
			file.Sessions[i] = meta
			return m.save(file)
		}
	}
	file.Sessions = append(file.Sessions, meta)
	return m.save(file)
}

// Load returns all session metadata records.
func (m *MetaStore) Load() ([]types.SessionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := m.load()
	if err != nil {
		return nil, err
	}
	return file.Sessions, nil
}

// Delete removes the record and the session's workspace directory.
func (m *MetaStore) Delete(id types.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := m.load()
	if err != nil {
		return err
	}
	kept := file.Sessions[:0]
	for _, s := range file.Sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	file.Sessions = kept
	if err := m.save(file); err != nil {
		return err
	}

	dir := filepath.Join(m.sessionsDir(), string(id))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}
