// Package settings stores the user's generation preferences. Failures are
// logged and reported as false rather than returned.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	KeyAPIKey = "gemini_api_key"
	KeyModel  = "selected_gemini_model"
)

// Models lists the generation models offered to users, default first.
var Models = []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-1.0-pro"}

type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) bool
}

// MemoryStore keeps settings for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return true
}

// FileStore persists settings as a flat YAML map. The file is re-read on every
// Get so edits made by hand are picked up.
type FileStore struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (f *FileStore) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Str("key", key).Msg("failed to read settings")
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (f *FileStore) Set(key, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Msg("discarding unreadable settings")
		values = make(map[string]string)
	}
	values[key] = value

	if err := f.save(values); err != nil {
		f.logger.Error().Err(err).Str("path", f.path).Str("key", key).Msg("failed to save setting")
		return false
	}
	return true
}

func (f *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (f *FileStore) save(values map[string]string) error {
	b, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Lookup returns the first non-empty value among the request value, the
// stored value for key and the fallback.
func Lookup(s Store, key, requested, fallback string) string {
	if requested != "" {
		return requested
	}
	if s != nil {
		if v, ok := s.Get(key); ok && v != "" {
			return v
		}
	}
	return fallback
}
