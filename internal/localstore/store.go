// Package localstore is the durable client-side key/value store backing the
// credential cookie and the persisted session snapshot.
//
// The store fails open: no operation returns an error or panics. Underlying
// file or codec failures are logged at Warn and the in-memory view keeps
// serving, so a restrictive environment can never break page rendering.
package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Store is a namespaced key/value store persisted as a JSON snapshot file.
// All keys are implicitly prefixed with the configured namespace.
type Store struct {
	mu     sync.Mutex
	prefix string
	path   string
	values map[string]string
	log    *logrus.Logger
}

// New creates a Store persisted at path, loading any existing snapshot.
// An empty path keeps the store purely in-memory.
func New(path, prefix string, log *logrus.Logger) *Store {
	s := &Store{
		prefix: prefix,
		path:   path,
		values: make(map[string]string),
		log:    log,
	}
	s.load()
	return s
}

// Get returns the value stored under key. Values that are syntactically
// valid JSON are decoded; anything else comes back as the raw string.
// A missing key yields nil.
func (s *Store) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.values[s.prefix+key]
	if !ok {
		return nil
	}
	if gjson.Valid(raw) {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	return raw
}

// GetString returns the raw string stored under key, or "" when absent.
func (s *Store) GetString(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[s.prefix+key]
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[s.prefix+key]
	return ok
}

// Set stores value under key. Non-string values are JSON-serialized first;
// strings are stored as-is.
func (s *Store) Set(key string, value any) {
	raw, ok := value.(string)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil {
			s.log.Warnf("localstore: encode value for %q: %v", key, err)
			return
		}
		raw = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[s.prefix+key] = raw
	s.flush()
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, s.prefix+key)
	s.flush()
}

func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnf("localstore: read %s: %v", s.path, err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		s.log.Warnf("localstore: parse %s: %v", s.path, err)
	}
}

// flush rewrites the snapshot file. Callers hold s.mu.
func (s *Store) flush() {
	if s.path == "" {
		return
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		s.log.Warnf("localstore: encode snapshot: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.log.Warnf("localstore: create state dir: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.log.Warnf("localstore: write %s: %v", s.path, err)
	}
}
