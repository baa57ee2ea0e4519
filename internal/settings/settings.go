// Package settings persists client preferences in a small key-value file.
//
// The file holds one entry per key; the "settings" key carries the JSON
// encoded Settings value. A missing file or key yields the defaults.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Key is the storage key of the settings entry.
const Key = "settings"

// Settings are the user-adjustable client preferences.
type Settings struct {
	IncludeUnapproved bool `json:"includeUnapproved"`
}

// Store is a write-through settings store backed by a JSON file.
type Store struct {
	mu      sync.RWMutex
	path    string
	v       *viper.Viper
	current Settings
}

// Open creates a Store for the JSON file at path and loads it.
// A corrupt entry is reported but leaves the store usable with defaults.
func Open(path string) (*Store, error) {
	if filepath.Ext(path) != ".json" {
		return nil, fmt.Errorf("settings file %q must have a .json extension", path)
	}
	s := &Store{path: path}
	return s, s.Load()
}

// Load re-reads the file. Absent values fall back to defaults.
func (s *Store) Load() error {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	s.current = Settings{}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	raw := v.GetString(Key)
	if raw == "" {
		return nil
	}
	var loaded Settings
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	s.current = loaded
	return nil
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn and writes the result to disk before publishing it.
// On a write failure the previous settings stay in effect.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)

	raw, err := json.Marshal(next)
	if err != nil {
		return s.current, fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return s.current, fmt.Errorf("create settings dir: %w", err)
	}
	s.v.Set(Key, string(raw))
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return s.current, fmt.Errorf("write settings: %w", err)
	}

	s.current = next
	return next, nil
}

// SetIncludeUnapproved toggles whether rolls may return pending groups.
func (s *Store) SetIncludeUnapproved(include bool) error {
	_, err := s.Update(func(st *Settings) { st.IncludeUnapproved = include })
	return err
}
