// Package featureflags evaluates runtime switches for review and roll behaviour.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	// ReviewViewStamp stamps last_reviewed_at on every group listed to a
	// reviewer, so deferred groups wait out the cool-down window.
	ReviewViewStamp = "review_view_stamp"
	// PublicUnapprovedRolls lets anonymous and regular callers roll pending groups.
	PublicUnapprovedRolls = "public_unapproved_rolls"
)

// Flag describes a known switch and its default value.
type Flag struct {
	Name        string `json:"name"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

var known = []Flag{
	{Name: ReviewViewStamp, Default: "off", Description: "Stamp groups as reviewed when they are listed to an admin"},
	{Name: PublicUnapprovedRolls, Default: "on", Description: "Honour includeUnapproved on public rolls"},
}

// Known returns the switches the application reads.
func Known() []Flag {
	return append([]Flag(nil), known...)
}

// Manager evaluates flags from a key=value list such as
// "review_view_stamp=on,public_unapproved_rolls=25%". Unset known flags use
// their default.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]string
}

// NewManager parses a comma-separated flag list. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(known))
	for _, f := range known {
		out[f.Name] = f.Default
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || validValue(value) != nil {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Set overrides a flag at runtime.
func (m *Manager) Set(name, value string) error {
	name, value = normalize(name), normalize(value)
	if name == "" {
		return fmt.Errorf("flag name is required")
	}
	if err := validValue(value); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[name] = value
	return nil
}

// Enabled reports whether a flag is on for a user. Values are on/true/1,
// off/false/0 or N% for a deterministic per-user rollout.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	value, ok := m.flags[normalize(name)]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, err := percent(value)
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	raw := m.Raw()
	out := make(map[string]bool, len(raw))
	for name := range raw {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Names returns the configured flag names in order.
func (m *Manager) Names() []string {
	raw := m.Raw()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validValue(value string) error {
	switch value {
	case "on", "true", "1", "off", "false", "0":
		return nil
	}
	if _, err := percent(value); err != nil {
		return fmt.Errorf("invalid flag value %q: want on, off or N%%", value)
	}
	return nil
}

func percent(value string) (int, error) {
	raw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, fmt.Errorf("not a percentage")
	}
	return strconv.Atoi(raw)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
