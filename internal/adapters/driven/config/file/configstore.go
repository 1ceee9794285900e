package file

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// FileName is the settings file inside the data directory.
const FileName = "config.toml"

// ConfigStore keeps settings in a TOML file. Every change is written
// through immediately; a change that cannot be written is undone.
type ConfigStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
}

// DefaultDir returns ~/.bisync.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".bisync"), nil
}

// NewConfigStore opens dir/config.toml, creating dir if needed.
// A missing file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{path: filepath.Join(dir, FileName)}
	values, err := readFile(s.path)
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Get returns the raw value of key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	return s.update(func(values map[string]any) {
		values[key] = value
	})
}

// Unset removes key and rewrites the file. Removing a missing key is not an error.
func (s *ConfigStore) Unset(key string) error {
	return s.update(func(values map[string]any) {
		delete(values, key)
	})
}

// Keys returns every stored key in sorted order.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Path returns the settings file path.
func (s *ConfigStore) Path() string {
	return s.path
}

func (s *ConfigStore) update(change func(map[string]any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.values)
	change(next)
	if err := writeFile(s.path, next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	values := make(map[string]any)
	flatten(tree, "", values)
	return values, nil
}

// writeFile replaces path atomically with owner-only permissions, since
// the file may hold a token secret.
func writeFile(path string, values map[string]any) error {
	tree, err := nest(values)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// flatten turns {"server": {"url": x}} into {"server.url": x}.
func flatten(tree map[string]any, prefix string, out map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(sub, k, out)
			continue
		}
		out[k] = v
	}
}

// nest is the inverse of flatten. A key that is both a value and a table
// (e.g. "server" and "server.url") is rejected.
func nest(values map[string]any) (map[string]any, error) {
	tree := make(map[string]any)
	for _, key := range slices.Sorted(maps.Keys(values)) {
		parts := strings.Split(key, ".")
		node := tree
		for _, part := range parts[:len(parts)-1] {
			switch child := node[part].(type) {
			case nil:
				sub := make(map[string]any)
				node[part] = sub
				node = sub
			case map[string]any:
				node = child
			default:
				return nil, fmt.Errorf("config key %q conflicts with value %q", key, part)
			}
		}
		leaf := parts[len(parts)-1]
		if _, ok := node[leaf].(map[string]any); ok {
			return nil, fmt.Errorf("config key %q conflicts with a table", key)
		}
		node[leaf] = values[key]
	}
	return tree, nil
}
