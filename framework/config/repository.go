package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Repository is a dotted-key configuration store, bound as
// "config.repository".
//
//	// Laravel: config('database.connections.sqlite.database')
//	repo.GetString("database.connections.sqlite.database", ":memory:")
//
// YAML files are namespaced by their base name, so config/app.yaml
// populates "app.*". Env files populate "env.*".
type Repository struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{items: make(map[string]any)}
}

// ── Loading ─────────────────────────────────────────────────────────────────

// LoadEnv reads dotenv files into "env.*" without touching the process
// environment.
func (r *Repository) LoadEnv(files ...string) error {
	values, err := godotenv.Read(files...)
	if err != nil {
		return fmt.Errorf("config: reading env files: %w", err)
	}
	for k, v := range values {
		r.Set("env."+k, v)
	}
	return nil
}

// LoadFile merges a YAML file under the namespace of its base name.
func (r *Repository) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	ns := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	r.mu.Lock()
	defer r.mu.Unlock()
	existing, _ := r.items[ns].(map[string]any)
	r.items[ns] = merge(existing, values)
	return nil
}

// LoadDir loads every *.yaml and *.yml file of dir in lexical order.
func (r *Repository) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	for _, f := range files {
		if err := r.LoadFile(f); err != nil {
			return err
		}
	}
	return nil
}

// ── Access ──────────────────────────────────────────────────────────────────

// Get returns the value at a dotted key.
func (r *Repository) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cur any = r.items
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether a dotted key is set.
func (r *Repository) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// GetString returns the value at key formatted as a string.
func (r *Repository) GetString(key, fallback string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetInt returns the value at key as an int.
func (r *Repository) GetInt(key string, fallback int) int {
	v, ok := r.Get(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return fallback
}

// GetBool returns the value at key as a bool.
func (r *Repository) GetBool(key string, fallback bool) bool {
	v, ok := r.Get(key)
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return fallback
}

// Set stores value at a dotted key, creating intermediate maps.
//
//	// Laravel: config(['app.debug' => true])
func (r *Repository) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := strings.Split(key, ".")
	m := r.items
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// All returns a deep copy of every item.
func (r *Repository) All() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return merge(nil, r.items)
}

// merge deep-copies src over dst; nested maps are merged, anything else
// is replaced.
func merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			dm, _ := out[k].(map[string]any)
			out[k] = merge(dm, sm)
			continue
		}
		out[k] = v
	}
	return out
}
