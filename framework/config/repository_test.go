package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-bootstrap/framework/config"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRepository_SetGet(t *testing.T) {
	r := config.NewRepository()
	r.Set("app.name", "demo")
	r.Set("app.debug", true)

	v, ok := r.Get("app.name")
	require.True(t, ok)
	assert.Equal(t, "demo", v)
	assert.True(t, r.GetBool("app.debug", false))
	assert.True(t, r.Has("app"))
	assert.False(t, r.Has("app.name.first"), "scalars have no children")
	assert.Equal(t, "fallback", r.GetString("app.url", "fallback"))
}

func TestRepository_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.yaml", "name: demo\nport: 8080\nfeatures:\n  search: true\n")
	writeFile(t, dir, "database.yml", "default: sqlite\nconnections:\n  sqlite:\n    database: ':memory:'\n")
	writeFile(t, dir, "notes.txt", "ignored")

	r := config.NewRepository()
	require.NoError(t, r.LoadDir(dir))

	assert.Equal(t, "demo", r.GetString("app.name", ""))
	assert.Equal(t, 8080, r.GetInt("app.port", 0))
	assert.True(t, r.GetBool("app.features.search", false))
	assert.Equal(t, ":memory:", r.GetString("database.connections.sqlite.database", ""))
	assert.False(t, r.Has("notes"))
}

func TestRepository_LoadFileMergesDeeply(t *testing.T) {
	base := t.TempDir()
	override := t.TempDir()
	first := writeFile(t, base, "app.yaml", "name: demo\nfeatures:\n  search: true\n  export: false\n")
	second := writeFile(t, override, "app.yaml", "features:\n  export: true\n")

	r := config.NewRepository()
	require.NoError(t, r.LoadFile(first))
	require.NoError(t, r.LoadFile(second))

	assert.Equal(t, "demo", r.GetString("app.name", ""))
	assert.True(t, r.GetBool("app.features.search", false))
	assert.True(t, r.GetBool("app.features.export", false))
}

func TestRepository_LoadFileErrors(t *testing.T) {
	r := config.NewRepository()
	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := writeFile(t, t.TempDir(), "bad.yaml", "a: [unclosed\n")
	assert.Error(t, r.LoadFile(bad))
}

func TestRepository_LoadEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".env", "APP_NAME=fromfile\nWORKERS=4\n")

	r := config.NewRepository()
	require.NoError(t, r.LoadEnv(path))

	assert.Equal(t, "fromfile", r.GetString("env.APP_NAME", ""))
	assert.Equal(t, 4, r.GetInt("env.WORKERS", 0))
	assert.Empty(t, os.Getenv("WORKERS"), "the process environment is untouched")
}

func TestRepository_AllIsACopy(t *testing.T) {
	r := config.NewRepository()
	r.Set("app.name", "demo")

	all := r.All()
	all["app"].(map[string]any)["name"] = "changed"

	assert.Equal(t, "demo", r.GetString("app.name", ""))
}
