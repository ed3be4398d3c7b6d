package facade_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-bootstrap/framework/app"
	"github.com/km-arc/go-bootstrap/framework/facade"
)

func newApp(t *testing.T) (*app.Application, *observer.ObservedLogs) {
	t.Helper()
	t.Setenv("APP_NAME", "FacadeApp")
	t.Setenv("DB_DATABASE", "file:facade_test?mode=memory&cache=shared")
	core, logs := observer.New(zap.DebugLevel)
	a, err := app.New(
		app.WithEnvFiles(filepath.Join(t.TempDir(), "missing.env")),
		app.WithConfigDir(t.TempDir()),
		app.WithLogger(zap.New(core)),
	)
	require.NoError(t, err)
	require.NoError(t, a.Boot())
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a, logs
}

func TestConfigFacade(t *testing.T) {
	a, _ := newApp(t)
	cfg := facade.Config(a)

	assert.Equal(t, "FacadeApp", cfg.String("app.name", ""))
	cfg.Set("features.search", true)
	assert.True(t, cfg.Bool("features.search", false))
	assert.True(t, facade.Config(a).Has("features.search"), "facades share the resolved repository")
	assert.Equal(t, 3, cfg.Int("features.limit", 3))
}

func TestLogFacade(t *testing.T) {
	a, logs := newApp(t)
	facade.Log(a).Info("booted", zap.String("env", "testing"))
	facade.Log(a).Channel("audit").Warn("login failed")

	entries := logs.FilterMessage("booted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "testing", entries[0].ContextMap()["env"])

	audit := logs.FilterMessage("login failed").All()
	require.Len(t, audit, 1)
	assert.Equal(t, "audit", audit[0].LoggerName)
}

func TestDBFacade(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()
	db := facade.DB(a)

	_, err := db.Statement(ctx, "create table users (id integer primary key, name text)")
	require.NoError(t, err)

	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "insert into users (name) values (?)", "alice")
		return err
	})
	require.NoError(t, err)

	rollback := errors.New("abort")
	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "insert into users (name) values (?)", "bob"); err != nil {
			return err
		}
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	var count int
	require.NoError(t, db.SelectOne(ctx, "select count(*) from users").Scan(&count))
	assert.Equal(t, 1, count, "the aborted transaction is rolled back")

	rows, err := db.Select(ctx, "select name from users")
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"alice"}, names)
}

func TestFacade_Try(t *testing.T) {
	a, _ := newApp(t)
	_, err := facade.Facade[string]{Accessor: "missing"}.Try(a)
	assert.Error(t, err)

	assert.Panics(t, func() { facade.Facade[string]{Accessor: "missing"}.Resolve(a) })
}
