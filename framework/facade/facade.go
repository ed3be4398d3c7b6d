// Package facade provides static-style access to container services.
//
// Laravel facades forward static calls to the container through magic
// methods. Here every facade is an explicit adapter over a resolved
// service, and the application is passed in rather than held globally:
//
//	// Laravel: Config::get('app.name')
//	name := facade.Config(a).String("app.name", "")
//
//	// Laravel: Log::info('booted')
//	facade.Log(a).Info("booted")
package facade

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/app"
	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
)

// Facade resolves the service bound as Accessor.
//
//	var Mailer = facade.Facade[*mail.Mailer]{Accessor: "mailer"}
//	Mailer.Resolve(a).Send(msg)
type Facade[T any] struct {
	Accessor string
}

// Resolve returns the service, panicking when it cannot be resolved, like
// a Laravel facade whose accessor is unbound.
func (f Facade[T]) Resolve(a *app.Application) T {
	return container.MustResolve[T](a.Container, f.Accessor)
}

// Try returns the service or the resolution error.
func (f Facade[T]) Try(a *app.Application) (T, error) {
	return container.Resolve[T](a.Container, f.Accessor)
}

var (
	configFacade = Facade[*config.Repository]{Accessor: "config.repository"}
	logFacade    = Facade[*zap.Logger]{Accessor: "log"}
	dbFacade     = Facade[*sql.DB]{Accessor: "db"}
)

// ── Config ────────────────────────────────────────────────────────────────────

// ConfigFacade delegates to the "config.repository" service.
type ConfigFacade struct{ repo *config.Repository }

// Config returns the configuration facade of a.
func Config(a *app.Application) ConfigFacade {
	return ConfigFacade{repo: configFacade.Resolve(a)}
}

func (f ConfigFacade) Get(key string) (any, bool)          { return f.repo.Get(key) }
func (f ConfigFacade) Has(key string) bool                 { return f.repo.Has(key) }
func (f ConfigFacade) String(key, fallback string) string  { return f.repo.GetString(key, fallback) }
func (f ConfigFacade) Int(key string, fallback int) int    { return f.repo.GetInt(key, fallback) }
func (f ConfigFacade) Bool(key string, fallback bool) bool { return f.repo.GetBool(key, fallback) }
func (f ConfigFacade) Set(key string, value any)           { f.repo.Set(key, value) }

// ── Log ───────────────────────────────────────────────────────────────────────

// LogFacade delegates to the "log" service.
type LogFacade struct{ logger *zap.Logger }

// Log returns the logging facade of a.
func Log(a *app.Application) LogFacade {
	return LogFacade{logger: logFacade.Resolve(a)}
}

func (f LogFacade) Debug(msg string, fields ...zap.Field) { f.logger.Debug(msg, fields...) }
func (f LogFacade) Info(msg string, fields ...zap.Field)  { f.logger.Info(msg, fields...) }
func (f LogFacade) Warn(msg string, fields ...zap.Field)  { f.logger.Warn(msg, fields...) }
func (f LogFacade) Error(msg string, fields ...zap.Field) { f.logger.Error(msg, fields...) }

// Channel returns a facade over a named child logger.
//
//	// Laravel: Log::channel('audit')->info(...)
func (f LogFacade) Channel(name string) LogFacade {
	return LogFacade{logger: f.logger.Named(name)}
}

// ── DB ────────────────────────────────────────────────────────────────────────

// DBFacade delegates to the "db" service.
type DBFacade struct{ db *sql.DB }

// DB returns the database facade of a. The first call opens the pool.
func DB(a *app.Application) DBFacade {
	return DBFacade{db: dbFacade.Resolve(a)}
}

// Statement runs a statement that returns no rows.
//
//	// Laravel: DB::statement('create table ...')
func (f DBFacade) Statement(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return f.db.ExecContext(ctx, query, args...)
}

// Select runs a query.
//
//	// Laravel: DB::select('select * from users where id = ?', [1])
func (f DBFacade) Select(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return f.db.QueryContext(ctx, query, args...)
}

// SelectOne runs a query expected to return at most one row.
func (f DBFacade) SelectOne(ctx context.Context, query string, args ...any) *sql.Row {
	return f.db.QueryRowContext(ctx, query, args...)
}

// Transaction runs fn inside a transaction, rolling back when fn fails.
//
//	// Laravel: DB::transaction(fn() => ...)
func (f DBFacade) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
