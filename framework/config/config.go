package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the typed application configuration bound as "config".
type Config struct {
	App       AppConfig
	DB        DBConfig
	Log       LogConfig
	Container ContainerConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	URL   string
	Port  string
	Key   string
}

type DBConfig struct {
	Driver   string
	Database string // DSN handed to sql.Open
}

type LogConfig struct {
	Level string // debug | info | warn | error
	// Resolutions logs every container resolution through ioc.LoggingMiddleware.
	Resolutions bool
}

// ContainerConfig holds the options of the root IoC container.
type ContainerConfig struct {
	DefaultScope        string // transient | singleton | request
	SkipBaseClassChecks bool
	AutoBindInjectable  bool
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoBootstrap"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			URL:   env("APP_URL", "http://localhost"),
			Port:  env("APP_PORT", "8000"),
			Key:   env("APP_KEY", ""),
		},
		DB: DBConfig{
			Driver:   env("DB_DRIVER", "sqlite3"),
			Database: env("DB_DATABASE", "file::memory:?cache=shared"),
		},
		Log: LogConfig{
			Level:       env("LOG_LEVEL", "info"),
			Resolutions: envBool("LOG_RESOLUTIONS", false),
		},
		Container: ContainerConfig{
			DefaultScope:        env("CONTAINER_DEFAULT_SCOPE", "transient"),
			SkipBaseClassChecks: envBool("CONTAINER_SKIP_BASE_CLASS_CHECKS", false),
			AutoBindInjectable:  envBool("CONTAINER_AUTOBIND", false),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
