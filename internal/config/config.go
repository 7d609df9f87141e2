package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Database    DatabaseConfig
	Preferences PreferencesConfig
	Filters     FiltersConfig
	Events      EventsConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	StaticDir       string
}

// DatabaseConfig holds the optional PostgreSQL connection settings. Either
// URL or a Cloud SQL instance with its credentials may be given.
type DatabaseConfig struct {
	URL           string
	MigrationsDir string

	InstanceConnectionName string
	User                   string
	Password               string
	Name                   string
}

// Enabled reports whether a database was configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.InstanceConnectionName != ""
}

// PreferencesConfig selects where the filter query is persisted.
type PreferencesConfig struct {
	Backend    string
	SQLitePath string
	Owner      string
}

// FiltersConfig holds filter engine settings.
type FiltersConfig struct {
	Locale string
}

// EventsConfig selects where events are loaded from and how often.
type EventsConfig struct {
	File            string
	RefreshInterval time.Duration
}

// Persistence backends accepted by PREFERENCES_BACKEND.
const (
	PreferencesMemory   = "memory"
	PreferencesSQLite   = "sqlite"
	PreferencesPostgres = "postgres"
)

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string

	// Service is attached to every record as the "service" attribute.
	Service   string
	AddSource bool
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat  = "json"
	defaultLogService = "partyevents"

	defaultMigrationsDir   = "migrations"
	defaultSQLitePath      = "partyevents.db"
	defaultPreferenceOwner = "default"
	defaultFilterLocale    = "fr"
	defaultEventsFile      = "data/events.yaml"
	defaultEventsRefresh   = 60 * time.Second
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			StaticDir:       os.Getenv("WEB_STATIC_DIR"),
		},
		Logging: LoggingConfig{
			Level:   slog.LevelInfo,
			Format:  defaultLogFormat,
			Service: getEnv("LOG_SERVICE", defaultLogService),
		},
		Database: DatabaseConfig{
			URL:                    os.Getenv("DATABASE_URL"),
			MigrationsDir:          getEnv("MIGRATIONS_DIR", defaultMigrationsDir),
			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
			User:                   os.Getenv("DB_USER"),
			Password:               os.Getenv("DB_PASSWORD"),
			Name:                   os.Getenv("DB_NAME"),
		},
		Preferences: PreferencesConfig{
			SQLitePath: getEnv("PREFERENCES_SQLITE_PATH", defaultSQLitePath),
			Owner:      getEnv("PREFERENCES_OWNER", defaultPreferenceOwner),
		},
		Filters: FiltersConfig{
			Locale: getEnv("FILTER_LOCALE", defaultFilterLocale),
		},
		Events: EventsConfig{
			File:            getEnv("EVENTS_FILE", defaultEventsFile),
			RefreshInterval: defaultEventsRefresh,
		},
	}

	// Default to the database when one is configured, otherwise to a local file.
	cfg.Preferences.Backend = PreferencesSQLite
	if cfg.Database.Enabled() {
		cfg.Preferences.Backend = PreferencesPostgres
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("LOG_ADD_SOURCE"); v != "" {
		addSource, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_ADD_SOURCE: %w", err)
		}
		cfg.Logging.AddSource = addSource
	}

	if v := os.Getenv("PREFERENCES_BACKEND"); v != "" {
		switch v {
		case PreferencesMemory, PreferencesSQLite, PreferencesPostgres:
			cfg.Preferences.Backend = v
		default:
			return Config{}, fmt.Errorf("invalid PREFERENCES_BACKEND: must be 'memory', 'sqlite' or 'postgres'")
		}
	}
	if cfg.Preferences.Backend == PreferencesPostgres && !cfg.Database.Enabled() {
		return Config{}, fmt.Errorf("invalid PREFERENCES_BACKEND: 'postgres' requires DATABASE_URL or INSTANCE_CONNECTION_NAME")
	}
	if cfg.Database.URL == "" && cfg.Database.InstanceConnectionName != "" &&
		(cfg.Database.User == "" || cfg.Database.Name == "") {
		return Config{}, fmt.Errorf("invalid INSTANCE_CONNECTION_NAME: DB_USER and DB_NAME must be set")
	}

	if v := os.Getenv("EVENTS_REFRESH_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EVENTS_REFRESH_SECONDS: %w", err)
		}
		cfg.Events.RefreshInterval = d
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
