package database

import (
	"fmt"
	"net/url"

	"github.com/partyevents/partyevents/internal/config"
)

// ConnectionString returns the PostgreSQL connection string for cfg. A
// configured URL wins; otherwise the Cloud SQL Unix socket mounted by Cloud
// Run at /cloudsql/<instance> is used.
func ConnectionString(cfg config.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	if cfg.InstanceConnectionName == "" {
		return "", fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	host := "/cloudsql/" + cfg.InstanceConnectionName
	if cfg.Password == "" {
		// IAM authentication
		return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable", host, cfg.User, cfg.Name), nil
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
		host, cfg.User, cfg.Password, cfg.Name), nil
}

// ConnectionInfo describes cfg for logging without exposing credentials.
func ConnectionInfo(cfg config.DatabaseConfig) map[string]string {
	switch {
	case cfg.URL != "":
		return map[string]string{
			"connection_type": "direct",
			"database_url":    redactURL(cfg.URL),
		}
	case cfg.InstanceConnectionName != "":
		return map[string]string{
			"connection_type": "cloud_sql",
			"instance":        cfg.InstanceConnectionName,
			"user":            cfg.User,
			"database":        cfg.Name,
		}
	default:
		return map[string]string{"connection_type": "none"}
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "[unparseable]"
	}
	return u.Redacted()
}
