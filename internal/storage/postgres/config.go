package postgres

import (
	"fmt"

	"game-portal/internal/common/errors"
)

// Config holds PostgreSQL connection settings
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`
}

// Validate checks required connection settings
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.ConfigError("postgres host is required")
	}
	if c.Database == "" {
		return errors.ConfigError("postgres database is required")
	}
	if c.User == "" {
		return errors.ConfigError("postgres user is required")
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	return nil
}

// ConnectionString renders the config as a DSN for the pgx stdlib driver
func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}
