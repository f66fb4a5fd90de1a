// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults,
// lets command-line flags override them, and validates all settings on startup
// to fail fast on misconfiguration.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Transfer TransferConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds storage connection settings. Host, User, Password and
// Name are the defaults offered at the login prompt.
type DatabaseConfig struct {
	// Driver selects the store: postgres or sqlite (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is a complete PostgreSQL connection string. When set, login tries it
	// before prompting. Supports both DATABASE_URL and DB_URL env vars.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Host is the database server host (default: localhost)
	Host string `env:"DB_HOST" default:"localhost"`

	// Port is the database server port (default: 5432)
	Port int `env:"DB_PORT" default:"5432"`

	// User is the login role (default: root)
	User string `env:"DB_USER" default:"root"`

	// Password is the login password
	Password string `env:"DB_PASSWORD"`

	// Name is the database to connect to (default: postgres)
	Name string `env:"DB_NAME" default:"postgres"`

	// Schema is selected right after login (default: public)
	Schema string `env:"DB_SCHEMA" default:"public"`

	// SSLMode is passed to PostgreSQL as sslmode (default: prefer)
	SSLMode string `env:"DB_SSLMODE" default:"prefer"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds each login attempt (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`

	// SQLiteDir holds one .db file per schema when Driver is sqlite (default: ./data)
	SQLiteDir string `env:"SQLITE_DIR" default:"./data"`
}

// TransferConfig holds CSV and table transfer settings.
type TransferConfig struct {
	// MaxFileSize is the maximum CSV size in bytes, after decompression (default: 100MB)
	MaxFileSize int64 `env:"CSV_MAX_FILE_SIZE" default:"104857600"`

	// BatchSize is the number of rows per INSERT batch when appending (default: 1000)
	BatchSize int `env:"INSERT_BATCH_SIZE" default:"1000"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Credentials are the values entered at the login prompt. A non-empty URL
// is used as-is instead of the other fields.
type Credentials struct {
	URL      string
	Host     string
	User     string
	Password string
	Database string
}

// DefaultCredentials returns the login defaults from the configuration.
func (c *DatabaseConfig) DefaultCredentials() Credentials {
	return Credentials{
		Host:     c.Host,
		User:     c.User,
		Password: c.Password,
		Database: c.Name,
	}
}

// DSN builds a PostgreSQL connection URL from login credentials. A host given
// as host:port keeps its port; otherwise Port is used.
func (c *DatabaseConfig) DSN(cr Credentials) string {
	if cr.URL != "" {
		return cr.URL
	}

	host := cr.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(c.Port))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cr.User, cr.Password),
		Host:   host,
		Path:   "/" + cr.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
