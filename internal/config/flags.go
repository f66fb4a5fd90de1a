package config

import (
	flag "github.com/spf13/pflag"
)

// Flag names. Each one overrides the environment variable named in its usage.
const (
	FlagDriver    = "driver"
	FlagDSN       = "dsn"
	FlagSQLiteDir = "sqlite-dir"
	FlagSchema    = "schema"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
	FlagEnvFile   = "env-file"
)

// RegisterFlags adds the configuration flags to fs. Flags left unset do not
// touch the values loaded from the environment.
func RegisterFlags(fs *flag.FlagSet) {
	fs.String(FlagDriver, "", "storage driver: postgres or sqlite (or set DB_DRIVER env var)")
	fs.String(FlagDSN, "", "PostgreSQL connection URL tried before the login prompt (or set DATABASE_URL env var)")
	fs.String(FlagSQLiteDir, "", "directory of SQLite schema files (or set SQLITE_DIR env var)")
	fs.String(FlagSchema, "", "schema selected after login (or set DB_SCHEMA env var)")
	fs.String(FlagLogLevel, "", "minimum log level: debug, info, warn, error (or set LOG_LEVEL env var)")
	fs.String(FlagLogFormat, "", "log format: text or json (or set LOG_FORMAT env var)")
	fs.String(FlagEnvFile, ".env", "file of environment variables loaded at startup")
}

// applyFlags copies every changed flag onto cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) error {
	targets := map[string]*string{
		FlagDriver:    &cfg.Database.Driver,
		FlagDSN:       &cfg.Database.URL,
		FlagSQLiteDir: &cfg.Database.SQLiteDir,
		FlagSchema:    &cfg.Database.Schema,
		FlagLogLevel:  &cfg.Logging.Level,
		FlagLogFormat: &cfg.Logging.Format,
	}

	for name, dst := range targets {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}
