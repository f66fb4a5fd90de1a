// Package application is the interactive operator shell: login, the main
// menu and the upload, download, split and schema actions behind it.
package application

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/JonMunkholm/csvbridge/internal/config"
	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/csvfile"
	"github.com/JonMunkholm/csvbridge/internal/logging"
	"github.com/JonMunkholm/csvbridge/internal/prompt"
	"github.com/JonMunkholm/csvbridge/internal/storage/postgres"
	"github.com/JonMunkholm/csvbridge/internal/storage/sqlite"
)

// Connector opens a store for a login attempt.
type Connector func(ctx context.Context, cr config.Credentials) (core.Store, error)

// NewConnector returns the Connector for cfg.Database.Driver. Each attempt
// is bounded by the configured connect timeout.
func NewConnector(cfg *config.Config) Connector {
	return func(ctx context.Context, cr config.Credentials) (core.Store, error) {
		if t := cfg.Database.ConnectTimeout; t > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}

		if cfg.Database.Driver == config.DriverSQLite {
			return sqlite.Open(ctx, cfg.Database.SQLiteDir, cfg.Database.Schema)
		}
		return postgres.Connect(ctx, cfg.Database.DSN(cr), postgres.OptionsFromConfig(cfg))
	}
}

// App holds the session: the operator dialog, the file handler and, after
// login, the store. The store is closed exactly once when Run returns.
type App struct {
	cfg     *config.Config
	shell   *prompt.Shell
	files   *csvfile.Handler
	connect Connector
	clock   clockwork.Clock

	store core.Store
}

// New creates an App.
func New(cfg *config.Config, shell *prompt.Shell, connect Connector) *App {
	return &App{
		cfg:     cfg,
		shell:   shell,
		files:   csvfile.New(cfg.Transfer.MaxFileSize),
		connect: connect,
		clock:   clockwork.NewRealClock(),
	}
}

// Run logs in and serves the main menu until the operator exits. It returns
// nil when the operator exits or gives up on login, and an error only when
// the input closes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.shell.Run(ctx, a.session)
}

func (a *App) session(ctx context.Context) error {
	store, err := a.login(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.shell.Println("Exiting...")
		return nil
	}

	a.store = store
	defer a.closeStore()

	err = a.runMenu(ctx, a.buildMenuTree())
	a.shell.Println("Exiting...")
	return err
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("close store", "error", err)
	}
	a.store = nil
}

/* ----------------------------------------
	LOGIN
---------------------------------------- */

// login connects, asking for credentials when the driver needs them. A
// configured URL is tried once before the first prompt. After a failed
// attempt the operator decides whether to try again; giving up returns a
// nil store.
func (a *App) login(ctx context.Context) (core.Store, error) {
	log := logging.WithFields(ctx, "driver", a.cfg.Database.Driver)

	if a.cfg.Database.Driver == config.DriverPostgres && a.cfg.Database.URL != "" {
		store, err := a.connect(ctx, config.Credentials{URL: a.cfg.Database.URL})
		if err == nil {
			return store, nil
		}
		log.Warn("configured database URL failed", "error", err)
		a.shell.Printf("Login with the configured URL failed: %s\n", core.FormatUserError(err))
	}

	for {
		var cr config.Credentials
		if a.cfg.Database.Driver == config.DriverPostgres {
			var err error
			if cr, err = a.askCredentials(ctx); err != nil {
				return nil, err
			}
		}

		a.shell.Println("Please wait...")
		store, err := a.connect(ctx, cr)
		if err == nil {
			return store, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Error("login failed", "host", cr.Host, "user", cr.User, "database", cr.Database, "error", err)
		a.shell.Printf("Login failed: %s\n", core.FormatUserError(err))

		again, err := a.shell.Confirm(ctx, "Try again?")
		if err != nil {
			return nil, err
		}
		if !again {
			return nil, nil
		}
	}
}

func (a *App) askCredentials(ctx context.Context) (config.Credentials, error) {
	cr := a.cfg.Database.DefaultCredentials()

	fields := []struct {
		label  string
		dst    *string
		secret bool
	}{
		{"Enter database host", &cr.Host, false},
		{"Enter username", &cr.User, false},
		{"Enter password", &cr.Password, true},
		{"Enter database name", &cr.Database, false},
	}
	for _, f := range fields {
		ask := a.shell.Text
		label := f.label + " (default: " + *f.dst + "): "
		if f.secret {
			ask = a.shell.Secret
			label = f.label + ": "
		}
		v, err := ask(ctx, label)
		if err != nil {
			return cr, err
		}
		if v != "" {
			*f.dst = v
		}
	}
	return cr, nil
}
