package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/JonMunkholm/csvbridge/internal/application"
	"github.com/JonMunkholm/csvbridge/internal/config"
	"github.com/JonMunkholm/csvbridge/internal/logging"
	"github.com/JonMunkholm/csvbridge/internal/prompt"
)

func main() {
	fset := flag.NewFlagSet("csvbridge", flag.ContinueOnError)
	fset.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: csvbridge [flags]\n\nMove data between CSV files and database tables.\n\nFlags:\n")
		fset.PrintDefaults()
	}
	config.RegisterFlags(fset)
	if err := fset.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// Load the env file if it exists (Overload overwrites existing env vars).
	// A file named explicitly on the command line must exist.
	envFile, _ := fset.GetString(config.FlagEnvFile)
	if err := godotenv.Overload(envFile); err != nil {
		if fset.Changed(config.FlagEnvFile) || !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to load env file", "file", envFile, "error", err)
			os.Exit(1)
		}
		slog.Debug("no env file found, using environment variables", "file", envFile)
	}

	// Load and validate configuration
	cfg, err := config.Load(fset)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr so they never interleave with the prompts on stdout
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	// The first interrupt cancels in-flight work; the second one is fatal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	app := application.New(cfg, prompt.New(os.Stdin, os.Stdout), application.NewConnector(cfg))
	err = app.Run(ctx)
	switch {
	case err == nil, errors.Is(err, prompt.ErrClosed):
		slog.Debug("session ended")
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted")
		os.Exit(130)
	default:
		slog.Error("session failed", "error", err)
		os.Exit(1)
	}
}
