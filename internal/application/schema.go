package application

import (
	"context"

	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/logging"
	"github.com/JonMunkholm/csvbridge/internal/prompt"
)

func (a *App) changeSchema(ctx context.Context) error {
	schemas, err := a.store.ListSchemas(ctx)
	if err != nil {
		return err
	}
	if len(schemas) == 0 {
		a.shell.Println("No schemas found.")
		return nil
	}

	i, err := a.shell.Choose(ctx, "Select Schema", schemas, "Cancel")
	if err != nil || i == prompt.Cancel {
		return err
	}
	return a.useSchema(ctx, schemas[i])
}

// createSchema asks for a name until it is usable and free, creates the
// schema and offers to switch to it.
func (a *App) createSchema(ctx context.Context) error {
	for {
		raw, err := a.shell.Text(ctx, "Enter new schema name (0 to cancel): ")
		if err != nil || raw == "0" {
			return err
		}

		name := core.Normalize(raw)
		if name == "" {
			a.shell.Println("Invalid name. Please try again.")
			continue
		}

		exists, err := a.store.SchemaExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			a.shell.Printf("Schema '%s' already exists.\n", name)
			continue
		}

		if err := a.store.CreateSchema(ctx, name); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("schema created", "schema", name)
		a.shell.Printf("Schema '%s' created.\n", name)

		use, err := a.shell.Confirm(ctx, "Use new schema?")
		if err != nil || !use {
			return err
		}
		return a.useSchema(ctx, name)
	}
}

func (a *App) useSchema(ctx context.Context, name string) error {
	if err := a.store.UseSchema(ctx, name); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("schema selected", "schema", name)
	a.shell.Printf("Using schema '%s'.\n", name)
	return nil
}
