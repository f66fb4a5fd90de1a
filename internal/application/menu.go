package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/logging"
	"github.com/JonMunkholm/csvbridge/internal/prompt"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

type MenuItem struct {
	Label   string
	Submenu *Menu
	Action  func(ctx context.Context) error
}

type Menu struct {
	Title  string
	Items  []MenuItem
	Parent *Menu
}

/* ----------------------------------------
	MENU TREE DEFINITION
---------------------------------------- */

func linkParents(menu *Menu, parent *Menu) {
	menu.Parent = parent

	for i := range menu.Items {
		if sub := menu.Items[i].Submenu; sub != nil {
			linkParents(sub, menu)
		}
	}
}

func (a *App) buildMenuTree() *Menu {

	/* Submenus */
	schemaMenu := &Menu{
		Title: "Schema",
		Items: []MenuItem{
			{Label: "Change Schema", Action: a.changeSchema},
			{Label: "Create Schema", Action: a.createSchema},
		},
	}

	/* Root Menu */
	root := &Menu{
		Title: "Main Menu",
		Items: []MenuItem{
			{Label: "Upload CSV", Action: a.upload},
			{Label: "Download CSV", Action: a.download},
			{Label: "Split CSV", Action: a.split},
			{Label: "Schema ->", Submenu: schemaMenu},
		},
	}

	linkParents(root, nil)

	return root
}

/* ----------------------------------------
	MENU LOOP
---------------------------------------- */

func (a *App) title(m *Menu) string {
	if m.Parent == nil {
		return fmt.Sprintf("%s - %s", m.Title, a.store.CurrentSchema())
	}
	return m.Title
}

// runMenu shows menus until the operator exits the root. After an action in
// a submenu the loop returns to the root so its title reflects the change.
func (a *App) runMenu(ctx context.Context, root *Menu) error {
	current := root
	for {
		labels := make([]string, len(current.Items))
		for i, item := range current.Items {
			labels[i] = item.Label
		}
		back := "Back"
		if current.Parent == nil {
			back = "Exit"
		}

		i, err := a.shell.Choose(ctx, a.title(current), labels, back)
		if err != nil {
			return err
		}
		if i == prompt.Cancel {
			if current.Parent == nil {
				return nil
			}
			current = current.Parent
			continue
		}

		item := current.Items[i]
		if item.Submenu != nil {
			current = item.Submenu
			continue
		}
		if err := a.runAction(ctx, item); err != nil {
			return err
		}
		current = root
	}
}

// runAction runs one menu action under its own request ID. Failures are shown
// and the menu continues; only a lost operator channel is returned. Errors
// without a specific message also show the cause.
func (a *App) runAction(ctx context.Context, item MenuItem) error {
	ctx, _ = logging.NewRequestContext(ctx)
	log := logging.WithFields(ctx, "action", item.Label, "schema", a.store.CurrentSchema())
	log.Debug("action started")

	err := item.Action(ctx)
	switch {
	case err == nil:
		log.Debug("action finished")
		return nil
	case channelLost(err):
		return err
	default:
		log.Error("action failed", "error", err)
		a.shell.Printf("Error: %s\n", core.FormatUserError(err))
		if !core.IsUserFacing(err) {
			a.shell.Printf("Details: %v\n", err)
		}
		return nil
	}
}

func channelLost(err error) bool {
	return errors.Is(err, prompt.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
