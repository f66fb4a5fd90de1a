package application

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/prompt"
)

// fallbackName is offered when a source has no usable characters.
const fallbackName = "default_table"

// operator answers core.Decider questions through the shell.
type operator struct {
	shell *prompt.Shell
}

var _ core.Decider = operator{}

func policyLabels[P fmt.Stringer](policies []P) []string {
	labels := make([]string, len(policies))
	for i, p := range policies {
		labels[i] = p.String()
	}
	return labels
}

func (o operator) TableConflict(ctx context.Context, table string) (core.TablePolicy, error) {
	i, err := o.shell.Choose(ctx,
		fmt.Sprintf("Table '%s' already exists. Choose an action", table),
		policyLabels(core.TablePolicies), core.TableSkip.String())
	if err != nil || i == prompt.Cancel {
		return core.TableSkip, err
	}
	return core.TablePolicies[i], nil
}

func (o operator) TableName(ctx context.Context, source string) (string, error) {
	return o.askName(ctx, "table", source)
}

func (o operator) ConfirmReplace(ctx context.Context, table string) (bool, error) {
	return o.shell.Confirm(ctx, fmt.Sprintf("Are you sure you want to overwrite '%s'?", table))
}

func (o operator) PathConflict(ctx context.Context, path string) (core.PathPolicy, error) {
	i, err := o.shell.Choose(ctx,
		fmt.Sprintf("File '%s' already exists. Choose an action", path),
		policyLabels(core.PathPolicies), core.PathSkip.String())
	if err != nil || i == prompt.Cancel {
		return core.PathSkip, err
	}
	return core.PathPolicies[i], nil
}

func (o operator) FileName(ctx context.Context, source string) (string, error) {
	return o.askName(ctx, "file", source)
}

func (o operator) Directory(ctx context.Context) (string, error) {
	return o.shell.Dir(ctx)
}

// askName asks for a name with the normalized source as the default. A blank
// answer takes the default, 0 skips, and answers that normalize to nothing
// are asked again.
func (o operator) askName(ctx context.Context, kind, source string) (string, error) {
	def := core.Normalize(source)
	if def == "" {
		def = fallbackName
	}

	for {
		raw, err := o.shell.Text(ctx, fmt.Sprintf("Enter %s name for '%s' (default: %s, 0 to skip): ", kind, source, def))
		if err != nil {
			return "", err
		}
		switch raw {
		case "0":
			return "", nil
		case "":
			return def, nil
		}

		if name := core.Normalize(raw); name != "" {
			return name, nil
		}
		o.shell.Println("Invalid name.")
	}
}
