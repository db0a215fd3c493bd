// Package ls implements `uppm ls`: enumerating the packages already
// materialized into a target app's pack folder. Grounded on the
// teacher's cli/command/ls/ls.go tree printer, rebuilt against
// targetapp.TargetApp.EnumerateInstalledPackages instead of a
// lockfile.
package ls

import (
	"fmt"
	"sort"
	"strings"

	"uppm/cli"
	"uppm/cli/command"
	"uppm/pkg/uppm/targetapp"

	"github.com/morikuni/aec"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type lsOptions struct {
	targetApp string
	scope     string
}

// NewLsCommand builds `uppm ls`.
func NewLsCommand(uppmCli command.Cli) *cobra.Command {
	var opts lsOptions

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List installed packages",
		Args:  cli.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(uppmCli, opts)
		},
	}

	cmd.Flags().StringVar(&opts.targetApp, "target-app", "", "Target application short name (defaults to the current target app)")
	cmd.Flags().StringVar(&opts.scope, "scope", "global", `Install scope to enumerate ("global" or "local")`)

	return cmd
}

func runLs(uppmCli command.Cli, opts lsOptions) error {
	shortName := opts.targetApp
	if shortName == "" {
		app, ok := uppmCli.Apps().Current()
		if !ok {
			return errors.New("no target application selected; pass --target-app")
		}
		shortName = app.ShortName
	}

	app, ok := uppmCli.Apps().Get(shortName)
	if !ok {
		return errors.Errorf("unknown target application %q", shortName)
	}

	var scope targetapp.Scope
	switch strings.ToLower(opts.scope) {
	case "", "global":
		scope = targetapp.Global
	case "local":
		scope = targetapp.Local
	default:
		return errors.Errorf("unknown scope %q, expected \"global\" or \"local\"", opts.scope)
	}

	installed, err := app.EnumerateInstalledPackages(scope, uppmCli.Engines())
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		uppmCli.Out().WriteString(fmt.Sprintf("%s: no packages installed in %s scope\n", app.ShortName, strings.ToLower(opts.scope)))
		return nil
	}

	sort.Slice(installed, func(i, j int) bool {
		return installed[i].Ref.Name < installed[j].Ref.Name
	})

	colorize := uppmCli.Out().IsColorEnabled()

	uppmCli.Out().WriteString(app.ShortName + "\n")
	for i, pkg := range installed {
		connector := "├── "
		if i == len(installed)-1 {
			connector = "└── "
		}

		info := fmt.Sprintf("%s@%s", pkg.Ref.Name, pkg.Ref.Version)
		if colorize {
			info = pkg.Ref.Name + aec.LightBlackF.Apply("@"+pkg.Ref.Version)
		}

		fmt.Fprintf(uppmCli.Out(), "%s%s\n", connector, info)
	}
	return nil
}
