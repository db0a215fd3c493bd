// Package why implements `uppm why <reference>`: loading a package and
// printing its flattened dependency set, for debugging the resolver.
// Grounded on the teacher's cli/command/why/why.go, rebuilt against
// resolver.Package.FlatDependencies instead of a lockfile's reverse
// dependency graph.
package why

import (
	"context"
	"fmt"
	"sort"

	"uppm/cli"
	"uppm/cli/command"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
	"uppm/pkg/uppm/resolver"
	"uppm/pkg/uppm/targetapp"

	"github.com/morikuni/aec"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type whyOptions struct {
	targetApp string
}

// NewWhyCommand builds `uppm why <reference>`.
func NewWhyCommand(uppmCli command.Cli) *cobra.Command {
	var opts whyOptions

	cmd := &cobra.Command{
		Use:   "why <reference>",
		Short: "Show the resolved dependency set of a package",
		Args:  cli.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhy(cmd.Context(), uppmCli, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.targetApp, "target-app", "", "Target application short name (defaults to the current target app)")
	return cmd
}

func runWhy(ctx context.Context, uppmCli command.Cli, opts whyOptions, refText string) error {
	partial, err := reference.ParseText(refText)
	if err != nil {
		return errors.Wrapf(err, "invalid reference %q", refText)
	}

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
	partial.TargetApp = app.ShortName

	repos := uppmCli.Repos()
	var loaded repository.Package
	var loadErr error
	if partial.RepositoryURL != "" {
		repo, err := repos.GetOrCreate(ctx, partial.RepositoryURL)
		if err != nil {
			return err
		}
		loaded, ok, loadErr = repo.TryGetPackage(partial, uppmCli.Engines())
		if loadErr == nil && !ok {
			loadErr = errors.Errorf("package %s not found in %s", partial, partial.RepositoryURL)
		}
	} else {
		ok = false
		for _, repo := range repos.Defaults() {
			loaded, ok, loadErr = repo.TryGetPackage(partial, uppmCli.Engines())
			if loadErr == nil && ok {
				break
			}
		}
		if !ok && loadErr == nil {
			loadErr = errors.Errorf("package %s not found in any default repository", partial)
		}
	}
	if loadErr != nil {
		return loadErr
	}

	root := resolver.NewRoot(loaded, app, targetapp.Global)
	if err := uppmCli.Resolver().Build(ctx, root); err != nil {
		return errors.Wrap(err, "failed to build dependency tree")
	}

	colorize := uppmCli.Out().IsColorEnabled()
	rootLabel := root.Ref.String()
	if colorize {
		rootLabel = aec.Bold.Apply(root.Ref.String())
	}
	uppmCli.Out().WriteString(rootLabel + "\n")

	if len(root.FlatDependencies) == 0 {
		uppmCli.Out().WriteString("  (no dependencies)\n")
		return nil
	}

	names := make([]string, 0, len(root.FlatDependencies))
	for name := range root.FlatDependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		dep := root.FlatDependencies[name]
		connector := "├── "
		if i == len(names)-1 {
			connector = "└── "
		}

		scope := "global"
		if dep.Scope == targetapp.Local {
			scope = "local"
		}

		info := fmt.Sprintf("%s@%s (%s, depth %d)", dep.Ref.Name, dep.Ref.Version, scope, dep.Depth)
		if colorize {
			info = fmt.Sprintf("%s%s %s", dep.Ref.Name, aec.LightBlackF.Apply("@"+dep.Ref.Version), aec.Faint.Apply(fmt.Sprintf("(%s, depth %d)", scope, dep.Depth)))
		}

		fmt.Fprintf(uppmCli.Out(), "%s%s\n", connector, info)
	}

	return nil
}
