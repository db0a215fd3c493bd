// Package run implements the `uppm run` and `uppm install` commands:
// the concrete CLI entrypoint spec.md §6 describes as wiring
// command-line arguments into a call to the action runner with
// (target_app_short_name, action_name, partial_reference, unattended,
// continue_on_error). Grounded on the teacher's
// cli/command/install/install.go command scaffolding, rebuilt around
// pkg/uppm/reference, pkg/uppm/resolver, and pkg/uppm/action instead of
// wpmjson/wpmlock.
package run

import (
	"context"
	"fmt"

	"uppm/cli"
	"uppm/cli/command"
	"uppm/cli/version"
	"uppm/pkg/output"
	"uppm/pkg/uppm/reference"
	"uppm/pkg/uppm/repository"
	"uppm/pkg/uppm/resolver"
	"uppm/pkg/uppm/targetapp"

	"github.com/morikuni/aec"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type runOptions struct {
	targetApp       string
	unattended      bool
	noRecursive     bool
	continueOnError bool
	confirmLicense  bool
}

// NewRunCommand builds `uppm run <action> <reference>`.
func NewRunCommand(uppmCli command.Cli) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <action> <reference>",
		Short: "Run an action against a package",
		Args:  cli.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), uppmCli, opts, args[0], args[1])
		},
	}

	installFlags(cmd, &opts)
	return cmd
}

// NewInstallCommand builds `uppm install <reference>`, sugar for
// `uppm run install <reference>` with license confirmation enabled.
func NewInstallCommand(uppmCli command.Cli) *cobra.Command {
	var opts runOptions
	opts.confirmLicense = true

	cmd := &cobra.Command{
		Use:   "install <reference>",
		Short: "Install a package and its dependencies",
		Args:  cli.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), uppmCli, opts, "install", args[0])
		},
	}

	cmd.Flags().StringVar(&opts.targetApp, "target-app", "", "Target application short name (defaults to the current target app)")
	cmd.Flags().BoolVar(&opts.unattended, "unattended", false, "Never prompt; apply the default answer to every decision")
	return cmd
}

func installFlags(cmd *cobra.Command, opts *runOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.targetApp, "target-app", "", "Target application short name (defaults to the current target app)")
	flags.BoolVar(&opts.unattended, "unattended", false, "Never prompt; apply the default answer to every decision")
	flags.BoolVar(&opts.noRecursive, "no-recursive", false, "Run the action on this package only, not its dependencies")
	flags.BoolVar(&opts.continueOnError, "continue-on-error", false, "Report a failed action as a warning and exit successfully; actions after the failure are still not run")
}

func runRun(ctx context.Context, uppmCli command.Cli, opts runOptions, action, refText string) error {
	uppmCli.Output().Prettyln(output.Text{
		Plain: "uppm " + action + " v" + version.Version,
		Fancy: aec.Bold.Apply("uppm "+action) + " " + aec.LightBlackF.Apply("v"+version.Version),
	})

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

	scope := targetapp.Local
	if app.LocalPacksFolder == "" {
		scope = targetapp.Global
	}

	resolv := uppmCli.Resolver()
	resolv.Unattended = opts.unattended
	resolv.DefaultAnswer = opts.unattended

	progress := uppmCli.Progress()
	progress.StartProgressIndicator(uppmCli.Err())
	defer progress.StopProgressIndicator()

	progress.Stream(uppmCli.Err(), fmt.Sprintf("Resolving %s", partial))

	loaded, err := loadPackage(ctx, uppmCli, partial)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", partial)
	}

	root := resolver.NewRoot(loaded, app, scope)

	if !opts.noRecursive {
		progress.Stream(uppmCli.Err(), fmt.Sprintf("Building dependency tree for %s", root.Ref))
		if err := resolv.Build(ctx, root); err != nil {
			return errors.Wrap(err, "failed to build dependency tree")
		}
	}

	progress.Stream(uppmCli.Err(), "")
	progress.StopProgressIndicator()

	runner := uppmCli.Runner()
	runner.Unattended = opts.unattended
	runner.DefaultAnswer = opts.unattended

	if err := runner.Run(ctx, root, action, !opts.noRecursive, opts.confirmLicense); err != nil {
		if opts.continueOnError {
			uppmCli.Err().WriteString(fmt.Sprintf("warning: %s\n", err))
			return nil
		}
		return err
	}

	uppmCli.Output().Prettyln(output.Text{
		Plain: fmt.Sprintf("%s: %s completed", root.Ref, action),
		Fancy: fmt.Sprintf("%s %s %s", aec.GreenF.Apply("✓"), root.Ref, aec.LightBlackF.Apply(action+" completed")),
	})
	return nil
}

// loadPackage resolves partial against the repository registry,
// exactly as resolver.Resolver would for a dependency, for the root of
// the tree.
func loadPackage(ctx context.Context, uppmCli command.Cli, partial reference.Partial) (repository.Package, error) {
	repos := uppmCli.Repos()

	if partial.RepositoryURL != "" {
		repo, err := repos.GetOrCreate(ctx, partial.RepositoryURL)
		if err != nil {
			return repository.Package{}, err
		}
		pkg, ok, err := repo.TryGetPackage(partial, uppmCli.Engines())
		if err != nil {
			return repository.Package{}, err
		}
		if !ok {
			return repository.Package{}, errors.Errorf("package %s not found in %s", partial, partial.RepositoryURL)
		}
		return pkg, nil
	}

	for _, repo := range repos.Defaults() {
		pkg, ok, err := repo.TryGetPackage(partial, uppmCli.Engines())
		if err != nil {
			continue
		}
		if ok {
			return pkg, nil
		}
	}
	return repository.Package{}, errors.Errorf("package %s not found in any default repository", partial)
}
