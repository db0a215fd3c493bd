package command

import (
	"context"
	"io"
	"runtime"

	"uppm/cli/debug"
	cliflags "uppm/cli/flags"
	"uppm/cli/version"
	"uppm/pkg/config"
	"uppm/pkg/config/configfile"
	"uppm/pkg/output"
	"uppm/pkg/progress"
	"uppm/pkg/streams"
	"uppm/pkg/uppm/action"
	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/repository/registry"
	"uppm/pkg/uppm/resolver"
	"uppm/pkg/uppm/targetapp"

	"github.com/spf13/cobra"
)

// Streams is an interface which exposes the standard input and output streams
type Streams interface {
	In() *streams.In
	Out() *streams.Out
	Err() *streams.Out
}

// Cli represents the uppm command line client.
type Cli interface {
	Streams
	SetIn(in *streams.In)
	Output() *output.Output
	Apply(ops ...CLIOption) error
	Progress() *progress.Progress
	Options() *cliflags.ClientOptions
	ConfigFile() *configfile.ConfigFile

	Repos() *registry.Registry
	Engines() *engine.Registry
	Apps() *targetapp.Registry
	Resolver() *resolver.Resolver
	Runner() *action.Runner
}

// UppmCli is an instance of the uppm command line client.
// Instances of the client can be returned from NewUppmCli.
type UppmCli struct {
	in         *streams.In
	out        *streams.Out
	err        *streams.Out
	options    *cliflags.ClientOptions
	configFile *configfile.ConfigFile
	output     *output.Output

	repos    *registry.Registry
	engines  *engine.Registry
	apps     *targetapp.Registry
	resolver *resolver.Resolver
	runner   *action.Runner
}

// NewUppmCli returns a UppmCli instance with all operators applied on it.
// It applies by default the standard streams.
func NewUppmCli(ops ...CLIOption) (*UppmCli, error) {
	defaultOps := []CLIOption{
		WithStandardStreams(),
	}
	ops = append(defaultOps, ops...)

	cli := &UppmCli{}
	if err := cli.Apply(ops...); err != nil {
		return nil, err
	}

	cli.output = output.New(cli.Out(), cli.Err())

	return cli, nil
}

// Out returns the writer used for stdout
func (cli *UppmCli) Out() *streams.Out {
	return cli.out
}

// Err returns the writer used for stderr
func (cli *UppmCli) Err() *streams.Out {
	return cli.err
}

// SetIn sets the reader used for stdin
func (cli *UppmCli) SetIn(in *streams.In) {
	cli.in = in
}

// In returns the reader used for stdin
func (cli *UppmCli) In() *streams.In {
	return cli.in
}

// ShowHelp shows the command help.
func ShowHelp(err io.Writer) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SetOut(err)
		cmd.HelpFunc()(cmd, args)
		return nil
	}
}

// Apply all the operation on the cli
func (cli *UppmCli) Apply(ops ...CLIOption) error {
	for _, op := range ops {
		if err := op(cli); err != nil {
			return err
		}
	}
	return nil
}

// ConfigFile returns the ConfigFile
func (cli *UppmCli) ConfigFile() *configfile.ConfigFile {
	if cli.configFile == nil {
		cli.configFile = config.LoadDefaultConfigFile(cli.err)
	}
	return cli.configFile
}

// Options returns the options used to initialize the cli
func (cli *UppmCli) Options() *cliflags.ClientOptions {
	return cli.options
}

// Initialize the uppmCli runs initialization that must happen after command
// line flags are parsed: it loads the config file, then wires the
// repository, engine, and target-app registries its command packages
// share, seeded from the config file's persisted default repositories.
func (cli *UppmCli) Initialize(opts *cliflags.ClientOptions, ops ...CLIOption) error {
	for _, o := range ops {
		if err := o(cli); err != nil {
			return err
		}
	}
	cliflags.SetLogLevel(opts.LogLevel)

	if opts.ConfigDir != "" {
		config.SetDir(opts.ConfigDir)
	}

	if opts.Debug {
		debug.Enable()
	}

	cli.options = opts
	cli.configFile = config.LoadDefaultConfigFile(cli.err)

	cli.repos = newRepositoryRegistry()
	cli.engines = newEngineRegistry()
	cli.apps = targetapp.NewRegistry(cli.repos)

	for _, repo := range cli.configFile.DefaultRepositories {
		r, err := cli.repos.GetOrCreate(context.Background(), repo.URL)
		if err == nil {
			cli.repos.SetDefault(repo.URL, r)
		}
	}

	confirm := func(prompt string) bool {
		ok, err := PromptForConfirmation(context.Background(), cli.In(), cli.Err(), prompt)
		return err == nil && ok
	}

	cli.resolver = &resolver.Resolver{
		Repos:         cli.repos,
		Engines:       cli.engines,
		Confirm:       confirm,
		Unattended:    false,
		DefaultAnswer: false,
	}
	cli.runner = &action.Runner{
		Apps:     cli.apps,
		Repos:    cli.repos,
		Resolver: cli.resolver,
		Runtime:  stubRuntime{out: cli.err},
		Confirm:  confirm,
	}

	return nil
}

// Repos returns the shared repository registry.
func (cli *UppmCli) Repos() *registry.Registry { return cli.repos }

// Engines returns the shared script-engine registry.
func (cli *UppmCli) Engines() *engine.Registry { return cli.engines }

// Apps returns the shared target-app registry.
func (cli *UppmCli) Apps() *targetapp.Registry { return cli.apps }

// Resolver returns the shared dependency resolver.
func (cli *UppmCli) Resolver() *resolver.Resolver { return cli.resolver }

// Runner returns the shared action runner.
func (cli *UppmCli) Runner() *action.Runner { return cli.runner }

// Output returns the output handler
func (cli *UppmCli) Output() *output.Output {
	return cli.output
}

// UserAgent returns the user agent string used for making HTTP requests.
func UserAgent() string {
	return "uppm-cli/" + version.Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

// Progress returns the progress indicator
func (cli *UppmCli) Progress() *progress.Progress {
	return &progress.Progress{
		ProgressColorEnabled:     cli.Out().IsColorEnabled(),
		ProgressIndicatorEnabled: cli.Out().CanShowSpinner(),
	}
}
