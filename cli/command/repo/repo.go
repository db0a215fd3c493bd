// Package repo implements `uppm repo add` and `uppm repo list`:
// managing the config file's persisted default repository set.
// Adapted from the teacher's auth-token persistence commands
// (cli/command/auth), rebuilt around configfile.RepositoryConfig.
package repo

import (
	"context"
	"fmt"

	"uppm/cli"
	"uppm/cli/command"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewRepoCommand builds the `uppm repo` command group.
func NewRepoCommand(uppmCli command.Cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage default package repositories",
		Args:  cli.NoArgs,
		RunE:  command.ShowHelp(uppmCli.Err()),
	}

	cmd.AddCommand(
		newRepoAddCommand(uppmCli),
		newRepoListCommand(uppmCli),
	)
	return cmd
}

func newRepoAddCommand(uppmCli command.Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Add a default repository",
		Args:  cli.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoAdd(cmd.Context(), uppmCli, args[0])
		},
	}
}

func runRepoAdd(ctx context.Context, uppmCli command.Cli, url string) error {
	repo, err := uppmCli.Repos().GetOrCreate(ctx, url)
	if err != nil {
		return errors.Wrapf(err, "failed to add repository %s", url)
	}
	uppmCli.Repos().SetDefault(url, repo)

	cfg := uppmCli.ConfigFile()
	if !cfg.AddDefaultRepository(url) {
		uppmCli.Out().WriteString(fmt.Sprintf("%s is already a default repository\n", url))
		return nil
	}

	if err := cfg.Save(); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}

	uppmCli.Out().WriteString(fmt.Sprintf("added default repository %s\n", url))
	return nil
}

func newRepoListCommand(uppmCli command.Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List default repositories",
		Args:  cli.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoList(uppmCli)
		},
	}
}

func runRepoList(uppmCli command.Cli) error {
	repos := uppmCli.ConfigFile().DefaultRepositories
	if len(repos) == 0 {
		uppmCli.Out().WriteString("no default repositories configured\n")
		return nil
	}

	for _, repo := range repos {
		uppmCli.Out().WriteString(repo.URL + "\n")
	}
	return nil
}
