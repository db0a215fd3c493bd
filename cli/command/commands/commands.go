// Package commands registers every uppm subcommand onto the root
// cobra command. Grounded on the teacher's
// cli/command/commands/commands.go registration list, rebuilt around
// the decentralized per-reference command set.
package commands

import (
	"uppm/cli/command"
	"uppm/cli/command/ls"
	"uppm/cli/command/repo"
	"uppm/cli/command/run"
	"uppm/cli/command/why"

	"github.com/spf13/cobra"
)

// AddCommands registers every uppm subcommand onto cmd.
func AddCommands(cmd *cobra.Command, uppmCli command.Cli) {
	cmd.AddCommand(
		run.NewRunCommand(uppmCli),
		run.NewInstallCommand(uppmCli),
		ls.NewLsCommand(uppmCli),
		why.NewWhyCommand(uppmCli),
		repo.NewRepoCommand(uppmCli),
	)
}
