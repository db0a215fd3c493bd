package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NoArgs validates that a command has no arguments.
func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if cmd.HasSubCommands() {
		return fmt.Errorf("%q accepts no arguments.\nSee '%s --help' for usage", cmd.CommandPath(), cmd.CommandPath())
	}
	return fmt.Errorf(
		"%q accepts no arguments.\nSee '%s --help' for usage",
		cmd.CommandPath(),
		cmd.CommandPath(),
	)
}

// ExactArgs returns an error if there are not exactly n args.
func ExactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		return fmt.Errorf(
			"%q requires exactly %d argument(s).\nSee '%s --help' for usage",
			cmd.CommandPath(),
			number,
			cmd.CommandPath(),
		)
	}
}

// RequiresMinArgs returns an error if there is not at least min args.
func RequiresMinArgs(min int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= min {
			return nil
		}
		return fmt.Errorf(
			"%q requires at least %d argument(s).\nSee '%s --help' for usage",
			cmd.CommandPath(),
			min,
			cmd.CommandPath(),
		)
	}
}

// RequiresMaxArgs returns an error if there is more than max args.
func RequiresMaxArgs(max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) <= max {
			return nil
		}
		return fmt.Errorf(
			"%q requires at most %d argument(s).\nSee '%s --help' for usage",
			cmd.CommandPath(),
			max,
			cmd.CommandPath(),
		)
	}
}

// RequiresRangeArgs returns an error if there is not at least min args
// and at most max args.
func RequiresRangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= min && len(args) <= max {
			return nil
		}
		return fmt.Errorf(
			"%q requires at least %d and at most %d argument(s).\nSee '%s --help' for usage",
			cmd.CommandPath(),
			min,
			max,
			cmd.CommandPath(),
		)
	}
}
