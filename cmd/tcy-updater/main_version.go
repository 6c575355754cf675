package main

import (
	"fmt"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
)

type cmdVersion struct {
	global *cmdGlobal
}

func (c *cmdVersion) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("version")
	cmd.Short = "Print the updater version"
	cmd.Long = cli.FormatSection("Description", "Print the updater version")
	cmd.RunE = c.run

	return cmd
}

func (*cmdVersion) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)

	return nil
}
