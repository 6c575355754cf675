package main

import (
	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
)

type cmdSkip struct {
	global *cmdGlobal
}

func (c *cmdSkip) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("skip", "<version>")
	cmd.Short = "Stop offering a mod-pack version"
	cmd.Long = cli.FormatSection("Description",
		`Stop offering a mod-pack version

The version stays skipped until it gets installed.`)
	cmd.RunE = c.run

	return cmd
}

func (c *cmdSkip) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 1, 1)
	if exit {
		return err
	}

	r, err := c.global.newRuntime(cmd.Context(), nil)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	return r.sequencer.MarkSkipped(cmd.Context(), args[0])
}
