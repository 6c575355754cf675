package cli

import (
	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
)

// Remote management command.
type cmdRemote struct {
	args *Args
}

func (c *cmdRemote) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("remote")
	cmd.Short = "Drive a running updater daemon"
	cmd.Long = cli.FormatSection("Description", `Drive a running updater daemon

Talks to the control API of "tcy-updater serve".`)

	// Show.
	showCmd := cmdGenericShow{remote: c, description: "Show the updater status"}
	cmd.AddCommand(showCmd.command())

	// Settings.
	settingsCmd := cmdGenericShow{remote: c, name: "settings", endpoint: "settings", description: "Show the launcher settings"}
	cmd.AddCommand(settingsCmd.command())

	// Updates.
	updatesCmd := cmdRemoteUpdates{remote: c}
	cmd.AddCommand(updatesCmd.command())

	// Self.
	selfCmd := cmdRemoteSelf{remote: c}
	cmd.AddCommand(selfCmd.command())

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706.
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, _ []string) { _ = cmd.Usage() }

	return cmd
}

// Self update command.
type cmdRemoteSelf struct {
	remote *cmdRemote
}

func (c *cmdRemoteSelf) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("self")
	cmd.Short = "Manage the updater build"
	cmd.Long = cli.FormatSection("Description", "Manage the updater build")

	// Check.
	checkCmd := cmdGenericRun{
		remote:      c.remote,
		action:      "check",
		endpoint:    "self",
		description: "Check for a new updater build",
		showResult:  true,
	}
	cmd.AddCommand(checkCmd.command())

	// Update.
	updateCmd := cmdGenericRun{
		remote:      c.remote,
		action:      "update",
		endpoint:    "self",
		description: "Update the updater and restart it",
		confirm:     "replace the running updater",
	}
	cmd.AddCommand(updateCmd.command())

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706.
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, _ []string) { _ = cmd.Usage() }

	return cmd
}
