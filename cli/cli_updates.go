package cli

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/tcymc/tcy-updater/api"
)

// Mod-pack updates command.
type cmdRemoteUpdates struct {
	remote *cmdRemote
}

func (c *cmdRemoteUpdates) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("updates")
	cmd.Short = "Manage mod-pack updates"
	cmd.Long = cli.FormatSection("Description", "Manage mod-pack updates")

	// Apply.
	applyCmd := cmdRemoteUpdatesApply{remote: c.remote, pollInterval: time.Second}
	cmd.AddCommand(applyCmd.command())

	// Check.
	checkCmd := cmdRemoteUpdatesCheck{remote: c.remote}
	cmd.AddCommand(checkCmd.command())

	// Skip.
	skipCmd := cmdRemoteUpdatesSkip{remote: c.remote}
	cmd.AddCommand(skipCmd.command())

	// Status.
	statusCmd := cmdGenericShow{remote: c.remote, name: "status", endpoint: "updates/status", description: "Show the progress of the update run"}
	cmd.AddCommand(statusCmd.command())

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706.
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, _ []string) { _ = cmd.Usage() }

	return cmd
}

// Check.
type cmdRemoteUpdatesCheck struct {
	remote *cmdRemote

	flagFormat string
}

func (c *cmdRemoteUpdatesCheck) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("check")
	cmd.Short = "List the versions pending installation"
	cmd.Long = cli.FormatSection("Description", "List the versions pending installation")
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", c.remote.args.DefaultListFormat, "Format (csv|json|table|yaml|compact|markdown)``")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return cli.ValidateFlagFormatForListOutput(cmd.Flag("format").Value.String())
	}

	cmd.RunE = c.run

	return cmd
}

func (c *cmdRemoteUpdatesCheck) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	resp, _, err := doQuery(cmd.Context(), c.remote.args.DoHTTP, http.MethodPost, "/1.0/updates/:check", nil, "")
	if err != nil {
		return err
	}

	queue := []api.UpdateQueueItem{}

	err = resp.MetadataAsStruct(&queue)
	if err != nil {
		return err
	}

	data := [][]string{}
	for _, item := range queue {
		data = append(data, []string{item.Version, item.Entry.Description})
	}

	header := []string{
		"VERSION",
		"DESCRIPTION",
	}

	return cli.RenderTable(cmd.OutOrStdout(), c.flagFormat, header, data, queue)
}

// Apply.
type cmdRemoteUpdatesApply struct {
	remote *cmdRemote

	flagSource string
	flagDefer  []string
	flagWait   bool

	pollInterval time.Duration
}

func (c *cmdRemoteUpdatesApply) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("apply", "<version>...")
	cmd.Short = "Install mod-pack versions"
	cmd.Long = cli.FormatSection("Description", `Install mod-pack versions

The versions are installed in ascending order by the daemon.`)
	cmd.Flags().StringVar(&c.flagSource, "source", "", "Download source (cn|global)``")
	cmd.Flags().StringSliceVar(&c.flagDefer, "defer", nil, "Versions to skip from now on``")
	cmd.Flags().BoolVarP(&c.flagWait, "wait", "w", false, "Wait for the run to complete")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdRemoteUpdatesApply) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 1, -1)
	if exit {
		return err
	}

	req := api.UpdatesApply{
		Versions: args,
		Source:   c.flagSource,
		Deferred: c.flagDefer,
	}

	_, _, err = doQuery(cmd.Context(), c.remote.args.DoHTTP, http.MethodPost, "/1.0/updates/:apply", req, "")
	if err != nil {
		return err
	}

	if !c.flagWait {
		return nil
	}

	// Follow the run.
	lastStatus := ""

	for {
		resp, _, err := doQuery(cmd.Context(), c.remote.args.DoHTTP, http.MethodGet, "/1.0/updates/status", nil, "")
		if err != nil {
			return err
		}

		status := api.UpdatesState{}

		err = resp.MetadataAsStruct(&status)
		if err != nil {
			return err
		}

		if status.Status != lastStatus {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%3d%%] %s\n", status.Percent, status.Status)
			lastStatus = status.Status
		}

		if !status.Running {
			if status.LastError != "" {
				return errors.New(status.LastError)
			}

			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Skip.
type cmdRemoteUpdatesSkip struct {
	remote *cmdRemote
}

func (c *cmdRemoteUpdatesSkip) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("skip", "<version>")
	cmd.Short = "Stop offering a version"
	cmd.Long = cli.FormatSection("Description", "Stop offering a version")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdRemoteUpdatesSkip) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 1, 1)
	if exit {
		return err
	}

	_, _, err = doQuery(cmd.Context(), c.remote.args.DoHTTP, http.MethodPost, "/1.0/updates/skipped", api.UpdatesSkip{Version: args[0]}, "")

	return err
}
