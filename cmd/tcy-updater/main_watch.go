package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/manifest"
)

type cmdWatch struct {
	global *cmdGlobal
}

func (c *cmdWatch) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("watch")
	cmd.Short = "Check for updates periodically"
	cmd.Long = cli.FormatSection("Description",
		`Check for updates periodically

Runs until interrupted and reports the versions pending installation
according to the watch.cron setting. Nothing is installed.`)
	cmd.RunE = c.run

	return cmd
}

func (c *cmdWatch) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	ctx := cmd.Context()

	r, err := c.global.newRuntime(ctx, os.Stderr)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	out := cmd.OutOrStdout()

	scheduler, err := startWatch(ctx, r, func(_ context.Context, queue []api.UpdateQueueItem) {
		_, _ = fmt.Fprintf(out, "Versions pending installation: %s\n", strings.Join(manifest.Versions(queue), ", "))
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	return scheduler.Shutdown()
}
