package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/rest"
	"github.com/tcymc/tcy-updater/internal/scheduling"
)

type cmdServe struct {
	global *cmdGlobal

	flagSocket  string
	flagAddress string
	flagNoWatch bool
}

func (c *cmdServe) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("serve")
	cmd.Short = "Run the control API"
	cmd.Long = cli.FormatSection("Description",
		`Run the control API

Exposes the updater over a REST API, on a unix socket when one is configured
or on a local TCP address otherwise. Pending versions are also checked for
periodically.`)
	cmd.Flags().StringVar(&c.flagSocket, "socket", "", "Unix socket to listen on``")
	cmd.Flags().StringVar(&c.flagAddress, "address", "", "TCP address to listen on``")
	cmd.Flags().BoolVar(&c.flagNoWatch, "no-watch", false, "Don't check for updates periodically")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdServe) run(cmd *cobra.Command, args []string) error {
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

	opts := rest.Options{
		GameRoot:    r.config.GameRoot,
		VersionName: r.config.TargetVersionName,
		Source:      r.config.Source,
		SocketPath:  r.config.Path(r.config.Serve.Socket),
		Address:     r.config.Serve.Address,
	}

	if c.flagSocket != "" {
		opts.SocketPath = c.flagSocket
	}

	if c.flagAddress != "" {
		opts.Address = c.flagAddress
		opts.SocketPath = ""
	}

	server, err := rest.NewServer(ctx, r.state, r.sequencer, r.self, opts)
	if err != nil {
		return err
	}

	if !c.flagNoWatch {
		scheduler, err := startWatch(ctx, r, nil)
		if err != nil {
			return err
		}

		defer func() { _ = scheduler.Shutdown() }()
	}

	slog.InfoContext(ctx, "Control API starting", "socket", opts.SocketPath, "address", opts.Address)

	return server.Serve(ctx)
}

// startWatch registers the periodic update check and starts the scheduler.
func startWatch(ctx context.Context, r *runtime, notify func(ctx context.Context, queue []api.UpdateQueueItem)) (*scheduling.Scheduler, error) {
	scheduler, err := scheduling.NewScheduler()
	if err != nil {
		return nil, err
	}

	err = scheduler.RegisterJob(scheduling.JobCheckUpdates, r.config.Watch.Cron, scheduling.UpdateCheckJob(r.sequencer, notify))
	if err != nil {
		_ = scheduler.Shutdown()

		return nil, fmt.Errorf("schedule update checks: %w", err)
	}

	scheduler.Start()

	next, err := scheduler.NextRun(scheduling.JobCheckUpdates)
	if err == nil {
		slog.InfoContext(ctx, "Periodic update checks enabled", "cron", r.config.Watch.Cron, "next", next)
	}

	return scheduler, nil
}
