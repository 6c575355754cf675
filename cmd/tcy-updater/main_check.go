package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/selfupdate"
)

type cmdCheck struct {
	global *cmdGlobal

	flagFormat string
}

func (c *cmdCheck) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("check")
	cmd.Short = "Check for mod-pack and updater updates"
	cmd.Long = cli.FormatSection("Description",
		`Check for mod-pack and updater updates

Lists the mod-pack versions pending installation and whether a new updater
build is available. Skipped versions aren't listed.`)
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", "table", "Format (csv|json|table|yaml|compact|markdown)``")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return cli.ValidateFlagFormatForListOutput(cmd.Flag("format").Value.String())
	}

	cmd.RunE = c.run

	return cmd
}

// checkResult is the outcome of a full check.
type checkResult struct {
	Queue []api.UpdateQueueItem `json:"queue" yaml:"queue"`
	Self  *api.SelfDescriptor   `json:"self"  yaml:"self"`
}

func (c *cmdCheck) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	r, err := c.global.newRuntime(cmd.Context(), nil)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	result, err := check(cmd.Context(), r)
	if err != nil {
		return err
	}

	data := [][]string{}
	for _, item := range result.Queue {
		data = append(data, []string{"mod-pack", item.Version, item.Entry.Description})
	}

	if result.Self != nil {
		data = append(data, []string{"updater", result.Self.Version, result.Self.Description})
	}

	if len(data) == 0 && c.flagFormat == "table" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Everything is up to date")

		return nil
	}

	header := []string{
		"COMPONENT",
		"VERSION",
		"DESCRIPTION",
	}

	return cli.RenderTable(cmd.OutOrStdout(), c.flagFormat, header, data, result)
}

// check fetches the mod-pack queue and the updater descriptor concurrently. An unreachable
// updater descriptor doesn't fail the check.
func check(ctx context.Context, r *runtime) (*checkResult, error) {
	result := &checkResult{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checkCtx, cancel := context.WithTimeout(gctx, r.config.Timeouts.Check)
		defer cancel()

		queue, err := r.sequencer.Check(checkCtx)
		if err != nil {
			return fmt.Errorf("check mod-pack updates: %w", err)
		}

		result.Queue = queue

		return nil
	})

	g.Go(func() error {
		latest, err := checkSelf(gctx, r)
		if err != nil {
			if !errors.Is(err, selfupdate.ErrUpToDate) {
				slog.WarnContext(ctx, "Failed to check for updater updates", "err", err)
			}

			return nil
		}

		result.Self = latest

		return nil
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// checkSelf looks for a new updater build, giving up after the self check timeout.
func checkSelf(ctx context.Context, r *runtime) (*api.SelfDescriptor, error) {
	checkCtx, cancel := context.WithTimeout(ctx, r.config.Timeouts.SelfCheck)
	defer cancel()

	return r.self.Check(checkCtx)
}
