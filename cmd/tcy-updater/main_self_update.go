package main

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/lxc/incus/v6/shared/ask"
	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/tcymc/tcy-updater/internal/progress"
	"github.com/tcymc/tcy-updater/internal/selfupdate"
	"github.com/tcymc/tcy-updater/internal/state"
)

type cmdSelfUpdate struct {
	global *cmdGlobal

	flagYes bool
}

func (c *cmdSelfUpdate) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("self-update")
	cmd.Short = "Update the updater"
	cmd.Long = cli.FormatSection("Description",
		`Update the updater

Downloads the published updater build, then exits and lets a helper script
replace the running executable and start the new one.`)
	cmd.Flags().BoolVarP(&c.flagYes, "yes", "y", false, "Don't ask for confirmation")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdSelfUpdate) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	r, err := c.global.newRuntime(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	latest, err := checkSelf(ctx, r)
	if err != nil {
		if errors.Is(err, selfupdate.ErrUpToDate) {
			_, _ = fmt.Fprintf(out, "Updater %s is up to date\n", r.self.RunningVersion())

			return nil
		}

		return err
	}

	_, _ = fmt.Fprintf(out, "Updater %s is available (running %s)\n", latest.Version, r.self.RunningVersion())

	if latest.Description != "" {
		_, _ = fmt.Fprintln(out, latest.Description)
	}

	if !c.flagYes {
		asker := ask.NewAsker(bufio.NewReader(cmd.InOrStdin()))

		confirm, err := asker.AskBool("Update now? The updater will restart. [Y/n] ", "y")
		if err != nil {
			return err
		}

		if !confirm {
			return nil
		}
	}

	var mirrorPrefix string

	r.state.View(func(st *state.State) {
		mirrorPrefix = st.MirrorPrefix
	})

	return r.self.Stage(ctx, latest.URL, latest.Version, mirrorPrefix, progress.NewTerminal(cmd.ErrOrStderr()))
}
