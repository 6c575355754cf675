package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/lxc/incus/v6/shared/ask"
	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/lxc/incus/v6/shared/termios"
	"github.com/spf13/cobra"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/gamedir"
	"github.com/tcymc/tcy-updater/internal/manifest"
	"github.com/tcymc/tcy-updater/internal/mirror"
	"github.com/tcymc/tcy-updater/internal/progress"
	"github.com/tcymc/tcy-updater/internal/tui"
)

type cmdUpdate struct {
	global *cmdGlobal

	flagAll    bool
	flagSource string
	flagTUI    bool
	flagYes    bool
}

func (c *cmdUpdate) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("update")
	cmd.Short = "Install mod-pack updates"
	cmd.Long = cli.FormatSection("Description",
		`Install mod-pack updates

Offers the versions pending installation and installs the selected ones in
ascending order. Versions which aren't selected are skipped from now on.`)
	cmd.Flags().BoolVarP(&c.flagAll, "all", "a", false, "Install every pending version")
	cmd.Flags().StringVarP(&c.flagSource, "source", "s", "", "Download source (cn|global)``")
	cmd.Flags().BoolVar(&c.flagTUI, "tui", false, "Show progress in a full screen view")
	cmd.Flags().BoolVarP(&c.flagYes, "yes", "y", false, "Don't ask any question, install every pending version")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdUpdate) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	ctx := cmd.Context()
	interactive := !c.flagAll && !c.flagYes

	if interactive && !termios.IsTerminal(getStdinFd()) {
		return errors.New("not running in a terminal, use --all or --yes to install every pending version")
	}

	// The full screen view takes over log output.
	var view *tui.TUI

	if c.flagTUI {
		view, err = tui.NewTUI("TCY Client Updater "+version, nil)
		if err != nil {
			return err
		}

		r, err := c.global.newRuntime(ctx, nil, view.Handler())
		if err != nil {
			return err
		}

		defer func() { _ = r.Close() }()

		return c.update(ctx, cmd, r, view)
	}

	r, err := c.global.newRuntime(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	return c.update(ctx, cmd, r, nil)
}

func (c *cmdUpdate) update(ctx context.Context, cmd *cobra.Command, r *runtime, view *tui.TUI) error {
	out := cmd.OutOrStdout()

	checkCtx, cancel := context.WithTimeout(ctx, r.config.Timeouts.Check)
	defer cancel()

	queue, err := r.sequencer.Check(checkCtx)
	if err != nil {
		return err
	}

	if len(queue) == 0 {
		_, _ = fmt.Fprintln(out, "Mod-pack is up to date")

		return nil
	}

	selected := manifest.Versions(queue)
	source := c.flagSource

	if !c.flagAll && !c.flagYes {
		asker := ask.NewAsker(bufio.NewReader(cmd.InOrStdin()))

		selected, err = selectVersions(out, asker, queue)
		if err != nil {
			return err
		}

		if source == "" {
			source, err = asker.AskChoice(fmt.Sprintf("Download source (%s/%s) [default=%s]: ", mirror.SourceCN, mirror.SourceGlobal, r.config.Source), []string{mirror.SourceCN, mirror.SourceGlobal}, r.config.Source)
			if err != nil {
				return err
			}
		}
	}

	if source == "" {
		source = r.config.Source
	}

	// Versions left out aren't offered again.
	for _, item := range queue {
		if slices.Contains(selected, item.Version) {
			continue
		}

		err = r.sequencer.MarkSkipped(ctx, item.Version)
		if err != nil {
			return err
		}
	}

	if len(selected) == 0 {
		_, _ = fmt.Fprintln(out, "Nothing to install")

		return nil
	}

	items := manifest.Select(queue, selected)

	if view == nil {
		result, err := r.sequencer.Run(ctx, items, source, progress.NewTerminal(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}

		return printResult(out, result)
	}

	view.SetFooter(
		tui.FooterItem{Label: "Game root", Value: r.config.GameRoot},
		tui.FooterItem{Label: "Game folder", Value: gameDirLabel(r)},
		tui.FooterItem{Label: "Source", Value: source},
	)

	var result *api.SequenceResult

	err = view.Run(ctx, func(ctx context.Context) error {
		var err error

		result, err = r.sequencer.Run(ctx, items, source, view)

		return err
	})
	if err != nil {
		return err
	}

	return printResult(out, result)
}

// selectVersions lists the queue and asks which versions to install.
func selectVersions(out io.Writer, asker ask.Asker, queue []api.UpdateQueueItem) ([]string, error) {
	_, _ = fmt.Fprintln(out, "Versions pending installation:")

	for i, item := range queue {
		desc := strings.TrimSpace(item.Entry.Description)
		if desc != "" {
			desc = " - " + strings.ReplaceAll(desc, "\n", " ")
		}

		_, _ = fmt.Fprintf(out, "%d) %s%s\n", i+1, item.Version, desc)
	}

	var selected []string

	_, err := asker.AskString("\nVersions to install (numbers or versions, comma separated, \"all\" or \"none\") [default=all]: ", "all", func(answer string) error {
		var err error

		selected, err = parseSelection(answer, queue)

		return err
	})
	if err != nil {
		return nil, err
	}

	return selected, nil
}

// parseSelection turns an answer into the selected versions, in queue order.
func parseSelection(answer string, queue []api.UpdateQueueItem) ([]string, error) {
	answer = strings.TrimSpace(answer)

	switch strings.ToLower(answer) {
	case "", "all":
		return manifest.Versions(queue), nil
	case "none":
		return []string{}, nil
	}

	picked := []string{}

	for field := range strings.FieldsFuncSeq(answer, func(r rune) bool { return r == ',' || r == ' ' }) {
		idx, err := strconv.Atoi(field)
		if err == nil {
			if idx < 1 || idx > len(queue) {
				return nil, fmt.Errorf("no version number %d", idx)
			}

			picked = append(picked, queue[idx-1].Version)

			continue
		}

		if !slices.ContainsFunc(queue, func(item api.UpdateQueueItem) bool { return item.Version == field }) {
			return nil, fmt.Errorf("version %q isn't pending installation", field)
		}

		picked = append(picked, field)
	}

	// Keep queue order and drop duplicates.
	ret := []string{}

	for _, item := range queue {
		if slices.Contains(picked, item.Version) {
			ret = append(ret, item.Version)
		}
	}

	return ret, nil
}

func printResult(out io.Writer, result *api.SequenceResult) error {
	for _, v := range result.Applied {
		_, _ = fmt.Fprintf(out, "Installed version %s\n", v)
	}

	for _, v := range result.Skipped {
		_, _ = fmt.Fprintf(out, "Skipped version %s (no download for this source)\n", v)
	}

	if result.Failed() {
		return fmt.Errorf("failed to install version %s: %s", result.FailedAt, result.Error)
	}

	return nil
}

func gameDirLabel(r *runtime) string {
	if gamedir.CheckPath(r.config.GameRoot, r.config.TargetVersionName) {
		return r.config.TargetVersionName
	}

	return r.config.TargetVersionName + " (not found)"
}

func getStdinFd() int {
	return int(os.Stdin.Fd()) // #nosec G115
}
