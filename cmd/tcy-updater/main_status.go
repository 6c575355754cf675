package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/gamedir"
	"github.com/tcymc/tcy-updater/internal/state"
)

type cmdStatus struct {
	global *cmdGlobal

	flagFormat string
}

func (c *cmdStatus) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("status")
	cmd.Short = "Show the installation status"
	cmd.Long = cli.FormatSection("Description",
		`Show the installation status

Shows the installed mod-pack version, the skipped versions and where the
game installation was found.`)
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", "yaml", "Format (yaml|json)``")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdStatus) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	if c.flagFormat != "yaml" && c.flagFormat != "json" {
		return fmt.Errorf("invalid format %q", c.flagFormat)
	}

	r, err := c.global.newRuntime(cmd.Context(), nil)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	status := api.UpdaterStatus{
		RunningVersion: r.self.RunningVersion(),
		GameRoot:       r.config.GameRoot,
		GameDirFound:   gamedir.CheckPath(r.config.GameRoot, r.config.TargetVersionName),
	}

	r.state.View(func(st *state.State) {
		status.CurrentVersion = st.CurrentVersion
		status.SkippedVersions = slices.Clone(st.SkippedVersions)
		status.MirrorPrefix = st.MirrorPrefix
	})

	return render(cmd.OutOrStdout(), c.flagFormat, status)
}

// render writes a document as YAML or indented JSON.
func render(w io.Writer, format string, data any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(data)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(data)
	if err != nil {
		return err
	}

	return enc.Close()
}
