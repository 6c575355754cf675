package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lxc/incus/v6/shared/ask"
	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/gamedir"
)

type cmdFiles struct {
	global *cmdGlobal

	flagFormat string
}

func (c *cmdFiles) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("files", "<mods|config>")
	cmd.Short = "List the mods or config files of the installation"
	cmd.Long = cli.FormatSection("Description", "List the mods or config files of the installation")
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", "tree", "Format (tree|yaml|json)``")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdFiles) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 1, 1)
	if exit {
		return err
	}

	if args[0] != gamedir.FolderMods && args[0] != gamedir.FolderConfig {
		return fmt.Errorf("invalid folder type %q", args[0])
	}

	r, err := c.global.newRuntime(cmd.Context(), nil)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	nodes, err := gamedir.ListFiles(r.config.GameRoot, r.config.TargetVersionName, args[0])
	if err != nil {
		return err
	}

	switch c.flagFormat {
	case "tree":
		printTree(cmd.OutOrStdout(), nodes, 0)

		return nil
	case "yaml", "json":
		return render(cmd.OutOrStdout(), c.flagFormat, nodes)
	default:
		return fmt.Errorf("invalid format %q", c.flagFormat)
	}
}

func printTree(w io.Writer, nodes []api.FileNode, depth int) {
	indent := strings.Repeat("  ", depth)

	for _, node := range nodes {
		if node.Type == "folder" {
			_, _ = fmt.Fprintf(w, "%s%s/\n", indent, node.Name)
			printTree(w, node.Children, depth+1)

			continue
		}

		_, _ = fmt.Fprintf(w, "%s%s\t%s\t%s\n", indent, node.Name, node.Size, node.Date)
	}
}

type cmdRmMod struct {
	global *cmdGlobal

	flagYes bool
}

func (c *cmdRmMod) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("rm-mod", "<path>")
	cmd.Short = "Delete a mod"
	cmd.Long = cli.FormatSection("Description",
		`Delete a mod

The path is relative to the mods folder, as shown by "files mods".`)
	cmd.Flags().BoolVarP(&c.flagYes, "yes", "y", false, "Don't ask for confirmation")
	cmd.RunE = c.run

	return cmd
}

func (c *cmdRmMod) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 1, 1)
	if exit {
		return err
	}

	if !c.flagYes {
		asker := ask.NewAsker(bufio.NewReader(cmd.InOrStdin()))

		confirm, err := asker.AskBool(fmt.Sprintf("Delete mod %q? (yes/no) [default=no]: ", args[0]), "no")
		if err != nil {
			return err
		}

		if !confirm {
			return nil
		}
	}

	r, err := c.global.newRuntime(cmd.Context(), nil)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	return gamedir.DeleteMod(r.config.GameRoot, r.config.TargetVersionName, args[0])
}

type cmdArchives struct {
	global *cmdGlobal

	flagFormat string
}

func (c *cmdArchives) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage("archives")
	cmd.Short = "List the update archives found in the game root"
	cmd.Long = cli.FormatSection("Description", "List the update archives found in the game root")
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", "table", "Format (csv|json|table|yaml|compact|markdown)``")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return cli.ValidateFlagFormatForListOutput(cmd.Flag("format").Value.String())
	}

	cmd.RunE = c.run

	return cmd
}

func (c *cmdArchives) run(cmd *cobra.Command, args []string) error {
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

	names, err := gamedir.ScanArchives(r.config.GameRoot)
	if err != nil {
		return err
	}

	data := [][]string{}
	for _, name := range names {
		data = append(data, []string{name})
	}

	header := []string{
		"NAME",
	}

	return cli.RenderTable(cmd.OutOrStdout(), c.flagFormat, header, data, names)
}
