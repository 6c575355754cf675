package cli

import (
	"bufio"
	"fmt"
	"net/http"

	"github.com/lxc/incus/v6/shared/api"
	"github.com/lxc/incus/v6/shared/ask"
	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Run.
type cmdGenericRun struct {
	action      string
	description string
	endpoint    string
	confirm     string
	showResult  bool

	flagYes bool

	remote *cmdRemote
}

func (c *cmdGenericRun) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = cli.Usage(c.action)
	cmd.Short = c.description
	cmd.Long = cli.FormatSection("Description", c.description)

	if c.confirm != "" {
		cmd.Flags().BoolVarP(&c.flagYes, "yes", "y", false, "Don't ask for confirmation")
	}

	cmd.RunE = c.run

	return cmd
}

func (c *cmdGenericRun) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	// Ask for confirmation if needed.
	if c.confirm != "" && !c.flagYes {
		asker := ask.NewAsker(bufio.NewReader(cmd.InOrStdin()))

		confirm, err := asker.AskBool(fmt.Sprintf("Are you sure you want to %s? (yes/no) [default=no]: ", c.confirm), "no")
		if err != nil {
			return err
		}

		if !confirm {
			return nil
		}
	}

	// Run the command.
	resp, _, err := doQuery(cmd.Context(), c.remote.args.DoHTTP, http.MethodPost, "/1.0/"+c.endpoint+"/:"+c.action, nil, "")
	if err != nil {
		return err
	}

	if !c.showResult {
		return nil
	}

	return printYAML(cmd, resp)
}

// Show.
type cmdGenericShow struct {
	remote *cmdRemote

	name        string
	endpoint    string
	description string
}

func (c *cmdGenericShow) command() *cobra.Command {
	if c.name == "" {
		c.name = "show"
	}

	cmd := &cobra.Command{}
	cmd.Use = cli.Usage(c.name)
	cmd.Short = c.description
	cmd.Long = cli.FormatSection("Description", c.description)
	cmd.RunE = c.run

	return cmd
}

func (c *cmdGenericShow) run(cmd *cobra.Command, args []string) error {
	// Quick checks.
	exit, err := cli.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	apiURL := "/1.0"
	if c.endpoint != "" {
		apiURL += "/" + c.endpoint
	}

	resp, _, err := doQuery(cmd.Context(), c.remote.args.DoHTTP, http.MethodGet, apiURL, nil, "")
	if err != nil {
		return err
	}

	return printYAML(cmd, resp)
}

// printYAML renders the response metadata as YAML.
func printYAML(cmd *cobra.Command, resp *api.Response) error {
	var rawData any

	err := resp.MetadataAsStruct(&rawData)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(rawData)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)

	return err
}
