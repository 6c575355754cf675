package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Args contains the configuration for a new remote control CLI instance.
type Args struct {
	DefaultListFormat string

	// DoHTTP sends a request to the control API. The request URL only holds the path.
	DoHTTP func(req *http.Request) (*http.Response, error)
}

// NewCommand returns a new cobra Command driving a running updater daemon.
func NewCommand(args *Args) *cobra.Command {
	if args.DefaultListFormat == "" {
		args.DefaultListFormat = "table"
	}

	cmd := cmdRemote{
		args: args,
	}

	return cmd.command()
}
