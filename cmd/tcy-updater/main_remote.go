package main

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/spf13/cobra"

	tcycli "github.com/tcymc/tcy-updater/cli"
	"github.com/tcymc/tcy-updater/internal/config"
)

type cmdRemote struct {
	global *cmdGlobal

	once   sync.Once
	client *http.Client
	host   string
	err    error
}

func (c *cmdRemote) command() *cobra.Command {
	cmd := tcycli.NewCommand(&tcycli.Args{DoHTTP: c.doHTTP})
	cmd.Short = "Drive a running updater daemon"

	return cmd
}

// doHTTP sends the request to the daemon listed in the configuration.
func (c *cmdRemote) doHTTP(req *http.Request) (*http.Response, error) {
	c.once.Do(func() {
		var cfg *config.Config

		cfg, c.err = c.global.loadConfig()
		if c.err != nil {
			return
		}

		c.client, c.host = remoteClient(cfg)
	})

	if c.err != nil {
		return nil, c.err
	}

	req.URL.Scheme = "http"
	req.URL.Host = c.host

	return c.client.Do(req)
}

// remoteClient returns an HTTP client connected to the control API, along with the host to use.
func remoteClient(cfg *config.Config) (*http.Client, string) {
	socket := cfg.Path(cfg.Serve.Socket)
	if socket == "" {
		return &http.Client{}, cfg.Serve.Address
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _ string, _ string) (net.Conn, error) {
			d := net.Dialer{}

			return d.DialContext(ctx, "unix", socket)
		},
	}

	return &http.Client{Transport: transport}, "tcy-updater"
}
