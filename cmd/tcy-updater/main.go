// Package main is used for the TCY client updater.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/lxc/incus/v6/shared/cmd"
	"github.com/spf13/cobra"

	"github.com/tcymc/tcy-updater/internal/config"
	"github.com/tcymc/tcy-updater/internal/download"
	"github.com/tcymc/tcy-updater/internal/logging"
	"github.com/tcymc/tcy-updater/internal/patch"
	"github.com/tcymc/tcy-updater/internal/providers"
	"github.com/tcymc/tcy-updater/internal/selfupdate"
	"github.com/tcymc/tcy-updater/internal/sequencer"
	"github.com/tcymc/tcy-updater/internal/state"
)

var version = "1.0.0"

type cmdGlobal struct {
	flagHelp     bool
	flagVersion  bool
	flagConfig   string
	flagGameRoot string
	flagProvider string
	flagLogLevel string
	flagInsecure bool
}

// runtime holds everything a command needs to talk to the update server and the installation.
type runtime struct {
	config    *config.Config
	state     *state.State
	client    *download.Client
	provider  providers.Provider
	sequencer *sequencer.Sequencer
	self      *selfupdate.Updater

	logCloser io.Closer
}

func (r *runtime) Close() error {
	return r.logCloser.Close()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newApp().ExecuteContext(ctx)
	if err != nil {
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}

func newApp() *cobra.Command {
	// Global flags.
	globalCmd := cmdGlobal{}

	app := &cobra.Command{
		Use:   "tcy-updater",
		Short: "TCY mod-pack client updater",
		Long: cli.FormatSection("Description",
			"TCY mod-pack client updater\n\nThis tool keeps a local Minecraft mod-pack installation up to date."),
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE:              globalCmd.run,
	}

	app.PersistentFlags().BoolVarP(&globalCmd.flagHelp, "help", "h", false, "Print help command")
	app.PersistentFlags().BoolVarP(&globalCmd.flagVersion, "version", "v", false, "Print binary version")
	app.PersistentFlags().StringVarP(&globalCmd.flagConfig, "config", "c", "", "Configuration file (default: "+config.FileName+" in the working directory)``")
	app.PersistentFlags().StringVar(&globalCmd.flagGameRoot, "game-root", "", "Game installation root``")
	app.PersistentFlags().StringVar(&globalCmd.flagProvider, "provider", "", "Update provider (http|github|local)``")
	app.PersistentFlags().StringVar(&globalCmd.flagLogLevel, "log-level", "", "Log level (debug|info|warn|error)``")
	app.PersistentFlags().BoolVar(&globalCmd.flagInsecure, "insecure", false, "Don't verify TLS certificates")

	// Sub-commands.
	archivesCmd := cmdArchives{global: &globalCmd}
	app.AddCommand(archivesCmd.command())

	checkCmd := cmdCheck{global: &globalCmd}
	app.AddCommand(checkCmd.command())

	filesCmd := cmdFiles{global: &globalCmd}
	app.AddCommand(filesCmd.command())

	remoteCmd := cmdRemote{global: &globalCmd}
	app.AddCommand(remoteCmd.command())

	rmModCmd := cmdRmMod{global: &globalCmd}
	app.AddCommand(rmModCmd.command())

	selfUpdateCmd := cmdSelfUpdate{global: &globalCmd}
	app.AddCommand(selfUpdateCmd.command())

	serveCmd := cmdServe{global: &globalCmd}
	app.AddCommand(serveCmd.command())

	skipCmd := cmdSkip{global: &globalCmd}
	app.AddCommand(skipCmd.command())

	statusCmd := cmdStatus{global: &globalCmd}
	app.AddCommand(statusCmd.command())

	updateCmd := cmdUpdate{global: &globalCmd}
	app.AddCommand(updateCmd.command())

	versionCmd := cmdVersion{global: &globalCmd}
	app.AddCommand(versionCmd.command())

	watchCmd := cmdWatch{global: &globalCmd}
	app.AddCommand(watchCmd.command())

	// Help handling.
	app.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return app
}

func (c *cmdGlobal) run(cmd *cobra.Command, _ []string) error {
	if c.flagVersion {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "tcy-updater version "+version)

		return nil
	}

	return cmd.Help()
}

// loadConfig resolves the configuration, with command line flags taking precedence.
func (c *cmdGlobal) loadConfig() (*config.Config, error) {
	overrides := map[string]any{}

	if c.flagGameRoot != "" {
		overrides[config.KeyGameRoot] = c.flagGameRoot
	}

	if c.flagProvider != "" {
		overrides[config.KeyProvider] = c.flagProvider
	}

	if c.flagLogLevel != "" {
		overrides[config.KeyLogLevel] = c.flagLogLevel
	}

	if c.flagInsecure {
		overrides[config.KeyInsecureSkipVerify] = true
	}

	opts := []config.Option{config.WithOverrides(overrides)}

	if c.flagConfig != "" {
		opts = append(opts, config.WithConfigFile(c.flagConfig))
	}

	return config.Load(opts...)
}

// newRuntime loads the configuration and the persisted state, then sets up logging and the
// update machinery. Log records go to the log file, the console and any extra handler.
func (c *cmdGlobal) newRuntime(ctx context.Context, console io.Writer, handlers ...slog.Handler) (*runtime, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	_, logCloser, err := logging.Setup(logging.Options{
		Level:    cfg.Log.Level,
		File:     cfg.LogPath(),
		Console:  console,
		Handlers: handlers,
	})
	if err != nil {
		return nil, err
	}

	r := &runtime{config: cfg, logCloser: logCloser}

	err = r.init(ctx)
	if err != nil {
		_ = logCloser.Close()

		return nil, err
	}

	return r, nil
}

func (r *runtime) init(ctx context.Context) error {
	cfg := r.config

	s, err := state.LoadOrCreate(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// A fresh installation starts with the configured mirror.
	if s.Created() {
		err = s.Update(func(st *state.State) bool {
			if st.MirrorPrefix == cfg.MirrorPrefix {
				return false
			}

			st.MirrorPrefix = cfg.MirrorPrefix

			return true
		})
		if err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	r.state = s

	r.client = download.New(download.Options{
		UserAgent:          cfg.UserAgent,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Attempts:           cfg.Retry.Attempts,
		Interval:           cfg.Retry.Interval,
	})

	r.provider, err = providers.Load(ctx, cfg.Provider, providerConfig(cfg), r.client)
	if err != nil {
		return fmt.Errorf("load %s provider: %w", cfg.Provider, err)
	}

	applier := patch.NewApplier(r.client, cfg.GatedHost)
	r.sequencer = sequencer.New(s, applier, r.provider, cfg.GameRoot, cfg.VersionOrdering())

	runningVersion := cfg.RunningVersion
	if runningVersion == "" {
		runningVersion = version
	}

	r.self, err = selfupdate.New(r.provider, r.client, selfupdate.Options{
		RunningVersion: runningVersion,
		GatedHost:      cfg.GatedHost,
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Updater ready", "version", runningVersion, "provider", cfg.Provider, "game_root", cfg.GameRoot)

	return nil
}

// providerConfig merges the top level provider settings into the provider specific ones.
func providerConfig(cfg *config.Config) map[string]string {
	ret := maps.Clone(cfg.ProviderConfig)
	if ret == nil {
		ret = map[string]string{}
	}

	switch cfg.Provider {
	case "http":
		if ret["history_url"] == "" {
			ret["history_url"] = cfg.HistoryURL
		}

		if ret["self_url"] == "" {
			ret["self_url"] = cfg.SelfURL
		}

	case "local":
		ret["path"] = cfg.Path(ret["path"])
		if ret["path"] == "" {
			ret["path"] = cfg.GameRoot
		}
	}

	return ret
}
