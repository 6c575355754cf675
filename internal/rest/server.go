package rest

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/progress"
	"github.com/tcymc/tcy-updater/internal/sequencer"
	"github.com/tcymc/tcy-updater/internal/state"
)

// SelfUpdater checks for and stages new updater builds.
type SelfUpdater interface {
	RunningVersion() string
	Check(ctx context.Context) (*api.SelfDescriptor, error)
	Stage(ctx context.Context, rawURL string, version string, mirrorPrefix string, reporter progress.Reporter) error
}

// Options configures the REST API server.
type Options struct {
	// GameRoot is the installation the API operates on.
	GameRoot string

	// VersionName is the name of the game version folder of the mod-pack.
	VersionName string

	// Source is used when an apply request doesn't name one.
	Source string

	// SocketPath takes precedence over Address when set.
	SocketPath string
	Address    string
}

// Server holds the internal state of the REST API server.
type Server struct {
	opts      Options
	state     *state.State
	sequencer *sequencer.Sequencer
	self      SelfUpdater

	updates *updateTracker
}

// NewServer returns a REST API server object.
func NewServer(_ context.Context, s *state.State, seq *sequencer.Sequencer, self SelfUpdater, opts Options) (*Server, error) {
	if opts.SocketPath == "" && opts.Address == "" {
		return nil, errors.New("no socket path or address to listen on")
	}

	// Define the struct.
	server := Server{
		opts:      opts,
		state:     s,
		sequencer: seq,
		self:      self,
		updates:   &updateTracker{},
	}

	// Create runtime path if missing.
	if opts.SocketPath != "" {
		err := os.Mkdir(filepath.Dir(opts.SocketPath), 0o700)
		if err != nil && !os.IsExist(err) {
			return nil, err
		}
	}

	return &server, nil
}

// Handler returns the router serving the API.
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("/", s.apiRoot)
	router.HandleFunc("/1.0", s.apiRoot10)
	router.HandleFunc("/1.0/archives", s.apiArchives)
	router.HandleFunc("/1.0/files/{type}", s.apiFiles)
	router.HandleFunc("/1.0/files/mods/{path...}", s.apiFilesMod)
	router.HandleFunc("/1.0/self/:check", s.apiSelfCheck)
	router.HandleFunc("/1.0/self/:update", s.apiSelfUpdate)
	router.HandleFunc("/1.0/settings", s.apiSettings)
	router.HandleFunc("/1.0/updates/:apply", s.apiUpdatesApply)
	router.HandleFunc("/1.0/updates/:check", s.apiUpdatesCheck)
	router.HandleFunc("/1.0/updates/skipped", s.apiUpdatesSkipped)
	router.HandleFunc("/1.0/updates/status", s.apiUpdatesStatus)

	return router
}

// Serve starts the REST API server and runs until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	// Setup listener.
	lc := &net.ListenConfig{}

	network, address := "tcp", s.opts.Address
	if s.opts.SocketPath != "" {
		_ = os.Remove(s.opts.SocketPath)
		network, address = "unix", s.opts.SocketPath
	}

	listener, err := lc.Listen(ctx, network, address)
	if err != nil {
		return err
	}

	// Setup server.
	server := &http.Server{
		Handler: s.Handler(),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	slog.InfoContext(ctx, "Serving control API", "network", network, "address", listener.Addr().String())

	err = server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
