// Package selfupdate replaces the running updater executable with a newer published build.
//
// The running executable can't overwrite itself, so the replacement is staged next to it and
// handed over to a detached script which swaps the files once this process has exited.
package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lxc/incus/v6/shared/revert"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/download"
	"github.com/tcymc/tcy-updater/internal/mirror"
	"github.com/tcymc/tcy-updater/internal/progress"
)

const (
	// TempName is the name the new build is downloaded under.
	TempName = "TCY-Client-Updater.new"

	// TargetPrefix is the name prefix of the installed versioned executable.
	TargetPrefix = "TCYClientUpdater-"

	// DefaultWait is how long the replacement script waits for this process to exit.
	DefaultWait = 3 * time.Second
)

// ErrUpToDate is returned by Check when the published build is the running one.
var ErrUpToDate = errors.New("updater is up to date")

// Source returns the latest published updater build.
type Source interface {
	SelfDescriptor(ctx context.Context) (*api.SelfDescriptor, error)
}

// Downloader fetches a URL into a local file.
type Downloader interface {
	File(ctx context.Context, rawURL string, target string, progressFunc download.ProgressFunc) (int64, error)
}

// Plan describes a replacement to perform once the process has exited.
type Plan struct {
	// Current is the running executable, removed first.
	Current string

	// Temp is the downloaded build.
	Temp string

	// Target is where the new build is moved to and launched from.
	Target string

	// Script is the location of the replacement script.
	Script string

	Wait time.Duration
}

// Replacer schedules a replacement to run after the process exits.
type Replacer interface {
	// ScriptName returns the file name of the replacement script.
	ScriptName() string

	// TargetName returns the file name of the installed build for a version.
	TargetName(version string) string

	// Schedule writes and starts the replacement script, detached from this process.
	Schedule(ctx context.Context, plan Plan) error
}

// Options configures an Updater.
type Options struct {
	// RunningVersion is the version of this build.
	RunningVersion string

	// Dir is where the new build gets staged. Defaults to the executable's directory.
	Dir string

	// Executable is the running executable. Defaults to os.Executable().
	Executable string

	GatedHost string

	// Replacer defaults to the one for the current OS.
	Replacer Replacer

	// Exit terminates the process once the replacement is scheduled. Defaults to os.Exit.
	Exit func(code int)
}

// Updater checks for and stages updater builds.
type Updater struct {
	source     Source
	downloader Downloader

	running    string
	dir        string
	executable string
	gatedHost  string
	replacer   Replacer
	exit       func(code int)
}

// New returns an Updater.
func New(source Source, downloader Downloader, opts Options) (*Updater, error) {
	if opts.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate running executable: %w", err)
		}

		opts.Executable = exe
	}

	if opts.Dir == "" {
		opts.Dir = filepath.Dir(opts.Executable)
	}

	if opts.GatedHost == "" {
		opts.GatedHost = mirror.DefaultGatedHost
	}

	if opts.Replacer == nil {
		opts.Replacer = NewReplacer()
	}

	if opts.Exit == nil {
		opts.Exit = os.Exit
	}

	return &Updater{
		source:     source,
		downloader: downloader,
		running:    opts.RunningVersion,
		dir:        opts.Dir,
		executable: opts.Executable,
		gatedHost:  opts.GatedHost,
		replacer:   opts.Replacer,
		exit:       opts.Exit,
	}, nil
}

// RunningVersion returns the version of the running build.
func (u *Updater) RunningVersion() string {
	return u.running
}

// Check returns the published build when it differs from the running one, older builds
// included. ErrUpToDate is returned otherwise.
func (u *Updater) Check(ctx context.Context) (*api.SelfDescriptor, error) {
	remote, err := u.source.SelfDescriptor(ctx)
	if err != nil {
		return nil, err
	}

	if remote.Version == u.running {
		return nil, ErrUpToDate
	}

	slog.InfoContext(ctx, "Updater build available", "running", u.running, "published", remote.Version)

	return remote, nil
}

// Stage downloads the build and schedules the replacement of the running executable, then exits
// the process. Errors are returned before anything irreversible happens.
func (u *Updater) Stage(ctx context.Context, rawURL string, version string, mirrorPrefix string, reporter progress.Reporter) error {
	if reporter == nil {
		reporter = progress.Nop{}
	}

	if version == "" {
		return errors.New("no version provided")
	}

	reverter := revert.New()
	defer reverter.Fail()

	// Updater builds always come through the mirror.
	buildURL := mirror.Rewrite(rawURL, mirrorPrefix, u.gatedHost)
	temp := filepath.Join(u.dir, TempName)

	reverter.Add(func() { _ = os.Remove(temp) })

	reporter.Log(ctx, "Downloading updater "+version)
	slog.InfoContext(ctx, "Downloading updater build", "version", version, "url", buildURL)

	_, err := u.downloader.File(ctx, buildURL, temp, progress.Steps(ctx, reporter, func(percent int) string {
		return fmt.Sprintf("Downloading updater... %d%%", percent)
	}))
	if err != nil {
		return fmt.Errorf("download updater build: %w", err)
	}

	plan := Plan{
		Current: u.executable,
		Temp:    temp,
		Target:  filepath.Join(u.dir, u.replacer.TargetName(version)),
		Script:  filepath.Join(u.dir, u.replacer.ScriptName()),
		Wait:    DefaultWait,
	}

	err = u.replacer.Schedule(ctx, plan)
	if err != nil {
		return fmt.Errorf("schedule replacement: %w", err)
	}

	reverter.Success()

	reporter.Log(ctx, "Restarting into updater "+version)
	slog.InfoContext(ctx, "Exiting for updater replacement", "target", plan.Target)

	u.exit(0)

	return nil
}
