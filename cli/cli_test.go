package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/cli"
	"github.com/tcymc/tcy-updater/internal/patch"
	"github.com/tcymc/tcy-updater/internal/progress"
	"github.com/tcymc/tcy-updater/internal/rest"
	"github.com/tcymc/tcy-updater/internal/selfupdate"
	"github.com/tcymc/tcy-updater/internal/sequencer"
	"github.com/tcymc/tcy-updater/internal/state"
	"github.com/tcymc/tcy-updater/internal/versions"
)

type fakeApplier struct{}

func (fakeApplier) Apply(_ context.Context, req patch.Request, _ progress.Reporter) (*patch.Report, error) {
	return &patch.Report{Version: req.Version}, nil
}

type fakeHistory struct{}

func (fakeHistory) History(_ context.Context) (*api.History, error) {
	return &api.History{History: []api.ManifestEntry{
		{Version: "2", Description: "Second", DownloadURLs: map[string]string{"cn": "https://example.com/2.zip"}},
		{Version: "3", Description: "Third", DownloadURLs: map[string]string{"cn": "https://example.com/3.zip"}},
	}}, nil
}

type fakeSelf struct{}

func (fakeSelf) RunningVersion() string {
	return "1.0.0"
}

func (fakeSelf) Check(_ context.Context) (*api.SelfDescriptor, error) {
	return nil, selfupdate.ErrUpToDate
}

func (fakeSelf) Stage(_ context.Context, _ string, _ string, _ string, _ progress.Reporter) error {
	return nil
}

func newRemote(t *testing.T) (*state.State, func(args ...string) (string, error)) {
	t.Helper()

	root := t.TempDir()

	s, err := state.LoadOrCreate(filepath.Join(root, "launcher_settings.json"))
	require.NoError(t, err)

	err = s.Update(func(st *state.State) bool {
		st.CurrentVersion = "1"

		return true
	})
	require.NoError(t, err)

	seq := sequencer.New(s, fakeApplier{}, fakeHistory{}, root, versions.Lexical)

	server, err := rest.NewServer(t.Context(), s, seq, fakeSelf{}, rest.Options{GameRoot: root, Source: "cn", Address: "127.0.0.1:0"})
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	base, err := url.Parse(ts.URL)
	require.NoError(t, err)

	args := &cli.Args{
		DoHTTP: func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = base.Scheme
			req.URL.Host = base.Host

			return ts.Client().Do(req)
		},
	}

	run := func(cmdArgs ...string) (string, error) {
		cmd := cli.NewCommand(args)

		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetIn(strings.NewReader("no\n"))
		cmd.SetArgs(cmdArgs)

		err := cmd.ExecuteContext(t.Context())

		return out.String(), err
	}

	return s, run
}

func TestRemoteShow(t *testing.T) {
	t.Parallel()

	_, run := newRemote(t)

	out, err := run("show")
	require.NoError(t, err)
	require.Contains(t, out, "current_version: \"1\"")
	require.Contains(t, out, "running_version: 1.0.0")

	out, err = run("settings")
	require.NoError(t, err)
	require.Contains(t, out, "visual_effect: glass")
}

func TestRemoteUpdates(t *testing.T) {
	t.Parallel()

	s, run := newRemote(t)

	out, err := run("updates", "check", "--format", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"version":"2"`)
	require.Contains(t, out, `"version":"3"`)

	_, err = run("updates", "skip", "2")
	require.NoError(t, err)

	out, err = run("updates", "apply", "3", "--wait")
	require.NoError(t, err)
	require.Contains(t, out, "Done")

	s.View(func(st *state.State) {
		require.Equal(t, "3", st.CurrentVersion)
		require.Equal(t, []string{"2"}, st.SkippedVersions)
	})

	_, err = run("updates", "apply", "3")
	require.ErrorContains(t, err, "none of the selected versions are pending")
}

func TestRemoteSelf(t *testing.T) {
	t.Parallel()

	_, run := newRemote(t)

	out, err := run("self", "check")
	require.NoError(t, err)
	require.Contains(t, out, "available: false")

	// Declining the confirmation is not an error.
	_, err = run("self", "update")
	require.NoError(t, err)

	_, err = run("self", "update", "--yes")
	require.ErrorContains(t, err, selfupdate.ErrUpToDate.Error())
}
