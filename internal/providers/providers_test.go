package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/internal/download"
	"github.com/tcymc/tcy-updater/internal/providers"
)

func newClient() *download.Client {
	return download.New(download.Options{Attempts: 1})
}

func TestLoadUnknown(t *testing.T) {
	t.Parallel()

	_, err := providers.Load(context.Background(), "ftp", nil, newClient())
	require.Error(t, err)
}

func TestHTTPProvider(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/update/latest.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"history":[{"version":"26.03.01.00.00","description":"March","download_urls":{"cn":"https://github.com/a.zip","global":"https://github.com/a.zip"}}]}`))
	})
	mux.HandleFunc("/update/Updater-latest.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version":"1.1.0","desc":"Fixes","url":"https://github.com/u.exe"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := providers.Load(context.Background(), "http", map[string]string{
		"history_url": srv.URL + "/update/latest.json",
		"self_url":    srv.URL + "/update/Updater-latest.json",
	}, newClient())
	require.NoError(t, err)
	require.Equal(t, "http", p.Type())

	history, err := p.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history.History, 1)
	require.Equal(t, "26.03.01.00.00", history.History[0].Version)

	desc, err := p.SelfDescriptor(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.1.0", desc.Version)
	require.Equal(t, "Fixes", desc.Description)
}

func TestHTTPProviderMissingConfig(t *testing.T) {
	t.Parallel()

	_, err := providers.Load(context.Background(), "http", map[string]string{"history_url": "https://tcymc.space/update/latest.json"}, newClient())
	require.Error(t, err)
}

func TestHTTPProviderUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := providers.Load(context.Background(), "http", map[string]string{
		"history_url": url + "/latest.json",
		"self_url":    url + "/Updater-latest.json",
	}, newClient())
	require.NoError(t, err)

	_, err = p.History(context.Background())
	require.ErrorIs(t, err, providers.ErrProviderUnavailable)
}

func TestGithubProvider(t *testing.T) {
	t.Parallel()

	type asset struct {
		Name string `json:"name"`
		URL  string `json:"browser_download_url"`
	}

	type release struct {
		TagName    string  `json:"tag_name"`
		Body       string  `json:"body"`
		Draft      bool    `json:"draft"`
		Prerelease bool    `json:"prerelease"`
		Assets     []asset `json:"assets"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/tcymc/pack/releases", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]release{
			{TagName: "26.03.01.00.00", Body: "March", Assets: []asset{{Name: "notes.txt", URL: "https://github.com/n.txt"}, {Name: "update.zip", URL: "https://github.com/m.zip"}}},
			{TagName: "26.04.01.00.00", Draft: true, Assets: []asset{{Name: "update.zip", URL: "https://github.com/d.zip"}}},
			{TagName: "26.02.01.00.00", Body: "No assets"},
		})
	})
	mux.HandleFunc("/repos/tcymc/updater/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(release{TagName: "v1.2.0", Body: "New", Assets: []asset{{Name: "TCYClientUpdater.exe", URL: "https://github.com/u.exe"}}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := providers.Load(context.Background(), "github", map[string]string{
		"repository":         "tcymc/pack",
		"updater_repository": "tcymc/updater",
		"api_url":            srv.URL,
	}, newClient())
	require.NoError(t, err)
	require.Equal(t, "github", p.Type())

	history, err := p.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history.History, 1)
	require.Equal(t, "26.03.01.00.00", history.History[0].Version)
	require.Equal(t, "March", history.History[0].Description)
	require.Equal(t, "https://github.com/m.zip", history.History[0].DownloadURLs["cn"])
	require.Equal(t, "https://github.com/m.zip", history.History[0].DownloadURLs["global"])

	desc, err := p.SelfDescriptor(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.2.0", desc.Version)
	require.Equal(t, "https://github.com/u.exe", desc.URL)

	require.NoError(t, p.ClearCache(context.Background()))
}

func TestGithubProviderInvalidRepository(t *testing.T) {
	t.Parallel()

	_, err := providers.Load(context.Background(), "github", map[string]string{"repository": "pack"}, newClient())
	require.Error(t, err)
}

func TestLocalProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "update_26.03.01.00.00.zip"), []byte("zip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "update.zip"), []byte("zip"), 0o600))

	p, err := providers.Load(context.Background(), "local", map[string]string{"path": dir}, nil)
	require.NoError(t, err)
	require.Equal(t, "local", p.Type())

	history, err := p.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history.History, 2)
	require.Equal(t, "update", history.History[0].Version)
	require.Equal(t, "26.03.01.00.00", history.History[1].Version)
	require.Equal(t, download.FileURL(filepath.Join(dir, "update_26.03.01.00.00.zip")), history.History[1].DownloadURLs["cn"])

	_, err = p.SelfDescriptor(context.Background())
	require.ErrorIs(t, err, providers.ErrNoUpdateAvailable)

	// A published history takes precedence.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "latest.json"), []byte(`{"history":[{"version":"1"}]}`), 0o600))

	history, err = p.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history.History, 1)
}

func TestLocalProviderMissingPath(t *testing.T) {
	t.Parallel()

	_, err := providers.Load(context.Background(), "local", map[string]string{"path": filepath.Join(t.TempDir(), "missing")}, nil)
	require.ErrorIs(t, err, providers.ErrProviderUnavailable)
}
