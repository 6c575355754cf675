package providers

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/download"
	"github.com/tcymc/tcy-updater/internal/gamedir"
	"github.com/tcymc/tcy-updater/internal/manifest"
)

const (
	localHistoryFile = "latest.json"
	localSelfFile    = "Updater-latest.json"
)

// The Local provider, reading published documents or patch archives from a directory.
type local struct {
	config map[string]string
	path   string
}

func (*local) ClearCache(_ context.Context) error {
	// Nothing is cached.
	return nil
}

func (*local) Type() string {
	return "local"
}

func (p *local) History(_ context.Context) (*api.History, error) {
	// Prefer a published history document.
	// #nosec G304
	f, err := os.Open(filepath.Join(p.path, localHistoryFile))
	if err == nil {
		defer f.Close()

		return manifest.ParseHistory(f)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// Otherwise build one from the archives dropped into the directory.
	names, err := gamedir.ScanArchives(p.path)
	if err != nil {
		return nil, err
	}

	history := &api.History{History: make([]api.ManifestEntry, 0, len(names))}
	for _, name := range names {
		history.History = append(history.History, api.ManifestEntry{
			Version:      versionFromArchive(name),
			Description:  name,
			DownloadURLs: sameURLs(download.FileURL(filepath.Join(p.path, name))),
		})
	}

	return history, nil
}

func (p *local) SelfDescriptor(_ context.Context) (*api.SelfDescriptor, error) {
	// #nosec G304
	f, err := os.Open(filepath.Join(p.path, localSelfFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoUpdateAvailable
		}

		return nil, err
	}

	defer f.Close()

	return manifest.ParseSelfDescriptor(f)
}

func (p *local) load(_ context.Context) error {
	p.path = p.config["path"]
	if p.path == "" {
		p.path = "."
	}

	// Deal with missing path.
	info, err := os.Stat(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrProviderUnavailable
		}

		return err
	}

	if !info.IsDir() {
		return ErrProviderUnavailable
	}

	return nil
}
