package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	ghapi "github.com/google/go-github/v72/github"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/download"
)

// The Github provider, publishing each mod-pack version as a release.
type github struct {
	gh     *ghapi.Client
	client *download.Client

	organization string
	repository   string

	updaterOrganization string
	updaterRepository   string
	updaterSuffix       string

	config map[string]string

	releaseLastCheck time.Time
	releaseHistory   *api.History
	releaseMu        sync.Mutex
}

func (p *github) ClearCache(_ context.Context) error {
	p.releaseMu.Lock()
	defer p.releaseMu.Unlock()

	// Reset the last check time.
	p.releaseLastCheck = time.Time{}

	return nil
}

func (*github) Type() string {
	return "github"
}

func (p *github) History(ctx context.Context) (*api.History, error) {
	// Acquire lock.
	p.releaseMu.Lock()
	defer p.releaseMu.Unlock()

	// Only talk to Github once an hour.
	if !p.releaseLastCheck.IsZero() && p.releaseLastCheck.Add(time.Hour).After(time.Now()) {
		return p.releaseHistory, nil
	}

	history := &api.History{History: []api.ManifestEntry{}}
	opts := &ghapi.ListOptions{PerPage: 100}

	for {
		releases, resp, err := p.gh.Repositories.ListReleases(ctx, p.organization, p.repository, opts)
		if err != nil {
			return nil, p.checkLimit(err)
		}

		for _, release := range releases {
			if release.GetDraft() || release.GetPrerelease() {
				continue
			}

			entry, ok := releaseEntry(release)
			if !ok {
				continue
			}

			history.History = append(history.History, entry)
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	// Record the history.
	p.releaseLastCheck = time.Now()
	p.releaseHistory = history

	return history, nil
}

func (p *github) SelfDescriptor(ctx context.Context) (*api.SelfDescriptor, error) {
	if p.updaterRepository == "" {
		return nil, ErrNoUpdateAvailable
	}

	release, _, err := p.gh.Repositories.GetLatestRelease(ctx, p.updaterOrganization, p.updaterRepository)
	if err != nil {
		return nil, p.checkLimit(err)
	}

	for _, asset := range release.Assets {
		if strings.HasSuffix(strings.ToLower(asset.GetName()), p.updaterSuffix) {
			return &api.SelfDescriptor{
				Version:     strings.TrimPrefix(release.GetTagName(), "v"),
				Description: release.GetBody(),
				URL:         asset.GetBrowserDownloadURL(),
			}, nil
		}
	}

	return nil, ErrNoUpdateAvailable
}

func (p *github) load(_ context.Context) error {
	var err error

	p.organization, p.repository, err = splitRepository(p.config["repository"])
	if err != nil {
		return err
	}

	if p.config["updater_repository"] != "" {
		p.updaterOrganization, p.updaterRepository, err = splitRepository(p.config["updater_repository"])
		if err != nil {
			return err
		}
	}

	p.updaterSuffix = strings.ToLower(p.config["updater_asset_suffix"])
	if p.updaterSuffix == "" {
		p.updaterSuffix = ".exe"
	}

	// Setup the Github client, sharing the download transport.
	if p.client == nil {
		p.client = download.New(download.Options{})
	}

	p.gh = ghapi.NewClient(p.client.HTTPClient())
	p.gh.UserAgent = p.client.UserAgent()

	if p.config["token"] != "" {
		p.gh = p.gh.WithAuthToken(p.config["token"])
	}

	if p.config["api_url"] != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(p.config["api_url"], "/") + "/")
		if err != nil {
			return fmt.Errorf("invalid api_url: %w", err)
		}

		p.gh.BaseURL = baseURL
	}

	return nil
}

func (*github) checkLimit(err error) error {
	var rateErr *ghapi.RateLimitError
	if errors.As(err, &rateErr) {
		return ErrProviderUnavailable
	}

	var abuseErr *ghapi.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return ErrProviderUnavailable
	}

	return err
}

// releaseEntry converts a release into a history entry, using its first patch archive asset
// for every download source.
func releaseEntry(release *ghapi.RepositoryRelease) (api.ManifestEntry, bool) {
	version := strings.TrimPrefix(release.GetTagName(), "v")
	if version == "" {
		return api.ManifestEntry{}, false
	}

	for _, asset := range release.Assets {
		if !isArchive(asset.GetName()) {
			continue
		}

		return api.ManifestEntry{
			Version:      version,
			Description:  release.GetBody(),
			DownloadURLs: sameURLs(asset.GetBrowserDownloadURL()),
		}, true
	}

	return api.ManifestEntry{}, false
}

func splitRepository(name string) (string, string, error) {
	organization, repository, ok := strings.Cut(name, "/")
	if !ok || organization == "" || repository == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected <owner>/<name>", name)
	}

	return organization, repository, nil
}
