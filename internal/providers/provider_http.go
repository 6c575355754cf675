package providers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/download"
	"github.com/tcymc/tcy-updater/internal/manifest"
)

// The HTTP provider, reading the published JSON documents.
type httpProvider struct {
	config map[string]string
	client *download.Client

	historyURL string
	selfURL    string
}

func (*httpProvider) ClearCache(_ context.Context) error {
	// Nothing is cached.
	return nil
}

func (*httpProvider) Type() string {
	return "http"
}

func (p *httpProvider) History(ctx context.Context) (*api.History, error) {
	var history *api.History

	err := p.client.Get(ctx, p.historyURL, func(r io.Reader) error {
		var err error

		history, err = manifest.ParseHistory(r)

		return err
	})
	if err != nil {
		return nil, p.checkUnavailable(fmt.Errorf("fetch version history: %w", err))
	}

	return history, nil
}

func (p *httpProvider) SelfDescriptor(ctx context.Context) (*api.SelfDescriptor, error) {
	var desc *api.SelfDescriptor

	err := p.client.Get(ctx, p.selfURL, func(r io.Reader) error {
		var err error

		desc, err = manifest.ParseSelfDescriptor(r)

		return err
	})
	if err != nil {
		return nil, p.checkUnavailable(fmt.Errorf("fetch updater release: %w", err))
	}

	return desc, nil
}

func (p *httpProvider) load(_ context.Context) error {
	if p.client == nil {
		p.client = download.New(download.Options{})
	}

	p.historyURL = p.config["history_url"]
	p.selfURL = p.config["self_url"]

	if p.historyURL == "" || p.selfURL == "" {
		return errors.New("the http provider requires both history_url and self_url")
	}

	return nil
}

// checkUnavailable marks transport level failures so callers can tell an offline server apart.
func (*httpProvider) checkUnavailable(err error) error {
	if errors.Is(err, download.ErrTransport) {
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return err
}
