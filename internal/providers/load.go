package providers

import (
	"context"
	"fmt"

	"github.com/tcymc/tcy-updater/internal/download"
)

// Load gets a specific provider and initializes it with the provider configuration.
func Load(ctx context.Context, name string, config map[string]string, client *download.Client) (Provider, error) {
	var provider Provider

	switch name {
	case "http":
		provider = &httpProvider{config: config, client: client}
	case "github":
		provider = &github{config: config, client: client}
	case "local":
		provider = &local{config: config}
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	err := provider.load(ctx)
	if err != nil {
		return nil, err
	}

	return provider, nil
}
