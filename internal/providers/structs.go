package providers

import (
	"context"

	"github.com/tcymc/tcy-updater/api"
)

// Provider represents a source of published versions.
type Provider interface {
	ClearCache(ctx context.Context) error

	Type() string

	// History returns the published version history of the mod-pack.
	History(ctx context.Context) (*api.History, error)

	// SelfDescriptor returns the latest published release of the updater itself.
	SelfDescriptor(ctx context.Context) (*api.SelfDescriptor, error)

	load(ctx context.Context) error
}
