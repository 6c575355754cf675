package providers

import (
	"errors"
)

var (
	// ErrProviderUnavailable is returned when a provider isn't ready for use yet.
	ErrProviderUnavailable = errors.New("provider isn't currently available")

	// ErrNoUpdateAvailable is returned when the provider doesn't publish any updater release.
	ErrNoUpdateAvailable = errors.New("no update available")
)
