package rest

import (
	"errors"
	"io/fs"

	"github.com/tcymc/tcy-updater/internal/gamedir"
	"github.com/tcymc/tcy-updater/internal/providers"
	"github.com/tcymc/tcy-updater/internal/rest/response"
	"github.com/tcymc/tcy-updater/internal/selfupdate"
	"github.com/tcymc/tcy-updater/internal/sequencer"
)

// errorResponse maps an error to the matching HTTP response.
func errorResponse(err error) response.Response {
	switch {
	case errors.Is(err, providers.ErrProviderUnavailable):
		return response.Unavailable(err)
	case errors.Is(err, sequencer.ErrRunInProgress):
		return response.Conflict(err)
	case errors.Is(err, gamedir.ErrInvalidPath), errors.Is(err, selfupdate.ErrUpToDate):
		return response.BadRequest(err)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, providers.ErrNoUpdateAvailable):
		return response.NotFound(err)
	default:
		return response.InternalError(err)
	}
}
