package rest

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/gamedir"
	"github.com/tcymc/tcy-updater/internal/rest/response"
	"github.com/tcymc/tcy-updater/internal/state"
)

func (*Server) apiRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		_ = response.NotFound(nil).Render(w)

		return
	}

	_ = response.SyncResponse(true, []string{"/1.0"}).Render(w)
}

// swagger:operation GET /1.0 status status_get
//
//	Get updater status
//
//	Returns the running updater version and the state of the local installation.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: Updater status
func (s *Server) apiRoot10(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	resp := api.UpdaterStatus{
		RunningVersion: s.self.RunningVersion(),
		GameRoot:       s.opts.GameRoot,
		GameDirFound:   gamedir.CheckPath(s.opts.GameRoot, s.opts.VersionName),
	}

	s.state.View(func(st *state.State) {
		resp.CurrentVersion = st.CurrentVersion
		resp.SkippedVersions = slices.Clone(st.SkippedVersions)
		resp.MirrorPrefix = st.MirrorPrefix
	})

	_ = response.SyncResponse(true, resp).Render(w)
}

// swagger:operation GET /1.0/settings settings settings_get
//
//	Get the launcher settings
//
//	Returns the persisted settings document, display keys included.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: Settings document

// swagger:operation PATCH /1.0/settings settings settings_patch
//
//	Update the launcher settings
//
//	Merges the provided keys into the persisted settings.
//
//	---
//	consumes:
//	  - application/json
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    $ref: "#/responses/EmptySyncResponse"
//	  "400":
//	    $ref: "#/responses/BadRequest"
func (s *Server) apiSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings := s.state.Settings()

		_ = response.SyncResponseETag(true, settings, settings).Render(w)
	case http.MethodPatch:
		var settings map[string]any

		counter := &countWrapper{ReadCloser: r.Body}

		err := json.NewDecoder(counter).Decode(&settings)
		if err != nil && counter.n > 0 {
			_ = response.BadRequest(err).Render(w)

			return
		}

		err = s.state.Merge(settings)
		if err != nil {
			_ = response.BadRequest(err).Render(w)

			return
		}

		_ = response.EmptySyncResponse.Render(w)
	default:
		// If none of the supported methods, return NotImplemented.
		_ = response.NotImplemented(nil).Render(w)
	}
}
