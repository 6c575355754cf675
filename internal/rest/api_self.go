package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/rest/response"
	"github.com/tcymc/tcy-updater/internal/selfupdate"
	"github.com/tcymc/tcy-updater/internal/sequencer"
	"github.com/tcymc/tcy-updater/internal/state"
)

// swagger:operation POST /1.0/self/:check self self_post_check
//
//	Check for an updater build
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: Updater build status
//	  "503":
//	    $ref: "#/responses/Unavailable"
func (s *Server) apiSelfCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	resp := api.SelfUpdateStatus{RunningVersion: s.self.RunningVersion()}

	latest, err := s.self.Check(r.Context())
	if err != nil && !errors.Is(err, selfupdate.ErrUpToDate) {
		_ = errorResponse(err).Render(w)

		return
	}

	if latest != nil {
		resp.Available = true
		resp.Latest = latest
	}

	_ = response.SyncResponse(true, resp).Render(w)
}

// swagger:operation POST /1.0/self/:update self self_post_update
//
//	Update the updater
//
//	Downloads the published build in the background, then restarts into it. The API goes
//	away once the replacement is scheduled.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "202":
//	    description: Update started
//	  "400":
//	    $ref: "#/responses/BadRequest"
//	  "409":
//	    $ref: "#/responses/Conflict"
func (s *Server) apiSelfUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	latest, err := s.self.Check(r.Context())
	if err != nil {
		_ = errorResponse(err).Render(w)

		return
	}

	if !s.updates.start("Updating updater to " + latest.Version) {
		_ = response.Conflict(sequencer.ErrRunInProgress).Render(w)

		return
	}

	var mirrorPrefix string

	s.state.View(func(st *state.State) {
		mirrorPrefix = st.MirrorPrefix
	})

	ctx := context.WithoutCancel(r.Context())

	go func() {
		err := s.self.Stage(ctx, latest.URL, latest.Version, mirrorPrefix, s.updates)
		if err != nil {
			slog.ErrorContext(ctx, "Updater update failed", "err", err)
		}

		s.updates.finish(nil, err)
	}()

	_ = response.AcceptedResponse(latest, "/1.0/updates/status").Render(w)
}
