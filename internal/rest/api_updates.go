package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/manifest"
	"github.com/tcymc/tcy-updater/internal/rest/response"
	"github.com/tcymc/tcy-updater/internal/sequencer"
	"github.com/tcymc/tcy-updater/internal/state"
)

// swagger:operation POST /1.0/updates/:check updates updates_post_check
//
//	Check for mod-pack updates
//
//	Fetches the published history and returns the versions pending installation, in
//	ascending order.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: Update queue
//	  "503":
//	    $ref: "#/responses/Unavailable"
func (s *Server) apiUpdatesCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	queue, err := s.sequencer.Check(r.Context())
	if err != nil {
		_ = errorResponse(err).Render(w)

		return
	}

	_ = response.SyncResponse(true, queue).Render(w)
}

// swagger:operation POST /1.0/updates/:apply updates updates_post_apply
//
//	Apply mod-pack updates
//
//	Starts installing the selected versions in the background. Versions listed as deferred
//	are added to the skip list first.
//
//	---
//	consumes:
//	  - application/json
//	produces:
//	  - application/json
//	parameters:
//	  - in: body
//	    name: request
//	    required: true
//	    schema:
//	      type: object
//	      example: {"versions":["26.03","26.04"],"source":"cn","deferred":["26.02"]}
//	responses:
//	  "202":
//	    description: Run started
//	  "400":
//	    $ref: "#/responses/BadRequest"
//	  "409":
//	    $ref: "#/responses/Conflict"
func (s *Server) apiUpdatesApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	req := &api.UpdatesApply{}

	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		_ = response.BadRequest(err).Render(w)

		return
	}

	if req.Source == "" {
		req.Source = s.opts.Source
	}

	err = req.Validate()
	if err != nil {
		_ = response.BadRequest(err).Render(w)

		return
	}

	if !s.updates.start("Checking for updates") {
		_ = response.Conflict(sequencer.ErrRunInProgress).Render(w)

		return
	}

	// Resolve the selection against a fresh queue.
	queue, err := s.sequencer.Check(r.Context())
	if err != nil {
		s.updates.release()
		_ = errorResponse(err).Render(w)

		return
	}

	selected := manifest.Select(queue, req.Versions)
	if len(selected) == 0 {
		s.updates.release()
		_ = response.BadRequest(errors.New("none of the selected versions are pending")).Render(w)

		return
	}

	for _, version := range req.Deferred {
		err = s.sequencer.MarkSkipped(r.Context(), version)
		if err != nil {
			s.updates.release()
			_ = response.InternalError(err).Render(w)

			return
		}
	}

	// The run outlives the request.
	ctx := context.WithoutCancel(r.Context())

	go func() {
		result, err := s.sequencer.Run(ctx, selected, req.Source, s.updates)
		if err != nil {
			slog.ErrorContext(ctx, "Update run failed", "err", err)
		}

		s.updates.finish(result, err)
	}()

	_ = response.AcceptedResponse(map[string]any{"versions": manifest.Versions(selected)}, "/1.0/updates/status").Render(w)
}

// swagger:operation GET /1.0/updates/status updates updates_get_status
//
//	Get the update run status
//
//	Returns the progress of the current run, or the outcome of the last one.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: Update run status
func (s *Server) apiUpdatesStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	_ = response.SyncResponse(true, s.updates.snapshot()).Render(w)
}

// swagger:operation GET /1.0/updates/skipped updates updates_get_skipped
//
//	Get the skipped versions
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: Skipped versions

// swagger:operation POST /1.0/updates/skipped updates updates_post_skipped
//
//	Skip a version
//
//	Adds a version to the skip list so it's no longer offered.
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
func (s *Server) apiUpdatesSkipped(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var skipped []string

		s.state.View(func(st *state.State) {
			skipped = slices.Clone(st.SkippedVersions)
		})

		_ = response.SyncResponse(true, skipped).Render(w)
	case http.MethodPost:
		req := &api.UpdatesSkip{}

		err := json.NewDecoder(r.Body).Decode(req)
		if err != nil {
			_ = response.BadRequest(err).Render(w)

			return
		}

		if req.Version == "" {
			_ = response.BadRequest(errors.New("missing version")).Render(w)

			return
		}

		err = s.sequencer.MarkSkipped(r.Context(), req.Version)
		if err != nil {
			_ = response.InternalError(err).Render(w)

			return
		}

		_ = response.EmptySyncResponse.Render(w)
	default:
		// If none of the supported methods, return NotImplemented.
		_ = response.NotImplemented(nil).Render(w)
	}
}
