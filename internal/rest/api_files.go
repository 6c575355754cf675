package rest

import (
	"fmt"
	"net/http"

	"github.com/tcymc/tcy-updater/internal/gamedir"
	"github.com/tcymc/tcy-updater/internal/rest/response"
)

// swagger:operation GET /1.0/files/{type} files files_get
//
//	List installation files
//
//	Returns the recursive content of the mods or config folder of the mod-pack.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: File tree
//	  "400":
//	    $ref: "#/responses/BadRequest"
func (s *Server) apiFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	folderType := r.PathValue("type")
	if folderType != gamedir.FolderMods && folderType != gamedir.FolderConfig {
		_ = response.BadRequest(fmt.Errorf("invalid folder type %q", folderType)).Render(w)

		return
	}

	nodes, err := gamedir.ListFiles(s.opts.GameRoot, s.opts.VersionName, folderType)
	if err != nil {
		_ = errorResponse(err).Render(w)

		return
	}

	_ = response.SyncResponse(true, nodes).Render(w)
}

// swagger:operation DELETE /1.0/files/mods/{path} files files_delete_mod
//
//	Delete a mod
//
//	Removes a single file from the mods folder.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    $ref: "#/responses/EmptySyncResponse"
//	  "400":
//	    $ref: "#/responses/BadRequest"
//	  "404":
//	    $ref: "#/responses/NotFound"
func (s *Server) apiFilesMod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	err := gamedir.DeleteMod(s.opts.GameRoot, s.opts.VersionName, r.PathValue("path"))
	if err != nil {
		_ = errorResponse(err).Render(w)

		return
	}

	_ = response.EmptySyncResponse.Render(w)
}

// swagger:operation GET /1.0/archives files archives_get
//
//	List local update archives
//
//	Returns the "update*.zip" archives present in the game root.
//
//	---
//	produces:
//	  - application/json
//	responses:
//	  "200":
//	    description: Archive names
func (s *Server) apiArchives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		_ = response.NotImplemented(nil).Render(w)

		return
	}

	names, err := gamedir.ScanArchives(s.opts.GameRoot)
	if err != nil {
		_ = response.InternalError(err).Render(w)

		return
	}

	_ = response.SyncResponse(true, names).Render(w)
}
