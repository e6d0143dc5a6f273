// handlers/clones.go - clone provisioning and listing endpoints
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dbclone/common"
	"dbclone/database"
	"dbclone/services"
)

func SetupCloneRoutes(router chi.Router) {
	router.Post("/clones", createClones)
	router.Get("/clones", listClones)
	router.Patch("/clones/{id}/enabled", setCloneEnabled)
}

// createClones runs the provisioning batch. The response always carries one
// entry per pairing; per-pairing failures are reported inline, not as an
// HTTP error.
func createClones(w http.ResponseWriter, r *http.Request) {
	var req services.CloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	results, err := services.Orch.CreateClones(r.Context(), req)
	if err != nil {
		// only configuration faults reach here
		common.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	common.RespondJSON(w, map[string]any{
		"request_id": req.RequestID,
		"pairings":   results,
	})
}

func listClones(w http.ResponseWriter, r *http.Request) {
	clones, err := database.ListClones(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if clones == nil {
		clones = []common.Clone{}
	}
	common.RespondJSON(w, clones)
}

func setCloneEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "invalid clone id")
		return
	}
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := database.SetCloneEnabled(r.Context(), id, body.Enabled); err != nil {
		if err == database.ErrNotFound {
			common.RespondError(w, http.StatusNotFound, "clone not found")
			return
		}
		common.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondJSON(w, map[string]any{"id": id, "enabled": body.Enabled})
}
