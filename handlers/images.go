// handlers/images.go - image registration and listing.
//
// Image capture itself happens elsewhere; this endpoint only records where a
// captured image lives so the orchestrator can find it.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dbclone/common"
	"dbclone/database"
)

func SetupImageRoutes(router chi.Router) {
	router.Get("/images", listImages)
	router.Post("/images", registerImage)
}

func listImages(w http.ResponseWriter, r *http.Request) {
	images, err := database.ListImages(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if images == nil {
		images = []common.Image{}
	}
	common.RespondJSON(w, images)
}

func registerImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Location     string    `json:"location"`
		DatabaseName string    `json:"database_name"`
		SizeMB       int64     `json:"size_mb"`
		SourceAt     time.Time `json:"source_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Location == "" || body.DatabaseName == "" {
		common.RespondError(w, http.StatusBadRequest, "location and database_name are required")
		return
	}
	if body.SourceAt.IsZero() {
		body.SourceAt = time.Now().UTC()
	}
	id, err := database.RegisterImage(r.Context(), common.Image{
		Location:     body.Location,
		DatabaseName: body.DatabaseName,
		SizeMB:       body.SizeMB,
		SourceAt:     body.SourceAt,
	})
	if err != nil {
		common.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	common.InfoLog("images: registered %s for %s (id=%d)", body.Location, body.DatabaseName, id)
	common.RespondJSON(w, map[string]any{"id": id})
}
