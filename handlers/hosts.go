// handlers/hosts.go - host and inventory endpoints
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dbclone/common"
	"dbclone/database"
	"dbclone/services"
)

func SetupHostRoutes(router chi.Router) {
	router.Get("/hosts", listHosts)
	router.Get("/instances", listInstances)
	router.Post("/inventory/reload", reloadInventory)
}

func listHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := database.ListHosts(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hosts == nil {
		hosts = []common.Host{}
	}
	common.RespondJSON(w, hosts)
}

// listInstances exposes the inventory without its credential fields.
func listInstances(w http.ResponseWriter, r *http.Request) {
	type view struct {
		Name     string `json:"name"`
		Instance string `json:"instance"`
		Host     string `json:"host"`
		Local    bool   `json:"local"`
	}
	var out []view
	for _, t := range services.GetTargets() {
		out = append(out, view{Name: t.Name, Instance: t.Instance, Host: t.Host, Local: t.Local})
	}
	if out == nil {
		out = []view{}
	}
	common.RespondJSON(w, out)
}

func reloadInventory(w http.ResponseWriter, r *http.Request) {
	if err := services.ReloadInventory(); err != nil {
		common.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondJSON(w, map[string]string{"status": "reloaded"})
}
