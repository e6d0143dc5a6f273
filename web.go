package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"dbclone/common"
	"dbclone/handlers"
	"dbclone/middleware"
)

type Health struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

func makeRouter() http.Handler {
	r := chi.NewRouter()

	// CORS - locked down for credentials
	uiOrigin := strings.TrimSpace(common.Env("DBCLONE_UI_ORIGIN", ""))
	allowedOrigins := []string{}
	if uiOrigin != "" {
		allowedOrigins = append(allowedOrigins, uiOrigin)
	}
	// dev helpers
	allowedOrigins = append(allowedOrigins,
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins, // no "*"
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, Health{Status: "ok", StartedAt: startedAt})
	})

	r.Get("/auth/login", authLogin)
	r.Get("/auth/callback", authCallback)
	r.Get("/auth/logout", authLogout)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequireAuth)
		api.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			common.RespondJSON(w, middleware.CurrentUser(r.Context()))
		})
		handlers.SetupAllRoutes(api)
	})

	return r
}
