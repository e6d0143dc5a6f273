package handlers

import (
	"github.com/go-chi/chi/v5"
)

// SetupAllRoutes registers every API route group. Called from web.go.
func SetupAllRoutes(router chi.Router) {
	SetupCloneRoutes(router)
	SetupImageRoutes(router)
	SetupHostRoutes(router)
	SetupEventRoutes(router)
}
