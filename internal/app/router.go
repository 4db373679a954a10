package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexdesk/lexdesk/internal/deadline"
	"github.com/lexdesk/lexdesk/internal/holiday"
	"github.com/lexdesk/lexdesk/internal/platform/httpx"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	HolidayHandler  *holiday.Handler
	DeadlineHandler *deadline.Handler
}

// NewRouter assembles the lexdesk HTTP router.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.RespondError(w, httpx.ErrNotFound)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/holidays", p.HolidayHandler.MountRoutes)
		r.Route("/deadlines", p.DeadlineHandler.MountRoutes)
	})

	return r
}
