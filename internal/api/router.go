package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted. sseHandler,
// if non-nil, is mounted at GET /events behind the same auth as the
// record routes.
func NewRouter(svc RecordService, sessions *Sessions, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, sessions)

	r := chi.NewRouter()

	r.Post("/auth/password", h.Authenticate)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(sessions))

		r.Get("/records", h.ListRecords)
		r.Get("/records/{id}", h.GetRecord)
		r.Patch("/records/{id}/frontmatter", h.UpdateFrontmatter)
		r.Put("/records/{id}/content", h.UpdateContent)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
