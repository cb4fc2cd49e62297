package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /stream.
func NewRouter(svc Service, sseHandler http.Handler, allowedOrigins []string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(CORS(allowedOrigins))

	r.Get("/events", h.ListCommitments)
	r.Post("/events", h.CreateCommitment)
	// chi matches the static segment ahead of {id}.
	r.Delete("/events/trash", h.ClearTrash)
	r.Get("/events/{id}", h.GetCommitment)
	r.Put("/events/{id}", h.UpdateCommitment)
	r.Delete("/events/{id}", h.DeleteCommitment)

	if sseHandler != nil {
		r.Get("/stream", sseHandler.ServeHTTP)
	}

	return r
}
