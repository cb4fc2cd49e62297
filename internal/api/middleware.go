// Package api implements the commitment REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins is the local web client.
var DefaultAllowedOrigins = []string{"http://localhost:5173"}

// CORS returns middleware that lets the listed origins call the API from a
// browser. An empty list falls back to DefaultAllowedOrigins.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
