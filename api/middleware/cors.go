package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies a permissive policy; the storefront and admin frontends
// are served from arbitrary origins.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
