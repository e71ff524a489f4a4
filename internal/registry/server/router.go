// Package server wires the registry handlers into an HTTP router.
package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercury-net/mercury/internal/auth"
	"github.com/mercury-net/mercury/internal/middleware"
	"github.com/mercury-net/mercury/internal/registry/handlers"
)

// NewRouter constructs a ServeMux with all registry routes registered.
// Mutating routes require a bearer token issued by /auth/token.
func NewRouter(h *handlers.Handler, validator auth.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	requireAgent := auth.RequireAgent(validator)

	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Token(w, r)
	})

	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Register(w, r)
	})

	mux.HandleFunc("/v1/detect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Detect(w, r)
	})

	mux.HandleFunc("/v1/antibodies", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			requireAgent(http.HandlerFunc(h.Submit)).ServeHTTP(w, r)
		} else if r.Method == http.MethodGet {
			h.List(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/v1/antibodies/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v1/antibodies/")

		switch {
		case path == "match" && r.Method == http.MethodPost:
			h.Match(w, r)
		case path == "export" && r.Method == http.MethodGet:
			h.Export(w, r)
		case path == "import" && r.Method == http.MethodPost:
			requireAgent(http.HandlerFunc(h.Import)).ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			h.Get(w, r)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	})

	mux.HandleFunc("/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Stats(w, r)
	})

	mux.HandleFunc("/v1/patterns", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			requireAgent(http.HandlerFunc(h.CreatePattern)).ServeHTTP(w, r)
		} else if r.Method == http.MethodGet {
			h.ListPatterns(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/v1/patterns/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/v1/patterns/")
		switch {
		case strings.HasSuffix(path, "/disable"):
			id := strings.TrimSuffix(path, "/disable")
			requireAgent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h.DisablePattern(w, r, id)
			})).ServeHTTP(w, r)
		case strings.HasSuffix(path, "/enable"):
			id := strings.TrimSuffix(path, "/enable")
			requireAgent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h.EnablePattern(w, r, id)
			})).ServeHTTP(w, r)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	})

	cors := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*.mercury-net.io", "http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})

	return middleware.RequestID(cors(mux))
}
