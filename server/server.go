// Package server exposes the discovery strategies over HTTP for the
// browser front-end.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"

	"anidex/config"
	"anidex/discovery"
	"anidex/models"
)

// AnimeFinder is the query surface the handlers sit on. Strategies
// never fail; the handlers only ever see a (possibly empty) list.
type AnimeFinder interface {
	TopAnime(ctx context.Context, limit int) []models.DisplayAnime
	AnimeByGenre(ctx context.Context, genre string, limit int) []models.DisplayAnime
	SearchAnime(ctx context.Context, query string, limit int) []models.DisplayAnime
	Home(ctx context.Context, limit int) discovery.HomeSections
}

// Server wires the discovery service into an HTTP API.
type Server struct {
	finder AnimeFinder
	logger *slog.Logger
}

// New builds a server around the given finder.
func New(finder AnimeFinder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{finder: finder, logger: logger}
}

// Handler assembles the router with CORS, request logging, and inbound
// per-IP rate limiting.
func (s *Server) Handler(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))
	r.Use(httprate.LimitByIP(cfg.ClientRateLimit, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/anime", func(r chi.Router) {
		r.Get("/top", s.handleTop)
		r.Get("/home", s.handleHome)
		r.Get("/genres", s.handleGenres)
		r.Get("/genre/{genre}", s.handleGenre)
		r.Get("/search", s.handleSearch)
	})

	return r
}

type listResponse struct {
	Data []models.DisplayAnime `json:"data"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, discovery.DefaultListLimit)
	writeJSON(w, http.StatusOK, listResponse{Data: s.finder.TopAnime(r.Context(), limit)})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, discovery.DefaultListLimit)
	writeJSON(w, http.StatusOK, s.finder.Home(r.Context(), limit))
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"data": discovery.GenreNames()})
}

func (s *Server) handleGenre(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "genre")
	limit := queryLimit(r, discovery.DefaultListLimit)
	writeJSON(w, http.StatusOK, listResponse{Data: s.finder.AnimeByGenre(r.Context(), genre, limit)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	limit := queryLimit(r, discovery.DefaultSearchLimit)
	writeJSON(w, http.StatusOK, listResponse{Data: s.finder.SearchAnime(r.Context(), query, limit)})
}

// queryLimit parses the limit parameter, falling back on bad input.
func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}
