// Package server exposes the document store over HTTP: uploads, catalog
// and search endpoints, and a WebSocket chat surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/engine"
	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// Config holds server configuration.
type Config struct {
	Host     string
	Port     int
	InboxDir string // uploads are written here before ingestion
	AllowAll bool   // allow all CORS origins (dev mode)

	HistorySearch session.SearchOptions
}

// Server wires the ingestion pipeline and conversation engine behind an
// HTTP API.
type Server struct {
	cfg        Config
	catalog    *document.Store
	vectors    vectordb.Store
	sessions   *session.Store
	engine     *engine.Engine
	pipeline   *ingest.Pipeline
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies.
func New(cfg Config, catalog *document.Store, vectors vectordb.Store, sessions *session.Store, eng *engine.Engine, pipeline *ingest.Pipeline) *Server {
	s := &Server{
		cfg:      cfg,
		catalog:  catalog,
		vectors:  vectors,
		sessions: sessions,
		engine:   eng,
		pipeline: pipeline,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The chat socket manages its own lifetime; everything else gets a
	// request timeout.
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(120 * time.Second))
		api.Post("/upload", s.handleUpload)
		api.Get("/documents", s.handleListDocuments)
		api.Get("/search", s.handleSearch)
		api.Post("/sessions", s.handleCreateSession)
		api.Get("/sessions/{id}/turns", s.handleListTurns)
		api.Get("/history/search", s.handleHistorySearch)
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // websocket connections stay open
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("docsentry server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
