// Package server exposes the corpus over HTTP: hybrid search, feature
// extraction, full analysis and a WebSocket chat endpoint.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/db"
	"github.com/vxlab/malsift/internal/report"
	"github.com/vxlab/malsift/internal/retrieval"
	"github.com/vxlab/malsift/internal/vectordb"
)

// Config holds HTTP server settings.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string

	CodeCollection string
	TextCollection string
	SearchTopK     int
	ChatTopK       int
}

// Server wires the retrieval and analysis components behind a chi
// router.
type Server struct {
	cfg        Config
	searcher   *retrieval.Searcher
	extractor  *analysis.Extractor
	analyzer   *report.Analyzer
	store      vectordb.Store
	ledger     *db.DB
	newChat    func() *report.Chat
	router     chi.Router
	httpServer *http.Server
}

// New builds a Server. newChat creates a fresh chat session per
// WebSocket connection; pass nil to disable the chat endpoint.
func New(cfg Config, searcher *retrieval.Searcher, extractor *analysis.Extractor, analyzer *report.Analyzer, store vectordb.Store, ledger *db.DB, newChat func() *report.Chat) *Server {
	s := &Server{
		cfg:       cfg,
		searcher:  searcher,
		extractor: extractor,
		analyzer:  analyzer,
		store:     store,
		ledger:    ledger,
		newChat:   newChat,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		corsOpts.AllowedOrigins = s.cfg.AllowedOrigins
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/features", s.handleFeatures)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/stats", s.handleStats)
		if s.newChat != nil {
			r.Get("/chat", s.handleChat)
		}
	})

	return r
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start listens on the configured address and blocks until the server
// stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("malsift server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
