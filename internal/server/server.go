// Package server exposes the playground over HTTP: code execution and
// validation, question lookup, AI review endpoints, score submission, and a
// WebSocket run channel.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kshou/lualab/internal/advisor"
	"github.com/kshou/lualab/internal/config"
	"github.com/kshou/lualab/internal/questions"
	"github.com/kshou/lualab/internal/sandbox"
	"github.com/kshou/lualab/internal/storage"
)

// Server is the HTTP server for the playground API.
type Server struct {
	cfg       *config.Config
	validator *sandbox.Validator
	runner    *sandbox.Runner
	repo      *questions.Repository
	advisor   *advisor.Advisor
	store     storage.Store
	sheet     *storage.WebAppClient
	router    chi.Router
	http      *http.Server
	started   time.Time
}

// New creates a new Server. advisor, repo, store and sheet may be nil when
// the corresponding feature is unconfigured; their endpoints then answer 503.
func New(cfg *config.Config, runner *sandbox.Runner, repo *questions.Repository, adv *advisor.Advisor, store storage.Store, sheet *storage.WebAppClient) *Server {
	s := &Server{
		cfg:       cfg,
		validator: sandbox.NewValidator(sandbox.DefaultPolicy()),
		runner:    runner,
		repo:      repo,
		advisor:   adv,
		store:     store,
		sheet:     sheet,
		router:    chi.NewRouter(),
		started:   time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", s.handleHealth)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Sandbox
		r.Post("/execute", s.handleExecute)
		r.Post("/validate", s.handleValidate)

		// Questions
		r.Get("/questions", s.handleListQuestions)
		r.Get("/questions/{id}", s.handleGetQuestion)
		r.Post("/questions/refresh", s.handleRefreshQuestions)

		// AI review
		r.Post("/ai/analyze", s.handleAnalyze)
		r.Post("/ai/check", s.handleCheck)
		r.Post("/ai/suggest", s.handleSuggest)
		r.Post("/ai/chat", s.handleChat)

		// Scores
		r.Post("/scores/submit", s.handleSubmitScore)
		r.Get("/scores/{student}", s.handleStudentScores)

		// WebSocket (no JSON content-type)
		r.Get("/playground/ws", s.handlePlaygroundWS)
	})

	// Playground page
	r.Handle("/*", staticHandler(s.cfg.Server.StaticDir))
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("lualab server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
