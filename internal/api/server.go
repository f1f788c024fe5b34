// Package api exposes the intent engine and task store over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcliao/voicetask/internal/lifecycle"
	"github.com/rcliao/voicetask/internal/parser"
	"github.com/rcliao/voicetask/internal/store"
)

// Server holds the HTTP server state.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	store      store.Store
	parser     parser.Parser
	ops        *lifecycle.Ops
	logger     *slog.Logger
}

// NewServer constructs the HTTP API server.
func NewServer(addr, authToken string, st store.Store, p parser.Parser, ops *lifecycle.Ops, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		store:  st,
		parser: p,
		ops:    ops,
		logger: logger,
	}
	s.registerRoutes(authToken)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(authToken string) {
	s.router.Route("/v1", func(r chi.Router) {
		if authToken != "" {
			r.Use(AuthMiddleware(authToken))
		}

		r.Post("/utterances", s.handleUtterance)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)

			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Post("/action", s.handleTaskAction)
				r.Post("/snooze", s.handleSnooze)
			})
		})
	})
}
