package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/shohag/linegemini/internal/bridge"
	"github.com/shohag/linegemini/internal/config"
	"github.com/shohag/linegemini/internal/storage"
)

// Webhooker is the request handler the callback route delegates to.
type Webhooker interface {
	Handle(ctx context.Context, req bridge.Request) (bridge.Response, error)
}

type Server struct {
	cfg     config.ServerConfig
	webhook Webhooker
	store   storage.Storage
	router  *chi.Mux
	log     zerolog.Logger
	http    *http.Server
}

func NewServer(cfg config.ServerConfig, webhook Webhooker, store storage.Storage, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		webhook: webhook,
		store:   store,
		log:     log.With().Str("component", "api").Logger(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))

	callbackHandler := NewCallbackHandler(s.webhook, s.log)
	statsHandler := NewStatsHandler(s.store)

	r.Get("/health", statsHandler.Health)

	callbackPath := s.cfg.CallbackPath
	if callbackPath == "" {
		callbackPath = "/callback"
	}
	r.Post(callbackPath, callbackHandler.Handle)

	// Stats are only exposed when an admin token is configured.
	if s.cfg.AdminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.cfg.AdminToken))
			r.Get("/stats", statsHandler.Stats)
			r.Get("/invocations", statsHandler.Invocations)
		})
	}

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
