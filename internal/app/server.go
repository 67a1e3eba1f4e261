package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/contexta-sources/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/contexta-sources/internal/api/middlewares"
	"github.com/markdave123-py/contexta-sources/internal/config"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/metrics"
	"github.com/markdave123-py/contexta-sources/internal/services"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, scans *services.ScanService, m *metrics.Metrics) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, scans, m),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewRouter(cfg *config.Config, scans *services.ScanService, m *metrics.Metrics) http.Handler {
	scanHandler := handlers.NewScanHandler(scans)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Group(func(protected chi.Router) {
			if cfg.JWTSecret != "" {
				protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			} else {
				logger.GetDefault().Warn("JWT_SECRET is not set, scan API is unauthenticated")
			}
			protected.Post("/scans/documents", scanHandler.StartDocuments)
			protected.Post("/scans/sources", scanHandler.StartSources)
			protected.Get("/scans/{id}/page", scanHandler.NextPage)
			protected.Get("/scans/{id}/inventory", scanHandler.Inventory)
			protected.Delete("/scans/{id}", scanHandler.End)
			protected.Post("/documents/single", scanHandler.SingleDocument)
		})
	})

	return r
}

// requestLogger puts a request-scoped logger in the context and logs each response.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context()).With("request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logger.ContextWithLogger(r.Context(), log)))

		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.FromContext(ctx).Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
