package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "github.com/de-tools/compliance-atlas/pkg/handlers/analysis"
	"github.com/de-tools/compliance-atlas/pkg/observability"
	atlasmiddleware "github.com/de-tools/compliance-atlas/pkg/server/middleware"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

// Dependencies are the services the API serves. Registry and Runner are
// required; the rest degrade gracefully when absent.
type Dependencies struct {
	Runner   handlers.Runner
	Scans    handlers.ScanCoordinator
	Results  handlers.ResultStore
	Registry registry.Registry
	Metrics  *observability.Metrics
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	deps := config.Dependencies
	handler := handlers.NewHandler(deps.Runner, deps.Scans, deps.Results, deps.Registry)

	router := chi.NewRouter()

	router.Use(atlasmiddleware.Logger(&logger))
	if deps.Metrics != nil {
		router.Use(atlasmiddleware.Metrics(deps.Metrics))
	}
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyses", handler.RunAnalysis)
		r.Get("/analyses", handler.ListAnalyses)
		r.Get("/analyses/{analysisID}", handler.GetAnalysis)
		r.Post("/scans", handler.StartScan)
		r.Get("/scans/{scanID}", handler.GetScanStatus)
		r.Delete("/scans/{scanID}", handler.CancelScan)
		r.Get("/frameworks", handler.ListFrameworks)
		r.Get("/frameworks/{frameworkID}", handler.GetFramework)
	})
	router.Handle("/metrics", promhttp.Handler())

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// Router exposes the mux for in-process tests.
func (w *WebAPI) Router() http.Handler {
	return w.router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
