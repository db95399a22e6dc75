package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"paperlens/features/analysis"
	"paperlens/internal/config"
	"paperlens/internal/middleware"
	"paperlens/internal/pipeline"
)

type App struct {
	Handler http.Handler
	port    int
}

// New wires the analysis pipeline behind the HTTP surface. The pipeline is
// injected so tests can run the whole router against stub providers.
func New(cfg *config.Config, runner analysis.Runner) *App {
	analysisHandler := analysis.NewHandler(runner)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("POST /analyses", middleware.CorrelationID(enableCORS(analysisHandler.Create)))
	// Preflight requests need their own route: the method-scoped mux would
	// answer 405 before the CORS closure ever ran.
	mux.Handle("OPTIONS /analyses", middleware.CorrelationID(enableCORS(analysisHandler.Create)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{Handler: mux, port: cfg.ServerPort}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ensure the concrete pipeline satisfies the handler contract
var _ analysis.Runner = (*pipeline.Pipeline)(nil)
