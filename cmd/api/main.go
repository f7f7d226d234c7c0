package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/dkovalev/interview-copilot/internal/adapters/http"
	"github.com/dkovalev/interview-copilot/internal/bootstrap"
	"github.com/dkovalev/interview-copilot/internal/config"
	"github.com/dkovalev/interview-copilot/internal/observability/logging"
	"github.com/dkovalev/interview-copilot/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverMetrics := metrics.NewHTTPServerMetrics("api")

	app, err := bootstrap.New(ctx, cfg, serverMetrics)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(httpadapter.Deps{
		Config:    cfg,
		Ingest:    app.Ingest,
		Judge:     app.Judge,
		Retriever: app.Retriever,
		Index:     app.Index,
		Evaluator: app.Evaluator,
		EvalStore: app.EvalStore,
		Stories:   app.Stories,
		Uploads:   app.Uploads,
		Dataset:   app.Dataset,
		Metrics:   serverMetrics,
	}).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
