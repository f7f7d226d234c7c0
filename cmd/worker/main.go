package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dkovalev/interview-copilot/internal/bootstrap"
	"github.com/dkovalev/interview-copilot/internal/config"
	"github.com/dkovalev/interview-copilot/internal/observability/logging"
	"github.com/dkovalev/interview-copilot/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	process := func(kind string, fn func(context.Context, string) error) func(context.Context, string) error {
		return func(handlerCtx context.Context, id string) error {
			workerMetrics.StartTask()
			start := time.Now()

			processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()
			err := fn(processCtx, id)

			workerMetrics.FinishTask("worker", kind, time.Since(start), err)
			if err != nil {
				slog.Error("processing failed", "kind", kind, "id", id, "error", err)
				return err
			}
			if kind == "story" {
				workerMetrics.AddIndexedStories("worker", 1)
			}
			return nil
		}
	}

	slog.Info("worker subscribed",
		"upload_subject", cfg.NATSUploadSubject,
		"story_subject", cfg.NATSStorySubject,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.Queue.SubscribeUploadIngested(ctx, process("upload", app.Process.ProcessUpload)); err != nil {
			slog.Error("upload subscription error", "error", err)
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.Queue.SubscribeStoryQueued(ctx, process("story", app.Process.ProcessStory)); err != nil {
			slog.Error("story subscription error", "error", err)
			stop()
		}
	}()
	wg.Wait()
}
