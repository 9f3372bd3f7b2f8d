package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/insightbase/insightbase/internal/bootstrap"
	"github.com/insightbase/insightbase/internal/config"
	"github.com/insightbase/insightbase/internal/observability/metrics"
)

const (
	serviceName    = "insightbase-worker"
	queueGroup     = "document-workers"
	processTimeout = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		app.Logger.Info("worker metrics listening", slog.String("port", cfg.WorkerMetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("worker metrics server failed", slog.String("error", err.Error()))
		}
	}()

	// Embedding providers rate-limit aggressively, so document processing
	// is throttled below the provider ceiling.
	burst := cfg.WorkerConcurrency
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.WorkerRatePerSecond), burst)

	handler := func(handlerCtx context.Context, payload []byte) error {
		documentID := string(payload)

		if !limiter.Allow() {
			workerMetrics.RecordRateLimited(serviceName)
			if err := limiter.Wait(handlerCtx); err != nil {
				return err
			}
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()
		err := app.Processor.Process(processCtx, documentID)
		workerMetrics.FinishDocument(serviceName, time.Since(start), err)

		if err != nil {
			app.Logger.Error("document processing failed",
				slog.String("document_id", documentID),
				slog.String("error", err.Error()))
			return err
		}
		app.Logger.Info("document processed", slog.String("document_id", documentID))
		return nil
	}

	sub, err := app.Queue.Subscribe(ctx, cfg.NATSSubject, queueGroup, handler)
	if err != nil {
		app.Logger.Error("worker subscribe failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	app.Logger.Info("worker subscribed", slog.String("subject", cfg.NATSSubject))

	<-ctx.Done()

	if err := sub.Close(); err != nil {
		app.Logger.Error("worker unsubscribe failed", slog.String("error", err.Error()))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
