package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/spf13/cobra"

	"github.com/yuanjian-org/app-sub000/internal/config"
	"github.com/yuanjian-org/app-sub000/internal/handler"
	"github.com/yuanjian-org/app-sub000/internal/kafka"
	"github.com/yuanjian-org/app-sub000/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API, the periodic sweep and the trigger consumer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, l, err := loadBase()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, l)
	if err != nil {
		l.Error("Failed to initialize", slog.Any("error", err))
		return err
	}
	defer a.Close()

	notifHandler := handler.NewNotificationHandler(a.notifySvc, a.scheduledSvc, defaultTemplates(cfg.SenderConfig), l)
	healthHandler := handler.NewHealthHandler(a.healthSvc)
	server := &http.Server{
		Addr:              ":" + cfg.AppCfg.Port,
		Handler:           router.NewRouter(notifHandler, healthHandler, cfg.AuthConfig.Secret, l),
		ReadHeaderTimeout: 10 * time.Second,
	}

	workers, err := buildWorkers(cfg, a, kafka.NewConsumerGroup)
	if err != nil {
		l.Error("Failed to initialize background workers", slog.Any("error", err))
		return err
	}

	var wg sync.WaitGroup
	startWorkers(ctx, &wg, workers, l)

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("HTTP server shutdown failed", slog.Any("error", err))
	}

	wg.Wait()
	l.Info("Service shut down gracefully")
	return nil
}

// worker is a background loop that runs until its context is cancelled.
type worker struct {
	name string
	run  func(ctx context.Context) error
}

// buildWorkers prepares every enabled background loop without starting any,
// so a setup failure leaves nothing running against the app's resources.
func buildWorkers(
	cfg *config.Config,
	a *app,
	newGroup func(brokers []string, group string) (sarama.ConsumerGroup, error),
) ([]worker, error) {
	var workers []worker
	if cfg.SweepConfig.Enabled {
		workers = append(workers, worker{name: "sweep", run: a.scheduledSvc.Start})
	}
	if cfg.ConsumerConfig.Enabled {
		consumerGroup, err := newGroup(cfg.ConsumerConfig.KafkaBrokers, cfg.ConsumerConfig.KafkaConsumerGroup)
		if err != nil {
			return nil, err
		}
		consumer := kafka.NewKafkaConsumer(cfg.ConsumerConfig.KafkaTopic, consumerGroup, a.scheduledSvc, a.tracer, a.log)
		workers = append(workers, worker{name: "kafka-consumer", run: consumer.Start})
	}
	return workers, nil
}

func startWorkers(ctx context.Context, wg *sync.WaitGroup, workers []worker, l *slog.Logger) {
	for _, w := range workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Error("Background worker stopped with error", slog.String("worker", w.name), slog.Any("error", err))
			}
		}()
	}
}
