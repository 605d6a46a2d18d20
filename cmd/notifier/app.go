package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/yuanjian-org/app-sub000/internal/config"
	"github.com/yuanjian-org/app-sub000/internal/lock"
	"github.com/yuanjian-org/app-sub000/internal/logger"
	"github.com/yuanjian-org/app-sub000/internal/metrics"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/internal/sender"
	"github.com/yuanjian-org/app-sub000/internal/service"
	"github.com/yuanjian-org/app-sub000/internal/store"
	"github.com/yuanjian-org/app-sub000/pkg/observability"
	"github.com/yuanjian-org/app-sub000/pkg/tracing"
)

// app holds the dependencies shared by the serve and sweep commands.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	tracer *tracing.Tracer

	pool    *pgxpool.Pool
	queueDB *sqlx.DB
	redis   *redis.Client

	notifySvc    service.NotifyService
	scheduledSvc service.ScheduledService
	healthSvc    service.HealthService

	cleanups []func()
}

// loadBase reads configuration and sets up logging. Every command starts here.
func loadBase() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	l := logger.NewLogger(cfg.AppCfg.LogLevel)
	slog.SetDefault(l)
	return cfg, l, nil
}

func newApp(ctx context.Context, cfg *config.Config, l *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: l}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	metrics.Init()

	a.tracer = tracing.NewTracer(tracing.GetTracer(cfg.TracingConfig.ServiceName))
	if cfg.TracingConfig.Enabled {
		tp, err := observability.SetupTracing(ctx, observability.TraceOptions{
			ServiceName:    cfg.TracingConfig.ServiceName,
			ServiceVersion: cfg.TracingConfig.ServiceVersion,
			Environment:    cfg.AppCfg.Environment,
			Endpoint:       cfg.TracingConfig.CollectorEndpoint,
			SampleRatio:    cfg.TracingConfig.SampleRatio,
		}, a.log)
		if err != nil {
			return err
		}
		a.cleanups = append(a.cleanups, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		})
		a.tracer = tracing.NewTracer(tp.Tracer(cfg.TracingConfig.ServiceName))
	}

	var err error
	a.pool, err = store.NewPostgresPool(ctx, cfg.DBConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to application database: %w", err)
	}
	a.cleanups = append(a.cleanups, a.pool.Close)

	a.queueDB, err = store.ConnectPostgres(cfg.QueueDBConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to queue database: %w", err)
	}
	a.cleanups = append(a.cleanups, func() { _ = a.queueDB.Close() })

	var locker lock.Locker = lock.NoopLocker{}
	if cfg.RedisConfig.Addr != "" {
		a.redis, err = lock.NewRedisClient(ctx, cfg.RedisConfig.Addr, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
		if err != nil {
			return err
		}
		a.cleanups = append(a.cleanups, func() { _ = a.redis.Close() })
		locker = lock.NewRedisLocker(a.redis, "notifier:", a.log)
	} else {
		a.log.Info("REDIS_ADDR not set, sweep runs without a distributed lock")
	}

	sms, email := newSenders(cfg.SenderConfig, a.log)
	templates := defaultTemplates(cfg.SenderConfig)

	appStore := store.NewAppStorage(a.pool)
	queue := store.NewScheduledStorage(a.queueDB)

	a.notifySvc = service.NewNotifyService(appStore, appStore, sms, email, service.NotifyConfig{
		SMSDisabled:      cfg.SenderConfig.SMSDisabled,
		DefaultTemplates: templates,
	}, a.tracer, a.log)

	a.scheduledSvc = service.NewScheduledService(queue, appStore, appStore, appStore, a.notifySvc, locker, service.ScheduledConfig{
		Interval:      cfg.SweepConfig.Interval,
		Delay:         cfg.SweepConfig.Delay,
		Lease:         cfg.SweepConfig.Lease,
		BatchSize:     cfg.SweepConfig.BatchSize,
		NotifyCoaches: cfg.SweepConfig.NotifyCoaches,
		SiteURL:       cfg.AppCfg.SiteURL,
		Templates:     templates,
	}, a.tracer, a.log)

	deps := map[string]service.Pinger{
		"app_db":   appStore,
		"queue_db": queue,
	}
	if a.redis != nil {
		deps["redis"] = pingerFunc(func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	}
	a.healthSvc = service.NewHealthService(deps)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newSenders(cfg config.SenderConfig, l *slog.Logger) (sender.SMSSender, sender.EmailSender) {
	if cfg.Mode == config.SenderModeNoop {
		l.Info("SENDER_MODE=noop, notifications are logged and not delivered")
		return sender.NewNoopSMSSender(l), sender.NewNoopEmailSender(l)
	}

	client := sender.NewHTTPClient(cfg.RequestTimeout)
	sms := sender.NewRoutingSMSSender(
		sender.NewDomesticSMS(client, cfg.DomesticSMSURL, cfg.DomesticSMSAPIKey, cfg.DomesticSMSSignName),
		sender.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioMessagingServiceSID),
		cfg.DomesticPrefix,
		cfg.IgnoreInternationalErrs,
		l,
	)
	email := sender.NewHTTPEmailSender(client, cfg.EmailURL, cfg.EmailAPIKey, cfg.EmailFrom)
	return sms, email
}

func defaultTemplates(cfg config.SenderConfig) model.TemplateSet {
	return model.TemplateSet{
		Email:            cfg.DefaultEmailTemplate,
		DomesticSMS:      cfg.DefaultDomesticSMSTemplate,
		InternationalSMS: cfg.DefaultInternationalSMSTemplate,
	}
}
