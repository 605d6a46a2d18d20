package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/lock"
	"github.com/yuanjian-org/app-sub000/internal/metrics"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/internal/store"
	"github.com/yuanjian-org/app-sub000/pkg/tracing"
)

const sweepLockKey = "scheduled-notifications:sweep"

// ScheduledService debounces bursty events into one notification per
// subject and sends them from a periodic sweep
type ScheduledService interface {
	// Schedule enqueues a notification about subjectID unless one is
	// already pending for the same type and subject.
	Schedule(ctx context.Context, t model.ScheduledType, subjectID string) error
	// Sweep sends every pending notification older than the configured
	// delay. Rows are handled one at a time; a failed row stays queued for
	// the next sweep and its error is included in the returned error.
	Sweep(ctx context.Context) error
	// Start runs Sweep on every tick until ctx is cancelled
	Start(ctx context.Context) error
}

// ScheduledConfig holds the queue and sweep settings
type ScheduledConfig struct {
	Interval      time.Duration
	Delay         time.Duration
	Lease         time.Duration
	BatchSize     int
	NotifyCoaches bool
	SiteURL       string
	Templates     model.TemplateSet
	// Now defaults to time.Now.
	Now func() time.Time
}

// contentBuilder computes the digest for one subject from changes made at
// or after since and dispatches it.
type contentBuilder func(ctx context.Context, subjectID string, since time.Time) error

type scheduledService struct {
	queue    store.ScheduledStorage
	content  store.ContentStorage
	users    store.UserStorage
	tx       store.TxRunner
	notifier NotifyService
	locker   lock.Locker
	cfg      ScheduledConfig
	builders map[model.ScheduledType]contentBuilder
	tracer   *tracing.Tracer
	l        *slog.Logger
}

// NewScheduledService creates the scheduled-notification service. It panics
// if a scheduled type has no content builder.
func NewScheduledService(
	queue store.ScheduledStorage,
	content store.ContentStorage,
	users store.UserStorage,
	tx store.TxRunner,
	notifier NotifyService,
	locker lock.Locker,
	cfg ScheduledConfig,
	tracer *tracing.Tracer,
	logger *slog.Logger,
) ScheduledService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	s := &scheduledService{
		queue:    queue,
		content:  content,
		users:    users,
		tx:       tx,
		notifier: notifier,
		locker:   locker,
		cfg:      cfg,
		tracer:   tracer,
		l:        logger.With("layer", "service", "component", "scheduled"),
	}
	s.builders = map[model.ScheduledType]contentBuilder{
		model.ScheduledKudos: s.sendKudosDigest,
		model.ScheduledChat:  s.sendChatDigest,
		model.ScheduledTask:  s.sendTaskDigest,
	}
	for _, t := range model.ScheduledTypes() {
		if _, ok := s.builders[t]; !ok {
			panic(fmt.Sprintf("no content builder for scheduled type %q", t))
		}
	}
	return s
}

func (s *scheduledService) Schedule(ctx context.Context, t model.ScheduledType, subjectID string) error {
	if _, ok := s.builders[t]; !ok {
		return appErr.NewInvalidInput("unknown scheduled type %q", t)
	}
	if subjectID == "" {
		return appErr.NewInvalidInput("subject id cannot be empty")
	}

	n := &model.ScheduledNotification{
		ID:        uuid.NewString(),
		Type:      string(t),
		SubjectID: subjectID,
		CreatedAt: s.cfg.Now(),
	}
	inserted, err := s.queue.Insert(ctx, n)
	if err != nil {
		metrics.Scheduled.WithLabelValues(string(t), metrics.StatusFailed).Inc()
		s.l.ErrorContext(ctx, "Failed to schedule notification", slog.String("type", string(t)), slog.String("subject_id", subjectID), slog.Any("error", err))
		return fmt.Errorf("failed to schedule %s notification: %w", t, err)
	}
	if !inserted {
		metrics.Scheduled.WithLabelValues(string(t), metrics.StatusDuplicate).Inc()
		s.l.InfoContext(ctx, "Notification already scheduled", slog.String("type", string(t)), slog.String("subject_id", subjectID))
		return nil
	}

	metrics.Scheduled.WithLabelValues(string(t), metrics.StatusScheduled).Inc()
	s.l.DebugContext(ctx, "Notification scheduled", slog.String("id", n.ID), slog.String("type", string(t)), slog.String("subject_id", subjectID))
	return nil
}

func (s *scheduledService) Start(ctx context.Context) error {
	s.l.InfoContext(ctx, "Starting scheduled notification sweep",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("delay", s.cfg.Delay),
	)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.l.InfoContext(ctx, "Scheduled notification sweep shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.l.ErrorContext(ctx, "Scheduled notification sweep finished with errors", slog.Any("error", err))
			}
		}
	}
}

func (s *scheduledService) Sweep(ctx context.Context) error {
	ctx, span := s.tracer.StartInternalSpan(ctx, "scheduled.sweep")
	defer span.End()

	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	unlock, acquired, err := s.locker.TryLock(ctx, sweepLockKey, s.cfg.Lease)
	if err != nil {
		s.tracer.RecordError(span, err)
		return fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !acquired {
		s.l.InfoContext(ctx, "Sweep already running on another instance, skipping")
		return nil
	}
	defer unlock()

	// Rows that fail keep their lease until the sweep ends so later batches
	// reach the rows behind them.
	var (
		failed  []model.ScheduledNotification
		errs    []error
		claimed int
	)
	defer func() { s.releaseAll(context.WithoutCancel(ctx), failed) }()

	dueBefore := s.cfg.Now().Add(-s.cfg.Delay)
	for {
		// The lock expires after one lease. Stop claiming once half of it
		// is spent and leave the rest to the next sweep.
		if claimed > 0 && time.Since(start) > s.cfg.Lease/2 {
			s.l.WarnContext(ctx, "Sweep lease half spent, leaving remaining rows for next sweep", slog.Int("processed", claimed))
			break
		}

		now := s.cfg.Now()
		rows, err := s.queue.ClaimDue(ctx, dueBefore, now, now.Add(s.cfg.Lease), s.cfg.BatchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to claim due notifications: %w", err))
			break
		}
		if len(rows) == 0 {
			break
		}
		claimed += len(rows)
		s.l.InfoContext(ctx, "Processing scheduled notifications", slog.Int("count", len(rows)))

		for i, row := range rows {
			if ctx.Err() != nil {
				failed = append(failed, rows[i:]...)
				errs = append(errs, ctx.Err())
				break
			}
			if err := s.processRow(ctx, row); err != nil {
				failed = append(failed, row)
				errs = append(errs, fmt.Errorf("scheduled notification %s (%s %s): %w", row.ID, row.Type, row.SubjectID, err))
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	span.SetAttributes(attribute.Int(tracing.AttrScheduledRows, claimed))
	if claimed == 0 && len(errs) == 0 {
		s.l.DebugContext(ctx, "No scheduled notifications due")
	}

	if err := errors.Join(errs...); err != nil {
		s.tracer.RecordError(span, err)
		return err
	}
	return nil
}

// processRow sends one row and deletes it. On failure the row is left in
// place and the caller releases it when the sweep ends.
func (s *scheduledService) processRow(ctx context.Context, row model.ScheduledNotification) error {
	ctx, span := s.tracer.StartInternalSpan(ctx, "scheduled.process",
		attribute.String(tracing.AttrScheduledType, row.Type),
		attribute.String(tracing.AttrScheduledSubjectID, row.SubjectID),
	)
	defer span.End()

	err := s.dispatch(ctx, row)
	if err == nil {
		if err = s.queue.Delete(ctx, row.ID); err == nil {
			metrics.SweepRows.WithLabelValues(row.Type, metrics.StatusSent).Inc()
			return nil
		}
	}

	s.tracer.RecordError(span, err)
	metrics.SweepRows.WithLabelValues(row.Type, metrics.StatusFailed).Inc()
	if errors.Is(err, appErr.ErrUnknownScheduledType) {
		s.l.ErrorContext(ctx, "Scheduled notification has no handler, leaving row", slog.String("id", row.ID), slog.String("type", row.Type))
	} else {
		s.l.ErrorContext(ctx, "Failed to send scheduled notification, will retry",
			slog.String("id", row.ID),
			slog.String("type", row.Type),
			slog.String("subject_id", row.SubjectID),
			slog.Any("error", err),
		)
	}
	return err
}

func (s *scheduledService) dispatch(ctx context.Context, row model.ScheduledNotification) error {
	t, err := model.ParseScheduledType(row.Type)
	if err != nil {
		return fmt.Errorf("%w: %q", appErr.ErrUnknownScheduledType, row.Type)
	}
	build, ok := s.builders[t]
	if !ok {
		return fmt.Errorf("%w: %q", appErr.ErrUnknownScheduledType, row.Type)
	}
	return build(ctx, row.SubjectID, row.WindowStart())
}

func (s *scheduledService) releaseAll(ctx context.Context, rows []model.ScheduledNotification) {
	for _, row := range rows {
		if err := s.queue.Release(ctx, row.ID); err != nil {
			s.l.ErrorContext(ctx, "Failed to release scheduled notification", slog.String("id", row.ID), slog.Any("error", err))
		}
	}
}
