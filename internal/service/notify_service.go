package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/eligibility"
	"github.com/yuanjian-org/app-sub000/internal/metrics"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/internal/sender"
	"github.com/yuanjian-org/app-sub000/internal/store"
	"github.com/yuanjian-org/app-sub000/pkg/tracing"
)

const (
	channelSMS   = "sms"
	channelEmail = "email"
)

// NotifyService resolves recipients, applies their channel preferences and
// dispatches SMS and email
type NotifyService interface {
	// Notify sends one notification of type t to userIDs. Ids that match no
	// user are dropped. Both channels are always attempted; the returned
	// error joins the failures of each channel.
	Notify(ctx context.Context, t model.NotificationType, userIDs []string, ts model.TemplateSet, vars model.Vars) error
	// NotifyRoles notifies every user holding at least one of roles using
	// the default templates.
	NotifyRoles(ctx context.Context, t model.NotificationType, roles []model.Role, subject, content string) error
	// NotifyRolesBestEffort is NotifyRoles for callers that must not fail.
	// Errors and panics are logged.
	NotifyRolesBestEffort(ctx context.Context, t model.NotificationType, roles []model.Role, subject, content string)
}

// NotifyConfig holds the orchestrator settings
type NotifyConfig struct {
	// SMSDisabled turns the SMS channel off for the deployment. Eligible
	// recipients are still computed and logged.
	SMSDisabled      bool
	DefaultTemplates model.TemplateSet
}

type notifyService struct {
	users  store.UserStorage
	tx     store.TxRunner
	sms    sender.SMSSender
	email  sender.EmailSender
	cfg    NotifyConfig
	tracer *tracing.Tracer
	l      *slog.Logger
}

// NewNotifyService creates the notification orchestrator
func NewNotifyService(
	users store.UserStorage,
	tx store.TxRunner,
	sms sender.SMSSender,
	email sender.EmailSender,
	cfg NotifyConfig,
	tracer *tracing.Tracer,
	logger *slog.Logger,
) NotifyService {
	return &notifyService{
		users:  users,
		tx:     tx,
		sms:    sms,
		email:  email,
		cfg:    cfg,
		tracer: tracer,
		l:      logger.With("layer", "service", "component", "notify"),
	}
}

func (s *notifyService) Notify(ctx context.Context, t model.NotificationType, userIDs []string, ts model.TemplateSet, vars model.Vars) error {
	ctx, span := s.tracer.StartInternalSpan(ctx, "notify",
		attribute.String(tracing.AttrNotificationType, string(t)),
		attribute.Int(tracing.AttrNotificationRecipients, len(userIDs)),
	)
	defer span.End()

	if !t.Valid() {
		err := appErr.NewInvalidInput("unknown notification type %q", t)
		s.tracer.RecordError(span, err)
		return err
	}

	var users []model.User
	err := s.tx.ReadOnly(ctx, func(ctx context.Context) error {
		found, err := s.users.FindUsersByIDs(ctx, uniqueIDs(userIDs))
		if err != nil {
			return err
		}
		users = orderByIDs(found, userIDs)
		return nil
	})
	if err != nil {
		s.l.ErrorContext(ctx, "Failed to load notification recipients", slog.String("type", string(t)), slog.Any("error", err))
		s.tracer.RecordError(span, err)
		return fmt.Errorf("failed to load recipients: %w", err)
	}

	eligible := eligibility.Filter(users, t)
	metrics.EligibleRecipients.WithLabelValues(channelSMS, string(t)).Add(float64(len(eligible.SMS)))
	metrics.EligibleRecipients.WithLabelValues(channelEmail, string(t)).Add(float64(len(eligible.Email)))

	entries := make([]sender.SMSEntry, 0, len(eligible.SMS))
	for _, u := range eligible.SMS {
		entries = append(entries, sender.SMSEntry{To: *u.Phone, Vars: vars})
	}
	to := make([]string, 0, len(eligible.Email))
	for _, u := range eligible.Email {
		to = append(to, *u.Email)
	}

	s.l.InfoContext(ctx, "Dispatching notification",
		slog.String("type", string(t)),
		slog.Int("requested", len(userIDs)),
		slog.Int("resolved", len(users)),
		slog.Int("sms", len(entries)),
		slog.Int("email", len(to)),
	)

	// Each goroutine reports through its own variable so that one channel's
	// failure neither cancels nor hides the other's.
	var smsErr, emailErr error
	var g errgroup.Group
	g.Go(func() error {
		smsErr = s.sendSMS(ctx, t, ts, entries)
		return nil
	})
	g.Go(func() error {
		emailErr = s.sendEmail(ctx, t, ts, to, vars)
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(smsErr, emailErr); err != nil {
		s.tracer.RecordError(span, err)
		return err
	}
	return nil
}

func (s *notifyService) sendSMS(ctx context.Context, t model.NotificationType, ts model.TemplateSet, entries []sender.SMSEntry) error {
	ctx, span := s.tracer.StartClientSpan(ctx, "notify.sms",
		attribute.String(tracing.AttrNotificationChannel, channelSMS),
		attribute.Int(tracing.AttrNotificationRecipients, len(entries)),
	)
	defer span.End()

	if s.cfg.SMSDisabled {
		s.tracer.AddAttributes(span, attribute.Bool(tracing.AttrNotificationSuppressed, true))
		s.l.InfoContext(ctx, "SMS disabled, skipping send", slog.String("type", string(t)), slog.Int("recipients", len(entries)))
		metrics.ChannelDispatch.WithLabelValues(channelSMS, metrics.StatusSuppressed).Inc()
		return nil
	}
	if err := s.sms.Send(ctx, ts.DomesticSMS, ts.InternationalSMS, entries); err != nil {
		s.tracer.RecordError(span, err)
		s.l.ErrorContext(ctx, "SMS dispatch failed", slog.String("type", string(t)), slog.Int("recipients", len(entries)), slog.Any("error", err))
		metrics.ChannelDispatch.WithLabelValues(channelSMS, metrics.StatusFailed).Inc()
		return fmt.Errorf("sms: %w", err)
	}
	metrics.ChannelDispatch.WithLabelValues(channelSMS, metrics.StatusSent).Inc()
	return nil
}

func (s *notifyService) sendEmail(ctx context.Context, t model.NotificationType, ts model.TemplateSet, to []string, vars model.Vars) error {
	ctx, span := s.tracer.StartClientSpan(ctx, "notify.email",
		attribute.String(tracing.AttrNotificationChannel, channelEmail),
		attribute.Int(tracing.AttrNotificationRecipients, len(to)),
	)
	defer span.End()

	if err := s.email.Send(ctx, to, ts.Email, vars); err != nil {
		s.tracer.RecordError(span, err)
		s.l.ErrorContext(ctx, "Email dispatch failed", slog.String("type", string(t)), slog.Int("recipients", len(to)), slog.Any("error", err))
		metrics.ChannelDispatch.WithLabelValues(channelEmail, metrics.StatusFailed).Inc()
		return fmt.Errorf("email: %w", err)
	}
	metrics.ChannelDispatch.WithLabelValues(channelEmail, metrics.StatusSent).Inc()
	return nil
}

func (s *notifyService) NotifyRoles(ctx context.Context, t model.NotificationType, roles []model.Role, subject, content string) error {
	var ids []string
	err := s.tx.ReadOnly(ctx, func(ctx context.Context) error {
		seen := make(map[string]struct{})
		for _, role := range roles {
			users, err := s.users.FindUsersByRole(ctx, role)
			if err != nil {
				return fmt.Errorf("failed to find users with role %s: %w", role, err)
			}
			for _, u := range users {
				if _, ok := seen[u.ID]; ok {
					continue
				}
				seen[u.ID] = struct{}{}
				ids = append(ids, u.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.Notify(ctx, t, ids, s.cfg.DefaultTemplates, model.Vars{
		model.VarSubject: subject,
		model.VarContent: content,
	})
}

func (s *notifyService) NotifyRolesBestEffort(ctx context.Context, t model.NotificationType, roles []model.Role, subject, content string) {
	defer func() {
		if r := recover(); r != nil {
			s.l.ErrorContext(ctx, "Recovered from panic while notifying roles", slog.String("type", string(t)), slog.Any("panic", r))
		}
	}()

	if err := s.NotifyRoles(ctx, t, roles, subject, content); err != nil {
		s.l.ErrorContext(ctx, "Failed to notify roles, ignoring",
			slog.String("type", string(t)),
			slog.Any("roles", roles),
			slog.Any("error", err),
		)
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// orderByIDs returns users in the order their ids first appear in ids.
func orderByIDs(users []model.User, ids []string) []model.User {
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]model.User, 0, len(users))
	for _, id := range uniqueIDs(ids) {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out
}
