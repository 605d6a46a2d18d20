package sender

import (
	"context"
	"log/slog"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

// NoopSMSSender logs instead of sending. Selected with SENDER_MODE=noop.
type NoopSMSSender struct {
	log *slog.Logger
}

func NewNoopSMSSender(log *slog.Logger) *NoopSMSSender {
	return &NoopSMSSender{log: log.With("layer", "sender", "component", "noop_sms")}
}

func (s *NoopSMSSender) Send(ctx context.Context, domesticTemplateID, internationalTemplateID string, entries []SMSEntry) error {
	for _, e := range entries {
		s.log.InfoContext(ctx, "Skipping SMS delivery",
			slog.String("to", e.To),
			slog.String("domestic_template", domesticTemplateID),
			slog.String("international_template", internationalTemplateID),
			slog.Any("vars", e.Vars))
	}
	return nil
}

// NoopEmailSender logs instead of sending.
type NoopEmailSender struct {
	log *slog.Logger
}

func NewNoopEmailSender(log *slog.Logger) *NoopEmailSender {
	return &NoopEmailSender{log: log.With("layer", "sender", "component", "noop_email")}
}

func (s *NoopEmailSender) Send(ctx context.Context, to []string, templateID string, vars model.Vars) error {
	if len(to) == 0 {
		return nil
	}
	s.log.InfoContext(ctx, "Skipping email delivery",
		slog.Any("to", to),
		slog.String("template", templateID),
		slog.Any("vars", vars))
	return nil
}

var (
	_ SMSSender   = (*NoopSMSSender)(nil)
	_ EmailSender = (*NoopEmailSender)(nil)
	_ SMSSender   = (*RoutingSMSSender)(nil)
	_ EmailSender = (*HTTPEmailSender)(nil)
	_ SMSProvider = (*DomesticSMS)(nil)
	_ SMSProvider = (*TwilioSMS)(nil)
)
