package sender

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yuanjian-org/app-sub000/internal/metrics"
)

// RoutingSMSSender splits entries by phone prefix between a domestic and
// an international provider.
type RoutingSMSSender struct {
	domestic       SMSProvider
	international  SMSProvider
	domesticPrefix string
	// ignoreInternational logs international failures instead of
	// returning them. Non-verification international SMS is best effort.
	ignoreInternational bool
	log                 *slog.Logger
}

// NewRoutingSMSSender constructs a RoutingSMSSender.
func NewRoutingSMSSender(
	domestic SMSProvider,
	international SMSProvider,
	domesticPrefix string,
	ignoreInternational bool,
	log *slog.Logger,
) *RoutingSMSSender {
	return &RoutingSMSSender{
		domestic:            domestic,
		international:       international,
		domesticPrefix:      domesticPrefix,
		ignoreInternational: ignoreInternational,
		log:                 log.With("layer", "sender", "component", "sms"),
	}
}

// Send routes entries and sends them. Both routes are attempted even if the
// first one fails.
func (s *RoutingSMSSender) Send(ctx context.Context, domesticTemplateID, internationalTemplateID string, entries []SMSEntry) error {
	domestic, international := s.split(entries)
	var errs []error

	if len(domestic) > 0 {
		if err := s.domestic.SendSMS(ctx, domesticTemplateID, domestic); err != nil {
			s.log.ErrorContext(ctx, "Domestic SMS failed",
				slog.String("provider", s.domestic.Name()),
				slog.Int("count", len(domestic)),
				slog.Any("error", err))
			metrics.ProviderRequests.WithLabelValues(s.domestic.Name(), metrics.StatusFailed).Inc()
			errs = append(errs, err)
		} else {
			metrics.ProviderRequests.WithLabelValues(s.domestic.Name(), metrics.StatusSent).Inc()
		}
	}

	if len(international) > 0 {
		if err := s.international.SendSMS(ctx, internationalTemplateID, international); err != nil {
			if s.ignoreInternational {
				s.log.WarnContext(ctx, "International SMS failed, ignoring",
					slog.String("provider", s.international.Name()),
					slog.Int("count", len(international)),
					slog.Any("error", err))
				metrics.ProviderRequests.WithLabelValues(s.international.Name(), metrics.StatusIgnored).Inc()
			} else {
				s.log.ErrorContext(ctx, "International SMS failed",
					slog.String("provider", s.international.Name()),
					slog.Int("count", len(international)),
					slog.Any("error", err))
				metrics.ProviderRequests.WithLabelValues(s.international.Name(), metrics.StatusFailed).Inc()
				errs = append(errs, err)
			}
		} else {
			metrics.ProviderRequests.WithLabelValues(s.international.Name(), metrics.StatusSent).Inc()
		}
	}

	return errors.Join(errs...)
}

func (s *RoutingSMSSender) split(entries []SMSEntry) (domestic, international []SMSEntry) {
	for _, e := range entries {
		if strings.HasPrefix(e.To, s.domesticPrefix) {
			domestic = append(domestic, e)
		} else {
			international = append(international, e)
		}
	}
	return domestic, international
}
