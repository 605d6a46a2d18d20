// Package sender delivers notifications over SMS and email providers.
package sender

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

// SMSEntry is one SMS recipient with its template variables.
type SMSEntry struct {
	To   string     `json:"to"`
	Vars model.Vars `json:"vars"`
}

// SMSSender sends templated SMS. Implementations route each entry to a
// domestic or international provider by phone prefix.
type SMSSender interface {
	Send(ctx context.Context, domesticTemplateID, internationalTemplateID string, entries []SMSEntry) error
}

// EmailSender sends one templated email to a list of recipients.
type EmailSender interface {
	Send(ctx context.Context, to []string, templateID string, vars model.Vars) error
}

// SMSProvider is a single SMS backend.
type SMSProvider interface {
	Name() string
	SendSMS(ctx context.Context, templateID string, entries []SMSEntry) error
}

// ProviderError is a non-success response from a channel provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Recipient  string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Recipient != "" {
		return fmt.Sprintf("%s: recipient %s: %s (status %d)", e.Provider, e.Recipient, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
}

// NewHTTPClient returns an instrumented client for provider calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
