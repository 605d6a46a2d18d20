package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/yuanjian-org/app-sub000/internal/metrics"
	"github.com/yuanjian-org/app-sub000/internal/model"
)

const emailProviderName = "email"

type emailRequest struct {
	From          string     `json:"from"`
	To            []string   `json:"to"`
	TemplateID    string     `json:"template_id"`
	TemplateModel model.Vars `json:"template_model"`
}

// HTTPEmailSender sends templated email through an HTTP email API.
type HTTPEmailSender struct {
	client *http.Client
	url    string
	apiKey string
	from   string
}

// NewHTTPEmailSender constructs an HTTPEmailSender.
func NewHTTPEmailSender(client *http.Client, url, apiKey, from string) *HTTPEmailSender {
	return &HTTPEmailSender{client: client, url: url, apiKey: apiKey, from: from}
}

// Send posts a single templated message addressed to every recipient.
// An empty recipient list makes no request.
func (s *HTTPEmailSender) Send(ctx context.Context, to []string, templateID string, vars model.Vars) error {
	if len(to) == 0 {
		return nil
	}

	data, err := json.Marshal(emailRequest{From: s.from, To: to, TemplateID: templateID, TemplateModel: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(emailProviderName, metrics.StatusFailed).Inc()
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.ProviderRequests.WithLabelValues(emailProviderName, metrics.StatusFailed).Inc()
		return &ProviderError{Provider: emailProviderName, StatusCode: resp.StatusCode, Message: string(body)}
	}
	metrics.ProviderRequests.WithLabelValues(emailProviderName, metrics.StatusSent).Inc()
	return nil
}
