package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
)

const domesticProviderName = "domestic-sms"

// successCode is the per-recipient status code the provider returns on success.
const successCode = "Ok"

type domesticRequest struct {
	SignName       string            `json:"sign_name,omitempty"`
	TemplateID     string            `json:"template_id"`
	PhoneNumbers   []string          `json:"phone_numbers"`
	TemplateParams map[string]string `json:"template_params"`
}

type domesticResponse struct {
	RequestID string `json:"request_id"`
	Statuses  []struct {
		PhoneNumber string `json:"phone_number"`
		Code        string `json:"code"`
		Message     string `json:"message"`
	} `json:"statuses"`
}

// DomesticSMS is a JSON-over-HTTP SMS gateway for domestic numbers.
type DomesticSMS struct {
	client   *http.Client
	url      string
	apiKey   string
	signName string
}

// NewDomesticSMS constructs a DomesticSMS provider.
func NewDomesticSMS(client *http.Client, url, apiKey, signName string) *DomesticSMS {
	return &DomesticSMS{client: client, url: url, apiKey: apiKey, signName: signName}
}

func (p *DomesticSMS) Name() string { return domesticProviderName }

// SendSMS sends one request per run of entries sharing the same variables.
func (p *DomesticSMS) SendSMS(ctx context.Context, templateID string, entries []SMSEntry) error {
	var errs []error
	for _, batch := range batchByVars(entries) {
		if err := p.send(ctx, templateID, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *DomesticSMS) send(ctx context.Context, templateID string, batch []SMSEntry) error {
	reqBody := domesticRequest{
		SignName:       p.signName,
		TemplateID:     templateID,
		TemplateParams: batch[0].Vars,
	}
	for _, e := range batch {
		reqBody.PhoneNumbers = append(reqBody.PhoneNumbers, e.To)
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sms response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: domesticProviderName, StatusCode: resp.StatusCode, Message: string(body)}
	}

	var out domesticResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to decode sms response: %w", err)
	}

	var errs []error
	for _, st := range out.Statuses {
		if st.Code != successCode {
			errs = append(errs, &ProviderError{
				Provider:   domesticProviderName,
				StatusCode: resp.StatusCode,
				Recipient:  st.PhoneNumber,
				Message:    fmt.Sprintf("%s: %s", st.Code, st.Message),
			})
		}
	}
	return errors.Join(errs...)
}

// batchByVars groups consecutive entries with identical variables.
func batchByVars(entries []SMSEntry) [][]SMSEntry {
	var batches [][]SMSEntry
	for _, e := range entries {
		n := len(batches)
		if n > 0 && maps.Equal(batches[n-1][0].Vars, e.Vars) {
			batches[n-1] = append(batches[n-1], e)
			continue
		}
		batches = append(batches, []SMSEntry{e})
	}
	return batches
}
