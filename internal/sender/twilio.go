package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const twilioProviderName = "twilio"

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMS sends international SMS through Twilio content templates.
type TwilioSMS struct {
	api                 messageCreator
	messagingServiceSID string
}

// NewTwilioSMS constructs a TwilioSMS provider from account credentials.
func NewTwilioSMS(accountSID, authToken, messagingServiceSID string) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMS{api: client.Api, messagingServiceSID: messagingServiceSID}
}

func (p *TwilioSMS) Name() string { return twilioProviderName }

// SendSMS creates one message per entry.
func (p *TwilioSMS) SendSMS(ctx context.Context, templateID string, entries []SMSEntry) error {
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		vars, err := json.Marshal(e.Vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to marshal content variables: %w", err))
			continue
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(e.To)
		params.SetMessagingServiceSid(p.messagingServiceSID)
		params.SetContentSid(templateID)
		params.SetContentVariables(string(vars))

		msg, err := p.api.CreateMessage(params)
		if err != nil {
			errs = append(errs, &ProviderError{Provider: twilioProviderName, Recipient: e.To, Message: err.Error()})
			continue
		}
		if msg != nil && msg.ErrorCode != nil {
			message := "message rejected"
			if msg.ErrorMessage != nil {
				message = *msg.ErrorMessage
			}
			errs = append(errs, &ProviderError{
				Provider:   twilioProviderName,
				StatusCode: *msg.ErrorCode,
				Recipient:  e.To,
				Message:    message,
			})
		}
	}
	return errors.Join(errs...)
}
