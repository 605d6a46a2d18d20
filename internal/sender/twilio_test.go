package sender

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	reply  func(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

func (f *fakeCreator) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	return f.reply(p)
}

func TestTwilioSMS_SendSMS(t *testing.T) {
	code := 21211
	msg := "invalid 'To' number"
	fc := &fakeCreator{reply: func(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
		if *p.To == "+15550199" {
			return &twilioApi.ApiV2010Message{ErrorCode: &code, ErrorMessage: &msg}, nil
		}
		if *p.To == "+15550198" {
			return nil, errors.New("network down")
		}
		return &twilioApi.ApiV2010Message{}, nil
	}}
	p := &TwilioSMS{api: fc, messagingServiceSID: "MG1"}

	vars := model.Vars{"subject": "s"}
	err := p.SendSMS(context.Background(), "HX1", []SMSEntry{
		{To: "+15550100", Vars: vars},
		{To: "+15550199", Vars: vars},
		{To: "+15550198", Vars: vars},
	})
	require.Error(t, err)
	require.Len(t, fc.params, 3, "a failed recipient does not stop the others")

	first := fc.params[0]
	assert.Equal(t, "MG1", *first.MessagingServiceSid)
	assert.Equal(t, "HX1", *first.ContentSid)
	var sent model.Vars
	require.NoError(t, json.Unmarshal([]byte(*first.ContentVariables), &sent))
	assert.Equal(t, vars, sent)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "+15550199", pe.Recipient)
	assert.Equal(t, code, pe.StatusCode)
}
