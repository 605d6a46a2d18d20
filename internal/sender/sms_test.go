package sender

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

func newProvider(t *testing.T, name string) *MockSMSProvider {
	p := NewMockSMSProvider(t)
	p.On("Name").Return(name).Maybe()
	return p
}

func TestRoutingSMSSender_Send(t *testing.T) {
	vars := model.Vars{"subject": "s"}
	cn := SMSEntry{To: "+8613800138000", Vars: vars}
	us := SMSEntry{To: "+15550100", Vars: vars}
	providerErr := &ProviderError{Provider: "x", StatusCode: 500, Message: "boom"}

	tests := []struct {
		name                string
		entries             []SMSEntry
		ignoreInternational bool
		setup               func(domestic, international *MockSMSProvider)
		wantErr             bool
	}{
		{
			name:    "splits by domestic prefix",
			entries: []SMSEntry{cn, us},
			setup: func(domestic, international *MockSMSProvider) {
				domestic.On("SendSMS", mock.Anything, "dom-tpl", []SMSEntry{cn}).Return(nil).Once()
				international.On("SendSMS", mock.Anything, "intl-tpl", []SMSEntry{us}).Return(nil).Once()
			},
		},
		{
			name:    "no entries makes no provider call",
			entries: nil,
			setup:   func(domestic, international *MockSMSProvider) {},
		},
		{
			name:    "domestic failure is returned and international still sent",
			entries: []SMSEntry{cn, us},
			setup: func(domestic, international *MockSMSProvider) {
				domestic.On("SendSMS", mock.Anything, "dom-tpl", []SMSEntry{cn}).Return(providerErr).Once()
				international.On("SendSMS", mock.Anything, "intl-tpl", []SMSEntry{us}).Return(nil).Once()
			},
			wantErr: true,
		},
		{
			name:                "ignorable international failure is swallowed",
			entries:             []SMSEntry{us},
			ignoreInternational: true,
			setup: func(domestic, international *MockSMSProvider) {
				international.On("SendSMS", mock.Anything, "intl-tpl", []SMSEntry{us}).Return(providerErr).Once()
			},
		},
		{
			name:    "international failure is returned unless ignorable",
			entries: []SMSEntry{us},
			setup: func(domestic, international *MockSMSProvider) {
				international.On("SendSMS", mock.Anything, "intl-tpl", []SMSEntry{us}).Return(providerErr).Once()
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domestic := newProvider(t, "domestic")
			international := newProvider(t, "international")
			tt.setup(domestic, international)

			s := NewRoutingSMSSender(domestic, international, "+86", tt.ignoreInternational, slog.Default())
			err := s.Send(context.Background(), "dom-tpl", "intl-tpl", tt.entries)
			if (err != nil) != tt.wantErr {
				t.Errorf("RoutingSMSSender.Send() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var pe *ProviderError
				assert.True(t, errors.As(err, &pe), "error should wrap a ProviderError")
			}
		})
	}
}
