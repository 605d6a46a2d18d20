package sender

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

// MockSMSSender is a testify mock of SMSSender.
type MockSMSSender struct {
	mock.Mock
}

func (_m *MockSMSSender) Send(ctx context.Context, domesticTemplateID string, internationalTemplateID string, entries []SMSEntry) error {
	ret := _m.Called(ctx, domesticTemplateID, internationalTemplateID, entries)

	if rf, ok := ret.Get(0).(func(context.Context, string, string, []SMSEntry) error); ok {
		return rf(ctx, domesticTemplateID, internationalTemplateID, entries)
	}
	return ret.Error(0)
}

// NewMockSMSSender creates a MockSMSSender whose expectations are asserted on cleanup.
func NewMockSMSSender(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSMSSender {
	m := &MockSMSSender{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockEmailSender is a testify mock of EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (_m *MockEmailSender) Send(ctx context.Context, to []string, templateID string, vars model.Vars) error {
	ret := _m.Called(ctx, to, templateID, vars)

	if rf, ok := ret.Get(0).(func(context.Context, []string, string, model.Vars) error); ok {
		return rf(ctx, to, templateID, vars)
	}
	return ret.Error(0)
}

// NewMockEmailSender creates a MockEmailSender whose expectations are asserted on cleanup.
func NewMockEmailSender(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEmailSender {
	m := &MockEmailSender{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockSMSProvider is a testify mock of SMSProvider.
type MockSMSProvider struct {
	mock.Mock
}

func (_m *MockSMSProvider) Name() string {
	ret := _m.Called()
	return ret.String(0)
}

func (_m *MockSMSProvider) SendSMS(ctx context.Context, templateID string, entries []SMSEntry) error {
	ret := _m.Called(ctx, templateID, entries)

	if rf, ok := ret.Get(0).(func(context.Context, string, []SMSEntry) error); ok {
		return rf(ctx, templateID, entries)
	}
	return ret.Error(0)
}

// NewMockSMSProvider creates a MockSMSProvider whose expectations are asserted on cleanup.
func NewMockSMSProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSMSProvider {
	m := &MockSMSProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
