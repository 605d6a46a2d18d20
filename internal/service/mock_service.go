package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockNotifyService is a testify mock of NotifyService.
type MockNotifyService struct {
	mock.Mock
}

func (_m *MockNotifyService) Notify(ctx context.Context, t model.NotificationType, userIDs []string, ts model.TemplateSet, vars model.Vars) error {
	ret := _m.Called(ctx, t, userIDs, ts, vars)
	return ret.Error(0)
}

func (_m *MockNotifyService) NotifyRoles(ctx context.Context, t model.NotificationType, roles []model.Role, subject, content string) error {
	ret := _m.Called(ctx, t, roles, subject, content)
	return ret.Error(0)
}

func (_m *MockNotifyService) NotifyRolesBestEffort(ctx context.Context, t model.NotificationType, roles []model.Role, subject, content string) {
	_m.Called(ctx, t, roles, subject, content)
}

// NewMockNotifyService creates a MockNotifyService whose expectations are asserted on cleanup.
func NewMockNotifyService(t testingT) *MockNotifyService {
	m := &MockNotifyService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockScheduledService is a testify mock of ScheduledService.
type MockScheduledService struct {
	mock.Mock
}

func (_m *MockScheduledService) Schedule(ctx context.Context, t model.ScheduledType, subjectID string) error {
	ret := _m.Called(ctx, t, subjectID)
	return ret.Error(0)
}

func (_m *MockScheduledService) Sweep(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

func (_m *MockScheduledService) Start(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewMockScheduledService creates a MockScheduledService whose expectations are asserted on cleanup.
func NewMockScheduledService(t testingT) *MockScheduledService {
	m := &MockScheduledService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
