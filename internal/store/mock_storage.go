package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserStorage is a testify mock of UserStorage.
type MockUserStorage struct {
	mock.Mock
}

func (_m *MockUserStorage) FindUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	ret := _m.Called(ctx, ids)

	var r0 []model.User
	if rf, ok := ret.Get(0).(func(context.Context, []string) []model.User); ok {
		r0 = rf(ctx, ids)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.User)
	}
	return r0, ret.Error(1)
}

func (_m *MockUserStorage) FindUsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	ret := _m.Called(ctx, role)

	var r0 []model.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.User)
	}
	return r0, ret.Error(1)
}

func (_m *MockUserStorage) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewMockUserStorage creates a MockUserStorage whose expectations are asserted on cleanup.
func NewMockUserStorage(t testingT) *MockUserStorage {
	m := &MockUserStorage{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockScheduledStorage is a testify mock of ScheduledStorage.
type MockScheduledStorage struct {
	mock.Mock
}

func (_m *MockScheduledStorage) Insert(ctx context.Context, n *model.ScheduledNotification) (bool, error) {
	ret := _m.Called(ctx, n)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockScheduledStorage) ClaimDue(ctx context.Context, dueBefore, now, leaseUntil time.Time, limit int) ([]model.ScheduledNotification, error) {
	ret := _m.Called(ctx, dueBefore, now, leaseUntil, limit)

	var r0 []model.ScheduledNotification
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ScheduledNotification)
	}
	return r0, ret.Error(1)
}

func (_m *MockScheduledStorage) Delete(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *MockScheduledStorage) Release(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *MockScheduledStorage) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewMockScheduledStorage creates a MockScheduledStorage whose expectations are asserted on cleanup.
func NewMockScheduledStorage(t testingT) *MockScheduledStorage {
	m := &MockScheduledStorage{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
