package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func Test_healthService_Check(t *testing.T) {
	svc := NewHealthService(map[string]Pinger{
		"app_db":   pingFunc(func(context.Context) error { return nil }),
		"queue_db": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	got := svc.Check(context.Background())

	assert.Equal(t, map[string]string{
		"app_db":   "ok",
		"queue_db": "error: connection refused",
	}, got)
}
