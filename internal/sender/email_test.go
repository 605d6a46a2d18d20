package sender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuanjian-org/app-sub000/internal/model"
)

func TestHTTPEmailSender_Send(t *testing.T) {
	var calls atomic.Int32
	var got emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPEmailSender(srv.Client(), srv.URL, "key", "noreply@example.org")

	require.NoError(t, s.Send(context.Background(), nil, "tpl", nil))
	assert.Equal(t, int32(0), calls.Load(), "empty recipient list makes no request")

	vars := model.Vars{"subject": "s", "content": "c"}
	require.NoError(t, s.Send(context.Background(), []string{"a@test.com", "b@test.com"}, "tpl", vars))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"a@test.com", "b@test.com"}, got.To)
	assert.Equal(t, "noreply@example.org", got.From)
	assert.Equal(t, "tpl", got.TemplateID)
	assert.Equal(t, vars, got.TemplateModel)
}

func TestHTTPEmailSender_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad template", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewHTTPEmailSender(srv.Client(), srv.URL, "key", "noreply@example.org")
	err := s.Send(context.Background(), []string{"a@test.com"}, "tpl", nil)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnprocessableEntity, pe.StatusCode)
}
