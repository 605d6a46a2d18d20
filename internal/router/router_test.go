package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yuanjian-org/app-sub000/internal/handler"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/internal/service"
)

const secret = "router-test-secret"

var defaults = model.TemplateSet{Email: "default-email", DomesticSMS: "default-dom", InternationalSMS: "default-intl"}

type staticHealth map[string]string

func (s staticHealth) Check(context.Context) map[string]string { return s }

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "web-app",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func newTestRouter(t *testing.T, health staticHealth) (http.Handler, *service.MockNotifyService, *service.MockScheduledService) {
	notify := service.NewMockNotifyService(t)
	scheduled := service.NewMockScheduledService(t)
	h := handler.NewNotificationHandler(notify, scheduled, defaults, slog.Default())
	return NewRouter(h, handler.NewHealthHandler(health), secret, slog.Default()), notify, scheduled
}

func TestRouter_Notifications(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		noAuth     bool
		setup      func(n *service.MockNotifyService, s *service.MockScheduledService)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unauthenticated",
			method:     http.MethodPost,
			path:       "/v1/notifications",
			body:       `{}`,
			noAuth:     true,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "notify with default templates",
			method: http.MethodPost,
			path:   "/v1/notifications",
			body:   `{"type":"general","user_ids":["u1","u2"],"vars":{"subject":"s","content":"c"}}`,
			setup: func(n *service.MockNotifyService, _ *service.MockScheduledService) {
				n.On("Notify", mock.Anything, model.TypeGeneral, []string{"u1", "u2"}, defaults,
					model.Vars{"subject": "s", "content": "c"}).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"sent"`,
		},
		{
			name:   "notify with explicit templates",
			method: http.MethodPost,
			path:   "/v1/notifications",
			body:   `{"type":"todo","user_ids":["u1"],"template_set":{"email":"e","domestic_sms":"d","international_sms":"i"}}`,
			setup: func(n *service.MockNotifyService, _ *service.MockScheduledService) {
				n.On("Notify", mock.Anything, model.TypeTodo, []string{"u1"},
					model.TemplateSet{Email: "e", DomesticSMS: "d", InternationalSMS: "i"}, model.Vars(nil)).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "notify rejects unknown type",
			method:     http.MethodPost,
			path:       "/v1/notifications",
			body:       `{"type":"spam","user_ids":["u1"]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "notify rejects empty recipients",
			method:     http.MethodPost,
			path:       "/v1/notifications",
			body:       `{"type":"general"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "notify channel failure",
			method: http.MethodPost,
			path:   "/v1/notifications",
			body:   `{"type":"general","user_ids":["u1"]}`,
			setup: func(n *service.MockNotifyService, _ *service.MockScheduledService) {
				n.On("Notify", mock.Anything, model.TypeGeneral, []string{"u1"}, defaults, model.Vars(nil)).
					Return(errors.New("email: provider down")).Once()
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   "provider down",
		},
		{
			name:   "notify roles is accepted",
			method: http.MethodPost,
			path:   "/v1/notifications/roles",
			body:   `{"type":"internal-note","roles":["MentorshipManager"],"subject":"s","content":"c"}`,
			setup: func(n *service.MockNotifyService, _ *service.MockScheduledService) {
				n.On("NotifyRolesBestEffort", mock.Anything, model.TypeInternalNote,
					[]model.Role{model.RoleMentorshipManager}, "s", "c").Once()
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "notify roles requires roles",
			method:     http.MethodPost,
			path:       "/v1/notifications/roles",
			body:       `{"type":"general"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "schedule",
			method: http.MethodPost,
			path:   "/v1/scheduled-notifications",
			body:   `{"type":"chat","subject_id":"room-1"}`,
			setup: func(_ *service.MockNotifyService, s *service.MockScheduledService) {
				s.On("Schedule", mock.Anything, model.ScheduledChat, "room-1").Return(nil).Once()
			},
			wantStatus: http.StatusAccepted,
			wantBody:   `"scheduled"`,
		},
		{
			name:       "schedule rejects unknown type",
			method:     http.MethodPost,
			path:       "/v1/scheduled-notifications",
			body:       `{"type":"newsletter","subject_id":"x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "schedule rejects bad json",
			method:     http.MethodPost,
			path:       "/v1/scheduled-notifications",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "sweep",
			method: http.MethodPost,
			path:   "/v1/scheduled-notifications/sweep",
			setup: func(_ *service.MockNotifyService, s *service.MockScheduledService) {
				s.On("Sweep", mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "sweep with failed rows",
			method: http.MethodPost,
			path:   "/v1/scheduled-notifications/sweep",
			setup: func(_ *service.MockNotifyService, s *service.MockScheduledService) {
				s.On("Sweep", mock.Anything).Return(errors.New("chat room missing")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "chat room missing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, notify, scheduled := newTestRouter(t, staticHealth{})
			if tt.setup != nil {
				tt.setup(notify, scheduled)
			}

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if !tt.noAuth {
				req.Header.Set("Authorization", bearer(t))
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		health     staticHealth
		wantStatus int
	}{
		{name: "liveness", path: "/healthz", wantStatus: http.StatusOK},
		{name: "ready", path: "/readyz", health: staticHealth{"app_db": "ok", "queue_db": "ok"}, wantStatus: http.StatusOK},
		{name: "not ready", path: "/readyz", health: staticHealth{"app_db": "ok", "queue_db": "error: refused"}, wantStatus: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRouter(t, tt.health)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
