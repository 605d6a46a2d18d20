package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
)

const testSecret = "s3cret"

func signed(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	valid := jwt.MapClaims{"sub": "ops-bot", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantSub    string
	}{
		{
			name:       "valid token",
			header:     "Bearer " + signed(t, jwt.SigningMethodHS256, testSecret, valid),
			wantStatus: http.StatusOK,
			wantSub:    "ops-bot",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			header:     "Basic Zm9vOmJhcg==",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signed(t, jwt.SigningMethodHS256, "other", valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong algorithm",
			header:     "Bearer " + signed(t, jwt.SigningMethodHS512, testSecret, valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, testSecret,
				jwt.MapClaims{"sub": "ops-bot", "exp": time.Now().Add(-time.Minute).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "no expiry",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, testSecret,
				jwt.MapClaims{"sub": "ops-bot"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "no subject",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, testSecret,
				jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSub string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSub, _ = SubjectFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/v1/notifications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(testSecret)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSub, gotSub)
		})
	}
}

func TestValidateToken(t *testing.T) {
	sub, err := ValidateToken(signed(t, jwt.SigningMethodHS256, testSecret,
		jwt.MapClaims{"sub": "ops-bot", "exp": time.Now().Add(time.Hour).Unix()}), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "ops-bot", sub)

	for name, token := range map[string]string{
		"garbage":    "not-a-jwt",
		"wrong key":  signed(t, jwt.SigningMethodHS256, "other", jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()}),
		"no subject": signed(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateToken(token, testSecret)
			assert.ErrorIs(t, err, appErr.ErrUnauthorized)
		})
	}
}
