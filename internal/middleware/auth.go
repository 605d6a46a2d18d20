package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
)

type key string

const contextSubjectKey key = "subject"

// SubjectFromContext returns the "sub" claim of the caller's token.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(contextSubjectKey).(string)
	return sub, ok
}

// ValidateToken checks an HS256 token signed with secret and returns its
// subject. Every failure wraps errors.ErrUnauthorized.
func ValidateToken(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", appErr.ErrUnauthorized, err)
	}
	if !token.Valid {
		return "", fmt.Errorf("%w: %w", appErr.ErrUnauthorized, jwt.ErrTokenInvalidClaims)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("%w: %w", appErr.ErrUnauthorized, err)
	}
	if sub == "" {
		return "", fmt.Errorf("%w: token has no subject", appErr.ErrUnauthorized)
	}
	return sub, nil
}

// AuthMiddleware rejects requests without a valid bearer token signed with
// secret.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "missing or malformed token")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			sub, err := ValidateToken(tokenStr, secret)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
