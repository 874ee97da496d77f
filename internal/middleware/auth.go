package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"todoTracker/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ownerIDKey contextKey = "owner_id"

var ErrNoOwner = errors.New("владелец запроса не определён")

// Auth проверяет Bearer-токен (HS256) и кладёт uuid из claim sub в контекст.
// Выпуск токенов - забота внешнего identity-сервиса.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				unauthorized(w, r, "отсутствует токен")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				logger.Warn("HTTP: Недействительный токен",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				unauthorized(w, r, "недействительный токен")
				return
			}

			ownerID, err := uuid.Parse(claims.Subject)
			if err != nil {
				unauthorized(w, r, "некорректный subject токена")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}

func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

func OwnerID(ctx context.Context) (uuid.UUID, error) {
	if id, ok := ctx.Value(ownerIDKey).(uuid.UUID); ok {
		return id, nil
	}
	return uuid.Nil, ErrNoOwner
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="todo"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      "UNAUTHORIZED",
		"message":    message,
		"request_id": GetRequestID(r.Context()),
	})
}
