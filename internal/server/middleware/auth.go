package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/flowsync/internal/server/handlers"
)

// AuthMiddleware создает middleware для проверки JWT токена.
// Токен берется из заголовка Authorization или, для websocket-клиентов,
// которые не умеют задавать заголовки, из параметра запроса token.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				logger.Warn("Missing or malformed credentials", "path", r.URL.Path)
				writeJSONError(w, "missing token", http.StatusUnauthorized)
				return
			}

			// Валидируем токен
			claims, err := handlers.ValidateAccessToken(jwtConfig, tokenString)
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				writeJSONError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			logger.Debug("Client authenticated", "subject", claims.Subject, "name", claims.Name)

			// Передаем запрос дальше с claims в контексте
			next.ServeHTTP(w, r.WithContext(handlers.WithClaims(r.Context(), claims)))
		})
	}
}

// extractToken возвращает токен из заголовка "Bearer <token>" или параметра token.
// Заголовок имеет приоритет.
func extractToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}
