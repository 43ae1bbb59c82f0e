// Package auth управляет токеном доступа клиента к relay-серверу:
// вход с проверкой токена на сервере, выход и выдача токена транспорту
// при каждом подключении.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/flowsync/internal/client/storage"
	"github.com/iudanet/flowsync/internal/client/transport"
)

// ErrEmptyToken попытка входа с пустым токеном.
var ErrEmptyToken = errors.New("token is empty")

// Service предоставляет функции авторизации
type Service struct {
	apiClient APIClient
	store     storage.AuthStorage
	logger    *slog.Logger
	now       func() time.Time
}

var _ transport.TokenSource = (*Service)(nil)

// NewService создает новый сервис авторизации
func NewService(apiClient APIClient, store storage.AuthStorage, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Login проверяет токен на сервере и сохраняет его локально.
// name переопределяет отображаемое имя из токена.
func (s *Service) Login(ctx context.Context, serverURL, token, name string) (*storage.AuthData, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	// Срок действия читаем без проверки подписи: ключ есть только у сервера
	expiresAt, err := tokenExpiry(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if expiresAt > 0 && s.now().Unix() >= expiresAt {
		return nil, fmt.Errorf("%w: token already expired", transport.ErrAuthExpired)
	}

	who, err := s.apiClient.WhoAmI(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if name == "" {
		name = who.Name
	}
	if name == "" {
		name = who.Subject
	}
	if who.ExpiresAt > 0 {
		expiresAt = who.ExpiresAt
	}

	data := &storage.AuthData{
		ServerURL: serverURL,
		Token:     token,
		Name:      name,
		SavedAt:   s.now().Unix(),
		ExpiresAt: expiresAt,
	}
	if err := s.store.SaveAuth(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.logger.Debug("Logged in", "subject", who.Subject, "expires_at", expiresAt)
	return data, nil
}

// Logout удаляет локальные данные авторизации
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	return nil
}

// IsAuthenticated проверяет наличие действующего токена
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.store.IsAuthenticated(ctx)
}

// Current возвращает сохраненные данные авторизации
func (s *Service) Current(ctx context.Context) (*storage.AuthData, error) {
	return s.store.GetAuth(ctx)
}

// Token реализует transport.TokenSource. Отсутствующий или истекший
// токен возвращается как transport.ErrAuthExpired: переподключаться бессмысленно.
func (s *Service) Token(ctx context.Context) (string, error) {
	data, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return "", fmt.Errorf("%w: not logged in", transport.ErrAuthExpired)
		}
		return "", fmt.Errorf("failed to get auth data: %w", err)
	}

	if data.ExpiresAt > 0 && s.now().Unix() >= data.ExpiresAt {
		return "", fmt.Errorf("%w: token expired at %s", transport.ErrAuthExpired,
			time.Unix(data.ExpiresAt, 0).UTC().Format(time.RFC3339))
	}
	return data.Token, nil
}

// tokenExpiry возвращает exp из JWT или 0, если токен не JWT либо exp нет.
func tokenExpiry(token string) (int64, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			// Непрозрачный токен: срок знает только сервер
			return 0, nil
		}
		return 0, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return 0, err
	}
	if exp == nil {
		return 0, nil
	}
	return exp.Unix(), nil
}
