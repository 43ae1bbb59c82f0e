package transport

import "context"

//go:generate moq -out token_source_mock.go . TokenSource

// TokenSource выдает bearer-токен для каждой попытки подключения.
// Токен непрозрачен для транспорта; его обновление - забота владельца.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken TokenSource с неизменным токеном.
type StaticToken string

// Token returns the static token.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}
