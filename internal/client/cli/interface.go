package cli

import (
	"context"

	"github.com/iudanet/flowsync/internal/client/session"
	"github.com/iudanet/flowsync/internal/client/storage"
	"github.com/iudanet/flowsync/pkg/api"
)

//go:generate moq -out authservice_mock.go . AuthService
//go:generate moq -out apiclient_mock.go . APIClient

// AuthService вход, выход и текущий токен.
type AuthService interface {
	Login(ctx context.Context, serverURL, token, name string) (*storage.AuthData, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*storage.AuthData, error)
	Token(ctx context.Context) (string, error)
}

// APIClient HTTP API relay-сервера.
type APIClient interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
	Room(ctx context.Context, token, room string) (*api.RoomInfo, error)
}

// Documents открывает сессии документов.
type Documents interface {
	Open(ctx context.Context, documentID string) (*session.Handle, error)
}

var _ Documents = (*session.Coordinator)(nil)

// LocalStore локальные копии документов и метаданные клиента.
type LocalStore interface {
	storage.DocumentStorage
	storage.MetadataStorage
}
