package auth

import (
	"context"

	"github.com/iudanet/flowsync/pkg/api"
)

//go:generate moq -out apiclient_mock.go . APIClient

// APIClient проверка токена на relay-сервере.
type APIClient interface {
	WhoAmI(ctx context.Context, token string) (*api.WhoAmIResponse, error)
}
