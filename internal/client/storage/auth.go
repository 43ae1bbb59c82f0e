package storage

import (
	"context"
)

//go:generate moq -out authstorage_mock.go . AuthStorage

// AuthStorage defines interface for storing authentication data on client.
// The token is opaque: storage never parses or refreshes it.
type AuthStorage interface {
	// SaveAuth stores authentication data
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated checks if a token exists and is not known to be expired
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData represents authentication information in storage
type AuthData struct {
	ServerURL string `json:"server_url"` // relay the token was issued for
	Token     string `json:"token"`      // opaque bearer token
	Name      string `json:"name"`       // display name used for presence
	SavedAt   int64  `json:"saved_at"`   // unix seconds
	ExpiresAt int64  `json:"expires_at"` // unix seconds, 0 if unknown
}
