package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/flowsync/internal/client/storage"
	"github.com/iudanet/flowsync/internal/client/transport"
	"github.com/iudanet/flowsync/pkg/api"
)

var testNow = time.Unix(1_700_000_000, 0)

func newTestService(apiClient APIClient, store storage.AuthStorage) *Service {
	s := NewService(apiClient, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return testNow }
	return s
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// memoryAuthStorage хранит данные в памяти поверх мока
func memoryAuthStorage() *storage.AuthStorageMock {
	var saved *storage.AuthData
	return &storage.AuthStorageMock{
		SaveAuthFunc: func(ctx context.Context, auth *storage.AuthData) error {
			cp := *auth
			saved = &cp
			return nil
		},
		GetAuthFunc: func(ctx context.Context) (*storage.AuthData, error) {
			if saved == nil {
				return nil, storage.ErrAuthNotFound
			}
			cp := *saved
			return &cp, nil
		},
		DeleteAuthFunc: func(ctx context.Context) error {
			saved = nil
			return nil
		},
		IsAuthenticatedFunc: func(ctx context.Context) (bool, error) {
			return saved != nil, nil
		},
	}
}

func TestService_Login(t *testing.T) {
	token := signedToken(t, testNow.Add(time.Hour))

	tests := []struct {
		who      *api.WhoAmIResponse
		name     string
		override string
		wantName string
		wantExp  int64
	}{
		{
			name:     "name from server",
			who:      &api.WhoAmIResponse{Subject: "alice", Name: "Alice"},
			wantName: "Alice",
			wantExp:  testNow.Add(time.Hour).Unix(),
		},
		{
			name:     "subject as fallback name",
			who:      &api.WhoAmIResponse{Subject: "alice"},
			wantName: "alice",
			wantExp:  testNow.Add(time.Hour).Unix(),
		},
		{
			name:     "explicit name wins",
			who:      &api.WhoAmIResponse{Subject: "alice", Name: "Alice"},
			override: "Al",
			wantName: "Al",
			wantExp:  testNow.Add(time.Hour).Unix(),
		},
		{
			name:     "server expiry wins",
			who:      &api.WhoAmIResponse{Subject: "alice", ExpiresAt: testNow.Add(time.Minute).Unix()},
			wantName: "alice",
			wantExp:  testNow.Add(time.Minute).Unix(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memoryAuthStorage()
			apiClient := &APIClientMock{
				WhoAmIFunc: func(ctx context.Context, tok string) (*api.WhoAmIResponse, error) {
					assert.Equal(t, token, tok)
					return tt.who, nil
				},
			}
			s := newTestService(apiClient, store)

			data, err := s.Login(context.Background(), "http://relay", token, tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, data.Name)
			assert.Equal(t, tt.wantExp, data.ExpiresAt)
			assert.Equal(t, testNow.Unix(), data.SavedAt)

			saved, err := s.Current(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "http://relay", saved.ServerURL)
			assert.Equal(t, token, saved.Token)
		})
	}
}

func TestService_Login_Errors(t *testing.T) {
	rejected := errors.New("unauthorized")

	tests := []struct {
		name      string
		token     string
		whoErr    error
		wantErr   error
		wantCalls int
	}{
		{name: "empty token", token: "", wantErr: ErrEmptyToken},
		{name: "expired token", token: signedToken(t, testNow.Add(-time.Minute)), wantErr: transport.ErrAuthExpired},
		{name: "server rejects", token: "opaque-token", whoErr: rejected, wantErr: rejected, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memoryAuthStorage()
			apiClient := &APIClientMock{
				WhoAmIFunc: func(ctx context.Context, token string) (*api.WhoAmIResponse, error) {
					return nil, tt.whoErr
				},
			}
			s := newTestService(apiClient, store)

			_, err := s.Login(context.Background(), "http://relay", tt.token, "")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, apiClient.WhoAmICalls(), tt.wantCalls)
			assert.Empty(t, store.SaveAuthCalls(), "Nothing should be saved on failure")
		})
	}
}

func TestService_Token(t *testing.T) {
	tests := []struct {
		stored  *storage.AuthData
		name    string
		want    string
		wantErr error
	}{
		{name: "not logged in", wantErr: transport.ErrAuthExpired},
		{
			name:   "valid token",
			stored: &storage.AuthData{Token: "tok", ExpiresAt: testNow.Add(time.Hour).Unix()},
			want:   "tok",
		},
		{
			name:   "unknown expiry",
			stored: &storage.AuthData{Token: "opaque"},
			want:   "opaque",
		},
		{
			name:    "expired token",
			stored:  &storage.AuthData{Token: "tok", ExpiresAt: testNow.Unix()},
			wantErr: transport.ErrAuthExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memoryAuthStorage()
			if tt.stored != nil {
				require.NoError(t, store.SaveAuth(context.Background(), tt.stored))
			}
			s := newTestService(&APIClientMock{}, store)

			got, err := s.Token(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Token_StorageError(t *testing.T) {
	store := &storage.AuthStorageMock{
		GetAuthFunc: func(ctx context.Context) (*storage.AuthData, error) {
			return nil, storage.ErrStorageClosed
		},
	}
	s := newTestService(&APIClientMock{}, store)

	_, err := s.Token(context.Background())
	require.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.NotErrorIs(t, err, transport.ErrAuthExpired)
}

func TestService_Logout(t *testing.T) {
	store := memoryAuthStorage()
	require.NoError(t, store.SaveAuth(context.Background(), &storage.AuthData{Token: "tok"}))
	s := newTestService(&APIClientMock{}, store)

	ok, err := s.IsAuthenticated(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Logout(context.Background()))

	ok, err = s.IsAuthenticated(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Token(context.Background())
	assert.ErrorIs(t, err, transport.ErrAuthExpired)
}

func TestTokenExpiry(t *testing.T) {
	exp, err := tokenExpiry(signedToken(t, testNow))
	require.NoError(t, err)
	assert.Equal(t, testNow.Unix(), exp)

	exp, err = tokenExpiry("not-a-jwt")
	require.NoError(t, err)
	assert.Zero(t, exp)
}
