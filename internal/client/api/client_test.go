package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/flowsync/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Rooms: 2})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Rooms)
}

func TestClient_WhoAmI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/whoami", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(api.WhoAmIResponse{Subject: "alice", Name: "Alice", ExpiresAt: 1700000000})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.WhoAmI(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Subject)
	assert.Equal(t, int64(1700000000), resp.ExpiresAt)

	_, err = client.WhoAmI(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Room(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Идентификатор комнаты экранируется в пути
		assert.Equal(t, "/api/v1/rooms/s1%2Ff1", r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(api.RoomInfo{
			Room:       "s1/f1",
			TextLength: 5,
			Members:    []api.MemberInfo{{Replica: "r1", Subject: "alice"}},
			Loaded:     true,
		})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Room(context.Background(), "token", "s1/f1")
	require.NoError(t, err)
	assert.Equal(t, 5, resp.TextLength)
	require.Len(t, resp.Members, 1)
	assert.Equal(t, "alice", resp.Members[0].Subject)
}

func TestClient_ServerError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
		status  int
	}{
		{
			name:    "json error",
			status:  http.StatusNotFound,
			body:    `{"error":"room not found"}`,
			wantErr: "server error (404): room not found",
		},
		{
			name:    "plain error",
			status:  http.StatusInternalServerError,
			body:    "boom",
			wantErr: "request failed with status 500: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Health(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}
