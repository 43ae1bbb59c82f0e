package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/flowsync/internal/server/relay"
	"github.com/iudanet/flowsync/pkg/api"
)

func TestRoomsHandler_Room(t *testing.T) {
	tests := []struct {
		name       string
		room       string
		infoErr    error
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "loaded room",
			room:       "s1-main.go",
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "unknown room",
			room:       "s1-missing",
			infoErr:    relay.ErrRoomNotFound,
			wantStatus: http.StatusNotFound,
			wantCalls:  1,
		},
		{
			name:       "storage failure",
			room:       "s1-broken",
			infoErr:    errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
		{
			name:       "invalid room id",
			room:       "bad room",
			wantStatus: http.StatusBadRequest,
			wantCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relayMock := &RelayMock{
				RoomInfoFunc: func(ctx context.Context, room string) (*api.RoomInfo, error) {
					if tt.infoErr != nil {
						return nil, tt.infoErr
					}
					return &api.RoomInfo{
						Room:        room,
						Members:     []api.MemberInfo{{Replica: "r1", Subject: "user-1", Name: "Alice"}},
						StateVector: map[string]uint64{"r1": 5},
						TextLength:  5,
						Loaded:      true,
					}, nil
				},
			}
			handler := NewRoomsHandler(setupTestLogger(), relayMock)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/x", nil)
			req.SetPathValue("room", tt.room)
			w := httptest.NewRecorder()

			handler.Room(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Len(t, relayMock.RoomInfoCalls(), tt.wantCalls)

			if tt.wantStatus == http.StatusOK {
				var info api.RoomInfo
				require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
				assert.Equal(t, tt.room, info.Room)
				assert.Equal(t, 5, info.TextLength)
				require.Len(t, info.Members, 1)
				assert.Equal(t, "Alice", info.Members[0].Name)
				assert.Equal(t, tt.room, relayMock.RoomInfoCalls()[0].Room)
				return
			}
			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotContains(t, resp.Message, "disk on fire")
		})
	}
}
