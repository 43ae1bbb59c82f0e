package handlers

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/iudanet/flowsync/internal/server/relay"
	"github.com/iudanet/flowsync/pkg/api"
)

//go:generate moq -out relay_mock.go . Relay

// Relay операции хаба ретрансляции, нужные HTTP-обработчикам.
type Relay interface {
	// Rooms число загруженных комнат
	Rooms() int
	// RoomInfo сведения о комнате или relay.ErrRoomNotFound
	RoomInfo(ctx context.Context, room string) (*api.RoomInfo, error)
	// Serve обслуживает websocket участника до закрытия соединения
	Serve(ctx context.Context, room string, conn *websocket.Conn, id relay.Identity) error
}

var _ Relay = (*relay.Hub)(nil)
