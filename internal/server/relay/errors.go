package relay

import "errors"

var (
	// ErrRoomNotFound комната не загружена и не сохранена.
	ErrRoomNotFound = errors.New("room not found")

	// ErrHubClosed подключение к остановленному хабу.
	ErrHubClosed = errors.New("relay hub closed")

	errTokenExpired = errors.New("token expired")
	errSlowConsumer = errors.New("member send buffer overflow")
	errMemberLeft   = errors.New("member left")
)
