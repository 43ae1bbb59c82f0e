package transport

import "errors"

var (
	// ErrAuthExpired сервер отклонил токен. Повторных попыток не будет:
	// вызывающая сторона должна переподключиться с новым токеном.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrNotConnected отправка без установленного соединения.
	ErrNotConnected = errors.New("transport not connected")

	// ErrSendBufferFull очередь отправки переполнена.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrTransport временная сетевая ошибка, после которой выполняется переподключение.
	ErrTransport = errors.New("transport error")

	// ErrHandshakeTimeout рукопожатие синхронизации не завершилось вовремя.
	ErrHandshakeTimeout = errors.New("sync handshake timed out")
)
