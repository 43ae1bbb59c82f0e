package transport

import "github.com/iudanet/flowsync/internal/protocol"

// State состояние соединения.
type State int

const (
	// StateDisconnected соединение закрыто и переподключения не будет.
	StateDisconnected State = iota
	// StateConnecting идет установка соединения или рукопожатие.
	StateConnecting
	// StateSynced рукопожатие завершено, обновления доставляются в реальном времени.
	StateSynced
	// StateReconnecting соединение потеряно, ожидание перед новой попыткой.
	StateReconnecting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSynced:
		return "synced"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// EventKind тип события транспорта.
type EventKind int

const (
	// EventState изменилось состояние соединения.
	EventState EventKind = iota + 1
	// EventOpen websocket открыт, можно начинать рукопожатие.
	EventOpen
	// EventMessage получено сообщение.
	EventMessage
)

// Event событие транспорта. Для EventState заполнены State и, при ошибке, Err.
type Event struct {
	Err     error
	Message protocol.Message
	Kind    EventKind
	State   State
}
