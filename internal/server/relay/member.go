package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Identity владелец соединения по данным токена.
type Identity struct {
	ExpiresAt time.Time // нулевое значение - без ограничения
	Subject   string
	Name      string
}

// member одно websocket-соединение в комнате.
type member struct {
	conn     *websocket.Conn
	send     chan []byte
	quit     chan struct{}
	identity Identity
	replica  string // room: определяется первым сообщением присутствия
	quitOnce sync.Once
}

func newMember(conn *websocket.Conn, id Identity, buffer int) *member {
	return &member{
		conn:     conn,
		identity: id,
		send:     make(chan []byte, buffer),
		quit:     make(chan struct{}),
	}
}

// enqueue ставит сообщение в очередь без блокировки. Переполнение очереди
// отключает участника: после переподключения он догонит состояние рукопожатием.
func (m *member) enqueue(data []byte) {
	select {
	case <-m.quit:
	case m.send <- data:
	default:
		m.kick()
	}
}

func (m *member) kick() {
	m.quitOnce.Do(func() { close(m.quit) })
}
