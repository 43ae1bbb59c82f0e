package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/flowsync/internal/crdt"
	"github.com/iudanet/flowsync/internal/models"
	"github.com/iudanet/flowsync/internal/protocol"
	"github.com/iudanet/flowsync/internal/server/storage"
)

func roomLength(hub *Hub, room string, length int) func() bool {
	return func() bool {
		info, err := hub.RoomInfo(context.Background(), room)
		return err == nil && info.TextLength == length
	}
}

func TestHub_Convergence(t *testing.T) {
	hub, server := newTestHub(t, Config{}, nil, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()
	alice.insert(0, "hello")
	require.Eventually(t, roomLength(hub, testRoom, 5), 2*time.Second, 10*time.Millisecond)

	// Опоздавший участник получает состояние рукопожатием
	bob := dial(t, server, testRoom, "bob", time.Time{})
	bob.sync()
	assert.Equal(t, "hello", bob.doc.Text())

	bob.delete(0, 1)
	alice.expect(protocol.KindUpdate)

	assert.Equal(t, "ello", alice.doc.Text())
	assert.Equal(t, "ello", bob.doc.Text())
	require.Eventually(t, roomLength(hub, testRoom, 4), 2*time.Second, 10*time.Millisecond)

	info, err := hub.RoomInfo(t.Context(), testRoom)
	require.NoError(t, err)
	assert.True(t, info.Loaded)
	require.Len(t, info.Members, 2)
	assert.Equal(t, "alice", info.Members[0].Subject)
	assert.Equal(t, "BOB", info.Members[1].Name)
	assert.Equal(t, 1, hub.Rooms())
}

func TestHub_ConcurrentInserts(t *testing.T) {
	hub, server := newTestHub(t, Config{}, nil, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()
	bob := dial(t, server, testRoom, "bob", time.Time{})
	bob.sync()

	alice.insert(0, "A")
	bob.insert(0, "B")
	alice.expect(protocol.KindUpdate)
	bob.expect(protocol.KindUpdate)

	assert.Equal(t, alice.doc.Text(), bob.doc.Text())
	assert.Len(t, alice.doc.Text(), 2)
	require.Eventually(t, roomLength(hub, testRoom, 2), 2*time.Second, 10*time.Millisecond)
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	hub, server := newTestHub(t, Config{}, nil, nil, nil)

	alice := dial(t, server, "s1-a.go", "alice", time.Time{})
	alice.sync()
	bob := dial(t, server, "s1-b.go", "bob", time.Time{})
	bob.sync()

	alice.insert(0, "only a")
	require.Eventually(t, roomLength(hub, "s1-a.go", 6), 2*time.Second, 10*time.Millisecond)

	info, err := hub.RoomInfo(t.Context(), "s1-b.go")
	require.NoError(t, err)
	assert.Equal(t, 0, info.TextLength)
	assert.Equal(t, 2, hub.Rooms())
}

func TestHub_Awareness(t *testing.T) {
	hub, server := newTestHub(t, Config{}, nil, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()
	alice.send(protocol.NewAwareness(protocol.AwarenessPayload{
		Replica: "replica-alice",
		Clock:   1,
		State:   &models.Presence{Name: "Alice", Color: "#ff0000", Cursor: &models.Cursor{Anchor: 1, Head: 1}},
	}))

	// Участник привязывается к реплике первым сообщением присутствия
	require.Eventually(t, func() bool {
		info, err := hub.RoomInfo(context.Background(), testRoom)
		return err == nil && len(info.Members) == 1 && info.Members[0].Replica == "replica-alice"
	}, 2*time.Second, 10*time.Millisecond)

	bob := dial(t, server, testRoom, "bob", time.Time{})
	bob.sync()
	require.Contains(t, bob.aware, "replica-alice", "Known presence is sent on join")
	assert.Equal(t, "Alice", bob.aware["replica-alice"].State.Name)

	bob.send(protocol.NewAwareness(protocol.AwarenessPayload{
		Replica: "replica-bob",
		Clock:   1,
		State:   &models.Presence{Name: "Bob"},
	}))
	p, err := alice.expect(protocol.KindAwareness).Awareness()
	require.NoError(t, err)
	assert.Equal(t, "replica-bob", p.Replica)

	// Уход участника рассылается как удаление его состояния
	bob.leave()
	p, err = alice.expect(protocol.KindAwareness).Awareness()
	require.NoError(t, err)
	assert.Equal(t, "replica-bob", p.Replica)
	assert.True(t, p.Removed())
	assert.Equal(t, uint64(2), p.Clock)
}

func TestHub_PersistsAndRestores(t *testing.T) {
	store := memoryStore()
	hub, server := newTestHub(t, Config{}, store, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()
	alice.insert(0, "abc")
	require.Eventually(t, roomLength(hub, testRoom, 3), 2*time.Second, 10*time.Millisecond)

	// Последний участник ушел: снимок сохранен, комната выгружена
	alice.leave()
	require.Eventually(t, func() bool { return hub.Rooms() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Len(t, store.SaveSnapshotCalls(), 1)

	info, err := hub.RoomInfo(t.Context(), testRoom)
	require.NoError(t, err)
	assert.False(t, info.Loaded)
	assert.Equal(t, 3, info.TextLength)
	assert.Empty(t, info.Members)

	// Новый узел с тем же хранилищем восстанавливает комнату
	_, restarted := newTestHub(t, Config{NodeID: "second"}, store, nil, nil)
	carol := dial(t, restarted, testRoom, "carol", time.Time{})
	carol.sync()
	assert.Equal(t, "abc", carol.doc.Text())
}

func TestHub_PersistsOnlyChangedRooms(t *testing.T) {
	store := memoryStore()
	hub, server := newTestHub(t, Config{}, store, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()

	hub.PersistAll()
	assert.Empty(t, store.SaveSnapshotCalls(), "Untouched room is not saved")

	alice.insert(0, "x")
	require.Eventually(t, roomLength(hub, testRoom, 1), 2*time.Second, 10*time.Millisecond)
	hub.PersistAll()
	hub.PersistAll()
	assert.Len(t, store.SaveSnapshotCalls(), 1)
}

func TestHub_PersistLoop(t *testing.T) {
	store := memoryStore()
	hub, server := newTestHub(t, Config{PersistInterval: 20 * time.Millisecond}, store, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()
	alice.insert(0, "tick")

	require.Eventually(t, func() bool { return len(store.SaveSnapshotCalls()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Rooms(), "Periodic save keeps the room loaded")
}

func TestHub_UnreadableSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := &storage.SnapshotStorageMock{
		LoadSnapshotFunc: func(ctx context.Context, room string) (*storage.Snapshot, error) {
			return &storage.Snapshot{Room: room, Data: []byte{0xff, 0xff, 0xff}}, nil
		},
		SaveSnapshotFunc: func(ctx context.Context, snapshot *storage.Snapshot) error {
			return nil
		},
	}
	_, server := newTestHub(t, Config{}, store, nil, NewMetrics(reg))

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()
	assert.Empty(t, alice.doc.Text())
	assert.Equal(t, 1.0, counterValue(t, reg, "flowsync_relay_dropped_messages_total", "reason", "snapshot"))
}

func TestHub_StoreFailureRejectsJoin(t *testing.T) {
	store := &storage.SnapshotStorageMock{
		LoadSnapshotFunc: func(ctx context.Context, room string) (*storage.Snapshot, error) {
			return nil, errors.New("database is locked")
		},
	}
	hub, server := newTestHub(t, Config{}, store, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	err := alice.readClose()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
	assert.Equal(t, 0, hub.Rooms())
}

func TestHub_DropsMalformedMessages(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, server := newTestHub(t, Config{}, nil, nil, NewMetrics(reg))

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()

	require.NoError(t, alice.conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0x01}))
	alice.send(protocol.Message{Kind: protocol.KindUpdate, Payload: []byte{0x0a, 0xff}})
	alice.send(protocol.Message{Kind: protocol.KindSyncStep1, Payload: []byte{0x0a}})
	require.NoError(t, alice.conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	// Соединение живо и продолжает обслуживаться
	alice.send(protocol.NewSyncStep1(alice.doc.StateVector()))
	alice.expect(protocol.KindSyncStep2)

	assert.Equal(t, 1.0, counterValue(t, reg, "flowsync_relay_dropped_messages_total", "reason", "malformed"))
	assert.Equal(t, 2.0, counterValue(t, reg, "flowsync_relay_dropped_messages_total", "reason", "invalid"))
}

func TestHub_TokenExpiry(t *testing.T) {
	_, server := newTestHub(t, Config{}, nil, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Now().Add(300*time.Millisecond))
	alice.sync()

	err := alice.readClose()
	assert.True(t, websocket.IsCloseError(err, CloseAuthExpired), "got %v", err)
}

func TestHub_Close(t *testing.T) {
	store := memoryStore()
	hub, server := newTestHub(t, Config{}, store, nil, nil)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()
	alice.insert(0, "bye")
	require.Eventually(t, roomLength(hub, testRoom, 3), 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close(t.Context()))
	require.NoError(t, hub.Close(t.Context()), "Close is idempotent")

	err := alice.readClose()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	snapshot, err := store.LoadSnapshotFunc(t.Context(), testRoom)
	require.NoError(t, err)
	doc := crdt.NewText("check")
	require.NoError(t, doc.Restore(snapshot.Data))
	assert.Equal(t, "bye", doc.Text())

	// Новые участники после остановки не принимаются
	bob := dial(t, server, testRoom, "bob", time.Time{})
	err = bob.readClose()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}

func TestHub_RoomInfoNotFound(t *testing.T) {
	hub := NewHub(Config{}, nil, nil, nil, discardLogger())
	_, err := hub.RoomInfo(t.Context(), "nothing")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	hub = NewHub(Config{}, memoryStore(), nil, nil, discardLogger())
	_, err = hub.RoomInfo(t.Context(), "nothing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestHub_RemoteMessages(t *testing.T) {
	var (
		mu     sync.Mutex
		handle func(room string, data []byte)
	)
	broker := &BrokerMock{
		SubscribeFunc: func(ctx context.Context, h func(room string, data []byte)) error {
			mu.Lock()
			handle = h
			mu.Unlock()
			<-ctx.Done()
			return nil
		},
		PublishFunc: func(ctx context.Context, room string, data []byte) error {
			return nil
		},
	}
	hub, server := newTestHub(t, Config{}, nil, broker, nil)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handle != nil
	}, 2*time.Second, 10*time.Millisecond)

	alice := dial(t, server, testRoom, "alice", time.Time{})
	alice.sync()

	// Локальное изменение уходит в брокер
	alice.insert(0, "hi")
	require.Eventually(t, func() bool { return len(broker.PublishCalls()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, testRoom, broker.PublishCalls()[0].Room)

	// Изменение с другого узла доходит до участников
	remote := crdt.NewText("replica-remote")
	_, err := remote.ApplyUpdate(alice.doc.Diff(nil))
	require.NoError(t, err)
	u, err := remote.Insert(2, "!")
	require.NoError(t, err)
	msg, err := protocol.NewUpdate(u)
	require.NoError(t, err)

	mu.Lock()
	h := handle
	mu.Unlock()
	h(testRoom, msg.Encode())
	h("s9-unloaded", msg.Encode())
	h(testRoom, []byte("garbage"))

	alice.expect(protocol.KindUpdate)
	assert.Equal(t, "hi!", alice.doc.Text())
	require.Eventually(t, roomLength(hub, testRoom, 3), 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Rooms(), "Remote messages do not load rooms")
	assert.Len(t, broker.PublishCalls(), 1, "Remote messages are not published back")
}
