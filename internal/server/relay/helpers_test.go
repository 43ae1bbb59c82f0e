package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/flowsync/internal/crdt"
	"github.com/iudanet/flowsync/internal/protocol"
	"github.com/iudanet/flowsync/internal/server/storage"
)

const testRoom = "s1-main.go"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHub запускает хаб и httptest-сервер, который передает websocket
// хабу. Identity берется из параметров sub, name и exp (unix ms).
func newTestHub(t *testing.T, cfg Config, store storage.SnapshotStorage, broker Broker, metrics *Metrics) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(cfg, store, broker, metrics, discardLogger())
	hub.Start()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room}", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := Identity{Subject: r.URL.Query().Get("sub"), Name: r.URL.Query().Get("name")}
		if exp := r.URL.Query().Get("exp"); exp != "" {
			ms, _ := strconv.ParseInt(exp, 10, 64)
			id.ExpiresAt = time.UnixMilli(ms)
		}
		_ = hub.Serve(r.Context(), r.PathValue("room"), conn, id)
	})
	server := httptest.NewServer(mux)

	// Хаб закрывается раньше сервера
	t.Cleanup(server.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Close(ctx)
	})
	return hub, server
}

// testClient минимальный участник комнаты поверх сырого websocket.
type testClient struct {
	t     *testing.T
	conn  *websocket.Conn
	doc   *crdt.Text
	aware map[string]protocol.AwarenessPayload
}

func dial(t *testing.T, server *httptest.Server, room, subject string, exp time.Time) *testClient {
	t.Helper()

	q := url.Values{"sub": {subject}, "name": {strings.ToUpper(subject)}}
	if !exp.IsZero() {
		q.Set("exp", strconv.FormatInt(exp.UnixMilli(), 10))
	}
	target := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + room + "?" + q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	require.NoError(t, err)
	c := &testClient{
		t:     t,
		conn:  conn,
		doc:   crdt.NewText("replica-" + subject),
		aware: make(map[string]protocol.AwarenessPayload),
	}
	t.Cleanup(func() { _ = conn.Close() })
	return c
}

func (c *testClient) send(msg protocol.Message) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, msg.Encode()))
}

// expect читает сообщения до первого сообщения типа kind. Пропущенные
// обновления и состояния присутствия применяются к клиенту.
func (c *testClient) expect(kind protocol.Kind) protocol.Message {
	c.t.Helper()
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", kind)
		msg, err := protocol.Decode(data)
		require.NoError(c.t, err)

		switch msg.Kind {
		case protocol.KindSyncStep2, protocol.KindUpdate:
			u, err := msg.Update()
			require.NoError(c.t, err)
			_, err = c.doc.ApplyUpdate(u)
			require.NoError(c.t, err)
		case protocol.KindAwareness:
			p, err := msg.Awareness()
			require.NoError(c.t, err)
			if p.Removed() {
				delete(c.aware, p.Replica)
			} else {
				c.aware[p.Replica] = p
			}
		}
		if msg.Kind == kind {
			return msg
		}
	}
}

// sync выполняет рукопожатие: отвечает на SyncStep1 сервера и догоняет его состояние.
func (c *testClient) sync() {
	c.t.Helper()
	sv, err := c.expect(protocol.KindSyncStep1).StateVector()
	require.NoError(c.t, err)

	reply, err := protocol.NewSyncStep2(c.doc.Diff(sv))
	require.NoError(c.t, err)
	c.send(reply)
	c.send(protocol.NewSyncStep1(c.doc.StateVector()))
	c.expect(protocol.KindSyncStep2)
}

func (c *testClient) insert(pos int, text string) {
	c.t.Helper()
	u, err := c.doc.Insert(pos, text)
	require.NoError(c.t, err)
	msg, err := protocol.NewUpdate(u)
	require.NoError(c.t, err)
	c.send(msg)
}

func (c *testClient) delete(pos, length int) {
	c.t.Helper()
	u, err := c.doc.Delete(pos, length)
	require.NoError(c.t, err)
	msg, err := protocol.NewUpdate(u)
	require.NoError(c.t, err)
	c.send(msg)
}

// leave закрывает соединение штатно.
func (c *testClient) leave() {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// readClose читает до закрытия соединения и возвращает ошибку чтения.
func (c *testClient) readClose() error {
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

// memoryStore хранилище снимков в памяти поверх мока.
func memoryStore() *storage.SnapshotStorageMock {
	var (
		mu        sync.Mutex
		snapshots = make(map[string]storage.Snapshot)
	)
	return &storage.SnapshotStorageMock{
		SaveSnapshotFunc: func(ctx context.Context, snapshot *storage.Snapshot) error {
			mu.Lock()
			defer mu.Unlock()
			s := *snapshot
			s.Data = append([]byte(nil), snapshot.Data...)
			snapshots[s.Room] = s
			return nil
		},
		LoadSnapshotFunc: func(ctx context.Context, room string) (*storage.Snapshot, error) {
			mu.Lock()
			defer mu.Unlock()
			s, ok := snapshots[room]
			if !ok {
				return nil, storage.ErrSnapshotNotFound
			}
			return &s, nil
		},
	}
}

// counterValue значение счетчика с меткой label=value из реестра.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
