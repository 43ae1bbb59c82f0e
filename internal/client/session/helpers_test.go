package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/flowsync/internal/client/storage"
	"github.com/iudanet/flowsync/internal/client/transport"
	"github.com/iudanet/flowsync/internal/models"
	"github.com/iudanet/flowsync/internal/server/relay"
)

const testDocument = "s1-main.go"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRelay настоящий relay-хаб за httptest-сервером, который можно
// "отключать" от сети.
type testRelay struct {
	hub     *relay.Hub
	server  *httptest.Server
	conns   map[*websocket.Conn]struct{}
	expires time.Duration
	mu      sync.Mutex
	offline bool
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()

	r := &testRelay{
		hub:   relay.NewHub(relay.Config{}, nil, nil, nil, discardLogger()),
		conns: make(map[*websocket.Conn]struct{}),
	}
	r.hub.Start()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room}", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		offline, expires := r.offline, r.expires
		r.mu.Unlock()
		if offline {
			http.Error(w, "offline", http.StatusServiceUnavailable)
			return
		}
		if req.URL.Query().Get("token") == "" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.track(conn, true)
		defer r.track(conn, false)

		id := relay.Identity{Subject: "tester"}
		if expires > 0 {
			id.ExpiresAt = time.Now().Add(expires)
		}
		_ = r.hub.Serve(req.Context(), req.PathValue("room"), conn, id)
	})
	r.server = httptest.NewServer(mux)

	t.Cleanup(r.server.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.hub.Close(ctx)
	})
	return r
}

func (r *testRelay) url() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"
}

func (r *testRelay) track(conn *websocket.Conn, add bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if add {
		r.conns[conn] = struct{}{}
	} else {
		delete(r.conns, conn)
	}
}

// setOffline отклоняет новые подключения и, при offline, рвет текущие.
func (r *testRelay) setOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.offline = offline
	if !offline {
		return
	}
	for conn := range r.conns {
		_ = conn.Close()
	}
}

func (r *testRelay) setTokenLifetime(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expires = d
}

func (r *testRelay) roomLength(room string) int {
	info, err := r.hub.RoomInfo(context.Background(), room)
	if err != nil {
		return -1
	}
	return info.TextLength
}

func testOptions(url, replica string, store storage.DocumentStorage) Options {
	return Options{
		Tokens:    transport.StaticToken("test-token"),
		Documents: store,
		Logger:    discardLogger(),
		ReplicaID: replica,
		Presence:  models.Presence{Name: replica, Color: "#336699"},
		Transport: transport.Config{
			URL:              url,
			DialTimeout:      time.Second,
			HandshakeTimeout: 2 * time.Second,
			InitialBackoff:   10 * time.Millisecond,
			MaxBackoff:       50 * time.Millisecond,
		},
		SweepInterval: 20 * time.Millisecond,
	}
}

func newTestCoordinator(t *testing.T, url, replica string, store storage.DocumentStorage) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(testOptions(url, replica, store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func openSynced(t *testing.T, c *Coordinator, id string) *Handle {
	t.Helper()
	h, err := c.Open(t.Context(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	require.NoError(t, h.WaitSynced(ctx))
	return h
}

// waitText ждет, пока текст документа не станет want.
func waitText(t *testing.T, h *Handle, want string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()

	for text := range h.Texts(ctx) {
		if text == want {
			return
		}
	}
	t.Fatalf("text never became %q, last %q", want, h.Text())
}

// waitPeers ждет набора участников, удовлетворяющего ok.
func waitPeers(t *testing.T, h *Handle, ok func([]models.Peer) bool) []models.Peer {
	t.Helper()
	sub := h.SubscribePeers()
	defer sub.Unsubscribe()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case peers, open := <-sub.C:
			require.True(t, open, "peers subscription closed")
			if ok(peers) {
				return peers
			}
		case <-timeout:
			t.Fatalf("peers condition not met, last %+v", h.Peers())
		}
	}
}

// waitStatus ждет состояния сессии, удовлетворяющего ok.
func waitStatus(t *testing.T, h *Handle, ok func(Status) bool) Status {
	t.Helper()
	sub := h.SubscribeStatus()
	defer sub.Unsubscribe()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case st, open := <-sub.C:
			require.True(t, open, "status subscription closed")
			if ok(st) {
				return st
			}
		case <-timeout:
			t.Fatalf("status condition not met, last %+v", h.Status())
		}
	}
}

func findPeer(peers []models.Peer, replica string) (models.Peer, bool) {
	for _, p := range peers {
		if p.Replica == replica {
			return p, true
		}
	}
	return models.Peer{}, false
}
