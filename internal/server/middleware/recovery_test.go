package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/flowsync/pkg/api"
)

func TestRecovery_ResponseState(t *testing.T) {
	tests := []struct {
		handler    http.HandlerFunc
		name       string
		message    string
		wantBody   string
		wantError  *api.ErrorResponse
		wantStatus int
	}{
		{
			name: "room info without panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"room":"s1-main.go"}`))
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"room":"s1-main.go"}`,
		},
		{
			name: "nil room replica",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var replicas map[string]int
				replicas["s1-main.go"]++
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  &api.ErrorResponse{Error: "Internal Server Error", Message: "internal server error"},
		},
		{
			name: "error value with custom message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic(errors.New("snapshot store closed"))
			},
			message:    "relay is restarting",
			wantStatus: http.StatusInternalServerError,
			wantError:  &api.ErrorResponse{Error: "Internal Server Error", Message: "relay is restarting"},
		},
		{
			name: "panic after update was streamed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte("partial"))
				panic("room closed mid-response")
			},
			wantStatus: http.StatusAccepted,
			wantBody:   "partial",
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := RecoveryMiddleware(logger)
			if tt.message != "" {
				mw = RecoveryWithCustomError(logger, tt.message)
			}

			w := httptest.NewRecorder()
			mw(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/s1-main.go", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError == nil {
				assert.Equal(t, tt.wantBody, w.Body.String())
				return
			}
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var got api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, *tt.wantError, got)
		})
	}
}

func TestRecovery_LogsRequestAndStack(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("broken awareness payload")
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws/s1-main.go", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "Panic recovered", record["msg"])
	assert.Equal(t, "broken awareness payload", record["error"])
	assert.Equal(t, http.MethodGet, record["method"])
	assert.Equal(t, "/ws/s1-main.go", record["path"])
	assert.Equal(t, "10.0.0.7:51234", record["remote_addr"])
	assert.Contains(t, record["stack"], "goroutine")
}

// lockedBuffer буфер логов, который пишет горутина сервера.
type lockedBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Contains(b.buf.Bytes(), []byte(s))
}

func TestRecovery_HijackedConnection(t *testing.T) {
	logBuf := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuf, nil))

	srv := httptest.NewServer(RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "websocket upgrade needs http.Hijacker", http.StatusInternalServerError)
			return
		}

		conn, brw, err := hj.Hijack()
		if err != nil {
			return
		}
		_, _ = brw.WriteString("HTTP/1.1 204 No Content\r\nConnection: close\r\n\r\n")
		_ = brw.Flush()
		_ = conn.Close()
		panic("member goroutine crashed")
	})))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/ws/s1-main.go")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	// 500 поверх захваченного соединения не пишется
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Eventually(t, func() bool {
		return logBuf.Contains("member goroutine crashed")
	}, time.Second, 10*time.Millisecond)
}

func TestRecovery_AbortHandlerPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws/s1-main.go", nil))
	})
}
