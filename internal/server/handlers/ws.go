package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/iudanet/flowsync/internal/server/relay"
	"github.com/iudanet/flowsync/internal/validation"
)

// WSHandler переводит запрос в websocket и передает соединение хабу.
type WSHandler struct {
	logger   *slog.Logger
	relay    Relay
	upgrader websocket.Upgrader
}

// NewWSHandler создает handler. allowedOrigins ограничивает заголовок Origin
// браузерных клиентов; "*" разрешает любой. Пустой список оставляет проверку
// gorilla по умолчанию (Origin совпадает с Host или отсутствует).
func NewWSHandler(logger *slog.Logger, relay Relay, allowedOrigins []string) *WSHandler {
	h := &WSHandler{
		logger: logger,
		relay:  relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = checkOrigin(allowedOrigins)
	}
	return h
}

// Serve обрабатывает GET /ws/{room} (за AuthMiddleware)
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := r.PathValue("room")

	if err := validation.ValidateDocumentID(roomID); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	claims, ok := GetClaims(ctx)
	if !ok {
		sendError(h.logger, w, "missing token", http.StatusUnauthorized)
		return
	}

	if !websocket.IsWebSocketUpgrade(r) {
		sendError(h.logger, w, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	// При ошибке Upgrade сам отвечает клиенту
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	id := relay.Identity{Subject: claims.Subject, Name: claims.Name}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := h.relay.Serve(ctx, roomID, conn, id); err != nil {
		h.logger.WarnContext(ctx, "websocket session ended with error",
			slog.String("room", roomID),
			slog.String("subject", claims.Subject),
			slog.Any("error", err))
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host) || slices.Contains(allowed, u.Host)
	}
}
