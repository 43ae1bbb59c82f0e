package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/flowsync/internal/server/relay"
	"github.com/iudanet/flowsync/internal/validation"
)

// RoomsHandler отдает сведения о комнатах relay.
type RoomsHandler struct {
	logger *slog.Logger
	relay  Relay
}

// NewRoomsHandler создает handler.
func NewRoomsHandler(logger *slog.Logger, relay Relay) *RoomsHandler {
	return &RoomsHandler{logger: logger, relay: relay}
}

// Room обрабатывает GET /api/v1/rooms/{room}
func (h *RoomsHandler) Room(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := r.PathValue("room")

	if err := validation.ValidateDocumentID(roomID); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.relay.RoomInfo(ctx, roomID)
	if err != nil {
		if errors.Is(err, relay.ErrRoomNotFound) {
			sendError(h.logger, w, "room not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get room info", slog.String("room", roomID), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, info, http.StatusOK)
}
