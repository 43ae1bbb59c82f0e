package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/flowsync/pkg/api"
)

// WhoAmIHandler сообщает клиенту, кому выдан его токен.
// Клиент вызывает его при login, чтобы проверить токен до сохранения.
type WhoAmIHandler struct {
	logger *slog.Logger
}

// NewWhoAmIHandler создает handler.
func NewWhoAmIHandler(logger *slog.Logger) *WhoAmIHandler {
	return &WhoAmIHandler{logger: logger}
}

// WhoAmI обрабатывает GET /api/v1/whoami (за AuthMiddleware)
func (h *WhoAmIHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaims(r.Context())
	if !ok {
		sendError(h.logger, w, "missing token", http.StatusUnauthorized)
		return
	}

	resp := api.WhoAmIResponse{
		Subject: claims.Subject,
		Name:    claims.Name,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}
