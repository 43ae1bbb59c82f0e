// Package api содержит JSON-структуры HTTP API relay-сервера.
package api

// HealthResponse ответ GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Rooms   int    `json:"rooms"`
}

// WhoAmIResponse ответ GET /api/v1/whoami: кому выдан предъявленный токен.
type WhoAmIResponse struct {
	Subject   string `json:"subject"`
	Name      string `json:"name,omitempty"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// MemberInfo участник комнаты.
type MemberInfo struct {
	Replica string `json:"replica"`
	Subject string `json:"subject"`
	Name    string `json:"name,omitempty"`
}

// RoomInfo ответ GET /api/v1/rooms/{room}.
type RoomInfo struct {
	Room        string            `json:"room"`
	Members     []MemberInfo      `json:"members"`
	StateVector map[string]uint64 `json:"state_vector"`
	TextLength  int               `json:"text_length"`
	Loaded      bool              `json:"loaded"` // комната в памяти этого узла
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
