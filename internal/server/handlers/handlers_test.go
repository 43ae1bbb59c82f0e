package handlers

import (
	"io"
	"log/slog"
	"time"
)

// setupTestLogger создает логгер, который ничего не выводит
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testJWTConfig = JWTConfig{
	Secret:   []byte("test-secret-key"),
	Issuer:   "flowsync-test",
	TokenTTL: 15 * time.Minute,
}
