// Package logging создает slog-логгеры сервера и CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel переменная окружения с уровнем логирования.
const EnvLevel = "LOG_LEVEL"

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel разбирает уровень логирования. Пустая строка - info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return slog.LevelInfo, nil
	}
	level, ok := levels[s]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Level возвращает уровень из LOG_LEVEL, иначе fallback.
func Level(fallback string) slog.Level {
	if v := os.Getenv(EnvLevel); v != "" {
		if level, err := ParseLevel(v); err == nil {
			return level
		}
	}
	level, _ := ParseLevel(fallback)
	return level
}

// NewServer JSON-логгер сервера с атрибутом node_id.
func NewServer(w io.Writer, level slog.Level, nodeID string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	if nodeID != "" {
		logger = logger.With("node_id", nodeID)
	}
	return logger
}

// NewCLI текстовый логгер клиента.
func NewCLI(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
