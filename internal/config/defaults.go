package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var defaultServer = ServerConfig{
	Address:         "localhost:8080",
	LogLevel:        "info",
	DatabasePath:    "flowsync-server.db",
	ShutdownTimeout: 10 * time.Second,
	JWT: JWTConfig{
		Issuer:   "flowsync",
		TokenTTL: 24 * time.Hour,
	},
	RateLimit: RateLimit{
		Requests: 100,
		Window:   time.Minute,
	},
	Metrics: MetricsConfig{
		Path: "/metrics",
	},
}

var defaultClient = ClientConfig{
	ServerURL: "http://localhost:8080",
	DBPath:    "flowsync-client.db",
	LogLevel:  "warn",
}

// PopulateDefaults заполняет незаданные поля.
func (c *ServerConfig) PopulateDefaults() {
	if c.Address == "" {
		c.Address = defaultServer.Address
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultServer.LogLevel
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaultServer.DatabasePath
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultServer.ShutdownTimeout
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = defaultServer.JWT.Issuer
	}
	if c.JWT.TokenTTL == 0 {
		c.JWT.TokenTTL = defaultServer.JWT.TokenTTL
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = defaultServer.RateLimit.Requests
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = defaultServer.RateLimit.Window
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultServer.Metrics.Path
	}
	if c.Relay.NodeID == "" {
		c.Relay.NodeID = uuid.NewString()
	}
}

// PopulateDefaults заполняет незаданные поля.
func (c *ClientConfig) PopulateDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = defaultClient.ServerURL
	}
	if c.DBPath == "" {
		c.DBPath = defaultClient.DBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultClient.LogLevel
	}
}

// WebSocketURL адрес websocket-эндпоинта relay для HTTP-адреса сервера.
func (c *ClientConfig) WebSocketURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}
