// Package config загружает конфигурацию сервера и клиента:
// YAML-файл, переопределения из окружения, значения по умолчанию, проверка.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid config")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// hostname_port не принимает порт 0
	_ = v.RegisterValidation("listen_addr", func(fl validator.FieldLevel) bool {
		return isListenAddr(v, fl.Field().String())
	})
	return v
}

// isListenAddr принимает host:port для net.Listen, включая ":8080" и порт 0.
func isListenAddr(v *validator.Validate, addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return false
	}
	if host == "" || net.ParseIP(host) != nil {
		return true
	}
	return v.Var(host, "hostname_rfc1123") == nil
}

// ServerConfig конфигурация relay-сервера.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required,listen_addr"`
	LogLevel        string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	DatabasePath    string        `yaml:"database_path" validate:"required"`
	AllowedOrigins  []string      `yaml:"allowed_origins" validate:"dive,required"`
	JWT             JWTConfig     `yaml:"jwt"`
	Redis           RedisConfig   `yaml:"redis"`
	Relay           RelayConfig   `yaml:"relay"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
	Metrics         MetricsConfig `yaml:"metrics"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// JWTConfig параметры токенов доступа.
type JWTConfig struct {
	Secret   string        `yaml:"secret" validate:"required,min=32"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl" validate:"gt=0"`
}

// RedisConfig подключение к Redis для рассылки между узлами.
// Пустой Addr - узел работает один.
type RedisConfig struct {
	Addr          string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password      string `yaml:"password"`
	ChannelPrefix string `yaml:"channel_prefix"`
	DB            int    `yaml:"db" validate:"gte=0"`
}

// RelayConfig параметры хаба комнат.
type RelayConfig struct {
	NodeID          string        `yaml:"node_id"`
	SendBuffer      int           `yaml:"send_buffer" validate:"gte=0"`
	MaxMessageSize  int64         `yaml:"max_message_size" validate:"gte=0"`
	PingInterval    time.Duration `yaml:"ping_interval" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	PersistInterval time.Duration `yaml:"persist_interval" validate:"gte=0"`
}

// RateLimit ограничение запросов с одного адреса.
type RateLimit struct {
	Requests int           `yaml:"requests" validate:"gt=0"`
	Window   time.Duration `yaml:"window" validate:"gt=0"`
}

// MetricsConfig публикация метрик Prometheus.
type MetricsConfig struct {
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
	Enabled bool   `yaml:"enabled"`
}

// ClientConfig конфигурация CLI-клиента.
type ClientConfig struct {
	ServerURL string `yaml:"server_url" validate:"required,url"`
	DBPath    string `yaml:"db_path" validate:"required"`
	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Name      string `yaml:"name" validate:"omitempty,max=64"`
	Color     string `yaml:"color" validate:"omitempty,hexcolor"`
}

// LoadServer читает конфигурацию сервера. Пустой path - только окружение
// и значения по умолчанию.
func LoadServer(path string) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := readFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.PopulateDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient читает конфигурацию клиента.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := readFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.PopulateDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Validate проверяет теги validate.
func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate проверяет теги validate.
func (c *ClientConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *ServerConfig) applyEnv(lookup lookupFunc) {
	setString(lookup, "FLOWSYNC_ADDRESS", &c.Address)
	setString(lookup, "LOG_LEVEL", &c.LogLevel)
	setString(lookup, "FLOWSYNC_DATABASE_PATH", &c.DatabasePath)
	setString(lookup, "FLOWSYNC_JWT_SECRET", &c.JWT.Secret)
	setString(lookup, "FLOWSYNC_JWT_ISSUER", &c.JWT.Issuer)
	setDuration(lookup, "FLOWSYNC_JWT_TTL", &c.JWT.TokenTTL)
	setString(lookup, "FLOWSYNC_REDIS_ADDR", &c.Redis.Addr)
	setString(lookup, "FLOWSYNC_REDIS_PASSWORD", &c.Redis.Password)
	setString(lookup, "FLOWSYNC_NODE_ID", &c.Relay.NodeID)
	if v, ok := lookup("FLOWSYNC_METRICS_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
}

func (c *ClientConfig) applyEnv(lookup lookupFunc) {
	setString(lookup, "FLOWSYNC_SERVER_URL", &c.ServerURL)
	setString(lookup, "FLOWSYNC_DB_PATH", &c.DBPath)
	setString(lookup, "LOG_LEVEL", &c.LogLevel)
	setString(lookup, "FLOWSYNC_NAME", &c.Name)
	setString(lookup, "FLOWSYNC_COLOR", &c.Color)
}

func setString(lookup lookupFunc, key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(lookup lookupFunc, key string, dst *time.Duration) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
