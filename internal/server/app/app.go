// Package app собирает relay-сервер из конфигурации: хранилище снимков,
// брокер между узлами, хаб комнат, HTTP-маршруты и метрики.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iudanet/flowsync/internal/config"
	"github.com/iudanet/flowsync/internal/server/handlers"
	"github.com/iudanet/flowsync/internal/server/middleware"
	"github.com/iudanet/flowsync/internal/server/relay"
	"github.com/iudanet/flowsync/internal/server/storage/sqlite"
)

// App relay-сервер со всеми зависимостями.
type App struct {
	cfg      *config.ServerConfig
	logger   *slog.Logger
	store    *sqlite.Storage
	broker   *relay.RedisBroker
	hub      *relay.Hub
	limiter  *middleware.RateLimiter
	registry *prometheus.Registry
	handler  http.Handler
}

// New открывает хранилище, подключается к Redis (если задан) и собирает маршруты.
func New(ctx context.Context, cfg *config.ServerConfig, version string, logger *slog.Logger) (*App, error) {
	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var broker relay.Broker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.broker = relay.NewRedisBroker(client, cfg.Relay.NodeID, cfg.Redis.ChannelPrefix, logger)
		broker = a.broker
		logger.Info("Cross-node fan-out enabled", "redis", cfg.Redis.Addr)
	}

	a.hub = relay.NewHub(relay.Config{
		NodeID:          cfg.Relay.NodeID,
		SendBuffer:      cfg.Relay.SendBuffer,
		MaxMessageSize:  cfg.Relay.MaxMessageSize,
		PingInterval:    cfg.Relay.PingInterval,
		WriteTimeout:    cfg.Relay.WriteTimeout,
		PersistInterval: cfg.Relay.PersistInterval,
	}, store, broker, relay.NewMetrics(a.registry), logger)

	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	a.handler = a.routes(version)
	return a, nil
}

func (a *App) routes(version string) http.Handler {
	jwtConfig := a.JWTConfig()
	auth := middleware.AuthMiddleware(a.logger, jwtConfig)

	health := handlers.NewHealthHandler(a.logger, a.hub, version)
	whoami := handlers.NewWhoAmIHandler(a.logger)
	rooms := handlers.NewRoomsHandler(a.logger, a.hub)
	ws := handlers.NewWSHandler(a.logger, a.hub, a.cfg.AllowedOrigins)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", health.Health)
	mux.Handle("GET /api/v1/whoami", auth(http.HandlerFunc(whoami.WhoAmI)))
	mux.Handle("GET /api/v1/rooms/{room}", auth(http.HandlerFunc(rooms.Room)))
	mux.Handle("GET /ws/{room}", auth(http.HandlerFunc(ws.Serve)))

	skip := []string{"/api/v1/health"}
	if a.cfg.Metrics.Enabled {
		mux.Handle("GET "+a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		skip = append(skip, a.cfg.Metrics.Path)
	}

	var h http.Handler = mux
	h = a.limiter.Middleware()(h)
	h = middleware.LoggingWithSkip(a.logger, skip)(h)
	h = middleware.RecoveryMiddleware(a.logger)(h)
	return h
}

// JWTConfig параметры проверки и выпуска токенов.
func (a *App) JWTConfig() handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:   []byte(a.cfg.JWT.Secret),
		Issuer:   a.cfg.JWT.Issuer,
		TokenTTL: a.cfg.JWT.TokenTTL,
	}
}

// Handler корневой HTTP-обработчик.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Hub хаб комнат.
func (a *App) Hub() *relay.Hub {
	return a.hub
}

// Run обслуживает запросы на ln до отмены ctx, затем корректно
// останавливает сервер и хаб.
func (a *App) Run(ctx context.Context, ln net.Listener) error {
	a.hub.Start()

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Relay server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down relay server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	// Websocket-соединения перехвачены и не ждут Shutdown; их закрывает хаб
	var errs []error
	if err := a.hub.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// Close освобождает хранилище, Redis и rate limiter.
func (a *App) Close() error {
	a.limiter.Stop()

	var errs []error
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}
