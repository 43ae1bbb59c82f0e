// Package transport поддерживает websocket-соединение одного документа
// с relay-сервером: подключение, рукопожатие, переподключение с
// экспоненциальной задержкой и упорядоченную отправку сообщений.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/flowsync/internal/protocol"
)

// CloseAuthExpired код закрытия websocket, которым сервер сообщает об истекшем токене.
const CloseAuthExpired = 4401

// Config параметры соединения.
type Config struct {
	Dialer           *websocket.Dialer
	URL              string // базовый адрес relay, например ws://localhost:8080/ws
	DocumentID       string
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	SendBuffer       int
	EventBuffer      int
}

func (c *Config) populateDefaults() {
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = backoff.DefaultInitialInterval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 256
	}
}

// connection одно установленное websocket-соединение.
type connection struct {
	ws         *websocket.Conn
	send       chan []byte
	synced     chan struct{}
	syncedOnce sync.Once
}

// Provider websocket-транспорт одного документа.
// События (сообщения и смена состояния) доставляются через Events;
// канал закрывается после Close.
type Provider struct {
	tokens    TokenSource
	logger    *slog.Logger
	events    chan Event
	done      chan struct{}
	conn      *connection
	err       error
	cancel    context.CancelFunc
	cfg       Config
	state     State
	mu        sync.Mutex
	startOnce sync.Once
	closeOnce sync.Once
	started   bool
}

// New создает транспорт. Подключение начинается после Start.
func New(cfg Config, tokens TokenSource, logger *slog.Logger) *Provider {
	cfg.populateDefaults()
	return &Provider{
		cfg:    cfg,
		tokens: tokens,
		logger: logger.With("document_id", cfg.DocumentID),
		events: make(chan Event, cfg.EventBuffer),
		done:   make(chan struct{}),
		state:  StateDisconnected,
	}
}

// Start запускает цикл подключения. Повторные вызовы игнорируются.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.mu.Lock()
		p.cancel = cancel
		p.started = true
		p.mu.Unlock()
		go p.run(ctx)
	})
}

// Events возвращает канал событий транспорта.
func (p *Provider) Events() <-chan Event {
	return p.events
}

// State возвращает текущее состояние соединения.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Err возвращает ошибку, с которой транспорт перешел в текущее состояние.
func (p *Provider) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// Send ставит сообщение в очередь отправки текущего соединения.
// Порядок отправки совпадает с порядком вызовов.
func (p *Provider) Send(msg protocol.Message) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	select {
	case conn.send <- msg.Encode():
		return nil
	default:
		return ErrSendBufferFull
	}
}

// MarkSynced сообщает, что рукопожатие текущего соединения завершено.
func (p *Provider) MarkSynced() {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn != nil {
		conn.syncedOnce.Do(func() { close(conn.synced) })
	}
}

// Close останавливает переподключение, закрывает соединение и ждет
// завершения всех горутин транспорта.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		// Блокируем поздний Start
		p.startOnce.Do(func() {})

		p.mu.Lock()
		started := p.started
		cancel := p.cancel
		p.mu.Unlock()

		if !started {
			close(p.events)
			close(p.done)
			return
		}
		cancel()
		<-p.done
	})
	return nil
}

func (p *Provider) run(ctx context.Context) {
	defer close(p.done)
	defer close(p.events)

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     p.cfg.InitialBackoff,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         p.cfg.MaxBackoff,
	}
	bo.Reset()

	for {
		p.setState(ctx, StateConnecting, nil)
		err := p.connectAndServe(ctx, bo)

		if ctx.Err() != nil {
			p.setState(ctx, StateDisconnected, nil)
			return
		}
		if errors.Is(err, ErrAuthExpired) {
			p.logger.Warn("Authentication rejected, giving up", "error", err)
			p.setState(ctx, StateDisconnected, err)
			return
		}

		delay := bo.NextBackOff()
		p.logger.Info("Connection lost, reconnecting", "error", err, "delay", delay)
		p.setState(ctx, StateReconnecting, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.setState(ctx, StateDisconnected, nil)
			return
		case <-timer.C:
		}
	}
}

// connectAndServe устанавливает соединение и обслуживает его до разрыва.
func (p *Provider) connectAndServe(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	// Токен перечитывается при каждой попытке
	token, err := p.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrAuthExpired) {
			return err
		}
		return fmt.Errorf("%w: failed to get token: %w", ErrTransport, err)
	}

	target, err := p.endpoint(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
	ws, resp, err := p.cfg.Dialer.DialContext(dialCtx, target, header)
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: server responded %d", ErrAuthExpired, resp.StatusCode)
		}
		return fmt.Errorf("%w: dial failed: %w", ErrTransport, err)
	}

	conn := &connection{
		ws:     ws,
		send:   make(chan []byte, p.cfg.SendBuffer),
		synced: make(chan struct{}),
	}
	p.setConn(conn)
	defer p.setConn(nil)

	p.logger.Debug("Connection established")
	p.emit(ctx, Event{Kind: EventOpen})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.readPump(gctx, conn)
	})
	g.Go(func() error {
		return p.writePump(gctx, conn)
	})
	g.Go(func() error {
		return p.awaitHandshake(gctx, conn, bo)
	})
	g.Go(func() error {
		// Закрытие сокета разблокирует ReadMessage
		<-gctx.Done()
		return ws.Close()
	})
	return g.Wait()
}

func (p *Provider) readPump(ctx context.Context, conn *connection) error {
	pongWait := 2 * p.cfg.PingInterval
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, CloseAuthExpired) {
				return fmt.Errorf("%w: %w", ErrAuthExpired, err)
			}
			return fmt.Errorf("%w: read failed: %w", ErrTransport, err)
		}
		_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))

		if typ != websocket.BinaryMessage {
			continue
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			p.logger.Warn("Dropping malformed message", "error", err, "size", len(data))
			continue
		}
		if !p.emit(ctx, Event{Kind: EventMessage, Message: msg}) {
			return ctx.Err()
		}
	}
}

func (p *Provider) writePump(ctx context.Context, conn *connection) error {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return ctx.Err()
		case data := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return fmt.Errorf("%w: write failed: %w", ErrTransport, err)
			}
		case <-ticker.C:
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.cfg.WriteTimeout)); err != nil {
				return fmt.Errorf("%w: ping failed: %w", ErrTransport, err)
			}
		}
	}
}

// awaitHandshake ограничивает время рукопожатия; после MarkSynced
// переводит транспорт в StateSynced и сбрасывает задержку переподключения.
func (p *Provider) awaitHandshake(ctx context.Context, conn *connection, bo *backoff.ExponentialBackOff) error {
	timer := time.NewTimer(p.cfg.HandshakeTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		return ErrHandshakeTimeout
	case <-conn.synced:
	}

	bo.Reset()
	p.setState(ctx, StateSynced, nil)
	<-ctx.Done()
	return nil
}

func (p *Provider) endpoint(token string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(p.cfg.URL, "/") + "/" + url.PathEscape(p.cfg.DocumentID))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Provider) setConn(conn *connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conn = conn
}

func (p *Provider) setState(ctx context.Context, state State, err error) {
	p.mu.Lock()
	p.state = state
	p.err = err
	p.mu.Unlock()

	p.emit(ctx, Event{Kind: EventState, State: state, Err: err})
}

// emit доставляет событие, пока контекст жив.
func (p *Provider) emit(ctx context.Context, ev Event) bool {
	if ctx.Err() != nil {
		// После отмены потребитель может уже не читать канал
		select {
		case p.events <- ev:
		default:
		}
		return false
	}
	select {
	case p.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
