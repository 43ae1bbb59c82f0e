// Package relay реализует сервер ретрансляции: комнаты документов с
// серверной репликой текста, рассылку обновлений и присутствия между
// участниками, сохранение снимков и межузловую рассылку через брокер.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/flowsync/internal/crdt"
	"github.com/iudanet/flowsync/internal/protocol"
	"github.com/iudanet/flowsync/internal/server/storage"
	"github.com/iudanet/flowsync/pkg/api"
)

// CloseAuthExpired код закрытия соединения при истечении токена.
const CloseAuthExpired = 4401

// Config параметры хаба.
type Config struct {
	NodeID          string
	SendBuffer      int
	MaxMessageSize  int64
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	PersistInterval time.Duration
}

func (c *Config) populateDefaults() {
	if c.NodeID == "" {
		c.NodeID = "local"
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1 << 20
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PersistInterval <= 0 {
		c.PersistInterval = 30 * time.Second
	}
}

// Hub комнаты одного узла relay.
type Hub struct {
	store   storage.SnapshotStorage
	broker  Broker
	metrics *Metrics
	logger  *slog.Logger
	rooms   map[string]*room
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     Config
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewHub создает хаб. store и broker могут быть nil: комнаты живут только
// в памяти, рассылка только внутри узла.
func NewHub(cfg Config, store storage.SnapshotStorage, broker Broker, metrics *Metrics, logger *slog.Logger) *Hub {
	cfg.populateDefaults()
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:     cfg,
		store:   store,
		broker:  broker,
		metrics: metrics,
		logger:  logger.With("node_id", cfg.NodeID),
		rooms:   make(map[string]*room),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start запускает периодическое сохранение и подписку на брокер.
func (h *Hub) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.persistLoop()
	}()

	if h.broker == nil {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.broker.Subscribe(h.ctx, h.handleRemote); err != nil {
			h.logger.Error("Broker subscription stopped", "error", err)
		}
	}()
}

// Rooms возвращает число загруженных комнат.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms)
}

// Serve обслуживает websocket-соединение участника комнаты до его закрытия.
func (h *Hub) Serve(ctx context.Context, roomID string, conn *websocket.Conn, id Identity) error {
	m := newMember(conn, id, h.cfg.SendBuffer)

	r, err := h.join(ctx, roomID, m)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "room unavailable"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return err
	}
	defer h.leave(r, m)

	logger := h.logger.With("room", roomID, "subject", id.Subject)
	logger.Debug("Member joined")

	// Хаб останавливает все соединения при Close
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.readPump(gctx, r, m, logger)
	})
	g.Go(func() error {
		return h.writePump(gctx, m)
	})
	if !id.ExpiresAt.IsZero() {
		g.Go(func() error {
			return watchExpiry(gctx, id.ExpiresAt)
		})
	}

	err = g.Wait()
	switch {
	case errors.Is(err, errMemberLeft), errors.Is(err, context.Canceled):
		logger.Debug("Member left")
		return nil
	case errors.Is(err, errTokenExpired):
		logger.Info("Member disconnected: token expired")
		return nil
	default:
		logger.Debug("Member disconnected", "error", err)
		return err
	}
}

func (h *Hub) join(ctx context.Context, roomID string, m *member) (*room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	r, ok := h.rooms[roomID]
	if !ok {
		var err error
		r, err = h.load(ctx, roomID)
		if err != nil {
			return nil, err
		}
		h.rooms[roomID] = r
		h.metrics.rooms.Inc()
		h.logger.Info("Room loaded", "room", roomID, "length", r.doc.Len())
	}

	r.members[m] = struct{}{}
	h.metrics.members.Inc()
	r.greet(m)
	return r, nil
}

// load восстанавливает комнату из хранилища снимков.
func (h *Hub) load(ctx context.Context, roomID string) (*room, error) {
	r := newRoom(roomID, h.cfg.NodeID)
	if h.store == nil {
		return r, nil
	}

	snapshot, err := h.store.LoadSnapshot(ctx, roomID)
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load room %q: %w", roomID, err)
	}

	if err := r.doc.Restore(snapshot.Data); err != nil {
		// Испорченный снимок не должен блокировать комнату: клиенты
		// восстановят состояние рукопожатием
		h.logger.Error("Ignoring unreadable snapshot", "room", roomID, "error", err)
		h.metrics.dropped.WithLabelValues("snapshot").Inc()
	}
	return r, nil
}

// leave удаляет участника; пустая комната сохраняется и выгружается.
func (h *Hub) leave(r *room, m *member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := r.members[m]; !ok {
		return
	}
	delete(r.members, m)
	h.metrics.members.Dec()

	var removal []byte
	if m.replica != "" {
		removal = r.removal(m.replica)
		if removal != nil {
			r.broadcast(removal, nil)
		}
	}

	if len(r.members) == 0 {
		// Сохраняем под блокировкой хаба, чтобы повторная загрузка
		// комнаты прочитала свежий снимок
		h.persist(r)
		delete(h.rooms, r.id)
		h.metrics.rooms.Dec()
		h.logger.Info("Room unloaded", "room", r.id)
	}

	if removal != nil {
		h.publish(r.id, removal)
	}
}

func (h *Hub) readPump(ctx context.Context, r *room, m *member, logger *slog.Logger) error {
	conn := m.conn
	conn.SetReadLimit(h.cfg.MaxMessageSize)

	pongWait := 2 * h.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errMemberLeft
			}
			return fmt.Errorf("read failed: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if typ != websocket.BinaryMessage {
			continue
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			logger.Warn("Dropping malformed message", "error", err, "size", len(data))
			h.metrics.dropped.WithLabelValues("malformed").Inc()
			continue
		}
		h.metrics.messages.WithLabelValues(msg.Kind.String(), "member").Inc()

		if out := h.handle(r, m, msg, logger); out != nil {
			h.publish(r.id, out)
		}
	}
}

// handle обрабатывает сообщение участника. Возвращает сообщение для
// рассылки другим узлам или nil.
func (h *Hub) handle(r *room, m *member, msg protocol.Message, logger *slog.Logger) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Kind {
	case protocol.KindSyncStep1:
		sv, err := msg.StateVector()
		if err != nil {
			h.drop(logger, msg, err)
			return nil
		}
		reply, err := protocol.NewSyncStep2(r.doc.Diff(sv))
		if err != nil {
			logger.Error("Failed to encode sync reply", "error", err)
			return nil
		}
		m.enqueue(reply.Encode())
		return nil

	case protocol.KindSyncStep2, protocol.KindUpdate:
		u, err := msg.Update()
		if err != nil {
			h.drop(logger, msg, err)
			return nil
		}
		if err := r.applyUpdate(u); err != nil {
			h.drop(logger, msg, err)
			return nil
		}
		if u.IsEmpty() {
			return nil
		}
		out, err := protocol.NewUpdate(u)
		if err != nil {
			logger.Error("Failed to encode update", "error", err)
			return nil
		}
		data := out.Encode()
		r.broadcast(data, m)
		return data

	case protocol.KindAwareness:
		p, err := msg.Awareness()
		if err != nil {
			h.drop(logger, msg, err)
			return nil
		}
		if m.replica == "" {
			m.replica = p.Replica
		}
		r.applyAwareness(p)
		data := msg.Encode()
		r.broadcast(data, m)
		return data
	}
	return nil
}

// handleRemote применяет сообщение другого узла к загруженной комнате.
func (h *Hub) handleRemote(roomID string, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		h.logger.Warn("Dropping malformed broker message", "room", roomID, "error", err)
		h.metrics.dropped.WithLabelValues("malformed").Inc()
		return
	}
	h.metrics.messages.WithLabelValues(msg.Kind.String(), "broker").Inc()

	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		// Комната не загружена: состояние придет с рукопожатием участников
		return
	}

	switch msg.Kind {
	case protocol.KindUpdate:
		u, err := msg.Update()
		if err == nil {
			err = r.applyUpdate(u)
		}
		if err != nil {
			h.drop(h.logger, msg, err)
			return
		}
	case protocol.KindAwareness:
		p, err := msg.Awareness()
		if err != nil {
			h.drop(h.logger, msg, err)
			return
		}
		r.applyAwareness(p)
	default:
		return
	}
	r.broadcast(data, nil)
}

func (h *Hub) drop(logger *slog.Logger, msg protocol.Message, err error) {
	logger.Warn("Dropping invalid message", "kind", msg.Kind, "error", err)
	h.metrics.dropped.WithLabelValues("invalid").Inc()
}

func (h *Hub) publish(roomID string, data []byte) {
	if h.broker == nil || h.ctx.Err() != nil {
		return
	}
	if err := h.broker.Publish(h.ctx, roomID, data); err != nil {
		h.logger.Warn("Failed to publish to broker", "room", roomID, "error", err)
	}
}

func (h *Hub) writePump(ctx context.Context, m *member) error {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	defer func() {
		_ = m.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			code, text := websocket.CloseNormalClosure, ""
			switch cause := context.Cause(ctx); {
			case errors.Is(cause, errTokenExpired):
				code, text = CloseAuthExpired, "token expired"
			case errors.Is(cause, context.Canceled):
				code = websocket.CloseGoingAway
			}
			_ = m.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
			return ctx.Err()
		case <-m.quit:
			_ = m.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "slow consumer"),
				time.Now().Add(time.Second))
			h.metrics.dropped.WithLabelValues("slow_consumer").Inc()
			return errSlowConsumer
		case data := <-m.send:
			_ = m.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := m.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
		case <-ticker.C:
			if err := m.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		}
	}
}

// watchExpiry завершает соединение в момент истечения токена.
func watchExpiry(ctx context.Context, expiresAt time.Time) error {
	timer := time.NewTimer(time.Until(expiresAt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		return errTokenExpired
	}
}

func (h *Hub) persistLoop() {
	ticker := time.NewTicker(h.cfg.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.PersistAll()
		}
	}
}

// PersistAll сохраняет все измененные комнаты.
func (h *Hub) PersistAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.rooms {
		h.persist(r)
	}
}

// persist сохраняет снимок измененной комнаты. Вызывается под h.mu.
func (h *Hub) persist(r *room) {
	if h.store == nil || !r.dirty {
		return
	}
	start := time.Now()

	data, err := r.doc.Snapshot()
	if err != nil {
		h.logger.Error("Failed to encode snapshot", "room", r.id, "error", err)
		return
	}
	// Сохранение идет и во время остановки хаба, поэтому не от h.ctx
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteTimeout)
	defer cancel()
	err = h.store.SaveSnapshot(ctx, &storage.Snapshot{
		Room:       r.id,
		Data:       data,
		TextLength: r.doc.Len(),
		UpdatedAt:  time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to save snapshot", "room", r.id, "error", err)
		return
	}
	r.dirty = false
	h.metrics.snapshotDuration.Observe(time.Since(start).Seconds())
}

// RoomInfo возвращает сведения о комнате: из памяти, если она загружена,
// иначе из сохраненного снимка.
func (h *Hub) RoomInfo(ctx context.Context, roomID string) (*api.RoomInfo, error) {
	h.mu.Lock()
	if r, ok := h.rooms[roomID]; ok {
		info := r.info()
		h.mu.Unlock()
		return info, nil
	}
	h.mu.Unlock()

	if h.store == nil {
		return nil, ErrRoomNotFound
	}
	snapshot, err := h.store.LoadSnapshot(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load room %q: %w", roomID, err)
	}

	doc := crdt.NewText("relay:" + h.cfg.NodeID)
	if err := doc.Restore(snapshot.Data); err != nil {
		return nil, fmt.Errorf("failed to decode room %q: %w", roomID, err)
	}
	return &api.RoomInfo{
		Room:        roomID,
		Members:     []api.MemberInfo{},
		StateVector: doc.StateVector(),
		TextLength:  doc.Len(),
	}, nil
}

// Close отключает всех участников, сохраняет комнаты и останавливает
// фоновые задачи. Контекст ограничивает ожидание.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("relay hub shutdown: %w", ctx.Err())
	}

	// Участники выходят сами по отмене h.ctx; оставшиеся комнаты сохраняем
	h.PersistAll()
	return nil
}
