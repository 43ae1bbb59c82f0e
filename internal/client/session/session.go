package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/flowsync/internal/client/awareness"
	"github.com/iudanet/flowsync/internal/client/storage"
	"github.com/iudanet/flowsync/internal/client/transport"
	"github.com/iudanet/flowsync/internal/crdt"
	"github.com/iudanet/flowsync/internal/models"
	"github.com/iudanet/flowsync/internal/protocol"
)

// Status состояние сессии для наблюдателей.
type Status struct {
	Err   error
	State transport.State
}

// session одна открытая сессия документа.
// Поля, помеченные loop, принадлежат горутине цикла событий.
type session struct {
	doc       *crdt.Text
	aware     *awareness.Registry
	tr        *transport.Provider
	store     storage.DocumentStorage
	logger    *slog.Logger
	now       func() time.Time
	cmds      chan func()
	done      chan struct{}
	cancel    context.CancelFunc
	texts     *broadcaster[string]
	peers     *broadcaster[[]models.Peer]
	statuses  *broadcaster[Status]
	flush     *time.Timer       // loop
	queue     []*crdt.Update    // loop
	closeErr  error
	status    Status
	presence  models.Presence // loop
	id        string
	lastText  string // loop
	sweep     time.Duration
	refs      int // Coordinator.mu
	mu        sync.Mutex
	closeOnce sync.Once
	synced    bool // loop: рукопожатие текущего соединения завершено
}

func newSession(ctx context.Context, id string, opts Options, logger *slog.Logger) (*session, error) {
	s := &session{
		id:       id,
		doc:      crdt.NewText(opts.ReplicaID),
		aware:    awareness.New(opts.ReplicaID, opts.Awareness),
		store:    opts.Documents,
		logger:   logger.With("document_id", id),
		now:      opts.Now,
		sweep:    opts.SweepInterval,
		cmds:     make(chan func()),
		done:     make(chan struct{}),
		texts:    newBroadcaster[string](),
		peers:    newBroadcaster[[]models.Peer](),
		statuses: newBroadcaster[Status](),
		status:   Status{State: transport.StateDisconnected},
	}

	if s.store != nil {
		if err := s.restore(ctx); err != nil {
			return nil, err
		}
	}

	if opts.Presence.Name != "" || opts.Presence.Color != "" {
		s.presence = models.Presence{Name: opts.Presence.Name, Color: opts.Presence.Color}
		s.aware.SetLocalState(&s.presence, s.now())
	}

	cfg := opts.Transport
	cfg.DocumentID = id
	s.tr = transport.New(cfg, opts.Tokens, logger)

	s.lastText = s.doc.Text()
	s.texts.publish(s.lastText)
	s.peers.publish(s.aware.Peers())
	s.statuses.publish(s.status)
	return s, nil
}

// restore загружает снимок и офлайн-очередь из локального хранилища.
func (s *session) restore(ctx context.Context) error {
	data, err := s.store.LoadSnapshot(ctx, s.id)
	switch {
	case errors.Is(err, storage.ErrDocumentNotFound):
	case err != nil:
		return fmt.Errorf("failed to load snapshot: %w", err)
	default:
		if err := s.doc.Restore(data); err != nil {
			s.logger.Warn("Discarding unreadable snapshot", "error", err)
		}
	}

	pending, err := s.store.PendingUpdates(ctx, s.id)
	if err != nil {
		return fmt.Errorf("failed to load pending updates: %w", err)
	}
	for _, raw := range pending {
		u, err := crdt.DecodeUpdate(raw)
		if err != nil {
			s.logger.Warn("Skipping unreadable pending update", "error", err)
			continue
		}
		if _, err := s.doc.ApplyUpdate(u); err != nil {
			s.logger.Warn("Skipping invalid pending update", "error", err)
			continue
		}
		s.queue = append(s.queue, u)
	}

	s.logger.Debug("Document restored", "length", s.doc.Len(), "pending", len(s.queue))
	return nil
}

func (s *session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
	s.tr.Start(context.Background())
}

// run цикл событий сессии.
func (s *session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	s.flush = time.NewTimer(time.Hour)
	s.flush.Stop()
	defer s.flush.Stop()

	events := s.tr.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.cmds:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ev)
		case <-ticker.C:
			s.tick()
		case <-s.flush.C:
			if p, ok := s.aware.Flush(s.now()); ok && s.synced {
				s.send(protocol.NewAwareness(p))
			}
		}
	}
}

// do выполняет fn в цикле событий и ждет завершения.
func (s *session) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case s.cmds <- func() {
		defer close(finished)
		fn()
	}:
	case <-s.done:
		return ErrSessionClosed
	}
	<-finished
	return nil
}

func (s *session) handleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventOpen:
		s.synced = false
		s.send(protocol.NewSyncStep1(s.doc.StateVector()))
		if p, ok := s.aware.LocalPayload(s.now()); ok {
			s.send(protocol.NewAwareness(p))
		}
	case transport.EventState:
		s.onState(ev.State, ev.Err)
	case transport.EventMessage:
		s.onMessage(ev.Message)
	}
}

func (s *session) onState(state transport.State, err error) {
	if state != transport.StateSynced {
		s.synced = false
	}
	s.setStatus(Status{State: state, Err: err})

	switch state {
	case transport.StateSynced:
		s.flushQueue()
	case transport.StateReconnecting, transport.StateDisconnected:
		// Присутствие без соединения недостоверно
		if changes := s.aware.Reset(); len(changes) > 0 {
			s.publishPeers()
		}
	}

	if state == transport.StateDisconnected && errors.Is(err, transport.ErrAuthExpired) {
		s.logger.Warn("Session stopped: authentication expired", "error", err)
	}
}

func (s *session) onMessage(msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindSyncStep1:
		sv, err := msg.StateVector()
		if err != nil {
			s.drop(msg, err)
			return
		}
		reply, err := protocol.NewSyncStep2(s.doc.Diff(sv))
		if err != nil {
			s.logger.Error("Failed to encode sync reply", "error", err)
			return
		}
		s.send(reply)

	case protocol.KindSyncStep2:
		u, err := msg.Update()
		if err != nil {
			s.drop(msg, err)
			return
		}
		s.apply(u)
		s.synced = true
		s.tr.MarkSynced()
		s.flushQueue()
		s.persist()

	case protocol.KindUpdate:
		u, err := msg.Update()
		if err != nil {
			s.drop(msg, err)
			return
		}
		s.apply(u)

	case protocol.KindAwareness:
		p, err := msg.Awareness()
		if err != nil {
			s.drop(msg, err)
			return
		}
		changes := s.aware.ApplyRemote(p, s.now())
		for _, c := range changes {
			s.logger.Debug("Peer changed", "replica", c.Peer.Replica, "change", c.Kind)
		}
		if len(changes) > 0 {
			s.publishPeers()
		}
	}
}

func (s *session) drop(msg protocol.Message, err error) {
	s.logger.Warn("Dropping malformed message", "kind", msg.Kind, "error", err)
}

func (s *session) apply(u *crdt.Update) {
	changed, err := s.doc.ApplyUpdate(u)
	if err != nil {
		s.logger.Warn("Dropping invalid update", "error", err)
		return
	}
	if changed {
		s.publishText()
	}
}

// tick истечение участников, heartbeat и дозапись очереди.
func (s *session) tick() {
	now := s.now()
	if changes := s.aware.Sweep(now); len(changes) > 0 {
		for _, c := range changes {
			s.logger.Debug("Peer expired", "replica", c.Peer.Replica)
		}
		s.publishPeers()
	}
	if !s.synced {
		return
	}
	if p, ok := s.aware.Heartbeat(now); ok {
		s.send(protocol.NewAwareness(p))
	}
	if len(s.queue) > 0 {
		s.flushQueue()
	}
}

// commitLocal рассылает локальное изменение или ставит его в офлайн-очередь.
func (s *session) commitLocal(u *crdt.Update) {
	if u.IsEmpty() {
		return
	}
	s.publishText()

	if s.synced && len(s.queue) == 0 {
		msg, err := protocol.NewUpdate(u)
		if err == nil {
			err = s.tr.Send(msg)
		}
		if err == nil {
			return
		}
		s.logger.Debug("Queueing local update", "error", err)
	}
	s.enqueue(u)
}

func (s *session) enqueue(u *crdt.Update) {
	s.queue = append(s.queue, u)
	if s.store == nil {
		return
	}
	data, err := crdt.EncodeUpdate(u)
	if err == nil {
		err = s.store.AppendPending(context.Background(), s.id, data)
	}
	if err != nil {
		s.logger.Warn("Failed to persist pending update", "error", err)
	}
}

// flushQueue отправляет офлайн-очередь одним обновлением.
// Повторная доставка безопасна: применение обновлений идемпотентно.
func (s *session) flushQueue() {
	if len(s.queue) == 0 || !s.synced {
		return
	}
	msg, err := protocol.NewUpdate(crdt.MergeUpdates(s.queue...))
	if err != nil {
		s.logger.Error("Failed to encode pending updates", "error", err)
		return
	}
	if err := s.tr.Send(msg); err != nil {
		s.logger.Debug("Keeping offline queue", "error", err)
		return
	}

	s.logger.Debug("Offline queue flushed", "updates", len(s.queue))
	s.queue = nil
	if s.store != nil {
		if err := s.store.ClearPending(context.Background(), s.id); err != nil {
			s.logger.Warn("Failed to clear pending updates", "error", err)
		}
	}
}

func (s *session) setCursor(anchor, head int) error {
	if anchor < 0 || head < 0 || anchor > s.doc.Len() || head > s.doc.Len() {
		return fmt.Errorf("%w: cursor %d:%d outside document of length %d",
			crdt.ErrInvalidOperation, anchor, head, s.doc.Len())
	}

	p := s.presence
	p.Cursor = &models.Cursor{Anchor: anchor, Head: head}
	payload, send := s.aware.SetLocalState(&p, s.now())
	s.presence = p

	switch {
	case send && s.synced:
		s.send(protocol.NewAwareness(payload))
	case !send:
		if at, ok := s.aware.FlushAt(); ok {
			s.flush.Reset(max(at.Sub(s.now()), 0))
		}
	}
	s.publishPeers()
	return nil
}

func (s *session) send(msg protocol.Message) {
	if err := s.tr.Send(msg); err != nil {
		s.logger.Debug("Message not sent", "kind", msg.Kind, "error", err)
	}
}

// persist сохраняет снимок документа в локальное хранилище.
func (s *session) persist() {
	if s.store == nil {
		return
	}
	snapshot, err := s.doc.Snapshot()
	if err == nil {
		err = s.store.SaveSnapshot(context.Background(), s.id, snapshot)
	}
	if err != nil {
		s.logger.Warn("Failed to save snapshot", "error", err)
	}
}

func (s *session) publishText() {
	text := s.doc.Text()
	if text == s.lastText {
		return
	}
	s.lastText = text
	s.texts.publish(text)
}

func (s *session) publishPeers() {
	s.peers.publish(s.aware.Peers())
}

func (s *session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()

	s.statuses.publish(st)
}

func (s *session) currentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// close останавливает цикл и транспорт, сохраняет снимок и закрывает подписки.
func (s *session) close() error {
	s.closeOnce.Do(func() {
		_ = s.do(func() {
			if s.synced && s.presence != (models.Presence{}) {
				s.send(protocol.NewAwareness(s.aware.RemovalPayload()))
			}
		})

		s.cancel()
		<-s.done

		if err := s.tr.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close transport: %w", err)
		}
		s.persist()

		s.setStatus(Status{State: transport.StateDisconnected, Err: ErrSessionClosed})
		s.texts.close()
		s.peers.close()
		s.statuses.close()
	})
	return s.closeErr
}
