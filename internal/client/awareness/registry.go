// Package awareness хранит эфемерное состояние присутствия участников
// документа: имена, цвета и курсоры. Состояние не является частью документа,
// не сохраняется и истекает, если участник перестал о себе сообщать.
//
// Реестр не использует таймеры и системное время: текущее время передается
// в каждый метод, планированием занимается владелец реестра.
package awareness

import (
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/flowsync/internal/models"
	"github.com/iudanet/flowsync/internal/protocol"
)

const (
	// DefaultTimeout время, после которого молчащий участник считается ушедшим.
	DefaultTimeout = 30 * time.Second
	// DefaultMinInterval минимальный интервал между рассылками локального состояния.
	DefaultMinInterval = 100 * time.Millisecond
)

// Config параметры реестра присутствия.
type Config struct {
	Timeout     time.Duration
	MinInterval time.Duration
	Burst       int
}

func (c *Config) populateDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

// ChangeKind тип изменения набора участников.
type ChangeKind int

const (
	// Joined новый участник.
	Joined ChangeKind = iota + 1
	// Updated участник изменил состояние (например, сдвинул курсор).
	Updated
	// Left участник ушел или истек по таймауту.
	Left
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case Joined:
		return "joined"
	case Updated:
		return "updated"
	case Left:
		return "left"
	}
	return "unknown"
}

// Change изменение набора участников для наблюдателей.
type Change struct {
	Peer models.Peer
	Kind ChangeKind
}

// Registry реестр присутствия одной реплики.
type Registry struct {
	lastSent  time.Time
	flushAt   time.Time
	limiter   *rate.Limiter
	local     *models.Presence
	peers     map[string]*models.Peer
	replicaID string
	cfg       Config
	clock     uint64
	pending   bool // локальное состояние ждет отложенной рассылки
	mu        sync.Mutex
}

// New создает реестр для реплики replicaID.
func New(replicaID string, cfg Config) *Registry {
	cfg.populateDefaults()
	return &Registry{
		replicaID: replicaID,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Every(cfg.MinInterval), cfg.Burst),
		peers:     make(map[string]*models.Peer),
	}
}

// ReplicaID возвращает идентификатор локальной реплики.
func (r *Registry) ReplicaID() string {
	return r.replicaID
}

// Timeout возвращает таймаут жизни участника.
func (r *Registry) Timeout() time.Duration {
	return r.cfg.Timeout
}

// SetLocalState обновляет локальное состояние. Возвращает payload и true,
// если его нужно отправить сейчас; иначе рассылка откладывается до FlushAt.
// state == nil снимает локальное состояние.
func (r *Registry) SetLocalState(state *models.Presence, now time.Time) (protocol.AwarenessPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local.Equal(state) {
		return protocol.AwarenessPayload{}, false
	}
	r.local = state.Clone()
	r.clock++

	if r.limiter.AllowN(now, 1) {
		r.pending = false
		r.lastSent = now
		return r.payloadLocked(), true
	}
	if !r.pending {
		r.pending = true
		r.flushAt = now.Add(r.limiter.ReserveN(now, 1).DelayFrom(now))
	}
	return protocol.AwarenessPayload{}, false
}

// FlushAt возвращает время отложенной рассылки, если она запланирована.
func (r *Registry) FlushAt() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flushAt, r.pending
}

// Flush возвращает отложенное локальное состояние, если время рассылки наступило.
func (r *Registry) Flush(now time.Time) (protocol.AwarenessPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.pending || now.Before(r.flushAt) {
		return protocol.AwarenessPayload{}, false
	}
	r.pending = false
	r.lastSent = now
	return r.payloadLocked(), true
}

// Heartbeat периодически переотправляет локальное состояние, чтобы другие
// участники не сочли нас ушедшими. Интервал - треть таймаута.
func (r *Registry) Heartbeat(now time.Time) (protocol.AwarenessPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local == nil || now.Sub(r.lastSent) < r.cfg.Timeout/3 {
		return protocol.AwarenessPayload{}, false
	}
	r.clock++
	r.pending = false
	r.lastSent = now
	return r.payloadLocked(), true
}

// LocalPayload возвращает текущее локальное состояние для отправки
// после (пере)подключения.
func (r *Registry) LocalPayload(now time.Time) (protocol.AwarenessPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local == nil {
		return protocol.AwarenessPayload{}, false
	}
	r.pending = false
	r.lastSent = now
	return r.payloadLocked(), true
}

// RemovalPayload возвращает сообщение об уходе локального участника.
func (r *Registry) RemovalPayload() protocol.AwarenessPayload {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock++
	r.local = nil
	r.pending = false
	return protocol.AwarenessPayload{Replica: r.replicaID, Clock: r.clock}
}

// ApplyRemote применяет состояние удаленного участника. Побеждает последнее
// полученное сообщение; payload без состояния означает уход участника.
func (r *Registry) ApplyRemote(p protocol.AwarenessPayload, now time.Time) []Change {
	if p.Replica == r.replicaID {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.peers[p.Replica]
	if p.Removed() {
		if !ok {
			return nil
		}
		delete(r.peers, p.Replica)
		return []Change{{Kind: Left, Peer: *existing}}
	}

	if !ok {
		peer := &models.Peer{
			Replica:  p.Replica,
			Clock:    p.Clock,
			Presence: *p.State.Clone(),
			LastSeen: now,
		}
		r.peers[p.Replica] = peer
		return []Change{{Kind: Joined, Peer: *peer}}
	}

	changed := !existing.Presence.Equal(p.State)
	existing.Presence = *p.State.Clone()
	existing.Clock = p.Clock
	existing.LastSeen = now
	if !changed {
		return nil
	}
	return []Change{{Kind: Updated, Peer: *existing}}
}

// Sweep удаляет участников, молчащих дольше таймаута.
// Каждый уход сообщается ровно один раз.
func (r *Registry) Sweep(now time.Time) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changes []Change
	for replica, peer := range r.peers {
		if now.Sub(peer.LastSeen) > r.cfg.Timeout {
			delete(r.peers, replica)
			changes = append(changes, Change{Kind: Left, Peer: *peer})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int {
		return strings.Compare(a.Peer.Replica, b.Peer.Replica)
	})
	return changes
}

// Reset удаляет всех удаленных участников, например после потери соединения.
func (r *Registry) Reset() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	changes := make([]Change, 0, len(r.peers))
	for _, peer := range r.peers {
		changes = append(changes, Change{Kind: Left, Peer: *peer})
	}
	clear(r.peers)
	slices.SortFunc(changes, func(a, b Change) int {
		return strings.Compare(a.Peer.Replica, b.Peer.Replica)
	})
	return changes
}

// Peers возвращает известных участников, включая локального, по возрастанию
// идентификатора реплики.
func (r *Registry) Peers() []models.Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := make([]models.Peer, 0, len(r.peers)+1)
	if r.local != nil {
		peers = append(peers, models.Peer{
			Replica:  r.replicaID,
			Clock:    r.clock,
			Presence: *r.local.Clone(),
			LastSeen: r.lastSent,
			Local:    true,
		})
	}
	for _, peer := range r.peers {
		p := *peer
		p.Presence = *peer.Presence.Clone()
		peers = append(peers, p)
	}
	slices.SortFunc(peers, func(a, b models.Peer) int {
		return strings.Compare(a.Replica, b.Replica)
	})
	return peers
}

func (r *Registry) payloadLocked() protocol.AwarenessPayload {
	return protocol.AwarenessPayload{
		Replica: r.replicaID,
		Clock:   r.clock,
		State:   r.local.Clone(),
	}
}
