package relay

import (
	"slices"
	"strings"

	"github.com/iudanet/flowsync/internal/crdt"
	"github.com/iudanet/flowsync/internal/protocol"
	"github.com/iudanet/flowsync/pkg/api"
)

// room реплика документа на relay и подключенные к ней участники.
// Все поля защищены mu владельца (Hub управляет блокировками).
type room struct {
	doc     *crdt.Text
	members map[*member]struct{}
	// aware последние известные состояния присутствия по реплике
	aware map[string]protocol.AwarenessPayload
	id    string
	dirty bool
}

func newRoom(id, nodeID string) *room {
	return &room{
		id:      id,
		doc:     crdt.NewText("relay:" + nodeID),
		members: make(map[*member]struct{}),
		aware:   make(map[string]protocol.AwarenessPayload),
	}
}

// greet отправляет новому участнику SyncStep1 и известные состояния присутствия.
func (r *room) greet(m *member) {
	m.enqueue(protocol.NewSyncStep1(r.doc.StateVector()).Encode())

	replicas := make([]string, 0, len(r.aware))
	for replica := range r.aware {
		replicas = append(replicas, replica)
	}
	slices.Sort(replicas)
	for _, replica := range replicas {
		m.enqueue(protocol.NewAwareness(r.aware[replica]).Encode())
	}
}

// broadcast отправляет data всем участникам, кроме except.
func (r *room) broadcast(data []byte, except *member) {
	for m := range r.members {
		if m != except {
			m.enqueue(data)
		}
	}
}

// applyUpdate сливает обновление в реплику комнаты.
func (r *room) applyUpdate(u *crdt.Update) error {
	changed, err := r.doc.ApplyUpdate(u)
	if err != nil {
		return err
	}
	if changed {
		r.dirty = true
	}
	return nil
}

// applyAwareness запоминает или удаляет состояние присутствия реплики.
func (r *room) applyAwareness(p protocol.AwarenessPayload) {
	if p.Removed() {
		delete(r.aware, p.Replica)
		return
	}
	r.aware[p.Replica] = p
}

// removal сообщение об уходе реплики или nil, если ее состояние неизвестно.
func (r *room) removal(replica string) []byte {
	p, ok := r.aware[replica]
	if !ok {
		return nil
	}
	delete(r.aware, replica)
	return protocol.NewAwareness(protocol.AwarenessPayload{Replica: replica, Clock: p.Clock + 1}).Encode()
}

func (r *room) info() *api.RoomInfo {
	members := make([]api.MemberInfo, 0, len(r.members))
	for m := range r.members {
		members = append(members, api.MemberInfo{
			Replica: m.replica,
			Subject: m.identity.Subject,
			Name:    m.identity.Name,
		})
	}
	slices.SortFunc(members, func(a, b api.MemberInfo) int {
		if c := strings.Compare(a.Subject, b.Subject); c != 0 {
			return c
		}
		return strings.Compare(a.Replica, b.Replica)
	})
	return &api.RoomInfo{
		Room:        r.id,
		Members:     members,
		StateVector: r.doc.StateVector(),
		TextLength:  r.doc.Len(),
		Loaded:      true,
	}
}
