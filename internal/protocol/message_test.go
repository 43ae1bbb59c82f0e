package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/iudanet/flowsync/internal/crdt"
	"github.com/iudanet/flowsync/internal/models"
)

func TestMessage_SyncStep1(t *testing.T) {
	sv := crdt.StateVector{"a": 3, "b": 10}

	decoded, err := Decode(NewSyncStep1(sv).Encode())
	require.NoError(t, err)
	assert.Equal(t, KindSyncStep1, decoded.Kind)

	got, err := decoded.StateVector()
	require.NoError(t, err)
	assert.Equal(t, sv, got)
}

func TestMessage_Updates(t *testing.T) {
	doc := crdt.NewText("replica-a")
	u, err := doc.Insert(0, "hello")
	require.NoError(t, err)

	tests := []struct {
		build func(*crdt.Update) (Message, error)
		name  string
		kind  Kind
	}{
		{name: "sync step 2", build: NewSyncStep2, kind: KindSyncStep2},
		{name: "update", build: NewUpdate, kind: KindUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.build(u)
			require.NoError(t, err)

			decoded, err := Decode(msg.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.kind, decoded.Kind)

			got, err := decoded.Update()
			require.NoError(t, err)
			assert.Equal(t, u, got)
		})
	}
}

func TestMessage_Awareness(t *testing.T) {
	tests := []struct {
		name    string
		payload AwarenessPayload
	}{
		{
			name: "state with cursor",
			payload: AwarenessPayload{
				Replica: "replica-a",
				Clock:   7,
				State: &models.Presence{
					Name:   "alice",
					Color:  "#ff8800",
					Cursor: &models.Cursor{Anchor: 3, Head: 8},
				},
			},
		},
		{
			name: "state without cursor",
			payload: AwarenessPayload{
				Replica: "replica-b",
				Clock:   1,
				State:   &models.Presence{Name: "bob"},
			},
		},
		{
			name:    "removal",
			payload: AwarenessPayload{Replica: "replica-c", Clock: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(NewAwareness(tt.payload).Encode())
			require.NoError(t, err)

			got, err := decoded.Awareness()
			require.NoError(t, err)
			assert.Equal(t, tt.payload, got)
			assert.Equal(t, tt.payload.State == nil, got.Removed())
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	unknownKind := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	unknownKind = protowire.AppendVarint(unknownKind, 99)

	noKind := protowire.AppendTag(nil, fieldPayload, protowire.BytesType)
	noKind = protowire.AppendBytes(noKind, []byte{1, 2, 3})

	valid := NewSyncStep1(crdt.StateVector{"a": 1}).Encode()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte{0xff, 0xff}},
		{name: "truncated", data: valid[:len(valid)-1]},
		{name: "unknown kind", data: unknownKind},
		{name: "missing kind", data: noKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, ErrMalformedMessage)
			assert.ErrorIs(t, err, crdt.ErrMalformedUpdate)
		})
	}
}

func TestMessage_MalformedPayload(t *testing.T) {
	tests := []struct {
		read func(Message) error
		name string
		msg  Message
	}{
		{
			name: "truncated update",
			msg:  Message{Kind: KindUpdate, Payload: []byte{0x0a, 0x10}},
			read: func(m Message) error { _, err := m.Update(); return err },
		},
		{
			name: "wrong kind for update",
			msg:  Message{Kind: KindAwareness},
			read: func(m Message) error { _, err := m.Update(); return err },
		},
		{
			name: "wrong kind for state vector",
			msg:  Message{Kind: KindUpdate},
			read: func(m Message) error { _, err := m.StateVector(); return err },
		},
		{
			name: "awareness without replica",
			msg:  Message{Kind: KindAwareness, Payload: protowire.AppendVarint(protowire.AppendTag(nil, fieldAwClock, protowire.VarintType), 1)},
			read: func(m Message) error { _, err := m.Awareness(); return err },
		},
		{
			name: "awareness with truncated state",
			msg: Message{Kind: KindAwareness, Payload: func() []byte {
				b := NewAwareness(AwarenessPayload{Replica: "a", State: &models.Presence{Name: "alice"}}).Payload
				return b[:len(b)-2]
			}()},
			read: func(m Message) error { _, err := m.Awareness(); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(tt.msg)
			require.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "sync_step1", KindSyncStep1.String())
	assert.Equal(t, "awareness", KindAwareness.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
