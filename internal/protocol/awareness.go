package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/iudanet/flowsync/internal/models"
)

const (
	fieldAwReplica protowire.Number = 1
	fieldAwClock   protowire.Number = 2
	fieldAwState   protowire.Number = 3

	fieldStateName   protowire.Number = 1
	fieldStateColor  protowire.Number = 2
	fieldStateCursor protowire.Number = 3

	fieldCursorAnchor protowire.Number = 1
	fieldCursorHead   protowire.Number = 2
)

// AwarenessPayload состояние присутствия одной реплики.
// State == nil означает, что участник покинул документ.
type AwarenessPayload struct {
	State   *models.Presence
	Replica string
	Clock   uint64
}

// Removed reports whether the payload announces a departure.
func (p AwarenessPayload) Removed() bool {
	return p.State == nil
}

func (p AwarenessPayload) encode() []byte {
	b := protowire.AppendTag(nil, fieldAwReplica, protowire.BytesType)
	b = protowire.AppendString(b, p.Replica)
	b = protowire.AppendTag(b, fieldAwClock, protowire.VarintType)
	b = protowire.AppendVarint(b, p.Clock)
	if p.State == nil {
		return b
	}

	var st []byte
	st = protowire.AppendTag(st, fieldStateName, protowire.BytesType)
	st = protowire.AppendString(st, p.State.Name)
	st = protowire.AppendTag(st, fieldStateColor, protowire.BytesType)
	st = protowire.AppendString(st, p.State.Color)
	if c := p.State.Cursor; c != nil {
		var cur []byte
		cur = protowire.AppendTag(cur, fieldCursorAnchor, protowire.VarintType)
		cur = protowire.AppendVarint(cur, uint64(c.Anchor))
		cur = protowire.AppendTag(cur, fieldCursorHead, protowire.VarintType)
		cur = protowire.AppendVarint(cur, uint64(c.Head))
		st = protowire.AppendTag(st, fieldStateCursor, protowire.BytesType)
		st = protowire.AppendBytes(st, cur)
	}

	b = protowire.AppendTag(b, fieldAwState, protowire.BytesType)
	b = protowire.AppendBytes(b, st)
	return b
}

func decodeAwareness(data []byte) (AwarenessPayload, error) {
	var p AwarenessPayload
	var stateErr error
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldAwReplica && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			p.Replica = s
			return n
		case num == fieldAwClock && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Clock = v
			return n
		case num == fieldAwState && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			p.State, stateErr = decodePresence(v)
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return AwarenessPayload{}, err
	}
	if stateErr != nil {
		return AwarenessPayload{}, stateErr
	}
	if p.Replica == "" {
		return AwarenessPayload{}, fmt.Errorf("%w: awareness without replica", ErrMalformedMessage)
	}
	return p, nil
}

func decodePresence(data []byte) (*models.Presence, error) {
	st := &models.Presence{}
	var cursorErr error
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldStateName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			st.Name = s
			return n
		case num == fieldStateColor && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			st.Color = s
			return n
		case num == fieldStateCursor && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			st.Cursor, cursorErr = decodeCursor(v)
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return nil, err
	}
	if cursorErr != nil {
		return nil, cursorErr
	}
	return st, nil
}

func decodeCursor(data []byte) (*models.Cursor, error) {
	var anchor, head uint64
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldCursorAnchor && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			anchor = v
			return n
		case num == fieldCursorHead && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			head = v
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return nil, err
	}
	if anchor > math.MaxInt32 || head > math.MaxInt32 {
		return nil, fmt.Errorf("%w: cursor out of range", ErrMalformedMessage)
	}
	return &models.Cursor{Anchor: int(anchor), Head: int(head)}, nil
}
