// Package protocol описывает сообщения, которыми клиент и relay-сервер
// обмениваются по websocket: рукопожатие синхронизации, обновления документа
// и состояние присутствия.
package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/iudanet/flowsync/internal/crdt"
)

// Kind тип сообщения.
type Kind uint8

const (
	// KindSyncStep1 вектор состояния отправителя; получатель отвечает SyncStep2.
	KindSyncStep1 Kind = iota + 1
	// KindSyncStep2 дельта, которой не хватает получателю SyncStep1.
	KindSyncStep2
	// KindUpdate инкрементальное обновление документа.
	KindUpdate
	// KindAwareness состояние присутствия одного участника.
	KindAwareness
)

const (
	fieldKind    protowire.Number = 1
	fieldPayload protowire.Number = 2
)

// String returns a human readable kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindSyncStep1:
		return "sync_step1"
	case KindSyncStep2:
		return "sync_step2"
	case KindUpdate:
		return "update"
	case KindAwareness:
		return "awareness"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message конверт сообщения протокола.
type Message struct {
	Payload []byte
	Kind    Kind
}

// NewSyncStep1 создает запрос синхронизации с вектором состояния.
func NewSyncStep1(sv crdt.StateVector) Message {
	return Message{Kind: KindSyncStep1, Payload: crdt.EncodeStateVector(sv)}
}

// NewSyncStep2 создает ответ синхронизации с дельтой.
func NewSyncStep2(u *crdt.Update) (Message, error) {
	return newUpdateMessage(KindSyncStep2, u)
}

// NewUpdate создает сообщение с инкрементальным обновлением.
func NewUpdate(u *crdt.Update) (Message, error) {
	return newUpdateMessage(KindUpdate, u)
}

// NewAwareness создает сообщение присутствия.
func NewAwareness(p AwarenessPayload) Message {
	return Message{Kind: KindAwareness, Payload: p.encode()}
}

func newUpdateMessage(kind Kind, u *crdt.Update) (Message, error) {
	payload, err := crdt.EncodeUpdate(u)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode update: %w", err)
	}
	return Message{Kind: kind, Payload: payload}, nil
}

// Encode сериализует сообщение для отправки одним бинарным websocket-кадром.
func (m Message) Encode() []byte {
	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Kind))
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Payload)
	return b
}

// Decode разбирает конверт. Содержимое payload проверяется при чтении
// методами StateVector, Update и Awareness.
func Decode(data []byte) (Message, error) {
	var m Message
	hasKind := false
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Kind = Kind(v)
			hasKind = n >= 0
			return n
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			m.Payload = append([]byte(nil), v...)
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return Message{}, err
	}
	if !hasKind {
		return Message{}, fmt.Errorf("%w: missing kind", ErrMalformedMessage)
	}
	switch m.Kind {
	case KindSyncStep1, KindSyncStep2, KindUpdate, KindAwareness:
	default:
		return Message{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedMessage, m.Kind)
	}
	return m, nil
}

// StateVector разбирает payload сообщения SyncStep1.
func (m Message) StateVector() (crdt.StateVector, error) {
	if m.Kind != KindSyncStep1 {
		return nil, fmt.Errorf("%w: %s has no state vector", ErrMalformedMessage, m.Kind)
	}
	sv, err := crdt.DecodeStateVector(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return sv, nil
}

// Update разбирает payload сообщений SyncStep2 и Update.
func (m Message) Update() (*crdt.Update, error) {
	if m.Kind != KindSyncStep2 && m.Kind != KindUpdate {
		return nil, fmt.Errorf("%w: %s has no update", ErrMalformedMessage, m.Kind)
	}
	u, err := crdt.DecodeUpdate(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return u, nil
}

// Awareness разбирает payload сообщения присутствия.
func (m Message) Awareness() (AwarenessPayload, error) {
	if m.Kind != KindAwareness {
		return AwarenessPayload{}, fmt.Errorf("%w: %s has no awareness", ErrMalformedMessage, m.Kind)
	}
	return decodeAwareness(m.Payload)
}

// consumeFields обходит поля сообщения; fn возвращает длину значения
// или отрицательный код ошибки protowire.
func consumeFields(data []byte, fn func(protowire.Number, protowire.Type, []byte) int) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
		}
		data = data[n:]

		m := fn(num, typ, data)
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedMessage, num, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}
