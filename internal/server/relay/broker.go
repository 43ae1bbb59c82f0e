package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/encoding/protowire"
)

//go:generate moq -out broker_mock.go . Broker

// Broker рассылает сообщения комнат между узлами relay.
type Broker interface {
	// Publish отправляет закодированное сообщение комнаты другим узлам
	Publish(ctx context.Context, room string, data []byte) error
	// Subscribe доставляет сообщения других узлов в handle до отмены ctx
	Subscribe(ctx context.Context, handle func(room string, data []byte)) error
	Close() error
}

// DefaultChannelPrefix префикс каналов Redis для комнат.
const DefaultChannelPrefix = "flowsync:room:"

const (
	envOrigin  protowire.Number = 1
	envPayload protowire.Number = 2
)

var errMalformedEnvelope = errors.New("malformed broker envelope")

// RedisBroker Broker поверх Redis pub/sub. Собственные сообщения узла
// отбрасываются по идентификатору узла в конверте.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
	nodeID string
	prefix string
}

var _ Broker = (*RedisBroker)(nil)

// NewRedisBroker создает брокер. prefix по умолчанию DefaultChannelPrefix.
func NewRedisBroker(client *redis.Client, nodeID, prefix string, logger *slog.Logger) *RedisBroker {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBroker{
		client: client,
		nodeID: nodeID,
		prefix: prefix,
		logger: logger.With("node_id", nodeID),
	}
}

// Publish отправляет сообщение в канал комнаты.
func (b *RedisBroker) Publish(ctx context.Context, room string, data []byte) error {
	if err := b.client.Publish(ctx, b.prefix+room, encodeEnvelope(b.nodeID, data)).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Subscribe слушает каналы всех комнат до отмены ctx.
func (b *RedisBroker) Subscribe(ctx context.Context, handle func(room string, data []byte)) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+"*")
	defer func() {
		_ = pubsub.Close()
	}()

	// Ждем подтверждения подписки, чтобы не потерять первые сообщения
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			origin, payload, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				b.logger.Warn("Dropping malformed broker message", "channel", msg.Channel, "error", err)
				continue
			}
			if origin == b.nodeID {
				continue
			}
			handle(strings.TrimPrefix(msg.Channel, b.prefix), payload)
		}
	}
}

// Close закрывает клиент Redis.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func encodeEnvelope(origin string, payload []byte) []byte {
	b := protowire.AppendTag(nil, envOrigin, protowire.BytesType)
	b = protowire.AppendString(b, origin)
	b = protowire.AppendTag(b, envPayload, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func decodeEnvelope(data []byte) (string, []byte, error) {
	var (
		origin  string
		payload []byte
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", nil, errMalformedEnvelope
		}
		data = data[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", nil, errMalformedEnvelope
			}
			data = data[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return "", nil, errMalformedEnvelope
		}
		data = data[n:]
		switch num {
		case envOrigin:
			origin = string(v)
		case envPayload:
			payload = append([]byte(nil), v...)
		}
	}
	if origin == "" {
		return "", nil, fmt.Errorf("%w: missing origin", errMalformedEnvelope)
	}
	return origin, payload, nil
}
