package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-support-backend/internal/events"
)

// Broadcaster pushes a serialized event to locally connected agent clients.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// QueueNotifier bridges domain events to connected agent clients. Local
// delivery goes through the websocket hub; a Redis pub/sub channel relays
// events to the hubs of other service instances. Every failure here is logged
// and swallowed: fan-out is advisory and the store remains authoritative.
type QueueNotifier struct {
	hub        Broadcaster
	redis      *redis.Client
	channel    string
	instanceID string
	logger     *zap.Logger
}

// envelope wraps an event for the Redis relay so instances can ignore their
// own publications.
type envelope struct {
	InstanceID string       `json:"instanceId"`
	Event      events.Event `json:"event"`
}

// NewQueueNotifier constructs the notifier. redisClient may be nil, in which
// case fan-out is hub-only.
func NewQueueNotifier(hub Broadcaster, redisClient *redis.Client, channel string, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "support-queue:events"
	}
	return &QueueNotifier{
		hub:        hub,
		redis:      redisClient,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// RegisterHandlers subscribes the notifier to all queue-relevant events.
func (n *QueueNotifier) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventNewChatRequest, n.handle)
	dispatcher.Subscribe(events.EventChatClaimed, n.handle)
	dispatcher.Subscribe(events.EventWorkItemCancelled, n.handle)
}

func (n *QueueNotifier) handle(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("event marshal failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return nil
	}

	n.broadcastLocal(payload)
	n.relayRemote(ctx, event)
	return nil
}

func (n *QueueNotifier) broadcastLocal(payload []byte) {
	if n.hub == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("hub broadcast panicked", zap.Any("panic", r))
		}
	}()
	n.hub.Broadcast(payload)
}

func (n *QueueNotifier) relayRemote(ctx context.Context, event events.Event) {
	if n.redis == nil {
		return
	}
	wrapped, err := json.Marshal(envelope{InstanceID: n.instanceID, Event: event})
	if err != nil {
		return
	}
	if err := n.redis.Publish(ctx, n.channel, wrapped).Err(); err != nil {
		n.logger.Warn("redis relay failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

// Run consumes the Redis relay channel and forwards events published by other
// instances to the local hub. Blocks until ctx is done; callers run it in a
// goroutine. No-op without a Redis client.
func (n *QueueNotifier) Run(ctx context.Context) {
	if n.redis == nil || n.hub == nil {
		return
	}
	sub := n.redis.Subscribe(ctx, n.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				n.logger.Warn("invalid relay payload", zap.Error(err))
				continue
			}
			if env.InstanceID == n.instanceID {
				continue
			}
			payload, err := json.Marshal(env.Event)
			if err != nil {
				continue
			}
			n.broadcastLocal(payload)
		}
	}
}
