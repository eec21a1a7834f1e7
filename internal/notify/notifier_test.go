package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chat-support-backend/internal/events"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *recordingBroadcaster) Broadcast(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
}

type panickingBroadcaster struct{}

func (panickingBroadcaster) Broadcast(payload []byte) {
	panic("client map corrupted")
}

func TestNotifierForwardsEventsToHub(t *testing.T) {
	hub := &recordingBroadcaster{}
	notifier := NewQueueNotifier(hub, nil, "", nil)
	dispatcher := events.NewInMemoryDispatcher()
	notifier.RegisterHandlers(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:       "evt-1",
		Type:     events.EventChatClaimed,
		ThreadID: "t1",
		Payload:  events.ChatClaimedPayload{ThreadID: "t1", AgentID: "A1", AgentName: "Alice"},
	})
	require.NoError(t, err)

	require.Len(t, hub.payloads, 1)
	var decoded events.Event
	require.NoError(t, json.Unmarshal(hub.payloads[0], &decoded))
	assert.Equal(t, events.EventChatClaimed, decoded.Type)
	assert.Equal(t, "t1", decoded.ThreadID)
}

func TestNotifierSurvivesPanickingHub(t *testing.T) {
	notifier := NewQueueNotifier(panickingBroadcaster{}, nil, "", nil)
	dispatcher := events.NewInMemoryDispatcher()
	notifier.RegisterHandlers(dispatcher)

	assert.NotPanics(t, func() {
		err := dispatcher.Publish(context.Background(), events.Event{
			Type:     events.EventNewChatRequest,
			ThreadID: "t1",
		})
		assert.NoError(t, err)
	})
}

func TestNotifierWithoutRedisIsHubOnly(t *testing.T) {
	hub := &recordingBroadcaster{}
	notifier := NewQueueNotifier(hub, nil, "", nil)

	err := notifier.handle(context.Background(), events.Event{
		Type:     events.EventWorkItemCancelled,
		ThreadID: "t1",
	})
	require.NoError(t, err)
	assert.Len(t, hub.payloads, 1)

	// Run is a no-op without a relay client, it must return immediately.
	done := make(chan struct{})
	go func() {
		notifier.Run(context.Background())
		close(done)
	}()
	<-done
}
