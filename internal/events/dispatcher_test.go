package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var claimed, created []Event
	dispatcher.Subscribe(EventChatClaimed, func(ctx context.Context, e Event) error {
		claimed = append(claimed, e)
		return nil
	})
	dispatcher.Subscribe(EventNewChatRequest, func(ctx context.Context, e Event) error {
		created = append(created, e)
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventChatClaimed, ThreadID: "t1"}))
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventNewChatRequest, ThreadID: "t2"}))

	require.Len(t, claimed, 1)
	assert.Equal(t, "t1", claimed[0].ThreadID)
	require.Len(t, created, 1)
	assert.Equal(t, "t2", created[0].ThreadID)
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	invoked := 0
	dispatcher.Subscribe(EventChatClaimed, func(ctx context.Context, e Event) error {
		return errors.New("downstream unavailable")
	})
	dispatcher.Subscribe(EventChatClaimed, func(ctx context.Context, e Event) error {
		invoked++
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventChatClaimed, ThreadID: "t1"})
	assert.NoError(t, err, "handler failures never reach the publisher")
	assert.Equal(t, 1, invoked, "later handlers still run")
}

func TestDispatcherNoSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	assert.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventWorkItemCancelled}))
}
