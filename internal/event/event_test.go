package event_test

import (
	"testing"
	"time"

	"github.com/calfield/mediabin/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Dispatch_CallsRegisteredHandlerFunctions(t *testing.T) {
	t.Parallel()

	bus := event.New()

	var seen []event.Payload
	bus.RegisterHandlerFunction(event.MediaAddedEvent, func(_ event.Event, payload event.Payload) {
		seen = append(seen, payload)
	})

	bus.Dispatch(event.MediaAddedEvent, "first")
	bus.Dispatch(event.MediaAddedEvent, "second")
	bus.Dispatch(event.MediaRemovedEvent, "ignored")

	assert.Equal(t, []event.Payload{"first", "second"}, seen)
}

func Test_Dispatch_DeliversToChannelHandlersForEachRegisteredEvent(t *testing.T) {
	t.Parallel()

	bus := event.New()
	channel := make(event.HandlerChannel, 4)
	bus.RegisterHandlerChannel(channel, event.IngestProgressEvent, event.IngestCompleteEvent)

	bus.Dispatch(event.IngestProgressEvent, 50)
	bus.Dispatch(event.IngestCompleteEvent, 2)
	bus.Dispatch(event.MediaClearedEvent, nil)

	require.Len(t, channel, 2)
	assert.Equal(t, event.HandlerEvent{Event: event.IngestProgressEvent, Payload: 50}, <-channel)
	assert.Equal(t, event.HandlerEvent{Event: event.IngestCompleteEvent, Payload: 2}, <-channel)
}

func Test_Dispatch_AsyncHandlerDoesNotBlockDispatch(t *testing.T) {
	t.Parallel()

	bus := event.New()

	release := make(chan struct{})
	done := make(chan event.Payload, 1)
	bus.RegisterAsyncHandlerFunction(event.MediaRemovedEvent, func(_ event.Event, payload event.Payload) {
		<-release
		done <- payload
	})

	// Dispatch must return while the handler is still parked.
	bus.Dispatch(event.MediaRemovedEvent, "payload")

	select {
	case <-done:
		t.Fatal("async handler completed before being released")
	default:
	}

	close(release)
	select {
	case payload := <-done:
		assert.Equal(t, "payload", payload)
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
}
