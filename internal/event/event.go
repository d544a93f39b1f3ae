// A collection of event names and common methods used to handle the events,
// typically redirecting the handling to a service method or other method
// via the `Handler` interface.
package event

import (
	"sync"

	"github.com/calfield/mediabin/pkg/logger"
)

var log = logger.Get("Event")

// Events emitted by various parts of MediaBin that should be handled by
// another, silo'd part of the architecture. Each silo/service listens for
// a specific event which indicates something is ready for it to act on.
type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	eventHandler struct {
		mu           sync.RWMutex
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

const (
	MediaAddedEvent   Event = "media:added"
	MediaRemovedEvent Event = "media:removed"
	MediaClearedEvent Event = "media:cleared"

	IngestProgressEvent Event = "ingest:progress"
	IngestCompleteEvent Event = "ingest:complete"
)

func New() EventCoordinator {
	return &eventHandler{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel takes an event type and a channel and will send
// HandlerEvent messages on the channel any time a Dispatch for the provided
// event occurs. This method can be used multiple times for different events
// on the same channel.
//
// If the channel is BLOCKED when the event bus attempts to send on it,
// the goroutine dispatching the event will also be BLOCKED. Buffer handler
// channels appropriately to avoid dispatcher-side blocking.
func (handler *eventHandler) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	handler.mu.Lock()
	defer handler.mu.Unlock()

	for _, event := range events {
		handler.chanHandlers[event] = append(handler.chanHandlers[event], handle)
	}
}

// RegisterHandlerFunction takes an event type and a handler method which will
// be stored and called with the payload for the event whenever it is dispatched.
// The handle provided should be guaranteed to return quickly, else other
// goroutines calling Dispatch on this event bus will be blocked.
func (handler *eventHandler) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction accepts an Event and a HandlerMethod which will
// be stored and called inside of a goroutine when the event is dispatched.
// The speed at which this handle runs is not important to the event bus,
// unlike RegisterHandlerFunction.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, true})
}

func (handler *eventHandler) registerHandlerMethod(event Event, handle handlerMethod) {
	handler.mu.Lock()
	defer handler.mu.Unlock()

	handler.fnHandlers[event] = append(handler.fnHandlers[event], handle)
}

// Dispatch takes an event type and a payload and delivers the payload to every
// handler registered for the event type provided.
// Note that this method WILL block if a synchronous handler function is
// blocking, or if channel handlers are blocked.
func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	handler.mu.RLock()
	fnHandlers := handler.fnHandlers[event]
	chanHandlers := handler.chanHandlers[event]
	handler.mu.RUnlock()

	log.Emit(logger.VERBOSE, "Dispatching event %v\n", event)
	for _, method := range fnHandlers {
		if method.async {
			go method.handle(event, payload)
		} else {
			method.handle(event, payload)
		}
	}

	for _, channel := range chanHandlers {
		channel <- HandlerEvent{Event: event, Payload: payload}
	}
}
