// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"sparki-service/internal/model"
)

// EventBus manages robot event distribution
type EventBus struct {
	subscribers map[model.EventType][]chan *model.RobotEvent
	events      chan *model.RobotEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[model.EventType][]chan *model.RobotEvent),
		events:      make(chan *model.RobotEvent, 1000),
		logger:      logger,
	}
}

// Start starts the event bus
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}
}

// Publish publishes an event
func (eb *EventBus) Publish(event *model.RobotEvent) {
	select {
	case eb.events <- event:
	default:
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan *model.RobotEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan *model.RobotEvent, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event *model.RobotEvent) {
	eb.mutex.RLock()
	subscribers := eb.subscribers[event.EventType]
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// RobotEventRelay fans robot events out to the event bus and the
// websocket clients. It is the service layer's event publisher.
type RobotEventRelay struct {
	websocketHandler *WebSocketHandler
	eventBus         *EventBus
	logger           *zap.Logger
}

// NewRobotEventRelay creates a new robot event relay
func NewRobotEventRelay(websocketHandler *WebSocketHandler, eventBus *EventBus, logger *zap.Logger) *RobotEventRelay {
	return &RobotEventRelay{
		websocketHandler: websocketHandler,
		eventBus:         eventBus,
		logger:           logger,
	}
}

// PublishRobotEvent forwards a robot event to all delivery paths
func (rer *RobotEventRelay) PublishRobotEvent(event *model.RobotEvent) {
	if rer.eventBus != nil {
		rer.eventBus.Publish(event)
	}
	if rer.websocketHandler != nil {
		rer.websocketHandler.BroadcastRobotEvent(event)
	}

	if event.Severity == "CRITICAL" || event.Severity == "ERROR" {
		rer.logger.Warn("Robot event",
			zap.String("event_type", string(event.EventType)),
			zap.String("severity", event.Severity),
			zap.Any("data", event.Data),
		)
	}
}
