// Package eventbus implements the synchronous, in-process domain event
// dispatcher (C11).
package eventbus

import (
	"context"
	"sync"

	"github.com/aetim/core/internal/domain/shared"
	"go.uber.org/zap"
)

// Bus dispatches a published event to every handler subscribed under its
// EventName, synchronously and in registration order. A handler panic is
// recovered and logged so one misbehaving subscriber never takes down
// the publishing call.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger.Named("eventbus"),
	}
}

// Subscribe registers handler to run whenever an event with the given
// name is published.
func (b *Bus) Subscribe(eventName string, handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish runs every handler subscribed to event.EventName(), in order,
// recovering and logging any panic rather than propagating it.
func (b *Bus) Publish(ctx context.Context, event shared.DomainEvent) {
	b.mu.RLock()
	handlers := append([]shared.EventHandler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(event, h)
	}
}

func (b *Bus) dispatch(event shared.DomainEvent, handler shared.EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", event.EventName()),
				zap.Any("recovered", r),
			)
		}
	}()

	if err := handler(event); err != nil {
		b.logger.Warn("event handler returned error",
			zap.String("event", event.EventName()),
			zap.Error(err),
		)
	}
}
