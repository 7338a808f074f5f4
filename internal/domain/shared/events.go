package shared

import "time"

// DomainEvent is the contract every aggregate's events satisfy. The
// event name doubles as the bus subscription key, so it must be stable
// across releases (subscribers match on the string, not the type).
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// EventHandler is a bus subscriber. It carries no context parameter:
// handlers run after the publishing command's transaction has committed
// and own their own deadlines.
type EventHandler func(event DomainEvent) error

// AggregateRoot collects the events an aggregate raises during one
// command. The owning service drains them with Events() after the
// transaction commits and hands them to the bus; events are never
// published from inside the transaction.
type AggregateRoot struct {
	pending []DomainEvent
}

// AddEvent queues an event for publication after commit.
func (a *AggregateRoot) AddEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// Events drains the pending queue. Draining on read means a rolled-back
// command that never calls Events leaves stale events behind; callers
// that abort must use ClearEvents.
func (a *AggregateRoot) Events() []DomainEvent {
	drained := a.pending
	a.pending = nil
	return drained
}

// ClearEvents discards pending events without publishing them.
func (a *AggregateRoot) ClearEvents() {
	a.pending = nil
}
