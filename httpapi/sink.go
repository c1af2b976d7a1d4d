package httpapi

import (
	"chat-relay/domain/event"
	"context"
)

// connSink is one websocket connection's inbox. The relay pushes events in,
// the connection's write loop drains them onto the wire.
type connSink struct {
	events chan event.DomainEvent
}

func newConnSink(bufferSize int) *connSink {
	return &connSink{events: make(chan event.DomainEvent, bufferSize)}
}

// Consume hands the event to the connection's write loop. A full buffer
// drops the event instead of stalling the relay; real-time events are
// best-effort by policy.
func (s *connSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
