//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain/event"
	"context"
)

// EventSink is one live connection's inbox. The transport layer owns the
// other end and pushes consumed events down the wire.
//
// Consume must not block indefinitely: a full sink drops the event rather
// than stalling the relay.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}
