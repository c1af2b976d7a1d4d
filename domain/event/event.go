// Package event defines the domain events pushed to live connections.
// Event names match the wire protocol one-to-one.
package event

import (
	"chat-relay/domain"
)

const (
	NameMessageNew       = "message:new"
	NameMessageDelivered = "message:delivered"
	NameMessageRead      = "message:read"
	NamePresenceUpdate   = "presence:update"
	NameTypingStart      = "typing:start"
	NameTypingStop       = "typing:stop"
)

type DomainEvent interface {
	EventName() string
}

// MessageNew carries the full message record, both as delivery to the
// receiver and as echo to the sender.
type MessageNew struct {
	Message domain.Message
}

func (MessageNew) EventName() string { return NameMessageNew }

// MessageDelivered signals that a message reached the delivered state.
type MessageDelivered struct {
	MessageID string
}

func (MessageDelivered) EventName() string { return NameMessageDelivered }

// MessageRead signals that messages of a conversation reached the read state.
// Count is only present for the acknowledging party; its absence tells the
// counterpart "the other side read my messages".
type MessageRead struct {
	ConversationID string
	Count          *int
}

func (MessageRead) EventName() string { return NameMessageRead }

// PresenceUpdate is broadcast when a user's connection set becomes
// non-empty or empty.
type PresenceUpdate struct {
	UserID string
	Online bool
}

func (PresenceUpdate) EventName() string { return NamePresenceUpdate }

// Typing is the ephemeral typing indicator, relayed one hop with no
// persistence or delivery guarantee.
type Typing struct {
	From  string
	Start bool
}

func (t Typing) EventName() string {
	if t.Start {
		return NameTypingStart
	}
	return NameTypingStop
}
