// Package domain contains core concepts of the relay.
// This file defines Message entities and the delivery-state lifecycle.
package domain

import (
	"time"
)

// MessageStatus is the delivery state of a message.
// Transitions are monotonic: sent < delivered < read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// CanAdvance reports whether moving to next respects the lifecycle order.
// A transition to an equal or lower state is refused, so a stray "delivered"
// can never overwrite an already-read message.
func (s MessageStatus) CanAdvance(next MessageStatus) bool {
	return next.rank() > s.rank()
}

// Pending reports whether the message still counts as unread for its receiver.
func (s MessageStatus) Pending() bool {
	return s == StatusSent || s == StatusDelivered
}

// Message is an immutable chat event between exactly two users.
// Content never changes after creation; only Status advances.
type Message struct {
	ID             string
	ConversationID string
	Sender         string
	Receiver       string
	Content        string
	Status         MessageStatus
	CreatedAt      time.Time
}
