package domain

import (
	"time"
)

// Conversation links exactly two distinct users.
// At most one conversation exists per unordered pair; the sorted pair is the
// uniqueness key enforced by the repository.
type Conversation struct {
	ID            string
	ParticipantA  string
	ParticipantB  string
	LastMessageID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SortPair normalizes an unordered participant pair into its canonical order.
func SortPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Includes reports whether userID is one of the two participants.
func (c Conversation) Includes(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Counterpart returns the other participant for a given member of the pair.
func (c Conversation) Counterpart(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}
