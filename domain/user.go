package domain

import (
	"time"
)

// DefaultStatusLine is the profile status assigned at registration when the
// user does not provide one.
const DefaultStatusLine = "Hey there! I am using Chat."

// User is an account known to the relay. Online reflects the presence flag
// persisted best-effort on connect/disconnect; the authoritative signal is the
// presence registry.
type User struct {
	ID           string
	Name         string
	Email        string
	Number       string
	StatusLine   string
	Online       bool
	PasswordHash string
	CreatedAt    time.Time
}
