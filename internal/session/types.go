// Package session persists conversations and supports fuzzy search over
// their turns.
package session

import "time"

// Role of a turn's author. A system-error turn carries a human-readable
// failure message surfaced to the user.
type Role string

const (
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
	RoleSystemError Role = "system-error"
)

// Session is one conversation owned by a user. Checkpoint is the id of
// the last durably committed turn.
type Session struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	Checkpoint string
}

// Turn is one message within a session. Timestamps increase strictly
// within a session.
type Turn struct {
	ID             string
	SessionID      string
	Seq            int
	Role           Role
	Content        string
	CreatedAt      time.Time
	ChunkRefs      []string
	FunctionResult string
}

// Match is a fuzzy-search hit over stored turns.
type Match struct {
	Turn  Turn
	Score float64
}
