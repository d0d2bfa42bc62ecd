package auth

import (
	"maps"
	"time"
)

// User types recorded on sessions and embedded in tokens.
const (
	UserTypeAnonymous     = "anonymous"
	UserTypeAuthenticated = "authenticated"
)

// AnonymousUserID is the reserved user id for sessions created without
// credentials.
const AnonymousUserID = "anonymous"

// Session is one caller's server-side state. Instances returned by the
// Store are snapshots; mutating them does not affect stored state.
type Session struct {
	ID                string
	UserID            string
	UserType          string
	Authenticated     bool
	CreatedAt         time.Time
	LastActivity      time.Time
	ConversationCount int

	// Attrs holds free-form attributes merged in at creation and on
	// activity updates (device info, locale, and similar).
	Attrs map[string]any
}

// Clone returns a deep copy so callers cannot alias stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Attrs = maps.Clone(s.Attrs)
	return &out
}

// User is a static account record. PasswordHash is a bcrypt hash; it is
// nil for accounts that cannot log in.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  []byte
	Authenticated bool
	UserType      string
	CreatedAt     time.Time
	AccountStatus string
}

// SessionStats is the reporting view of a single session.
type SessionStats struct {
	SessionID         string `json:"session_id"`
	UserType          string `json:"user_type"`
	ConversationCount int    `json:"conversation_count"`
	SessionDuration   string `json:"session_duration"`
	LastActivity      string `json:"last_activity"`
	Authenticated     bool   `json:"is_authenticated"`
}

// AggregateStats summarizes the live session population.
type AggregateStats struct {
	TotalActiveSessions   int `json:"total_active_sessions"`
	AuthenticatedSessions int `json:"authenticated_sessions"`
	AnonymousSessions     int `json:"anonymous_sessions"`
	TotalUsers            int `json:"total_users"`
}
