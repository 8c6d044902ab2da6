package domain

import (
	"strings"
	"time"
)

// Session tracks the vectors uploaded for one ephemeral question-answer
// exchange. Vectors are purged after the answer stream reaches a terminal
// state; PurgedAt records that the purge actually happened so the reaper can
// pick up sessions whose cleanup failed or never ran.
type Session struct {
	ID        string
	OwnerID   string
	VectorIDs []string
	CreatedAt time.Time
	PurgedAt  *time.Time
}

// IsPurged returns true once the session's vectors have been deleted.
func (s *Session) IsPurged() bool {
	return s.PurgedAt != nil
}

// Scope returns the vector-store scope for this session. Ephemeral scopes are
// prefixed so they can never collide with a persistent owner scope.
func (s *Session) Scope() string {
	return SessionScope(s.ID)
}

// SessionScope builds an ephemeral vector-store scope from a session id.
func SessionScope(sessionID string) string {
	return "session:" + sessionID
}

// OwnerScope builds the persistent vector-store scope for an owner.
func OwnerScope(ownerID string) string {
	return "owner:" + ownerID
}

// IsSessionScope reports whether scope names an ephemeral session.
func IsSessionScope(scope string) bool {
	return strings.HasPrefix(scope, "session:")
}
