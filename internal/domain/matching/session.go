package matching

import (
	"database/sql"
	"time"
)

// SessionStatus is the phase of a matching session. Transitions only move
// forward: COLLECTING -> PAIRING -> COMPLETED.
type SessionStatus string

const (
	SessionCollecting SessionStatus = "COLLECTING"
	SessionPairing    SessionStatus = "PAIRING"
	SessionCompleted  SessionStatus = "COMPLETED"
)

// Session is a single weekly matching cycle.
// Corresponds to the 'matching_sessions' table. At most one session may be
// outside COMPLETED at any time; the schema enforces this with a partial
// unique index.
type Session struct {
	ID               int64
	Status           SessionStatus
	StartedAt        time.Time
	Deadline         time.Time // when the collection window is meant to close
	CompletedAt      sql.NullTime
	ForcedCompletion bool
}
