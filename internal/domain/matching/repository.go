package matching

import (
	"context"
	"time"

	"random_coffee_bot/internal/domain/member"
)

// Repository defines persistence operations for MatchingSession,
// PairingRecord and PendingConfirmation.
type Repository interface {
	// MatchingSession methods. Status writes are conditional on the current
	// status so racing callers observe a precondition failure instead of
	// corrupting state.
	CreateSession(ctx context.Context, s *Session) error
	GetSessionByID(ctx context.Context, id int64) (*Session, error)
	GetCurrentSession(ctx context.Context) (*Session, error) // the session not yet COMPLETED
	TransitionSession(ctx context.Context, id int64, from, to SessionStatus) error
	CompleteSession(ctx context.Context, id int64, from SessionStatus, forced bool) error

	// PairingRecord methods. Records are append-only; feedback is the only
	// mutable field.
	CreatePairingRecord(ctx context.Context, rec *PairingRecord) error
	LatestPairingTime(ctx context.Context, memberA, memberB int64) (time.Time, error)
	HasRecentPairing(ctx context.Context, memberA, memberB int64, windowDays int) (bool, error)
	RecordMeetingFeedback(ctx context.Context, recordID int64, feedback MeetingFeedback) error
	CountPairingRecords(ctx context.Context) (int, error)
	CountPairingRecordsSince(ctx context.Context, since time.Time) (int, error)

	// PendingConfirmation methods. EnqueueConfirmations is idempotent: a
	// member already present gets their state reset to PENDING.
	// RespondToConfirmation returns false when the member has no pending
	// row, which is a no-op rather than an error.
	EnqueueConfirmations(ctx context.Context, sessionID int64, memberIDs []int64) error
	RespondToConfirmation(ctx context.Context, memberID int64, accepted bool) (bool, error)
	// The listings are scoped to one session so a stale row left behind by
	// a failed clear cannot surface in a later cycle.
	ListPendingMembers(ctx context.Context, sessionID int64) ([]*member.Member, error)
	ListConfirmedMembers(ctx context.Context, sessionID int64) ([]*member.Member, error)
	CountConfirmations(ctx context.Context) (pending int, accepted int, err error)
	ClearConfirmations(ctx context.Context) error
}
