package matching

import (
	"database/sql"
	"time"
)

// MeetingFeedback is a participant's answer on whether the meeting happened.
type MeetingFeedback string

const (
	FeedbackMet       MeetingFeedback = "MET"
	FeedbackDidNotMet MeetingFeedback = "DID_NOT_MEET"
)

// PairingRecord is one committed twosome.
// Corresponds to the 'pairing_records' table. Records are append-only and
// never deleted; meeting feedback is the only mutable field. The feedback
// column is shared by both participants, so a later response overwrites an
// earlier one.
type PairingRecord struct {
	ID          int64
	Member1ID   int64
	Member2ID   int64
	CreatedAt   time.Time
	IsCompleted bool
	Feedback    sql.NullString // one of the MeetingFeedback values when set
}
