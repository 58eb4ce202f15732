package matching

import "time"

// ConfirmationStatus is the tri-state answer of an ask-each-time member to
// this week's participation prompt.
type ConfirmationStatus string

const (
	ConfirmationPending  ConfirmationStatus = "PENDING"
	ConfirmationAccepted ConfirmationStatus = "ACCEPTED"
	ConfirmationDeclined ConfirmationStatus = "DECLINED"
)

// PendingConfirmation is one member's row in the confirmation registry.
// Corresponds to the 'pending_confirmations' table, keyed by member: a
// member has at most one outstanding row, and the whole table is cleared
// when the session's pairing phase completes.
type PendingConfirmation struct {
	MemberID  int64
	SessionID int64
	Status    ConfirmationStatus
	CreatedAt time.Time
}
