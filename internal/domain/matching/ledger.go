package matching

import (
	"context"
	"time"
)

// DefaultRecencyWindowDays is the cooldown during which two previously
// paired members are not paired again.
const DefaultRecencyWindowDays = 30

// RecencyLedger answers whether two members were paired within a cooldown
// window. Implementations must treat the pair as unordered.
type RecencyLedger interface {
	HasRecentPairing(ctx context.Context, memberA, memberB int64, windowDays int) (bool, error)
}

// WithinWindow reports whether a pairing created at createdAt falls inside
// the cooldown window ending at now. The boundary at the "now" edge is
// exclusive: with a zero-day window no finite-age record ever matches.
func WithinWindow(createdAt, now time.Time, windowDays int) bool {
	if windowDays < 0 {
		return false
	}
	return createdAt.After(now.AddDate(0, 0, -windowDays))
}
