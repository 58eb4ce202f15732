package matching

import (
	"context"
	"fmt"
	"math/rand"

	"random_coffee_bot/internal/domain/member"
)

// Pair is a committed twosome backed by a persisted PairingRecord.
type Pair struct {
	RecordID int64
	First    *member.Member
	Second   *member.Member
}

// Result splits an eligible pool into three disjoint outcome sets so the
// caller can notify each group differently.
type Result struct {
	Pairs            []Pair           // committed, each backed by a record
	Unmatched        []*member.Member // odd leftover or nobody available
	BlockedByRecency []*member.Member // random twosome hit the cooldown rule
}

// PairRecorder persists committed pairing records.
type PairRecorder interface {
	CreatePairingRecord(ctx context.Context, rec *PairingRecord) error
}

// Pairer forms pairs from an eligible pool, consulting the recency ledger
// per candidate twosome.
type Pairer struct {
	ledger     RecencyLedger
	recorder   PairRecorder
	windowDays int
}

func NewPairer(ledger RecencyLedger, recorder PairRecorder, windowDays int) *Pairer {
	if windowDays < 0 {
		windowDays = DefaultRecencyWindowDays
	}
	return &Pairer{
		ledger:     ledger,
		recorder:   recorder,
		windowDays: windowDays,
	}
}

// Pair applies a uniform random permutation to the pool and scans it in
// consecutive non-overlapping twos. A twosome paired within the recency
// window is not committed: both members land in BlockedByRecency and no
// record is written. Otherwise a PairingRecord is persisted and both
// members land in Pairs. An odd leftover always lands in Unmatched; it is
// never merged into an existing pair.
func (p *Pairer) Pair(ctx context.Context, pool []*member.Member) (*Result, error) {
	res := &Result{
		Pairs:            make([]Pair, 0),
		Unmatched:        make([]*member.Member, 0),
		BlockedByRecency: make([]*member.Member, 0),
	}

	if len(pool) < 2 {
		res.Unmatched = append(res.Unmatched, pool...)
		return res, nil
	}

	shuffled := make([]*member.Member, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for i := 0; i+1 < len(shuffled); i += 2 {
		first, second := shuffled[i], shuffled[i+1]

		recent, err := p.ledger.HasRecentPairing(ctx, first.ID, second.ID, p.windowDays)
		if err != nil {
			return nil, fmt.Errorf("recency check for members %d and %d: %w", first.ID, second.ID, err)
		}
		if recent {
			res.BlockedByRecency = append(res.BlockedByRecency, first, second)
			continue
		}

		rec := &PairingRecord{Member1ID: first.ID, Member2ID: second.ID}
		if err := p.recorder.CreatePairingRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("persisting pairing record for members %d and %d: %w", first.ID, second.ID, err)
		}
		res.Pairs = append(res.Pairs, Pair{RecordID: rec.ID, First: first, Second: second})
	}

	if len(shuffled)%2 == 1 {
		res.Unmatched = append(res.Unmatched, shuffled[len(shuffled)-1])
	}

	return res, nil
}
