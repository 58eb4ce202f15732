package matching

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"random_coffee_bot/internal/domain/member"
)

// fakeLedger blocks the twosomes listed in blocked, keyed order-independently.
type fakeLedger struct {
	blocked map[[2]int64]bool
	err     error
	calls   int
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func (f *fakeLedger) HasRecentPairing(_ context.Context, memberA, memberB int64, _ int) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.blocked[pairKey(memberA, memberB)], nil
}

type fakeRecorder struct {
	records []*PairingRecord
	err     error
}

func (f *fakeRecorder) CreatePairingRecord(_ context.Context, rec *PairingRecord) error {
	if f.err != nil {
		return f.err
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, rec)
	return nil
}

func makePool(n int) []*member.Member {
	pool := make([]*member.Member, 0, n)
	for i := 1; i <= n; i++ {
		pool = append(pool, &member.Member{
			ID:         int64(i),
			TelegramID: int64(1000 + i),
			FirstName:  fmt.Sprintf("Member%d", i),
		})
	}
	return pool
}

func memberIDs(members []*member.Member) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestPairer_EvenPool(t *testing.T) {
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	pairer := NewPairer(ledger, recorder, 30)

	res, err := pairer.Pair(context.Background(), makePool(6))
	require.NoError(t, err)

	assert.Len(t, res.Pairs, 3)
	assert.Empty(t, res.Unmatched)
	assert.Empty(t, res.BlockedByRecency)
	assert.Len(t, recorder.records, 3)

	// Every member lands in exactly one pair, and each pair is backed by
	// the record written for it.
	seen := make(map[int64]bool)
	for _, p := range res.Pairs {
		assert.False(t, seen[p.First.ID])
		assert.False(t, seen[p.Second.ID])
		seen[p.First.ID] = true
		seen[p.Second.ID] = true
		assert.NotZero(t, p.RecordID)

		rec := recorder.records[p.RecordID-1]
		assert.ElementsMatch(t, []int64{p.First.ID, p.Second.ID}, []int64{rec.Member1ID, rec.Member2ID})
	}
	assert.Len(t, seen, 6)
}

func TestPairer_OddPoolLeavesOneUnmatched(t *testing.T) {
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	pairer := NewPairer(ledger, recorder, 30)

	res, err := pairer.Pair(context.Background(), makePool(5))
	require.NoError(t, err)

	assert.Len(t, res.Pairs, 2)
	assert.Len(t, res.Unmatched, 1)
	assert.Empty(t, res.BlockedByRecency)
	assert.Len(t, recorder.records, 2)
}

func TestPairer_TooSmallPool(t *testing.T) {
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{}
	pairer := NewPairer(ledger, recorder, 30)

	t.Run("empty pool", func(t *testing.T) {
		res, err := pairer.Pair(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, res.Pairs)
		assert.Empty(t, res.Unmatched)
		assert.Empty(t, res.BlockedByRecency)
	})

	t.Run("single member", func(t *testing.T) {
		res, err := pairer.Pair(context.Background(), makePool(1))
		require.NoError(t, err)
		assert.Empty(t, res.Pairs)
		assert.Len(t, res.Unmatched, 1)
		assert.EqualValues(t, 1, res.Unmatched[0].ID)
	})

	assert.Empty(t, recorder.records)
	assert.Zero(t, ledger.calls)
}

func TestPairer_RecencyBlockedTwosome(t *testing.T) {
	// With two members there is only one possible twosome, so blocking it
	// in the ledger is deterministic regardless of the shuffle.
	ledger := &fakeLedger{blocked: map[[2]int64]bool{pairKey(1, 2): true}}
	recorder := &fakeRecorder{}
	pairer := NewPairer(ledger, recorder, 30)

	res, err := pairer.Pair(context.Background(), makePool(2))
	require.NoError(t, err)

	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Unmatched)
	assert.ElementsMatch(t, []int64{1, 2}, memberIDs(res.BlockedByRecency))
	assert.Empty(t, recorder.records, "a blocked twosome must not be persisted")
}

func TestPairer_FullyBlockedPool(t *testing.T) {
	// All twosomes blocked: nobody gets committed, no records at all.
	blocked := make(map[[2]int64]bool)
	for a := int64(1); a <= 4; a++ {
		for b := a + 1; b <= 4; b++ {
			blocked[pairKey(a, b)] = true
		}
	}
	ledger := &fakeLedger{blocked: blocked}
	recorder := &fakeRecorder{}
	pairer := NewPairer(ledger, recorder, 30)

	res, err := pairer.Pair(context.Background(), makePool(4))
	require.NoError(t, err)

	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Unmatched)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, memberIDs(res.BlockedByRecency))
	assert.Empty(t, recorder.records)
}

func TestPairer_OutcomeSetsAreDisjoint(t *testing.T) {
	ledger := &fakeLedger{blocked: map[[2]int64]bool{
		pairKey(1, 2): true, pairKey(1, 3): true, pairKey(2, 3): true,
	}}
	recorder := &fakeRecorder{}
	pairer := NewPairer(ledger, recorder, 30)

	res, err := pairer.Pair(context.Background(), makePool(7))
	require.NoError(t, err)

	all := make([]int64, 0, 7)
	for _, p := range res.Pairs {
		all = append(all, p.First.ID, p.Second.ID)
	}
	all = append(all, memberIDs(res.Unmatched)...)
	all = append(all, memberIDs(res.BlockedByRecency)...)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 6, 7}, all)
}

func TestPairer_LedgerErrorAborts(t *testing.T) {
	ledger := &fakeLedger{err: fmt.Errorf("ledger down")}
	recorder := &fakeRecorder{}
	pairer := NewPairer(ledger, recorder, 30)

	res, err := pairer.Pair(context.Background(), makePool(4))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "ledger down")
	assert.Empty(t, recorder.records)
}

func TestPairer_RecorderErrorAborts(t *testing.T) {
	ledger := &fakeLedger{}
	recorder := &fakeRecorder{err: fmt.Errorf("insert failed")}
	pairer := NewPairer(ledger, recorder, 30)

	res, err := pairer.Pair(context.Background(), makePool(2))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "insert failed")
}

func TestNewPairer_NegativeWindowFallsBackToDefault(t *testing.T) {
	pairer := NewPairer(&fakeLedger{}, &fakeRecorder{}, -5)
	assert.Equal(t, DefaultRecencyWindowDays, pairer.windowDays)
}
