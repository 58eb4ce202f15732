package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithinWindow(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	t.Run("recent record falls inside the window", func(t *testing.T) {
		createdAt := now.AddDate(0, 0, -5)
		assert.True(t, WithinWindow(createdAt, now, 30))
	})

	t.Run("old record falls outside the window", func(t *testing.T) {
		createdAt := now.AddDate(0, 0, -31)
		assert.False(t, WithinWindow(createdAt, now, 30))
	})

	t.Run("record exactly at the window edge is excluded", func(t *testing.T) {
		createdAt := now.AddDate(0, 0, -30)
		assert.False(t, WithinWindow(createdAt, now, 30))
	})

	t.Run("zero-day window never matches a past record", func(t *testing.T) {
		assert.False(t, WithinWindow(now.Add(-time.Second), now, 0))
		assert.False(t, WithinWindow(now.AddDate(0, 0, -1), now, 0))
	})

	t.Run("negative window never matches", func(t *testing.T) {
		assert.False(t, WithinWindow(now.Add(-time.Second), now, -1))
	})
}
