package settlement

import (
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriod(t *testing.T) {
	company := uuid.New()

	t.Run("computes month bounds", func(t *testing.T) {
		p, err := NewPeriod(company, 2024, 2)
		require.NoError(t, err)
		assert.Equal(t, PeriodStatusOpen, p.Status)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.StartDate)
		assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), p.EndDate)
		assert.True(t, p.Contains(time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC)))
		assert.False(t, p.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("rejects bad month", func(t *testing.T) {
		_, err := NewPeriod(company, 2024, 13)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects missing company", func(t *testing.T) {
		_, err := NewPeriod(uuid.Nil, 2024, 1)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestPeriod_StateMachine(t *testing.T) {
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	actor := uuid.New()

	newPeriod := func(t *testing.T) *Period {
		p, err := NewPeriod(uuid.New(), 2024, 4)
		require.NoError(t, err)
		return p
	}

	t.Run("lock then close", func(t *testing.T) {
		p := newPeriod(t)
		require.NoError(t, p.Lock(actor, "month end", now))
		assert.Equal(t, PeriodStatusLocked, p.Status)
		require.NotNil(t, p.LockedBy)
		assert.Equal(t, actor, *p.LockedBy)
		assert.Equal(t, now, *p.LockedAt)
		assert.Equal(t, "month end", p.LockNotes)

		require.NoError(t, p.Close(now))
		assert.Equal(t, PeriodStatusClosed, p.Status)
		assert.True(t, p.Status.IsTerminal())
	})

	t.Run("unlock returns to open", func(t *testing.T) {
		p := newPeriod(t)
		require.NoError(t, p.Lock(actor, "", now))
		require.NoError(t, p.Unlock("correction", now))
		assert.True(t, p.IsOpen())
		assert.Nil(t, p.LockedBy)
		assert.Nil(t, p.LockedAt)
	})

	t.Run("illegal transitions", func(t *testing.T) {
		p := newPeriod(t)
		assert.True(t, shared.IsState(p.Unlock("", now)), "open cannot be unlocked")
		assert.True(t, shared.IsState(p.Close(now)), "open cannot be closed")

		require.NoError(t, p.Lock(actor, "", now))
		assert.True(t, shared.IsState(p.Lock(actor, "", now)), "locked cannot be locked")

		require.NoError(t, p.Close(now))
		assert.True(t, shared.IsState(p.Unlock("", now)), "closed cannot be unlocked")
		assert.True(t, shared.IsState(p.Lock(actor, "", now)), "closed cannot be locked")
		assert.True(t, shared.IsState(p.Close(now)), "closed cannot be closed again")
	})

	t.Run("version advances on each transition", func(t *testing.T) {
		p := newPeriod(t)
		v := p.Version
		require.NoError(t, p.Lock(actor, "", now))
		require.NoError(t, p.Unlock("", now))
		assert.Equal(t, v+2, p.Version)
	})
}

func TestAppendNote(t *testing.T) {
	assert.Equal(t, "a", AppendNote("", "a"))
	assert.Equal(t, "a\nb", AppendNote("a", "b"))
	assert.Equal(t, "a", AppendNote("a", "  "))
}
