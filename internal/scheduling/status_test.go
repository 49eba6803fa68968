package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
		StatusInProgress: {StatusDone},
	}
	all := []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusDone, StatusCancelled, StatusNoShow}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	for _, s := range []Status{StatusDone, StatusCancelled, StatusNoShow} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusConfirmed.IsReschedulable())
	assert.False(t, StatusInProgress.IsReschedulable())
}
