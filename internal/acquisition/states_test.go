package acquisition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_WalksStates(t *testing.T) {
	tr := NewTracker(nil)
	assert.Equal(t, StateInit, tr.Current())

	tr.To(StateAuthenticated)
	tr.To(StateReportPageLoaded)
	tr.To(StateDownloadSaved)

	assert.Equal(t, StateDownloadSaved, tr.Current())

	transitions := tr.Transitions()
	require.Len(t, transitions, 3)
	assert.Equal(t, StateInit, transitions[0].From)
	assert.Equal(t, StateReportPageLoaded, transitions[2].From)
	for _, tran := range transitions {
		assert.False(t, tran.At.IsZero())
		assert.NoError(t, tran.Err)
	}
}

func TestTracker_FailRecordsCause(t *testing.T) {
	tr := NewTracker(nil)
	tr.To(StateReportPageLoaded)

	cause := fmt.Errorf("export dialog never opened")
	tr.Fail(cause)

	assert.Equal(t, StateFailed, tr.Current())
	transitions := tr.Transitions()
	require.Len(t, transitions, 2)
	assert.Equal(t, StateReportPageLoaded, transitions[1].From)
	assert.Equal(t, cause, transitions[1].Err)
}

func TestTracker_TransitionsReturnsCopy(t *testing.T) {
	tr := NewTracker(nil)
	tr.To(StateAuthenticated)

	got := tr.Transitions()
	got[0].To = StateFailed

	assert.Equal(t, StateAuthenticated, tr.Transitions()[0].To)
}
