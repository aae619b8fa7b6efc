package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Frame
	Value int
}

func TestClock_TickAndSet(t *testing.T) {
	var c Clock
	assert.Equal(t, int64(0), c.Now())
	assert.Equal(t, int64(1), c.Tick())
	assert.Equal(t, int64(4), c.Set(4))
	assert.Equal(t, int64(4), c.Set(2), "clock never moves backwards")
	assert.Equal(t, int64(9), c.Set(9))
}

func TestCheckTimeline_Ordering(t *testing.T) {
	events := []testEvent{
		{Frame: Frame{Time: 1, Type: "A"}},
		{Frame: Frame{Time: 1, Type: "B"}},
		{Frame: Frame{Time: 3, Type: "C"}},
	}

	require.NoError(t, CheckTimeline(events, false))
	assert.Error(t, CheckTimeline(events, true), "equal times violate strict ordering")

	events[2].Time = 0
	assert.Error(t, CheckTimeline(events, false))
}

func TestCountByType(t *testing.T) {
	events := []testEvent{
		{Frame: Frame{Type: "SEND"}},
		{Frame: Frame{Type: "SEND"}},
		{Frame: Frame{Type: "ACK"}},
	}
	assert.Equal(t, map[string]int{"SEND": 2, "ACK": 1}, CountByType(events))
}
