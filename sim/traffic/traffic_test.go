package traffic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cstopics/cstopics/sim"
)

func trafficRNG(seed int64) *sim.PartitionedRNG {
	return sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
}

func TestLeakyBucket_OverflowAndLeak(t *testing.T) {
	// GIVEN a 5-packet bucket leaking 2 per tick and a 4-per-tick burst
	cfg := LeakyConfig{Arrivals: Arrivals{Explicit: []int{4, 4, 4, 0}}, Capacity: 5, LeakRate: 2}

	// WHEN the timeline is generated
	res, err := LeakyBucket(cfg, nil)
	require.NoError(t, err)

	// THEN the overflow is dropped and the output rate stays constant
	assert.Equal(t, 12, res.Arrived)
	assert.Equal(t, 8, res.Sent)
	assert.Equal(t, 3, res.Dropped)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, 5, res.PeakLevel)
	assert.Equal(t, 2, res.PeakSend)
	assert.Equal(t, 4, res.Ticks)

	require.NoError(t, sim.CheckTimeline(res.Events, false))
	counts := sim.CountByType(res.Events)
	assert.Equal(t, 2, counts[EventDrop])
	assert.Equal(t, 4, counts[EventLeak])
	assert.Equal(t, EventDone, res.Events[len(res.Events)-1].Type)
}

func TestLeakyBucket_Drain(t *testing.T) {
	cfg := LeakyConfig{Arrivals: Arrivals{Explicit: []int{4, 4, 4, 0}}, Capacity: 5, LeakRate: 2, Drain: true}
	res, err := LeakyBucket(cfg, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Level)
	assert.Equal(t, 9, res.Sent)
	assert.Equal(t, 5, res.Ticks)
	assert.Equal(t, 1, sim.CountByType(res.Events)[EventDrain])
}

func TestLeakyBucket_RandomArrivalsConserve(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 42} {
		cfg := LeakyConfig{Arrivals: Arrivals{Ticks: 50, MaxBurst: 6}, Capacity: 8, LeakRate: 3}
		res, err := LeakyBucket(cfg, trafficRNG(seed).ForSubsystem(sim.SubsystemTraffic))
		require.NoError(t, err)

		assert.Equal(t, res.Arrived, res.Sent+res.Dropped+res.Level, "seed %d", seed)
		for _, e := range res.Events {
			assert.GreaterOrEqual(t, e.Level, 0)
			assert.LessOrEqual(t, e.Level, cfg.Capacity)
		}
		require.NoError(t, sim.CheckTimeline(res.Events, false))
	}
}

func TestLeakyBucket_SameSeedSameTimeline(t *testing.T) {
	cfg := LeakyConfig{Arrivals: Arrivals{Ticks: 20, MaxBurst: 4}, Capacity: 6, LeakRate: 2}
	a, err := LeakyBucket(cfg, trafficRNG(9).ForSubsystem(sim.SubsystemTraffic))
	require.NoError(t, err)
	b, err := LeakyBucket(cfg, trafficRNG(9).ForSubsystem(sim.SubsystemTraffic))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTokenBucket_AllowsBurst(t *testing.T) {
	// GIVEN a full 3-token bucket refilled at one token per tick
	cfg := TokenConfig{Arrivals: Arrivals{Explicit: []int{5, 0, 0, 0}}, Capacity: 3, Rate: 1}

	// WHEN a burst of five packets arrives at once
	res, err := TokenBucket(cfg, nil)
	require.NoError(t, err)

	// THEN three leave immediately and the rest follow as tokens accrue
	assert.Equal(t, 3, res.PeakSend)
	assert.Equal(t, 5, res.Sent)
	assert.Zero(t, res.Level)
	assert.Zero(t, res.Dropped)

	var sends []int
	for _, e := range res.Events {
		if e.Type == EventSend {
			sends = append(sends, e.Packets)
		}
	}
	assert.Equal(t, []int{3, 1, 1}, sends)

	leaky, err := LeakyBucket(LeakyConfig{Arrivals: cfg.Arrivals, Capacity: 5, LeakRate: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, leaky.PeakSend, "a leaky bucket smooths the same burst")
}

func TestTokenBucket_QueueLimit(t *testing.T) {
	cfg := TokenConfig{Arrivals: Arrivals{Explicit: []int{6}}, Capacity: 1, Rate: 1, QueueLimit: 4}
	res, err := TokenBucket(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 3, res.Level)
	assert.Equal(t, res.Arrived, res.Sent+res.Dropped+res.Level)
}

func TestConfigValidation(t *testing.T) {
	_, err := LeakyBucket(LeakyConfig{Arrivals: Arrivals{Ticks: 3}, Capacity: 0, LeakRate: 1}, nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = LeakyBucket(LeakyConfig{Arrivals: Arrivals{Ticks: 3}, Capacity: 2, LeakRate: 0}, nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = LeakyBucket(LeakyConfig{Capacity: 2, LeakRate: 1}, nil)
	assert.ErrorIs(t, err, ErrConfig, "zero ticks")
	_, err = LeakyBucket(LeakyConfig{Arrivals: Arrivals{Explicit: []int{1, -1}}, Capacity: 2, LeakRate: 1}, nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = TokenBucket(TokenConfig{Arrivals: Arrivals{Ticks: MaxTicks + 1}, Capacity: 2, Rate: 1}, nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = TokenBucket(TokenConfig{Arrivals: Arrivals{Ticks: 2}, Capacity: 2, Rate: 1, QueueLimit: -1}, nil)
	assert.ErrorIs(t, err, ErrConfig)
}
