package traffic

import (
	"fmt"
	"math/rand"
)

// LeakyConfig parameterizes a leaky bucket: a queue of Capacity packets
// drained at a constant LeakRate packets per tick.
type LeakyConfig struct {
	Arrivals `yaml:",inline"`
	Capacity int  `json:"capacity" yaml:"capacity" toml:"capacity"`
	LeakRate int  `json:"leak_rate" yaml:"leak_rate" toml:"leak_rate"`
	Drain    bool `json:"drain,omitempty" yaml:"drain,omitempty" toml:"drain"`
}

// Validate checks the bucket parameters and the arrival description.
func (c LeakyConfig) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrConfig, c.Capacity)
	}
	if c.LeakRate < 1 {
		return fmt.Errorf("%w: leak_rate must be positive, got %d", ErrConfig, c.LeakRate)
	}
	return c.Arrivals.validate()
}

// LeakyBucket generates a leaky bucket timeline. Each tick, arrivals are
// admitted up to the free space and the rest dropped, then up to LeakRate
// packets leave. With Drain set, the timeline continues past the last arrival
// tick until the bucket is empty.
func LeakyBucket(cfg LeakyConfig, rng *rand.Rand) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Algorithm: "leaky-bucket"}
	rec := recorder{name: "leaky", res: &res}

	level := 0
	leak := func(tick int, typ string) {
		out := min(level, cfg.LeakRate)
		level -= out
		res.Sent += out
		res.PeakSend = max(res.PeakSend, out)
		if out == 0 {
			rec.emit(tick, EventIdle, Event{Level: level}, "bucket empty, nothing leaks")
			return
		}
		rec.emit(tick, typ, Event{Packets: out, Level: level}, "%d packet(s) leak out, level %d/%d", out, level, cfg.Capacity)
	}

	ticks := cfg.ticks()
	for tick := 0; tick < ticks; tick++ {
		n := cfg.at(tick, rng)
		res.Arrived += n
		admitted := min(n, cfg.Capacity-level)
		level += admitted
		res.PeakLevel = max(res.PeakLevel, level)
		if n > 0 {
			rec.emit(tick, EventArrival, Event{Packets: admitted, Level: level}, "%d packet(s) arrive, %d admitted, level %d/%d", n, admitted, level, cfg.Capacity)
		}
		if over := n - admitted; over > 0 {
			res.Dropped += over
			rec.emit(tick, EventDrop, Event{Packets: over, Level: level}, "bucket full, %d packet(s) dropped", over)
		}
		leak(tick, EventLeak)
	}
	res.Ticks = ticks

	if cfg.Drain {
		for tick := ticks; level > 0; tick++ {
			leak(tick, EventDrain)
			res.Ticks = tick + 1
		}
	}
	res.Level = level
	rec.emit(res.Ticks, EventDone, Event{Level: level}, "%d arrived, %d sent, %d dropped, %d queued", res.Arrived, res.Sent, res.Dropped, level)
	return res, nil
}
