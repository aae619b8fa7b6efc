// Package traffic generates traffic-shaping timelines for the leaky bucket
// and token bucket algorithms.
package traffic

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/cstopics/cstopics/sim"
)

// Event types.
const (
	EventArrival = "ARRIVAL"
	EventDrop    = "DROP"
	EventLeak    = "LEAK"
	EventTokens  = "TOKENS"
	EventSend    = "SEND"
	EventIdle    = "IDLE"
	EventDrain   = "DRAIN"
	EventDone    = "COMPLETE"
)

// MaxTicks bounds the generated timeline.
const MaxTicks = 10000

// ErrConfig is returned for an invalid configuration.
var ErrConfig = errors.New("invalid traffic config")

// Arrivals describes the input traffic. Explicit per-tick counts win over
// random generation; random counts are drawn uniformly from [0, MaxBurst].
type Arrivals struct {
	Ticks    int   `json:"ticks,omitempty" yaml:"ticks,omitempty" toml:"ticks"`
	Explicit []int `json:"arrivals,omitempty" yaml:"arrivals,omitempty" toml:"arrivals"`
	MaxBurst int   `json:"max_burst,omitempty" yaml:"max_burst,omitempty" toml:"max_burst"`
}

func (a Arrivals) ticks() int {
	if len(a.Explicit) > 0 && a.Ticks == 0 {
		return len(a.Explicit)
	}
	return a.Ticks
}

func (a Arrivals) validate() error {
	n := a.ticks()
	if n < 1 || n > MaxTicks {
		return fmt.Errorf("%w: ticks must be in [1, %d], got %d", ErrConfig, MaxTicks, n)
	}
	if a.MaxBurst < 0 {
		return fmt.Errorf("%w: max_burst must be non-negative, got %d", ErrConfig, a.MaxBurst)
	}
	for i, c := range a.Explicit {
		if c < 0 {
			return fmt.Errorf("%w: arrival count at tick %d is negative", ErrConfig, i)
		}
	}
	return nil
}

// at returns the arrival count for a tick. Ticks past the explicit list get
// zero arrivals. rng is only consulted in random mode.
func (a Arrivals) at(tick int, rng *rand.Rand) int {
	if len(a.Explicit) > 0 {
		if tick < len(a.Explicit) {
			return a.Explicit[tick]
		}
		return 0
	}
	if a.MaxBurst == 0 || rng == nil {
		return 0
	}
	return rng.Intn(a.MaxBurst + 1)
}

// Event is one step of a shaper timeline, with the bucket state after the step.
type Event struct {
	sim.Frame
	Packets int `json:"packets" yaml:"packets"`
	Level   int `json:"level" yaml:"level"`   // queued packets
	Tokens  int `json:"tokens" yaml:"tokens"` // token bucket only
	Sent    int `json:"sent" yaml:"sent"`
	Dropped int `json:"dropped" yaml:"dropped"`
}

// Result is a finished shaper timeline with totals.
type Result struct {
	Algorithm string  `json:"algorithm" yaml:"algorithm"`
	Events    []Event `json:"events" yaml:"events"`
	Arrived   int     `json:"arrived" yaml:"arrived"`
	Sent      int     `json:"sent" yaml:"sent"`
	Dropped   int     `json:"dropped" yaml:"dropped"`
	Level     int     `json:"level" yaml:"level"`
	PeakLevel int     `json:"peak_level" yaml:"peak_level"`
	PeakSend  int     `json:"peak_send" yaml:"peak_send"` // largest per-tick output
	Ticks     int     `json:"ticks" yaml:"ticks"`
}

type recorder struct {
	name string
	res  *Result
}

func (r recorder) emit(tick int, typ string, e Event, format string, args ...any) {
	e.Frame = sim.Frame{Time: int64(tick), Type: typ, Description: fmt.Sprintf(format, args...)}
	e.Sent = r.res.Sent
	e.Dropped = r.res.Dropped
	logrus.Debugf("[%s] tick=%d %s: %s", r.name, tick, typ, e.Description)
	r.res.Events = append(r.res.Events, e)
}
