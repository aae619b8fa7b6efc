// Package mac generates slotted CSMA/CD timelines: carrier sensing,
// collision detection, jamming and truncated binary exponential backoff.
package mac

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/cstopics/cstopics/sim"
)

// Event types.
const (
	EventDefer     = "DEFER"
	EventTransmit  = "TRANSMIT_START"
	EventSuccess   = "TRANSMIT_END"
	EventCollision = "COLLISION"
	EventJam       = "JAM"
	EventBackoff   = "BACKOFF"
	EventDrop      = "DROP"
	EventHorizon   = "HORIZON"
	EventComplete  = "COMPLETE"
)

const (
	// BackoffCap is the exponent at which the contention window stops doubling.
	BackoffCap = 10
	// DefaultMaxAttempts is the Ethernet attempt limit.
	DefaultMaxAttempts = 16
	// DefaultMaxSlots caps the timeline length.
	DefaultMaxSlots = 100000
)

// ErrConfig is returned for an invalid Config.
var ErrConfig = errors.New("invalid csma/cd config")

// Config parameterizes a CSMA/CD run. Zero values take defaults.
type Config struct {
	Stations         int   `json:"stations" yaml:"stations" toml:"stations"`
	FramesPerStation int   `json:"frames_per_station" yaml:"frames_per_station" toml:"frames_per_station"`
	FrameSlots       int   `json:"frame_slots,omitempty" yaml:"frame_slots,omitempty" toml:"frame_slots"`
	MaxAttempts      int   `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" toml:"max_attempts"`
	ArrivalSpread    int   `json:"arrival_spread,omitempty" yaml:"arrival_spread,omitempty" toml:"arrival_spread"`
	MaxSlots         int64 `json:"max_slots,omitempty" yaml:"max_slots,omitempty" toml:"max_slots"`
}

func (c Config) withDefaults() Config {
	if c.FrameSlots == 0 {
		c.FrameSlots = 1
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.MaxSlots == 0 {
		c.MaxSlots = DefaultMaxSlots
	}
	return c
}

// Validate checks ranges after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.Stations < 1 || c.Stations > 64:
		return fmt.Errorf("%w: stations must be in [1, 64], got %d", ErrConfig, c.Stations)
	case c.FramesPerStation < 1 || c.FramesPerStation > 1000:
		return fmt.Errorf("%w: frames_per_station must be in [1, 1000], got %d", ErrConfig, c.FramesPerStation)
	case c.FrameSlots < 1 || c.FrameSlots > 100:
		return fmt.Errorf("%w: frame_slots must be in [1, 100], got %d", ErrConfig, c.FrameSlots)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max_attempts must be positive, got %d", ErrConfig, c.MaxAttempts)
	case c.ArrivalSpread < 0:
		return fmt.Errorf("%w: arrival_spread must be non-negative, got %d", ErrConfig, c.ArrivalSpread)
	case c.MaxSlots < 1:
		return fmt.Errorf("%w: max_slots must be positive, got %d", ErrConfig, c.MaxSlots)
	}
	return nil
}

// Event is one slot-stamped step of the shared medium.
type Event struct {
	sim.Frame
	Station    int   `json:"station" yaml:"station"` // -1 when the event concerns the medium
	Stations   []int `json:"stations,omitempty" yaml:"stations,omitempty"`
	Attempt    int   `json:"attempt,omitempty" yaml:"attempt,omitempty"`
	Backoff    int   `json:"backoff,omitempty" yaml:"backoff,omitempty"`
	BusyUntil  int64 `json:"busy_until" yaml:"busy_until"`
	Delivered  int   `json:"delivered" yaml:"delivered"`
	Collisions int   `json:"collisions" yaml:"collisions"`
}

// Result is the finished timeline with totals.
type Result struct {
	Events     []Event `json:"events" yaml:"events"`
	Delivered  int     `json:"delivered" yaml:"delivered"`
	Dropped    int     `json:"dropped" yaml:"dropped"`
	Collisions int     `json:"collisions" yaml:"collisions"`
	Slots      int64   `json:"slots" yaml:"slots"`
	Completed  bool    `json:"completed" yaml:"completed"`
	Throughput float64 `json:"throughput" yaml:"throughput"` // busy-with-success slots / total slots
}

type station struct {
	id        int
	remaining int
	attempts  int
	readyAt   int64
}

type transmission struct {
	station *station
	end     int64
}

// CSMACD simulates 1-persistent CSMA/CD on a slotted medium. All randomness
// (arrival offsets and backoff draws) comes from rng.
func CSMACD(cfg Config, rng *rand.Rand) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	cfg = cfg.withDefaults()

	stations := make([]*station, cfg.Stations)
	for i := range stations {
		stations[i] = &station{id: i, remaining: cfg.FramesPerStation}
		if cfg.ArrivalSpread > 0 {
			stations[i].readyAt = int64(rng.Intn(cfg.ArrivalSpread + 1))
		}
	}

	var res Result
	var busyUntil int64
	var tx *transmission
	emit := func(t int64, typ, desc string, st int, fill func(*Event)) {
		e := Event{
			Frame:      sim.Frame{Time: t, Type: typ, Description: desc},
			Station:    st,
			BusyUntil:  busyUntil,
			Delivered:  res.Delivered,
			Collisions: res.Collisions,
		}
		if fill != nil {
			fill(&e)
		}
		logrus.Debugf("[csmacd] slot=%d %s: %s", t, typ, desc)
		res.Events = append(res.Events, e)
	}
	pending := func() bool {
		for _, s := range stations {
			if s.remaining > 0 {
				return true
			}
		}
		return false
	}

	var clock sim.Clock
	for {
		t := clock.Now()
		if tx != nil && t >= tx.end {
			s := tx.station
			s.remaining--
			s.attempts = 0
			s.readyAt = t + 1
			res.Delivered++
			emit(t, EventSuccess, fmt.Sprintf("station %d finishes a frame (%d left)", s.id, s.remaining), s.id, nil)
			tx = nil
		}
		if tx == nil && !pending() {
			res.Completed = true
			break
		}
		if t > cfg.MaxSlots {
			emit(t, EventHorizon, fmt.Sprintf("stopped after %d slots", cfg.MaxSlots), -1, nil)
			break
		}

		ready := make([]*station, 0)
		for _, s := range stations {
			if s.remaining > 0 && s.readyAt <= t && (tx == nil || tx.station != s) {
				ready = append(ready, s)
			}
		}

		switch {
		case t < busyUntil:
			for _, s := range ready {
				s.readyAt = busyUntil
				emit(t, EventDefer, fmt.Sprintf("station %d senses the medium busy until slot %d", s.id, busyUntil), s.id, nil)
			}
		case len(ready) == 1:
			s := ready[0]
			busyUntil = t + int64(cfg.FrameSlots)
			tx = &transmission{station: s, end: busyUntil}
			emit(t, EventTransmit, fmt.Sprintf("station %d senses idle and transmits", s.id), s.id, func(e *Event) {
				e.Attempt = s.attempts + 1
			})
		case len(ready) > 1:
			ids := make([]int, len(ready))
			for i, s := range ready {
				ids[i] = s.id
			}
			res.Collisions++
			busyUntil = t + 1
			emit(t, EventCollision, fmt.Sprintf("stations %v transmit together: collision", ids), -1, func(e *Event) {
				e.Stations = ids
			})
			emit(t, EventJam, "colliding stations send the jam signal", -1, func(e *Event) {
				e.Stations = ids
			})
			for _, s := range ready {
				s.attempts++
				if s.attempts >= cfg.MaxAttempts {
					s.remaining--
					s.attempts = 0
					s.readyAt = t + 1
					res.Dropped++
					emit(t, EventDrop, fmt.Sprintf("station %d gives up after %d attempts", s.id, cfg.MaxAttempts), s.id, nil)
					continue
				}
				exp := min(s.attempts, BackoffCap)
				k := rng.Intn(1 << exp)
				s.readyAt = t + 1 + int64(k)
				attempt := s.attempts
				emit(t, EventBackoff, fmt.Sprintf("station %d backs off %d slot(s) (attempt %d, window 0..%d)", s.id, k, attempt, 1<<exp-1), s.id, func(e *Event) {
					e.Attempt = attempt
					e.Backoff = k
				})
			}
		}

		next := t + 1
		best := int64(-1)
		consider := func(v int64) {
			if v > t && (best < 0 || v < best) {
				best = v
			}
		}
		consider(busyUntil)
		for _, s := range stations {
			if s.remaining > 0 {
				consider(s.readyAt)
			}
		}
		if best > next {
			next = best
		}
		clock.Set(next)
	}

	t := clock.Now()
	res.Slots = t
	if t > 0 {
		res.Throughput = float64(res.Delivered*cfg.FrameSlots) / float64(t)
	}
	if res.Completed {
		emit(t, EventComplete, fmt.Sprintf("%d delivered, %d dropped, %d collision(s)", res.Delivered, res.Dropped, res.Collisions), -1, nil)
	}
	return res, nil
}
