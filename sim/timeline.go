package sim

import "fmt"

// Frame is the header carried by every timeline event.
type Frame struct {
	Time        int64  `json:"time" yaml:"time"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// Header returns the frame itself. Embedding Frame satisfies Event.
func (f Frame) Header() Frame {
	return f
}

// Event is implemented by every timeline event type.
type Event interface {
	Header() Frame
}

// Clock is a logical time counter. The zero value starts at time 0.
type Clock struct {
	now int64
}

// Now returns the current logical time.
func (c *Clock) Now() int64 {
	return c.now
}

// Tick advances the clock by one unit and returns the new time.
func (c *Clock) Tick() int64 {
	c.now++
	return c.now
}

// Set moves the clock to t if t is not in the past.
func (c *Clock) Set(t int64) int64 {
	if t > c.now {
		c.now = t
	}
	return c.now
}

// CheckTimeline verifies that event times never decrease.
// When strict is true, times must increase on every event.
func CheckTimeline[E Event](events []E, strict bool) error {
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1].Header().Time, events[i].Header().Time
		if cur < prev || (strict && cur == prev) {
			return fmt.Errorf("event %d (%s) at time %d follows time %d",
				i, events[i].Header().Type, cur, prev)
		}
	}
	return nil
}

// CountByType tallies events per type.
func CountByType[E Event](events []E) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Header().Type]++
	}
	return counts
}
