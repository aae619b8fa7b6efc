// Package trace records the human-readable derivation steps that accompany
// every computation result, and summarizes finished timelines.
package trace

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Level controls how much of a derivation is kept.
type Level string

const (
	// LevelNone drops step text (zero overhead beyond the nil check).
	LevelNone Level = "none"
	// LevelSteps keeps every recorded step.
	LevelSteps Level = "steps"
)

var validLevels = map[Level]bool{
	LevelNone:  true,
	LevelSteps: true,
	"":         true, // empty defaults to steps
}

// ErrLevel is returned for an unrecognized trace level.
var ErrLevel = errors.New("unknown trace level")

var current atomic.Value // Level

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// SetLevel sets the level every calculator records its steps at. It is meant
// to be called once at startup, from the --steps flag.
func SetLevel(level string) error {
	if !IsValidLevel(level) {
		return fmt.Errorf("%w: %q", ErrLevel, level)
	}
	if level == "" {
		level = string(LevelSteps)
	}
	current.Store(Level(level))
	return nil
}

// CurrentLevel returns the level set by SetLevel, LevelSteps until then.
func CurrentLevel() Level {
	if l, ok := current.Load().(Level); ok {
		return l
	}
	return LevelSteps
}

// Recorder collects derivation steps in order.
// A nil *Recorder accepts and discards every call.
type Recorder struct {
	level Level
	steps []string
}

// NewRecorder creates a Recorder at the given level.
func NewRecorder(level Level) *Recorder {
	if level == "" {
		level = LevelSteps
	}
	return &Recorder{level: level, steps: make([]string, 0)}
}

// Stepf appends a formatted step.
func (r *Recorder) Stepf(format string, args ...any) {
	if r == nil || r.level == LevelNone {
		return
	}
	r.steps = append(r.steps, fmt.Sprintf(format, args...))
}

// Steps returns a copy of the recorded steps. Never nil.
func (r *Recorder) Steps() []string {
	if r == nil {
		return []string{}
	}
	out := make([]string, len(r.steps))
	copy(out, r.steps)
	return out
}

// Len returns the number of recorded steps.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	return len(r.steps)
}
