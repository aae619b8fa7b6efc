package scenario

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cstopics/cstopics/sim"
	"github.com/cstopics/cstopics/sim/trace"
)

// Outcome is the {result, steps, error} envelope for one run.
type Outcome struct {
	RunID   string                 `json:"run_id" yaml:"run_id"`
	Name    string                 `json:"name" yaml:"name"`
	Kind    string                 `json:"kind" yaml:"kind"`
	Result  any                    `json:"result,omitempty" yaml:"result,omitempty"`
	Steps   []string               `json:"steps" yaml:"steps"`
	Summary *trace.TimelineSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error   string                 `json:"error,omitempty" yaml:"error,omitempty"`

	// Timeline holds the typed events of a generator run for streaming.
	Timeline []any `json:"-" yaml:"-"`
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool {
	return o.Error == ""
}

func newOutcome(run RunSpec) Outcome {
	return Outcome{
		RunID: uuid.NewString(),
		Name:  run.Name,
		Kind:  run.Kind,
		Steps: []string{},
	}
}

// Reject builds the Outcome for a run refused before execution.
func Reject(run RunSpec, err error) Outcome {
	out := newOutcome(run)
	out.Error = err.Error()
	return out
}

// Execute runs one RunSpec. Failures, including validation failures, are
// reported in Outcome.Error. Generators that need randomness draw it from rng;
// a nil rng is replaced by one seeded with DefaultSeed.
func Execute(run RunSpec, rng *sim.PartitionedRNG) Outcome {
	if err := run.Validate(); err != nil {
		out := Reject(run, err)
		logrus.Warnf("[scenario] run %s (%s) rejected: %v", run.Name, out.RunID, err)
		return out
	}
	out := newOutcome(run)
	if rng == nil {
		rng = sim.NewPartitionedRNG(sim.NewSimulationKey(DefaultSeed))
	}

	logrus.Debugf("[scenario] run %s (%s) kind=%s", run.Name, out.RunID, run.Kind)
	ex, err := registry[run.Kind].run(&run, rng)
	if err != nil {
		out.Error = err.Error()
		logrus.Infof("[scenario] run %s (%s) failed: %v", run.Name, out.RunID, err)
		return out
	}
	out.Result = ex.result
	if ex.steps != nil {
		out.Steps = ex.steps
	}
	if ex.frames != nil {
		out.Summary = trace.Summarize(ex.frames)
		out.Timeline = ex.timeline
	}
	return out
}

// ExecuteAll runs every run of spec in order. Each run gets a fresh RNG
// seeded from spec.Seed, so a run's output does not depend on its position.
func ExecuteAll(spec *Spec) []Outcome {
	outcomes := make([]Outcome, 0, len(spec.Runs))
	for _, run := range spec.Runs {
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.Seed))
		outcomes = append(outcomes, Execute(run, rng))
	}
	return outcomes
}
