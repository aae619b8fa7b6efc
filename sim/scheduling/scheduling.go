// Package scheduling generates CPU scheduling timelines and Gantt charts for
// FCFS, SJF, SRTF, round robin and priority scheduling.
package scheduling

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/cstopics/cstopics/sim"
)

// Algorithms.
const (
	FCFS     = "FCFS"
	SJF      = "SJF"
	SRTF     = "SRTF"
	RR       = "RR"
	Priority = "PRIORITY"
)

// Event types.
const (
	EventArrive   = "ARRIVE"
	EventDispatch = "DISPATCH"
	EventPreempt  = "PREEMPT"
	EventComplete = "COMPLETE"
	EventIdle     = "IDLE"
	EventDone     = "DONE"
)

// MaxProcesses bounds the input size.
const MaxProcesses = 100

var (
	// ErrAlgorithm is returned for an unknown algorithm name.
	ErrAlgorithm = errors.New("unknown scheduling algorithm")
	// ErrProcess is returned for an invalid process list.
	ErrProcess = errors.New("invalid process")
	// ErrQuantum is returned when round robin gets a non-positive quantum.
	ErrQuantum = errors.New("quantum must be positive")
)

// Algorithms lists the accepted algorithm names.
func Algorithms() []string {
	return []string{FCFS, SJF, SRTF, RR, Priority}
}

// Process is one job. Lower Priority values run first.
type Process struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Arrival  int    `json:"arrival" yaml:"arrival" toml:"arrival"`
	Burst    int    `json:"burst" yaml:"burst" toml:"burst"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty" toml:"priority"`
}

// Slice is one Gantt bar. Process is empty while the CPU idles.
type Slice struct {
	Process string `json:"process" yaml:"process"`
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
}

// Stats are the per-process metrics.
type Stats struct {
	ID         string `json:"id" yaml:"id"`
	Arrival    int    `json:"arrival" yaml:"arrival"`
	Burst      int    `json:"burst" yaml:"burst"`
	Completion int    `json:"completion" yaml:"completion"`
	Turnaround int    `json:"turnaround" yaml:"turnaround"`
	Waiting    int    `json:"waiting" yaml:"waiting"`
	Response   int    `json:"response" yaml:"response"`
}

// Event is one scheduler decision with the ready queue after it.
type Event struct {
	sim.Frame
	Process   string   `json:"process,omitempty" yaml:"process,omitempty"`
	Remaining int      `json:"remaining" yaml:"remaining"`
	Ready     []string `json:"ready" yaml:"ready"`
}

// Result is a complete schedule.
type Result struct {
	Algorithm     string  `json:"algorithm" yaml:"algorithm"`
	Quantum       int     `json:"quantum,omitempty" yaml:"quantum,omitempty"`
	Gantt         []Slice `json:"gantt" yaml:"gantt"`
	Stats         []Stats `json:"stats" yaml:"stats"` // input order
	AvgTurnaround float64 `json:"avg_turnaround" yaml:"avg_turnaround"`
	AvgWaiting    float64 `json:"avg_waiting" yaml:"avg_waiting"`
	AvgResponse   float64 `json:"avg_response" yaml:"avg_response"`
	Makespan      int     `json:"makespan" yaml:"makespan"`
	Utilization   float64 `json:"utilization" yaml:"utilization"`
	Events        []Event `json:"events" yaml:"events"`
}

type job struct {
	Process
	index     int
	remaining int
	started   bool
	firstRun  int
}

func validate(alg string, procs []Process, quantum int) error {
	if !slices.Contains(Algorithms(), alg) {
		return fmt.Errorf("%w: %q (want one of %s)", ErrAlgorithm, alg, strings.Join(Algorithms(), ", "))
	}
	if alg == RR && quantum < 1 {
		return fmt.Errorf("%w: got %d", ErrQuantum, quantum)
	}
	if len(procs) == 0 || len(procs) > MaxProcesses {
		return fmt.Errorf("%w: need 1 to %d processes, got %d", ErrProcess, MaxProcesses, len(procs))
	}
	ids := make(map[string]bool, len(procs))
	for _, p := range procs {
		switch {
		case p.ID == "":
			return fmt.Errorf("%w: empty id", ErrProcess)
		case ids[p.ID]:
			return fmt.Errorf("%w: duplicate id %q", ErrProcess, p.ID)
		case p.Arrival < 0:
			return fmt.Errorf("%w: %s has negative arrival %d", ErrProcess, p.ID, p.Arrival)
		case p.Burst < 1:
			return fmt.Errorf("%w: %s has non-positive burst %d", ErrProcess, p.ID, p.Burst)
		}
		ids[p.ID] = true
	}
	return nil
}

// Schedule runs the named algorithm over procs. Quantum is only used by RR.
// Ties are broken by arrival time and then input order; SRTF keeps the
// running process on a tie.
func Schedule(algorithm string, procs []Process, quantum int) (Result, error) {
	alg := strings.ToUpper(strings.TrimSpace(algorithm))
	if err := validate(alg, procs, quantum); err != nil {
		return Result{}, err
	}
	s := &scheduler{alg: alg, quantum: quantum}
	s.res.Algorithm = alg
	if alg == RR {
		s.res.Quantum = quantum
	}
	for i, p := range procs {
		s.jobs = append(s.jobs, &job{Process: p, index: i, remaining: p.Burst})
	}
	s.pending = slices.Clone(s.jobs)
	slices.SortStableFunc(s.pending, func(a, b *job) int { return a.Arrival - b.Arrival })
	s.run()
	return s.res, nil
}

type scheduler struct {
	alg     string
	quantum int
	jobs    []*job
	pending []*job
	ready   []*job
	running *job
	now     int
	busy    int
	stats   map[int]Stats
	res     Result
}

func (s *scheduler) emit(at int, typ string, j *job, format string, args ...any) {
	e := Event{
		Frame: sim.Frame{Time: int64(at), Type: typ, Description: fmt.Sprintf(format, args...)},
		Ready: make([]string, 0, len(s.ready)),
	}
	if j != nil {
		e.Process = j.ID
		e.Remaining = j.remaining
	}
	for _, r := range s.ready {
		e.Ready = append(e.Ready, r.ID)
	}
	logrus.Debugf("[sched] t=%d %s: %s", at, typ, e.Description)
	s.res.Events = append(s.res.Events, e)
}

// admit moves every job that has arrived by t into the ready queue.
func (s *scheduler) admit(t int) {
	for len(s.pending) > 0 && s.pending[0].Arrival <= t {
		j := s.pending[0]
		s.pending = s.pending[1:]
		s.ready = append(s.ready, j)
		s.emit(j.Arrival, EventArrive, j, "%s arrives (burst %d)", j.ID, j.Burst)
	}
}

func (s *scheduler) gantt(id string, start, end int) {
	if n := len(s.res.Gantt); n > 0 && s.res.Gantt[n-1].Process == id && s.res.Gantt[n-1].End == start {
		s.res.Gantt[n-1].End = end
		return
	}
	s.res.Gantt = append(s.res.Gantt, Slice{Process: id, Start: start, End: end})
}

// pick returns the index in the ready queue of the next job to run.
func (s *scheduler) pick() int {
	best := 0
	for i := 1; i < len(s.ready); i++ {
		if s.before(s.ready[i], s.ready[best]) {
			best = i
		}
	}
	return best
}

func (s *scheduler) before(a, b *job) bool {
	switch s.alg {
	case SJF, SRTF:
		if a.remaining != b.remaining {
			return a.remaining < b.remaining
		}
		if s.alg == SRTF && (a == s.running || b == s.running) {
			return a == s.running
		}
	case Priority:
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
	case FCFS, RR:
		return false // queue order
	}
	if a.Arrival != b.Arrival {
		return a.Arrival < b.Arrival
	}
	return a.index < b.index
}

func (s *scheduler) run() {
	s.stats = make(map[int]Stats, len(s.jobs))
	s.admit(0)
	for len(s.stats) < len(s.jobs) {
		if len(s.ready) == 0 {
			next := s.pending[0].Arrival
			s.emit(s.now, EventIdle, nil, "CPU idle until t=%d", next)
			s.gantt("", s.now, next)
			s.now = next
			s.admit(s.now)
			continue
		}

		i := s.pick()
		j := s.ready[i]
		s.ready = slices.Delete(s.ready, i, i+1)

		d := j.remaining
		switch s.alg {
		case RR:
			d = min(d, s.quantum)
		case SRTF:
			if len(s.pending) > 0 {
				d = min(d, s.pending[0].Arrival-s.now)
			}
		}

		if j != s.running {
			if !j.started {
				j.started = true
				j.firstRun = s.now
			}
			s.running = j
			s.emit(s.now, EventDispatch, j, "%s gets the CPU", j.ID)
		}
		start := s.now
		s.now += d
		j.remaining -= d
		s.busy += d
		s.gantt(j.ID, start, s.now)
		s.admit(s.now)

		if j.remaining == 0 {
			s.running = nil
			s.stats[j.index] = Stats{
				ID:         j.ID,
				Arrival:    j.Arrival,
				Burst:      j.Burst,
				Completion: s.now,
				Turnaround: s.now - j.Arrival,
				Waiting:    s.now - j.Arrival - j.Burst,
				Response:   j.firstRun - j.Arrival,
			}
			s.emit(s.now, EventComplete, j, "%s finishes", j.ID)
			continue
		}

		switch s.alg {
		case RR:
			s.ready = append(s.ready, j)
			s.running = nil
			s.emit(s.now, EventPreempt, j, "%s's quantum expires, %d left", j.ID, j.remaining)
		case SRTF:
			s.ready = append(s.ready, j)
			if k := s.pick(); s.ready[k] != j {
				s.running = nil
				s.emit(s.now, EventPreempt, j, "%s preempted by %s (%d < %d)", j.ID, s.ready[k].ID, s.ready[k].remaining, j.remaining)
			}
		}
	}
	s.finish()
}

func (s *scheduler) finish() {
	n := len(s.jobs)
	turnaround := make([]float64, n)
	waiting := make([]float64, n)
	response := make([]float64, n)
	s.res.Stats = make([]Stats, n)
	for i := range s.jobs {
		st := s.stats[i]
		s.res.Stats[i] = st
		turnaround[i] = float64(st.Turnaround)
		waiting[i] = float64(st.Waiting)
		response[i] = float64(st.Response)
	}
	s.res.AvgTurnaround = stat.Mean(turnaround, nil)
	s.res.AvgWaiting = stat.Mean(waiting, nil)
	s.res.AvgResponse = stat.Mean(response, nil)
	s.res.Makespan = s.now
	if s.now > 0 {
		s.res.Utilization = float64(s.busy) / float64(s.now)
	}
	s.emit(s.now, EventDone, nil, "average waiting %.2f, average turnaround %.2f", s.res.AvgWaiting, s.res.AvgTurnaround)
}
