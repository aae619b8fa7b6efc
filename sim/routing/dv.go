package routing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/cstopics/cstopics/sim"
)

// Event types.
const (
	EventInit      = "INIT"
	EventAdvertise = "ADVERTISE"
	EventUpdate    = "UPDATE"
	EventRoundEnd  = "ROUND_END"
	EventConverged = "CONVERGED"
	EventCutoff    = "MAX_ITERATIONS"
)

// DefaultMaxIterations bounds the number of exchange rounds.
const DefaultMaxIterations = 100

// ErrConfig is returned for an invalid Config.
var ErrConfig = errors.New("invalid distance-vector config")

// Config parameterizes a distance-vector run.
type Config struct {
	MaxIterations int  `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" toml:"max_iterations"`
	SplitHorizon  bool `json:"split_horizon,omitempty" yaml:"split_horizon,omitempty" toml:"split_horizon"`
	// Infinity is the cost treated as unreachable. Zero selects one more than
	// the sum of all link costs, which no real path can reach.
	Infinity int `json:"infinity,omitempty" yaml:"infinity,omitempty" toml:"infinity"`
}

func (c Config) withDefaults(t Topology) Config {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Infinity == 0 {
		c.Infinity = t.totalCost() + 1
	}
	return c
}

// Validate rejects negative limits.
func (c Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max_iterations must be non-negative, got %d", ErrConfig, c.MaxIterations)
	}
	if c.Infinity < 0 {
		return fmt.Errorf("%w: infinity must be non-negative, got %d", ErrConfig, c.Infinity)
	}
	return nil
}

// Route is one row of a distance vector.
type Route struct {
	Cost    int    `json:"cost" yaml:"cost"`
	NextHop string `json:"next_hop,omitempty" yaml:"next_hop,omitempty"`
}

// Table maps destination to route.
type Table map[string]Route

// Tables maps router to its table.
type Tables map[string]Table

// Clone returns a deep copy.
func (ts Tables) Clone() Tables {
	out := make(Tables, len(ts))
	for r, tbl := range ts {
		c := make(Table, len(tbl))
		for d, rt := range tbl {
			c[d] = rt
		}
		out[r] = c
	}
	return out
}

// Event is one step of the exchange. Tables is set on ROUND_END and the final event.
type Event struct {
	sim.Frame
	Round       int    `json:"round" yaml:"round"`
	Router      string `json:"router,omitempty" yaml:"router,omitempty"`
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
	OldCost     int    `json:"old_cost,omitempty" yaml:"old_cost,omitempty"`
	Cost        int    `json:"cost,omitempty" yaml:"cost,omitempty"`
	NextHop     string `json:"next_hop,omitempty" yaml:"next_hop,omitempty"`
	Tables      Tables `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// Result is a finished convergence run.
type Result struct {
	Tables    Tables  `json:"tables" yaml:"tables"`
	Rounds    int     `json:"rounds" yaml:"rounds"`
	Converged bool    `json:"converged" yaml:"converged"`
	Infinity  int     `json:"infinity" yaml:"infinity"`
	Events    []Event `json:"events" yaml:"events"`
}

// DistanceVector runs synchronous Bellman-Ford rounds from tables that only
// know directly attached links, until a round changes nothing or
// MaxIterations rounds have run.
func DistanceVector(t Topology, cfg Config) (Result, error) {
	return Reconverge(nil, t, cfg)
}

// Reconverge continues the exchange from prev, typically the tables of an
// earlier run before a link changed. Routers missing from prev start from
// their direct links; routes through vanished links are recomputed in the
// first round.
func Reconverge(prev Tables, t Topology, cfg Config) (Result, error) {
	if err := t.Validate(); err != nil {
		return Result{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	cfg = cfg.withDefaults(t)
	adj := t.neighbors()
	nodes := append([]string(nil), t.Nodes...)
	sort.Strings(nodes)

	res := Result{Infinity: cfg.Infinity}
	emit := func(e Event) {
		e.Time = int64(e.Round)
		logrus.Debugf("[dv] round=%d %s: %s", e.Round, e.Type, e.Description)
		res.Events = append(res.Events, e)
	}

	cur := initialTables(prev, t, adj, cfg.Infinity)
	emit(Event{
		Frame:  sim.Frame{Type: EventInit, Description: fmt.Sprintf("%d routers start with their direct links", len(nodes))},
		Tables: cur.Clone(),
	})

	for round := 1; round <= cfg.MaxIterations; round++ {
		for _, r := range nodes {
			emit(Event{
				Frame:  sim.Frame{Type: EventAdvertise, Description: fmt.Sprintf("%s sends its vector to %d neighbor(s)", r, len(adj[r]))},
				Round:  round,
				Router: r,
			})
		}

		next := make(Tables, len(nodes))
		changed := 0
		for _, r := range nodes {
			next[r] = relax(r, nodes, adj[r], cur, cfg)
			for _, d := range nodes {
				old, now := cur[r][d], next[r][d]
				if old == now {
					continue
				}
				changed++
				emit(Event{
					Frame:       sim.Frame{Type: EventUpdate, Description: fmt.Sprintf("%s: route to %s %s -> %s", r, d, costString(old.Cost, cfg.Infinity), costString(now.Cost, cfg.Infinity))},
					Round:       round,
					Router:      r,
					Destination: d,
					OldCost:     old.Cost,
					Cost:        now.Cost,
					NextHop:     now.NextHop,
				})
			}
		}
		cur = next
		res.Rounds = round
		emit(Event{
			Frame:  sim.Frame{Type: EventRoundEnd, Description: fmt.Sprintf("round %d: %d entr(ies) changed", round, changed)},
			Round:  round,
			Tables: cur.Clone(),
		})
		if changed == 0 {
			res.Converged = true
			break
		}
	}

	res.Tables = cur
	if res.Converged {
		emit(Event{
			Frame:  sim.Frame{Type: EventConverged, Description: fmt.Sprintf("stable after %d round(s)", res.Rounds)},
			Round:  res.Rounds,
			Tables: cur.Clone(),
		})
	} else {
		emit(Event{
			Frame:  sim.Frame{Type: EventCutoff, Description: fmt.Sprintf("still changing after %d round(s)", cfg.MaxIterations)},
			Round:  res.Rounds,
			Tables: cur.Clone(),
		})
	}
	return res, nil
}

func initialTables(prev Tables, t Topology, adj map[string][]Link, inf int) Tables {
	out := make(Tables, len(t.Nodes))
	for _, r := range t.Nodes {
		tbl := make(Table, len(t.Nodes))
		for _, d := range t.Nodes {
			tbl[d] = Route{Cost: inf}
		}
		if p, ok := prev[r]; ok {
			for d, rt := range p {
				if _, known := tbl[d]; known {
					tbl[d] = Route{Cost: min(rt.Cost, inf), NextHop: rt.NextHop}
				}
			}
		} else {
			for _, l := range adj[r] {
				tbl[l.To] = Route{Cost: l.Cost, NextHop: l.To}
			}
		}
		tbl[r] = Route{Cost: 0, NextHop: r}
		out[r] = tbl
	}
	return out
}

// relax computes router r's next table from its neighbors' current vectors.
// Ties go to the alphabetically first neighbor.
func relax(r string, nodes []string, links []Link, cur Tables, cfg Config) Table {
	tbl := make(Table, len(nodes))
	for _, d := range nodes {
		if d == r {
			tbl[d] = Route{Cost: 0, NextHop: r}
			continue
		}
		best := Route{Cost: cfg.Infinity}
		for _, l := range links {
			adv := cur[l.To][d]
			if cfg.SplitHorizon && adv.NextHop == r {
				continue
			}
			c := l.Cost + adv.Cost
			if c >= cfg.Infinity {
				continue
			}
			if c < best.Cost {
				best = Route{Cost: c, NextHop: l.To}
			}
		}
		tbl[d] = best
	}
	return tbl
}

func costString(c, inf int) string {
	if c >= inf {
		return "inf"
	}
	return fmt.Sprint(c)
}
