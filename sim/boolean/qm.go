// Package boolean minimizes sum-of-products expressions with the
// Quine–McCluskey tabulation method and lays out Karnaugh maps.
package boolean

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// MaxVariables bounds the truth table size.
const MaxVariables = 8

var (
	// ErrVariables is returned for a variable count outside [1, MaxVariables].
	ErrVariables = errors.New("variable count out of range")
	// ErrMinterm is returned for a minterm outside the truth table or listed as both minterm and don't-care.
	ErrMinterm = errors.New("invalid minterm")
)

// Implicant is a product term written over {0, 1, -}, most significant
// variable first, together with the minterms it covers.
type Implicant struct {
	Term     string `json:"term" yaml:"term"`
	Minterms []int  `json:"minterms" yaml:"minterms"`
	Literal  string `json:"literal" yaml:"literal"`
}

func (i Implicant) dashes() int {
	return strings.Count(i.Term, "-")
}

// Result is the full minimization record.
type Result struct {
	Variables       []string    `json:"variables" yaml:"variables"`
	Minterms        []int       `json:"minterms" yaml:"minterms"`
	DontCares       []int       `json:"dont_cares" yaml:"dont_cares"`
	PrimeImplicants []Implicant `json:"prime_implicants" yaml:"prime_implicants"`
	Essential       []Implicant `json:"essential" yaml:"essential"`
	Selected        []Implicant `json:"selected" yaml:"selected"`
	Expression      string      `json:"expression" yaml:"expression"`
	Steps           []string    `json:"steps" yaml:"steps"`
}

// VariableNames returns A, B, C, ... for n variables.
func VariableNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	return names
}

func normalize(vars int, minterms, dontCares []int) ([]int, []int, error) {
	if vars < 1 || vars > MaxVariables {
		return nil, nil, fmt.Errorf("%w: %d (valid: 1-%d)", ErrVariables, vars, MaxVariables)
	}
	limit := 1 << vars
	seen := make(map[int]bool)
	mts := make([]int, 0, len(minterms))
	for _, m := range minterms {
		if m < 0 || m >= limit {
			return nil, nil, fmt.Errorf("%w: %d not in [0, %d)", ErrMinterm, m, limit)
		}
		if !seen[m] {
			seen[m] = true
			mts = append(mts, m)
		}
	}
	dcs := make([]int, 0, len(dontCares))
	dcSeen := make(map[int]bool)
	for _, d := range dontCares {
		if d < 0 || d >= limit {
			return nil, nil, fmt.Errorf("%w: don't-care %d not in [0, %d)", ErrMinterm, d, limit)
		}
		if seen[d] {
			return nil, nil, fmt.Errorf("%w: %d is both a minterm and a don't-care", ErrMinterm, d)
		}
		if !dcSeen[d] {
			dcSeen[d] = true
			dcs = append(dcs, d)
		}
	}
	sort.Ints(mts)
	sort.Ints(dcs)
	return mts, dcs, nil
}

// Simplify returns a minimal sum-of-products cover for the given minterms.
// Don't-cares may be absorbed into implicants but never need covering.
func Simplify(vars int, minterms, dontCares []int) (Result, error) {
	mts, dcs, err := normalize(vars, minterms, dontCares)
	if err != nil {
		return Result{}, err
	}
	rec := trace.NewRecorder(trace.CurrentLevel())
	names := VariableNames(vars)
	res := Result{Variables: names, Minterms: mts, DontCares: dcs}

	if len(mts) == 0 {
		rec.Stepf("no minterms: F = 0")
		res.Expression = "0"
		res.PrimeImplicants, res.Essential, res.Selected = []Implicant{}, []Implicant{}, []Implicant{}
		res.Steps = rec.Steps()
		return res, nil
	}

	primes := primeImplicants(vars, append(append([]int{}, mts...), dcs...), rec)
	for i := range primes {
		primes[i].Literal = literal(primes[i].Term, names)
	}
	res.PrimeImplicants = primes
	essential, selected := cover(primes, mts, rec)
	res.Essential = essential
	res.Selected = selected

	parts := make([]string, len(selected))
	for i, imp := range selected {
		parts[i] = imp.Literal
	}
	res.Expression = strings.Join(parts, " + ")
	rec.Stepf("F = %s", res.Expression)
	res.Steps = rec.Steps()
	return res, nil
}

// primeImplicants runs the tabulation rounds until no pair combines.
func primeImplicants(vars int, terms []int, rec *trace.Recorder) []Implicant {
	current := make([]Implicant, 0, len(terms))
	for _, m := range terms {
		current = append(current, Implicant{Term: fmt.Sprintf("%0*b", vars, m), Minterms: []int{m}})
	}

	primes := make([]Implicant, 0)
	primeSeen := make(map[string]bool)
	for round := 1; len(current) > 0; round++ {
		groups := make(map[int][]Implicant)
		for _, imp := range current {
			ones := strings.Count(imp.Term, "1")
			groups[ones] = append(groups[ones], imp)
		}
		rec.Stepf("round %d: %d term(s) in %d group(s) by number of ones", round, len(current), len(groups))

		used := make(map[string]bool)
		next := make([]Implicant, 0)
		nextSeen := make(map[string]bool)
		for ones := 0; ones < vars; ones++ {
			for _, a := range groups[ones] {
				for _, b := range groups[ones+1] {
					merged, ok := combine(a.Term, b.Term)
					if !ok {
						continue
					}
					used[a.Term], used[b.Term] = true, true
					if nextSeen[merged] {
						continue
					}
					nextSeen[merged] = true
					next = append(next, Implicant{Term: merged, Minterms: union(a.Minterms, b.Minterms)})
					rec.Stepf("combine %s %v and %s %v -> %s", a.Term, a.Minterms, b.Term, b.Minterms, merged)
				}
			}
		}
		for _, imp := range current {
			if !used[imp.Term] && !primeSeen[imp.Term] {
				primeSeen[imp.Term] = true
				primes = append(primes, imp)
				rec.Stepf("%s %v cannot be combined: prime implicant", imp.Term, imp.Minterms)
			}
		}
		current = next
	}
	sort.Slice(primes, func(i, j int) bool {
		if primes[i].Minterms[0] != primes[j].Minterms[0] {
			return primes[i].Minterms[0] < primes[j].Minterms[0]
		}
		return primes[i].Term < primes[j].Term
	})
	return primes
}

// combine merges two terms that differ in exactly one fixed bit and share dash positions.
func combine(a, b string) (string, bool) {
	diff := -1
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] {
			continue
		}
		if a[i] == '-' || b[i] == '-' || diff >= 0 {
			return "", false
		}
		diff = i
	}
	if diff < 0 {
		return "", false
	}
	return a[:diff] + "-" + a[diff+1:], true
}

func union(a, b []int) []int {
	out := append(append([]int{}, a...), b...)
	sort.Ints(out)
	return out
}

// cover selects essential prime implicants, then greedily covers what is left.
func cover(primes []Implicant, minterms []int, rec *trace.Recorder) (essential, selected []Implicant) {
	chart := make(map[int][]int) // minterm -> indexes of covering primes
	for i, p := range primes {
		for _, m := range p.Minterms {
			chart[m] = append(chart[m], i)
		}
	}

	chosen := make(map[int]bool)
	covered := make(map[int]bool)
	essential = make([]Implicant, 0)
	selected = make([]Implicant, 0)
	pick := func(i int) {
		chosen[i] = true
		selected = append(selected, primes[i])
		for _, m := range primes[i].Minterms {
			covered[m] = true
		}
	}

	for _, m := range minterms {
		if len(chart[m]) == 1 && !chosen[chart[m][0]] {
			i := chart[m][0]
			rec.Stepf("minterm %d is covered only by %s: essential", m, primes[i].Literal)
			essential = append(essential, primes[i])
			pick(i)
		}
	}

	for {
		remaining := 0
		for _, m := range minterms {
			if !covered[m] {
				remaining++
			}
		}
		if remaining == 0 {
			break
		}
		best, bestGain := -1, 0
		for i, p := range primes {
			if chosen[i] {
				continue
			}
			gain := 0
			for _, m := range p.Minterms {
				if !covered[m] && len(chart[m]) > 0 && contains(minterms, m) {
					gain++
				}
			}
			if gain == 0 {
				continue
			}
			if best < 0 || gain > bestGain || (gain == bestGain && p.dashes() > primes[best].dashes()) {
				best, bestGain = i, gain
			}
		}
		rec.Stepf("%d minterm(s) left: choose %s covering %d of them", remaining, primes[best].Literal, bestGain)
		pick(best)
	}
	return essential, selected
}

func contains(sorted []int, v int) bool {
	i := sort.SearchInts(sorted, v)
	return i < len(sorted) && sorted[i] == v
}

// literal renders a term as a product of variables; a complemented variable carries a trailing '.
func literal(term string, names []string) string {
	var b strings.Builder
	for i, c := range term {
		switch c {
		case '1':
			b.WriteString(names[i])
		case '0':
			b.WriteString(names[i])
			b.WriteByte('\'')
		}
	}
	if b.Len() == 0 {
		return "1"
	}
	return b.String()
}

// Evaluate reports whether the selected cover is true for the input row m.
func (r Result) Evaluate(m int) bool {
	vars := len(r.Variables)
	for _, imp := range r.Selected {
		match := true
		for i, c := range imp.Term {
			bit := (m >> uint(vars-1-i)) & 1
			if (c == '1' && bit == 0) || (c == '0' && bit == 1) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// LiteralCount returns the number of literals in the selected cover.
func (r Result) LiteralCount() int {
	n := 0
	for _, imp := range r.Selected {
		n += len(imp.Term) - imp.dashes()
	}
	return n
}
