package normalize

import (
	"fmt"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// Normal forms, weakest first.
const (
	NF1  = "1NF"
	NF2  = "2NF"
	NF3  = "3NF"
	BCNF = "BCNF"
)

// Violation explains why a dependency breaks a normal form.
type Violation struct {
	FD     FD     `json:"fd" yaml:"fd"`
	Breaks string `json:"breaks" yaml:"breaks"`
	Reason string `json:"reason" yaml:"reason"`
}

// Analysis is the normalization report for one schema.
type Analysis struct {
	Attributes      []string    `json:"attributes" yaml:"attributes"`
	FDs             []FD        `json:"fds" yaml:"fds"`
	CandidateKeys   [][]string  `json:"candidate_keys" yaml:"candidate_keys"`
	PrimeAttributes []string    `json:"prime_attributes" yaml:"prime_attributes"`
	MinimalCover    []FD        `json:"minimal_cover" yaml:"minimal_cover"`
	NormalForm      string      `json:"normal_form" yaml:"normal_form"`
	Violations      []Violation `json:"violations" yaml:"violations"`
	Steps           []string    `json:"steps" yaml:"steps"`
}

// Analyze determines keys and the highest normal form of the schema. An empty
// schema means "every attribute mentioned by the dependencies". The relation is
// assumed to hold atomic values, so it is always at least in 1NF.
func Analyze(schema []string, fds []FD) (Analysis, error) {
	if len(schema) == 0 {
		schema = Attributes(fds)
	}
	schema = setOf(schema)
	known := toSet(schema)
	for _, fd := range fds {
		for _, a := range append(append([]string{}, fd.LHS...), fd.RHS...) {
			if !known[a] {
				return Analysis{}, fmt.Errorf("%w: %q in %s", ErrUnknownAttribute, a, fd)
			}
		}
	}

	rec := trace.NewRecorder(trace.CurrentLevel())
	rec.Stepf("R(%s)", strings.Join(schema, ", "))

	keys, err := CandidateKeys(schema, fds)
	if err != nil {
		return Analysis{}, err
	}
	prime := make(map[string]bool)
	for _, k := range keys {
		for _, a := range k {
			prime[a] = true
		}
		rec.Stepf("{%s}+ = {%s}: candidate key", strings.Join(k, ", "), strings.Join(Closure(k, fds), ", "))
	}
	primeList := make([]string, 0, len(prime))
	for _, a := range schema {
		if prime[a] {
			primeList = append(primeList, a)
		}
	}
	rec.Stepf("prime attributes: {%s}", strings.Join(primeList, ", "))

	violations := make([]Violation, 0)
	broken := make(map[string]bool)
	for _, fd := range fds {
		if IsSuperkey(fd.LHS, schema, fds) {
			continue
		}
		for _, a := range fd.RHS {
			if contains(fd.LHS, a) {
				continue
			}
			single := FD{LHS: fd.LHS, RHS: []string{a}}
			v := Violation{FD: single, Breaks: BCNF, Reason: fmt.Sprintf("{%s} is not a superkey", strings.Join(fd.LHS, ", "))}
			if !prime[a] {
				v.Breaks = NF3
				v.Reason += fmt.Sprintf(" and %s is not prime", a)
				if partOfKey(fd.LHS, keys) {
					v.Breaks = NF2
					v.Reason = fmt.Sprintf("partial dependency: {%s} is a proper subset of a candidate key and %s is not prime", strings.Join(fd.LHS, ", "), a)
				}
			}
			rec.Stepf("%s violates %s: %s", single, v.Breaks, v.Reason)
			violations = append(violations, v)
			broken[v.Breaks] = true
		}
	}

	var form string
	switch {
	case broken[NF2]:
		form = NF1
	case broken[NF3]:
		form = NF2
	case broken[BCNF]:
		form = NF3
	default:
		form = BCNF
	}
	rec.Stepf("highest normal form: %s", form)

	return Analysis{
		Attributes:      schema,
		FDs:             fds,
		CandidateKeys:   keys,
		PrimeAttributes: primeList,
		MinimalCover:    MinimalCover(fds),
		NormalForm:      form,
		Violations:      violations,
		Steps:           rec.Steps(),
	}, nil
}

// partOfKey reports whether lhs is a proper subset of some candidate key.
func partOfKey(lhs []string, keys [][]string) bool {
	for _, k := range keys {
		if len(lhs) < len(k) && containsAll(toSet(k), lhs) {
			return true
		}
	}
	return false
}
