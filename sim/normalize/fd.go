// Package normalize analyzes relation schemas given as functional
// dependencies: attribute closure, candidate keys, minimal cover and the
// highest normal form (1NF through BCNF) the schema satisfies.
package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxAttributes bounds candidate-key enumeration.
const MaxAttributes = 20

var (
	// ErrSyntax is returned for a dependency line that is not `A, B -> C`.
	ErrSyntax = errors.New("malformed functional dependency")
	// ErrTooManyAttributes is returned when a schema exceeds MaxAttributes.
	ErrTooManyAttributes = errors.New("too many attributes")
	// ErrUnknownAttribute is returned when a dependency names an attribute outside the schema.
	ErrUnknownAttribute = errors.New("attribute not in schema")
)

// FD is a functional dependency LHS -> RHS over sorted attribute sets.
type FD struct {
	LHS []string `json:"lhs" yaml:"lhs"`
	RHS []string `json:"rhs" yaml:"rhs"`
}

func (f FD) String() string {
	return strings.Join(f.LHS, ", ") + " -> " + strings.Join(f.RHS, ", ")
}

// ParseFDs reads one dependency per line or per ';'-separated clause,
// attributes separated by commas or spaces.
func ParseFDs(text string) ([]FD, error) {
	fds := make([]FD, 0)
	text = strings.ReplaceAll(text, ";", "\n")
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.ReplaceAll(line, "→", "->")
		lhs, rhs, ok := strings.Cut(line, "->")
		if !ok {
			return nil, fmt.Errorf("%w: line %d %q: missing '->'", ErrSyntax, lineNo+1, line)
		}
		fd := FD{LHS: splitAttrs(lhs), RHS: splitAttrs(rhs)}
		if len(fd.LHS) == 0 || len(fd.RHS) == 0 {
			return nil, fmt.Errorf("%w: line %d %q: both sides need attributes", ErrSyntax, lineNo+1, line)
		}
		fds = append(fds, fd)
	}
	return fds, nil
}

func splitAttrs(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return setOf(fields)
}

// setOf returns the sorted, de-duplicated attributes.
func setOf(attrs []string) []string {
	seen := make(map[string]bool, len(attrs))
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Attributes returns every attribute mentioned by the dependencies.
func Attributes(fds []FD) []string {
	all := make([]string, 0)
	for _, fd := range fds {
		all = append(all, fd.LHS...)
		all = append(all, fd.RHS...)
	}
	return setOf(all)
}

// Closure returns attrs+ under fds.
func Closure(attrs []string, fds []FD) []string {
	have := make(map[string]bool)
	for _, a := range attrs {
		have[a] = true
	}
	for changed := true; changed; {
		changed = false
		for _, fd := range fds {
			if !containsAll(have, fd.LHS) {
				continue
			}
			for _, a := range fd.RHS {
				if !have[a] {
					have[a] = true
					changed = true
				}
			}
		}
	}
	out := make([]string, 0, len(have))
	for a := range have {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func containsAll(have map[string]bool, attrs []string) bool {
	for _, a := range attrs {
		if !have[a] {
			return false
		}
	}
	return true
}

func toSet(attrs []string) map[string]bool {
	m := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		m[a] = true
	}
	return m
}

// IsSuperkey reports whether attrs functionally determine the whole schema.
func IsSuperkey(attrs, schema []string, fds []FD) bool {
	return containsAll(toSet(Closure(attrs, fds)), schema)
}

// CandidateKeys returns every minimal superkey, smallest first.
func CandidateKeys(schema []string, fds []FD) ([][]string, error) {
	schema = setOf(schema)
	if len(schema) > MaxAttributes {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyAttributes, len(schema), MaxAttributes)
	}
	// Attributes never derived must be in every key.
	onRHS := make(map[string]bool)
	for _, fd := range fds {
		for _, a := range fd.RHS {
			if !contains(fd.LHS, a) {
				onRHS[a] = true
			}
		}
	}
	core := make([]string, 0)
	rest := make([]string, 0)
	for _, a := range schema {
		if onRHS[a] {
			rest = append(rest, a)
		} else {
			core = append(core, a)
		}
	}

	keys := make([][]string, 0)
	for size := 0; size <= len(rest); size++ {
		for _, combo := range combinations(rest, size) {
			cand := setOf(append(append([]string{}, core...), combo...))
			if hasSubsetKey(keys, cand) {
				continue
			}
			if IsSuperkey(cand, schema, fds) {
				keys = append(keys, cand)
			}
		}
	}
	return keys, nil
}

func hasSubsetKey(keys [][]string, cand []string) bool {
	set := toSet(cand)
	for _, k := range keys {
		if containsAll(set, k) {
			return true
		}
	}
	return false
}

func combinations(items []string, k int) [][]string {
	out := make([][]string, 0)
	var walk func(start int, cur []string)
	walk = func(start int, cur []string) {
		if len(cur) == k {
			out = append(out, append([]string{}, cur...))
			return
		}
		for i := start; i < len(items); i++ {
			walk(i+1, append(cur, items[i]))
		}
	}
	walk(0, make([]string, 0, k))
	return out
}

func contains(attrs []string, a string) bool {
	for _, x := range attrs {
		if x == a {
			return true
		}
	}
	return false
}

// MinimalCover returns an equivalent set of dependencies with single-attribute
// right-hand sides, no extraneous left-hand attributes and no redundant members.
func MinimalCover(fds []FD) []FD {
	split := make([]FD, 0)
	seen := make(map[string]bool)
	for _, fd := range fds {
		for _, a := range fd.RHS {
			if contains(fd.LHS, a) {
				continue
			}
			f := FD{LHS: fd.LHS, RHS: []string{a}}
			if !seen[f.String()] {
				seen[f.String()] = true
				split = append(split, f)
			}
		}
	}

	for i := range split {
		lhs := split[i].LHS
		for j := 0; j < len(lhs) && len(lhs) > 1; {
			reduced := append(append([]string{}, lhs[:j]...), lhs[j+1:]...)
			if contains(Closure(reduced, split), split[i].RHS[0]) {
				lhs = reduced
				split[i].LHS = lhs
				continue
			}
			j++
		}
	}

	out := make([]FD, 0, len(split))
	for i := 0; i < len(split); i++ {
		others := make([]FD, 0, len(split)-1)
		others = append(others, out...)
		others = append(others, split[i+1:]...)
		if contains(Closure(split[i].LHS, others), split[i].RHS[0]) {
			continue
		}
		out = append(out, split[i])
	}
	return dedupe(out)
}

func dedupe(fds []FD) []FD {
	seen := make(map[string]bool)
	out := make([]FD, 0, len(fds))
	for _, fd := range fds {
		if !seen[fd.String()] {
			seen[fd.String()] = true
			out = append(out, fd)
		}
	}
	return out
}
