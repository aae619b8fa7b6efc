// Package cyk parses context-free grammars in Chomsky Normal Form and decides
// membership with the Cocke–Younger–Kasami dynamic program.
package cyk

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

var (
	// ErrSyntax is returned for a grammar line that is not `NT -> alt | alt`.
	ErrSyntax = errors.New("malformed grammar rule")
	// ErrNotCNF is returned for a production that is neither `A -> a` nor `A -> B C`.
	ErrNotCNF = errors.New("production is not in Chomsky Normal Form")
	// ErrEmptyGrammar is returned when the text contains no rules.
	ErrEmptyGrammar = errors.New("grammar has no rules")
	// ErrEmptyInput is returned when asked to parse an empty string.
	ErrEmptyInput = errors.New("input string is empty")
)

// Grammar maps each non-terminal to its right-hand sides. A right-hand side
// is either one terminal or two non-terminals.
type Grammar struct {
	Start        string                `json:"start" yaml:"start"`
	NonTerminals []string              `json:"non_terminals" yaml:"non_terminals"`
	Terminals    []string              `json:"terminals" yaml:"terminals"`
	Rules        map[string][][]string `json:"rules" yaml:"rules"`
}

// IsNonTerminal reports whether a symbol names a non-terminal: it starts with an upper-case letter.
func IsNonTerminal(sym string) bool {
	for _, r := range sym {
		return unicode.IsUpper(r)
	}
	return false
}

// ParseGrammar reads lines of the form `S -> AB | a`. The first left-hand side
// is the start symbol. Blank lines and text after '#' are ignored.
func ParseGrammar(text string) (*Grammar, error) {
	g := &Grammar{Rules: make(map[string][][]string)}
	terminals := make(map[string]bool)
	for lineNo, line := range strings.Split(text, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.ReplaceAll(line, "→", "->")
		lhs, rhs, ok := strings.Cut(line, "->")
		if !ok {
			return nil, fmt.Errorf("%w: line %d %q: missing '->'", ErrSyntax, lineNo+1, line)
		}
		lhs = strings.TrimSpace(lhs)
		if lhs == "" || strings.ContainsAny(lhs, " \t") || !IsNonTerminal(lhs) {
			return nil, fmt.Errorf("%w: line %d: left-hand side %q must be a single non-terminal", ErrSyntax, lineNo+1, lhs)
		}
		if _, seen := g.Rules[lhs]; !seen {
			g.NonTerminals = append(g.NonTerminals, lhs)
			if g.Start == "" {
				g.Start = lhs
			}
		}
		for _, alt := range strings.Split(rhs, "|") {
			symbols := tokenize(strings.TrimSpace(alt))
			if err := checkCNF(symbols); err != nil {
				return nil, fmt.Errorf("line %d: %s -> %q: %w", lineNo+1, lhs, strings.TrimSpace(alt), err)
			}
			if len(symbols) == 1 {
				terminals[symbols[0]] = true
			}
			g.Rules[lhs] = append(g.Rules[lhs], symbols)
		}
	}
	if g.Start == "" {
		return nil, ErrEmptyGrammar
	}
	for t := range terminals {
		g.Terminals = append(g.Terminals, t)
	}
	sort.Strings(g.Terminals)
	return g, nil
}

// tokenize splits a right-hand side. Whitespace-separated symbols are taken
// as written and a run without upper-case letters is one terminal word.
// Otherwise an upper-case letter plus any following digits or primes forms
// one non-terminal and every other rune is a terminal.
func tokenize(alt string) []string {
	if alt == "" {
		return nil
	}
	if strings.ContainsAny(alt, " \t") {
		return strings.Fields(alt)
	}
	if !strings.ContainsFunc(alt, unicode.IsUpper) {
		return []string{alt}
	}
	runes := []rune(alt)
	out := make([]string, 0, 2)
	for i := 0; i < len(runes); {
		j := i + 1
		if unicode.IsUpper(runes[i]) {
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '\'') {
				j++
			}
		}
		out = append(out, string(runes[i:j]))
		i = j
	}
	return out
}

func checkCNF(symbols []string) error {
	switch len(symbols) {
	case 1:
		if IsNonTerminal(symbols[0]) {
			return fmt.Errorf("%w: unit production", ErrNotCNF)
		}
		return nil
	case 2:
		if !IsNonTerminal(symbols[0]) || !IsNonTerminal(symbols[1]) {
			return fmt.Errorf("%w: binary productions must use two non-terminals", ErrNotCNF)
		}
		return nil
	case 0:
		return fmt.Errorf("%w: empty alternative", ErrSyntax)
	}
	return fmt.Errorf("%w: %d symbols", ErrNotCNF, len(symbols))
}

// String renders the grammar back in rule-per-line form.
func (g *Grammar) String() string {
	var b strings.Builder
	for _, nt := range g.NonTerminals {
		alts := make([]string, len(g.Rules[nt]))
		for i, rhs := range g.Rules[nt] {
			alts[i] = strings.Join(rhs, " ")
		}
		fmt.Fprintf(&b, "%s -> %s\n", nt, strings.Join(alts, " | "))
	}
	return b.String()
}
