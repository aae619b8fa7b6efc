package cyk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cstopics/cstopics/sim/trace"
)

// Tree is a derivation tree node. Leaves carry the terminal they produce.
type Tree struct {
	Symbol   string  `json:"symbol" yaml:"symbol"`
	Terminal string  `json:"terminal,omitempty" yaml:"terminal,omitempty"`
	Children []*Tree `json:"children,omitempty" yaml:"children,omitempty"`
}

// String renders the tree in bracket notation, e.g. [S [A a] [B b]].
func (t *Tree) String() string {
	if t == nil {
		return ""
	}
	if t.Terminal != "" {
		return "[" + t.Symbol + " " + t.Terminal + "]"
	}
	parts := make([]string, len(t.Children))
	for i, c := range t.Children {
		parts[i] = c.String()
	}
	return "[" + t.Symbol + " " + strings.Join(parts, " ") + "]"
}

// Result is the filled CYK table. Table[i][j] holds the non-terminals deriving
// tokens i..j inclusive; cells with j < i are empty.
type Result struct {
	Tokens   []string     `json:"tokens" yaml:"tokens"`
	Table    [][][]string `json:"table" yaml:"table"`
	Accepted bool         `json:"accepted" yaml:"accepted"`
	Tree     *Tree        `json:"tree,omitempty" yaml:"tree,omitempty"`
	Steps    []string     `json:"steps" yaml:"steps"`
}

type backPointer struct {
	split       int
	left, right string
}

// Tokens splits input on whitespace when present, otherwise into single runes.
func Tokens(input string) []string {
	input = strings.TrimSpace(input)
	if strings.ContainsAny(input, " \t") {
		return strings.Fields(input)
	}
	out := make([]string, 0, len(input))
	for _, r := range input {
		out = append(out, string(r))
	}
	return out
}

// Parse runs CYK over input and reports whether the start symbol derives it.
func Parse(g *Grammar, input string) (Result, error) {
	tokens := Tokens(input)
	n := len(tokens)
	if n == 0 {
		return Result{}, ErrEmptyInput
	}
	rec := trace.NewRecorder(trace.CurrentLevel())

	cells := make([][]map[string]bool, n)
	back := make([][]map[string]backPointer, n)
	for i := range cells {
		cells[i] = make([]map[string]bool, n)
		back[i] = make([]map[string]backPointer, n)
		for j := range cells[i] {
			cells[i][j] = make(map[string]bool)
			back[i][j] = make(map[string]backPointer)
		}
	}

	for i, tok := range tokens {
		for _, nt := range g.NonTerminals {
			for _, rhs := range g.Rules[nt] {
				if len(rhs) == 1 && rhs[0] == tok {
					cells[i][i][nt] = true
				}
			}
		}
		rec.Stepf("T[%d][%d] (%s) = %s", i, i, tok, setString(cells[i][i]))
	}

	for span := 2; span <= n; span++ {
		for i := 0; i+span-1 < n; i++ {
			j := i + span - 1
			for k := i; k < j; k++ {
				for _, nt := range g.NonTerminals {
					for _, rhs := range g.Rules[nt] {
						if len(rhs) != 2 {
							continue
						}
						if cells[i][k][rhs[0]] && cells[k+1][j][rhs[1]] {
							if !cells[i][j][nt] {
								back[i][j][nt] = backPointer{split: k, left: rhs[0], right: rhs[1]}
							}
							cells[i][j][nt] = true
						}
					}
				}
			}
			rec.Stepf("T[%d][%d] (%s) = %s", i, j, strings.Join(tokens[i:j+1], ""), setString(cells[i][j]))
		}
	}

	res := Result{Tokens: tokens, Table: make([][][]string, n)}
	for i := range cells {
		res.Table[i] = make([][]string, n)
		for j := range cells[i] {
			res.Table[i][j] = sortedKeys(cells[i][j])
		}
	}
	res.Accepted = cells[0][n-1][g.Start]
	if res.Accepted {
		res.Tree = build(g.Start, 0, n-1, tokens, back)
		rec.Stepf("%s is in T[0][%d]: accepted", g.Start, n-1)
	} else {
		rec.Stepf("%s is not in T[0][%d]: rejected", g.Start, n-1)
	}
	res.Steps = rec.Steps()
	return res, nil
}

// ParseText parses the grammar text and then the input.
func ParseText(grammar, input string) (Result, error) {
	g, err := ParseGrammar(grammar)
	if err != nil {
		return Result{}, fmt.Errorf("parsing grammar: %w", err)
	}
	return Parse(g, input)
}

func build(sym string, i, j int, tokens []string, back [][]map[string]backPointer) *Tree {
	if i == j {
		return &Tree{Symbol: sym, Terminal: tokens[i]}
	}
	bp := back[i][j][sym]
	return &Tree{
		Symbol: sym,
		Children: []*Tree{
			build(bp.left, i, bp.split, tokens, back),
			build(bp.right, bp.split+1, j, tokens, back),
		},
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func setString(set map[string]bool) string {
	return "{" + strings.Join(sortedKeys(set), ", ") + "}"
}
