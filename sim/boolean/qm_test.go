package boolean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplify_ClassicFourVariable(t *testing.T) {
	// GIVEN F(A,B,C,D) = Σm(4,8,10,11,12,15) + d(9,14)
	res, err := Simplify(4, []int{4, 8, 10, 11, 12, 15}, []int{9, 14})
	require.NoError(t, err)

	// THEN the prime implicants are the maximal combinations
	terms := make([]string, 0)
	for _, p := range res.PrimeImplicants {
		terms = append(terms, p.Term)
	}
	assert.ElementsMatch(t, []string{"-100", "10--", "1--0", "1-1-"}, terms)

	// AND essentials BC'D' and AC are part of the cover
	essential := make([]string, 0)
	for _, e := range res.Essential {
		essential = append(essential, e.Literal)
	}
	assert.ElementsMatch(t, []string{"BC'D'", "AC"}, essential)
	assert.Len(t, res.Selected, 3)
	assertCoverMatches(t, res)
}

func TestSimplify_ConstantFunctions(t *testing.T) {
	zero, err := Simplify(3, nil, []int{1})
	require.NoError(t, err)
	assert.Equal(t, "0", zero.Expression)

	one, err := Simplify(2, []int{0, 1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", one.Expression)
}

func TestSimplify_ThreeVariableMajority(t *testing.T) {
	res, err := Simplify(3, []int{3, 5, 6, 7}, nil)
	require.NoError(t, err)
	parts := strings.Split(res.Expression, " + ")
	assert.ElementsMatch(t, []string{"BC", "AC", "AB"}, parts)
	assert.Equal(t, 6, res.LiteralCount())
}

func TestSimplify_CyclicChartUsesGreedyCover(t *testing.T) {
	// GIVEN the cyclic function Σm(0,1,2,5,6,7) which has no essentials
	res, err := Simplify(3, []int{0, 1, 2, 5, 6, 7}, nil)
	require.NoError(t, err)

	// THEN every prime covers two minterms and three are needed
	assert.Empty(t, res.Essential)
	assert.Len(t, res.PrimeImplicants, 6)
	assert.Len(t, res.Selected, 3)
	assertCoverMatches(t, res)
}

func TestSimplify_EveryThreeVariableFunction(t *testing.T) {
	// GIVEN every one of the 256 three-variable functions
	for f := 0; f < 256; f++ {
		var minterms []int
		for m := 0; m < 8; m++ {
			if f>>m&1 == 1 {
				minterms = append(minterms, m)
			}
		}
		res, err := Simplify(3, minterms, nil)
		require.NoError(t, err)

		// THEN the cover evaluates identically to the truth table
		assertCoverMatches(t, res)

		// AND every prime implicant is maximal
		for _, p := range res.PrimeImplicants {
			for _, q := range res.PrimeImplicants {
				if p.Term == q.Term {
					continue
				}
				assert.False(t, subsumes(q.Term, p.Term), "%s is contained in %s", p.Term, q.Term)
			}
		}
	}
}

func TestSimplify_Validation(t *testing.T) {
	_, err := Simplify(0, []int{0}, nil)
	assert.ErrorIs(t, err, ErrVariables)
	_, err = Simplify(9, []int{0}, nil)
	assert.ErrorIs(t, err, ErrVariables)
	_, err = Simplify(2, []int{4}, nil)
	assert.ErrorIs(t, err, ErrMinterm)
	_, err = Simplify(2, []int{1}, []int{1})
	assert.ErrorIs(t, err, ErrMinterm)
}

func TestSimplify_DuplicatesAreIgnored(t *testing.T) {
	res, err := Simplify(2, []int{1, 1, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, res.Minterms)
	assert.Equal(t, "B", res.Expression)
}

func assertCoverMatches(t *testing.T, res Result) {
	t.Helper()
	on := make(map[int]bool)
	for _, m := range res.Minterms {
		on[m] = true
	}
	dc := make(map[int]bool)
	for _, d := range res.DontCares {
		dc[d] = true
	}
	for m := 0; m < 1<<len(res.Variables); m++ {
		if dc[m] {
			continue
		}
		assert.Equal(t, on[m], res.Evaluate(m), "minterm %d of %v", m, res.Minterms)
	}
}

// subsumes reports whether term a covers every minterm of term b.
func subsumes(a, b string) bool {
	for i := range a {
		if a[i] != '-' && a[i] != b[i] {
			return false
		}
	}
	return true
}
