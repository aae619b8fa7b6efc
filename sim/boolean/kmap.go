package boolean

import "fmt"

// Cell values in a Karnaugh map.
const (
	CellZero     = "0"
	CellOne      = "1"
	CellDontCare = "X"
)

// Cell is one square of a Karnaugh map.
type Cell struct {
	Minterm int    `json:"minterm" yaml:"minterm"`
	Value   string `json:"value" yaml:"value"`
}

// KMap is a Gray-code ordered grid. Row labels cover the leading variables
// and column labels the trailing ones.
type KMap struct {
	RowVariables string   `json:"row_variables" yaml:"row_variables"`
	ColVariables string   `json:"col_variables" yaml:"col_variables"`
	RowLabels    []string `json:"row_labels" yaml:"row_labels"`
	ColLabels    []string `json:"col_labels" yaml:"col_labels"`
	Cells        [][]Cell `json:"cells" yaml:"cells"`
}

func gray(n int) []int {
	out := make([]int, 1<<n)
	for i := range out {
		out[i] = i ^ (i >> 1)
	}
	return out
}

// BuildKMap lays out a 2-4 variable function on a Karnaugh map.
func BuildKMap(vars int, minterms, dontCares []int) (KMap, error) {
	if vars < 2 || vars > 4 {
		return KMap{}, fmt.Errorf("%w: Karnaugh maps support 2-4 variables, got %d", ErrVariables, vars)
	}
	mts, dcs, err := normalize(vars, minterms, dontCares)
	if err != nil {
		return KMap{}, err
	}
	values := make(map[int]string)
	for _, m := range mts {
		values[m] = CellOne
	}
	for _, d := range dcs {
		values[d] = CellDontCare
	}

	rowBits := vars / 2
	colBits := vars - rowBits
	names := VariableNames(vars)
	km := KMap{}
	for _, n := range names[:rowBits] {
		km.RowVariables += n
	}
	for _, n := range names[rowBits:] {
		km.ColVariables += n
	}

	rows, cols := gray(rowBits), gray(colBits)
	for _, c := range cols {
		km.ColLabels = append(km.ColLabels, fmt.Sprintf("%0*b", colBits, c))
	}
	for _, r := range rows {
		km.RowLabels = append(km.RowLabels, fmt.Sprintf("%0*b", rowBits, r))
		line := make([]Cell, 0, len(cols))
		for _, c := range cols {
			m := r<<uint(colBits) | c
			v, ok := values[m]
			if !ok {
				v = CellZero
			}
			line = append(line, Cell{Minterm: m, Value: v})
		}
		km.Cells = append(km.Cells, line)
	}
	return km, nil
}
