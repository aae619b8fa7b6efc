package boolean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKMap_FourVariablesGrayOrder(t *testing.T) {
	km, err := BuildKMap(4, []int{0, 15}, []int{2})
	require.NoError(t, err)

	assert.Equal(t, "AB", km.RowVariables)
	assert.Equal(t, "CD", km.ColVariables)
	assert.Equal(t, []string{"00", "01", "11", "10"}, km.RowLabels)
	assert.Equal(t, []string{"00", "01", "11", "10"}, km.ColLabels)

	assert.Equal(t, Cell{Minterm: 0, Value: CellOne}, km.Cells[0][0])
	assert.Equal(t, Cell{Minterm: 2, Value: CellDontCare}, km.Cells[0][3])
	assert.Equal(t, Cell{Minterm: 15, Value: CellOne}, km.Cells[2][2])
	assert.Equal(t, Cell{Minterm: 8, Value: CellZero}, km.Cells[3][0])
}

func TestBuildKMap_ThreeVariables(t *testing.T) {
	km, err := BuildKMap(3, []int{6}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", km.RowVariables)
	assert.Equal(t, "BC", km.ColVariables)
	require.Len(t, km.Cells, 2)
	assert.Equal(t, 6, km.Cells[1][3].Minterm)
	assert.Equal(t, CellOne, km.Cells[1][3].Value)
}

func TestBuildKMap_RejectsUnsupportedSizes(t *testing.T) {
	_, err := BuildKMap(5, nil, nil)
	assert.ErrorIs(t, err, ErrVariables)
}
