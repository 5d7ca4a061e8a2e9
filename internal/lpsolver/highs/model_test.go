package highs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

func TestSupportsQPIsTrue(t *testing.T) {
	m := New(lpsolver.Minimize)
	assert.True(t, m.SupportsQP())
}

func TestSetRowBoundsUpdatesExistingRow(t *testing.T) {
	m := New(lpsolver.Minimize)
	x := m.AddVariable(1, 0, math.Inf(1))
	row, err := m.AddRow([]int{x}, []float64{1}, 1, 5)
	assert.NoError(t, err)
	assert.NoError(t, m.SetRowBounds(row, 2, 4))
	assert.Equal(t, 2.0, m.rowLower[row])
	assert.Equal(t, 4.0, m.rowUpper[row])
}

func TestDeleteRowsShiftsTriplets(t *testing.T) {
	m := New(lpsolver.Minimize)
	x := m.AddVariable(1, 0, math.Inf(1))
	y := m.AddVariable(1, 0, math.Inf(1))

	r0, _ := m.AddRow([]int{x}, []float64{1}, 0, 0)
	_, _ = m.AddRow([]int{y}, []float64{1}, 0, 0)

	require := assert.New(t)
	require.NoError(m.DeleteRows([]int{r0}))
	require.Len(m.rowLower, 1)
	require.Len(m.rows, 1)
	require.Equal(0, m.rows[0].Row)
}

func TestRowMajorCSRLayout(t *testing.T) {
	entries := []lpsolver.Nonzero{
		{Row: 1, Col: 0, Value: 2},
		{Row: 0, Col: 1, Value: 3},
		{Row: 1, Col: 1, Value: 4},
	}
	start, index, value := rowMajorCSR(2, entries)
	assert.Equal(t, []int32{0, 1, 3}, start)
	assert.Equal(t, int32(1), index[0])
	assert.Equal(t, 3.0, value[0])
	_ = index[2]
}
