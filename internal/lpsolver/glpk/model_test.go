package glpk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

const delta = 1e-7

func TestSolveSimpleLP(t *testing.T) {
	// maximize x + 2y subject to x+y <= 10, x <= 6, y <= 8
	m := New(lpsolver.Maximize)
	x := m.AddVariable(1, 0, math.Inf(1))
	y := m.AddVariable(2, 0, math.Inf(1))

	_, err := m.AddRow([]int{x, y}, []float64{1, 1}, math.Inf(-1), 10)
	require.NoError(t, err)
	_, err = m.AddRow([]int{x}, []float64{1}, math.Inf(-1), 6)
	require.NoError(t, err)
	_, err = m.AddRow([]int{y}, []float64{1}, math.Inf(-1), 8)
	require.NoError(t, err)

	status, err := m.Solve()
	require.NoError(t, err)
	assert.Equal(t, lpsolver.Optimal, status)
	assert.InDelta(t, 18, m.ObjectiveValue(), delta)

	primal := m.Primal()
	assert.InDelta(t, 2, primal[x], delta)
	assert.InDelta(t, 8, primal[y], delta)
}

func TestInfeasibleModel(t *testing.T) {
	m := New(lpsolver.Minimize)
	x := m.AddVariable(1, 0, math.Inf(1))
	_, err := m.AddRow([]int{x}, []float64{1}, math.Inf(-1), -1) // x <= -1, but x >= 0
	require.NoError(t, err)

	status, err := m.Solve()
	require.NoError(t, err)
	assert.Equal(t, lpsolver.Infeasible, status)
}

func TestRangedRowAccepted(t *testing.T) {
	// the adapter itself has no opinion on ranged rows; rejecting them is an
	// engine-level policy applied before AddRow is ever called (§4.4 step 3).
	m := New(lpsolver.Minimize)
	x := m.AddVariable(1, 0, math.Inf(1))
	row, err := m.AddRow([]int{x}, []float64{1}, 1, 5)
	require.NoError(t, err)
	require.NoError(t, m.SetRowBounds(row, 2, 4))
}

func TestDeleteRowsReindexes(t *testing.T) {
	m := New(lpsolver.Minimize)
	x := m.AddVariable(1, 0, math.Inf(1))
	r0, _ := m.AddRow([]int{x}, []float64{1}, 0, 0)
	r1, _ := m.AddRow([]int{x}, []float64{2}, 0, 0)
	require.NoError(t, m.DeleteRows([]int{r0}))
	assert.Equal(t, 1, m.nRows)
	_ = r1
}

func TestSupportsQPIsFalse(t *testing.T) {
	m := New(lpsolver.Minimize)
	assert.False(t, m.SupportsQP())
	err := m.SetQuadraticObjective(nil)
	assert.Error(t, err)
}
