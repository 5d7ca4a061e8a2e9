package subproblem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lshaped-go/lshaped/hyperplane"
	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

// stubModel is a minimal in-memory lpsolver.Model double that lets tests
// script a solve outcome without a real LP backend.
type stubModel struct {
	nRows int

	rowLower, rowUpper []float64
	setBoundsCalls     map[int][2]float64

	status    lpsolver.Status
	objective float64
	duals     []float64
	farkas    []float64
}

func newStubModel(nRows int) *stubModel {
	return &stubModel{
		nRows:          nRows,
		rowLower:       make([]float64, nRows),
		rowUpper:       make([]float64, nRows),
		setBoundsCalls: make(map[int][2]float64),
	}
}

func (m *stubModel) AddVariable(cost, lower, upper float64) int { return 0 }
func (m *stubModel) SetBounds(col int, lower, upper float64) error { return nil }
func (m *stubModel) AddRow(indices []int, values []float64, lb, ub float64) (int, error) {
	return 0, nil
}
func (m *stubModel) DeleteRows(rows []int) error { return nil }
func (m *stubModel) SetRowBounds(row int, lb, ub float64) error {
	if row < 0 || row >= m.nRows {
		return &lpsolver.DimensionError{Context: "stub.SetRowBounds", Expected: m.nRows, Actual: row}
	}
	m.rowLower[row] = lb
	m.rowUpper[row] = ub
	m.setBoundsCalls[row] = [2]float64{lb, ub}
	return nil
}
func (m *stubModel) SetObjective(cost []float64) error          { return nil }
func (m *stubModel) SetQuadraticObjective(e []lpsolver.Nonzero) error { return nil }
func (m *stubModel) SupportsQP() bool                            { return false }
func (m *stubModel) SetDirection(dir lpsolver.Direction)         {}
func (m *stubModel) Solve() (lpsolver.Status, error)             { return m.status, nil }
func (m *stubModel) Primal() []float64                           { return nil }
func (m *stubModel) ObjectiveValue() float64                     { return m.objective }
func (m *stubModel) RowDuals() []float64                         { return m.duals }
func (m *stubModel) FarkasRay() []float64                        { return m.farkas }

var _ lpsolver.Model = (*stubModel)(nil)

func TestEvaluateOptimalBuildsOptimalityCut(t *testing.T) {
	model := newStubModel(1)
	model.status = lpsolver.Optimal
	model.objective = 7
	model.duals = []float64{2} // lambda for row 0

	sp := New(3, 0.5, []MasterTerm{{Row: 0, Col: 1, Coeff: 4}}, 2, model,
		[]RowBase{{Row: 0, Lower: 10, Upper: 10}})

	cut, err := sp.Evaluate([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, hyperplane.Optimality, cut.Kind)
	assert.Equal(t, 3, cut.ID)

	// relink: row 0 bound shifts by coeff*x[col] = 4*2 = 8 -> [2, 2]
	assert.Equal(t, [2]float64{2, 2}, model.setBoundsCalls[0])

	// deltaQ[1] = -pi*lambda*coeff = -0.5*2*4 = -4
	require.Len(t, cut.Indices, 1)
	assert.Equal(t, 1, cut.Indices[0])
	assert.InDelta(t, -4.0, cut.Values[0], 1e-9)

	// q = pi*obj + deltaQ.x = 0.5*7 + (-4*2) = 3.5 - 8 = -4.5
	assert.InDelta(t, -4.5, cut.Q, 1e-9)
}

func TestEvaluateInfeasibleBuildsFeasibilityCut(t *testing.T) {
	model := newStubModel(1)
	model.status = lpsolver.Infeasible
	model.objective = 3
	model.farkas = []float64{1}

	sp := New(0, 1, []MasterTerm{{Row: 0, Col: 0, Coeff: 2}}, 1, model,
		[]RowBase{{Row: 0, Lower: 5, Upper: 5}})

	cut, err := sp.Evaluate([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, hyperplane.Feasibility, cut.Kind)
}

func TestEvaluateUnboundedEmitsSignal(t *testing.T) {
	model := newStubModel(0)
	model.status = lpsolver.Unbounded

	sp := New(5, 1, nil, 1, model, nil)
	cut, err := sp.Evaluate([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, hyperplane.Unbounded, cut.Kind)
	assert.False(t, cut.Bounded())
}

func TestEvaluateOtherStatusIsFatal(t *testing.T) {
	model := newStubModel(0)
	model.status = lpsolver.Other

	sp := New(0, 1, nil, 1, model, nil)
	_, err := sp.Evaluate([]float64{0})
	var fatal *FatalSolveError
	require.ErrorAs(t, err, &fatal)
}

func TestEvaluateDimensionMismatchPanics(t *testing.T) {
	model := newStubModel(0)
	sp := New(0, 1, nil, 2, model, nil)
	assert.Panics(t, func() {
		sp.Evaluate([]float64{1})
	})
}

func TestEvaluateRecordsXSnapshot(t *testing.T) {
	model := newStubModel(0)
	model.status = lpsolver.Optimal

	sp := New(0, 1, nil, 2, model, nil)
	_, err := sp.Evaluate([]float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, sp.xSnapshot)
}
