package lshaped

import (
	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

// stubModel is a minimal in-memory lpsolver.Model double used by this
// package's unit tests to exercise master/committee bookkeeping without a
// real LP backend, in the style of subproblem's stubModel.
type stubModel struct {
	dir lpsolver.Direction

	nCols, nRows int
	lower, upper []float64
	cost         []float64
	quad         []lpsolver.Nonzero

	rowLower, rowUpper []float64
	deletedRows        [][]int

	status    lpsolver.Status
	primal    []float64
	objective float64
	duals     []float64
	farkas    []float64
	supportsQP bool
}

func newStubModel(dir lpsolver.Direction) *stubModel {
	return &stubModel{dir: dir, status: lpsolver.Optimal}
}

func (m *stubModel) SetDirection(dir lpsolver.Direction) { m.dir = dir }
func (m *stubModel) SupportsQP() bool                    { return m.supportsQP }

func (m *stubModel) AddVariable(cost, lower, upper float64) int {
	idx := m.nCols
	m.nCols++
	m.cost = append(m.cost, cost)
	m.lower = append(m.lower, lower)
	m.upper = append(m.upper, upper)
	return idx
}

func (m *stubModel) SetBounds(col int, lower, upper float64) error {
	if col < 0 || col >= m.nCols {
		return &lpsolver.DimensionError{Context: "stub.SetBounds", Expected: m.nCols, Actual: col}
	}
	m.lower[col], m.upper[col] = lower, upper
	return nil
}

func (m *stubModel) SetObjective(cost []float64) error {
	if len(cost) != m.nCols {
		return &lpsolver.DimensionError{Context: "stub.SetObjective", Expected: m.nCols, Actual: len(cost)}
	}
	m.cost = append([]float64(nil), cost...)
	return nil
}

func (m *stubModel) SetQuadraticObjective(entries []lpsolver.Nonzero) error {
	m.quad = entries
	return nil
}

func (m *stubModel) AddRow(indices []int, values []float64, lb, ub float64) (int, error) {
	if len(indices) != len(values) {
		return 0, &lpsolver.DimensionError{Context: "stub.AddRow", Expected: len(indices), Actual: len(values)}
	}
	row := m.nRows
	m.nRows++
	m.rowLower = append(m.rowLower, lb)
	m.rowUpper = append(m.rowUpper, ub)
	return row, nil
}

func (m *stubModel) SetRowBounds(row int, lb, ub float64) error {
	if row < 0 || row >= m.nRows {
		return &lpsolver.DimensionError{Context: "stub.SetRowBounds", Expected: m.nRows, Actual: row}
	}
	m.rowLower[row], m.rowUpper[row] = lb, ub
	return nil
}

func (m *stubModel) DeleteRows(rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	m.deletedRows = append(m.deletedRows, append([]int(nil), rows...))
	m.nRows -= len(rows)
	return nil
}

func (m *stubModel) Solve() (lpsolver.Status, error) { return m.status, nil }
func (m *stubModel) Primal() []float64               { return m.primal }
func (m *stubModel) ObjectiveValue() float64         { return m.objective }
func (m *stubModel) RowDuals() []float64             { return m.duals }
func (m *stubModel) FarkasRay() []float64            { return m.farkas }

var _ lpsolver.Model = (*stubModel)(nil)
