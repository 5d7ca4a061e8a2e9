package highs

import (
	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

// Model is a HiGHS-backed lpsolver.Model. Rows, columns and the optional
// Hessian are buffered as triplets and only collapsed into HiGHS's CSR
// arrays inside Solve, mirroring the gohighs reference's Model.Solve.
type Model struct {
	dir lpsolver.Direction

	cost, lower, upper []float64

	rowLower, rowUpper []float64
	rows               []lpsolver.Nonzero

	hessian []lpsolver.Nonzero

	lastStatus lpsolver.Status
	primal     []float64
	objective  float64
	rowDuals   []float64
	farkas     []float64
	lowLevel   *lowLevelSolver
}

// New creates an empty HiGHS model with the given optimization direction.
func New(dir lpsolver.Direction) *Model {
	return &Model{dir: dir}
}

func (m *Model) SupportsQP() bool { return true }

func (m *Model) SetDirection(dir lpsolver.Direction) { m.dir = dir }

func (m *Model) AddVariable(cost, lower, upper float64) int {
	idx := len(m.cost)
	m.cost = append(m.cost, cost)
	m.lower = append(m.lower, lower)
	m.upper = append(m.upper, upper)
	return idx
}

func (m *Model) SetBounds(col int, lower, upper float64) error {
	if col < 0 || col >= len(m.cost) {
		return &lpsolver.DimensionError{Context: "highs.SetBounds", Expected: len(m.cost), Actual: col}
	}
	m.lower[col] = lower
	m.upper[col] = upper
	return nil
}

func (m *Model) SetObjective(cost []float64) error {
	if len(cost) != len(m.cost) {
		return &lpsolver.DimensionError{Context: "highs.SetObjective", Expected: len(m.cost), Actual: len(cost)}
	}
	copy(m.cost, cost)
	return nil
}

func (m *Model) SetQuadraticObjective(entries []lpsolver.Nonzero) error {
	m.hessian = entries
	return nil
}

func (m *Model) AddRow(indices []int, values []float64, lb, ub float64) (int, error) {
	if len(indices) != len(values) {
		return 0, &lpsolver.DimensionError{Context: "highs.AddRow", Expected: len(indices), Actual: len(values)}
	}

	row := len(m.rowLower)
	m.rowLower = append(m.rowLower, lb)
	m.rowUpper = append(m.rowUpper, ub)
	for i, idx := range indices {
		if values[i] == 0 {
			continue
		}
		m.rows = append(m.rows, lpsolver.Nonzero{Row: row, Col: idx, Value: values[i]})
	}
	return row, nil
}

func (m *Model) SetRowBounds(row int, lb, ub float64) error {
	if row < 0 || row >= len(m.rowLower) {
		return &lpsolver.DimensionError{Context: "highs.SetRowBounds", Expected: len(m.rowLower), Actual: row}
	}
	m.rowLower[row] = lb
	m.rowUpper[row] = ub
	return nil
}

func (m *Model) DeleteRows(toDelete []int) error {
	if len(toDelete) == 0 {
		return nil
	}
	del := make(map[int]bool, len(toDelete))
	for _, r := range toDelete {
		if r < 0 || r >= len(m.rowLower) {
			return &lpsolver.DimensionError{Context: "highs.DeleteRows", Expected: len(m.rowLower), Actual: r}
		}
		del[r] = true
	}

	shiftOf := func(row int) int {
		shift := 0
		for _, r := range toDelete {
			if r < row {
				shift++
			}
		}
		return shift
	}

	newLower := m.rowLower[:0]
	newUpper := m.rowUpper[:0]
	for r := range m.rowLower {
		if del[r] {
			continue
		}
		newLower = append(newLower, m.rowLower[r])
		newUpper = append(newUpper, m.rowUpper[r])
	}

	newRows := m.rows[:0]
	for _, nz := range m.rows {
		if del[nz.Row] {
			continue
		}
		newRows = append(newRows, lpsolver.Nonzero{Row: nz.Row - shiftOf(nz.Row), Col: nz.Col, Value: nz.Value})
	}

	m.rowLower, m.rowUpper, m.rows = newLower, newUpper, newRows
	return nil
}

// Solve collapses the buffered triplets into CSR arrays and drives the
// low-level HiGHS handle, following the same PassModel→PassHessian→Run
// sequence as the gohighs reference's Model.Solve.
func (m *Model) Solve() (lpsolver.Status, error) {
	if m.lowLevel == nil {
		m.lowLevel = newLowLevelSolver()
	}

	numCol := len(m.cost)
	numRow := len(m.rowLower)

	aStart, aIndex, aValue := rowMajorCSR(numRow, m.rows)

	if err := m.lowLevel.setBoolOption("output_flag", false); err != nil {
		return lpsolver.Other, err
	}

	if err := m.lowLevel.passModel(
		numCol, numRow,
		m.cost, m.lower, m.upper,
		m.rowLower, m.rowUpper,
		aStart, aIndex, aValue,
		m.dir == lpsolver.Maximize,
	); err != nil {
		return lpsolver.Other, err
	}

	if len(m.hessian) > 0 {
		hStart, hIndex, hValue := rowMajorCSR(numCol, m.hessian)
		if err := m.lowLevel.passHessian(numCol, hStart, hIndex, hValue); err != nil {
			return lpsolver.Other, err
		}
	}

	if err := m.lowLevel.run(); err != nil {
		return lpsolver.Other, err
	}

	switch m.lowLevel.modelStatus() {
	case kHighsModelStatusOptimal:
		m.lastStatus = lpsolver.Optimal
		colValue, _, _, rowDual := m.lowLevel.solution(numCol, numRow)
		m.primal = colValue
		m.rowDuals = rowDual
		m.objective = m.lowLevel.objectiveValue()
	case kHighsModelStatusInfeasible:
		m.lastStatus = lpsolver.Infeasible
		m.farkas = m.lowLevel.dualRay(numRow)
	case kHighsModelStatusUnbounded:
		m.lastStatus = lpsolver.Unbounded
	default:
		m.lastStatus = lpsolver.Other
	}

	return m.lastStatus, nil
}

func (m *Model) Primal() []float64         { return m.primal }
func (m *Model) ObjectiveValue() float64   { return m.objective }
func (m *Model) RowDuals() []float64       { return m.rowDuals }
func (m *Model) FarkasRay() []float64      { return m.farkas }

// rowMajorCSR builds the CSR start/index/value arrays HiGHS expects from an
// unordered list of (row, col, value) triplets, used both for the constraint
// matrix and for the Hessian.
func rowMajorCSR(numRows int, entries []lpsolver.Nonzero) (start, index []int32, value []float64) {
	counts := make([]int32, numRows+1)
	for _, nz := range entries {
		counts[nz.Row+1]++
	}
	for i := 1; i <= numRows; i++ {
		counts[i] += counts[i-1]
	}
	start = counts

	index = make([]int32, len(entries))
	value = make([]float64, len(entries))
	cursor := make([]int32, numRows)
	copy(cursor, start[:numRows])
	for _, nz := range entries {
		pos := cursor[nz.Row]
		index[pos] = int32(nz.Col)
		value[pos] = nz.Value
		cursor[nz.Row]++
	}
	return start, index, value
}

var _ lpsolver.Model = (*Model)(nil)
