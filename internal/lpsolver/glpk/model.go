package glpk

// #cgo LDFLAGS: -lglpk
// #include <glpk.h>
// #include <stdlib.h>
import "C"

import (
	"fmt"
	"math"
	"runtime"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

// Model is a GLPK-backed lpsolver.Model. The zero value is not usable; build
// one with New.
type Model struct {
	prob *C.glp_prob

	// ia, ja, ar mirror golpa's triplet buffers: glpk wants the full
	// sparse coefficient list loaded in one call, so rows are buffered here
	// and (re)loaded into the problem before every Solve.
	ia []C.int
	ja []C.int
	ar []C.double

	nCols int
	nRows int

	Verbose  bool
	Presolve bool
}

// New creates an empty GLPK model with the given optimization direction.
func New(dir lpsolver.Direction) *Model {
	prob := C.glp_create_prob()

	m := &Model{
		prob:     prob,
		Presolve: true,
	}
	m.SetDirection(dir)

	// glpk indices start at 1; index 0 of each triplet array is reserved.
	m.ia = append(m.ia, 0)
	m.ja = append(m.ja, 0)
	m.ar = append(m.ar, 0.0)

	runtime.SetFinalizer(m, finalizeModel)

	return m
}

func finalizeModel(m *Model) {
	C.glp_delete_prob(m.prob)
}

func (m *Model) SetDirection(dir lpsolver.Direction) {
	d := C.GLP_MIN
	if dir == lpsolver.Maximize {
		d = C.GLP_MAX
	}
	C.glp_set_obj_dir(m.prob, C.int(d))
}

func (m *Model) SupportsQP() bool { return false }

func (m *Model) AddVariable(cost, lower, upper float64) int {
	idx := m.nCols
	m.nCols++
	C.glp_add_cols(m.prob, 1)
	col := C.int(idx + 1)
	C.glp_set_obj_coef(m.prob, col, C.double(cost))
	setColBounds(m.prob, col, lower, upper)
	return idx
}

func (m *Model) SetBounds(col int, lower, upper float64) error {
	if col < 0 || col >= m.nCols {
		return &lpsolver.DimensionError{Context: "glpk.SetBounds", Expected: m.nCols, Actual: col}
	}
	setColBounds(m.prob, C.int(col+1), lower, upper)
	return nil
}

func setColBounds(prob *C.glp_prob, col C.int, lower, upper float64) {
	switch {
	case math.IsInf(lower, -1) && math.IsInf(upper, 1):
		C.glp_set_col_bnds(prob, col, C.GLP_FR, 0, 0)
	case math.IsInf(lower, -1):
		C.glp_set_col_bnds(prob, col, C.GLP_UP, 0, C.double(upper))
	case math.IsInf(upper, 1):
		C.glp_set_col_bnds(prob, col, C.GLP_LO, C.double(lower), 0)
	case upper == lower:
		C.glp_set_col_bnds(prob, col, C.GLP_FX, C.double(lower), C.double(upper))
	default:
		C.glp_set_col_bnds(prob, col, C.GLP_DB, C.double(lower), C.double(upper))
	}
}

func (m *Model) SetObjective(cost []float64) error {
	if len(cost) != m.nCols {
		return &lpsolver.DimensionError{Context: "glpk.SetObjective", Expected: m.nCols, Actual: len(cost)}
	}
	for i, c := range cost {
		C.glp_set_obj_coef(m.prob, C.int(i+1), C.double(c))
	}
	return nil
}

func (m *Model) SetQuadraticObjective(entries []lpsolver.Nonzero) error {
	return fmt.Errorf("glpk: quadratic objective not supported")
}

func (m *Model) AddRow(indices []int, values []float64, lb, ub float64) (int, error) {
	if len(indices) != len(values) {
		return 0, &lpsolver.DimensionError{Context: "glpk.AddRow", Expected: len(indices), Actual: len(values)}
	}

	row := m.nRows
	m.nRows++
	C.glp_add_rows(m.prob, 1)
	rowIdx := C.int(row + 1)

	setRowBounds(m.prob, rowIdx, lb, ub)

	for i, idx := range indices {
		if values[i] == 0 {
			continue
		}
		m.ia = append(m.ia, rowIdx)
		m.ja = append(m.ja, C.int(idx+1))
		m.ar = append(m.ar, C.double(values[i]))
	}

	return row, nil
}

func setRowBounds(prob *C.glp_prob, row C.int, lb, ub float64) {
	switch {
	case math.IsInf(lb, -1) && math.IsInf(ub, 1):
		C.glp_set_row_bnds(prob, row, C.GLP_FR, 0, 0)
	case math.IsInf(lb, -1):
		C.glp_set_row_bnds(prob, row, C.GLP_UP, 0, C.double(ub))
	case math.IsInf(ub, 1):
		C.glp_set_row_bnds(prob, row, C.GLP_LO, C.double(lb), 0)
	case lb == ub:
		C.glp_set_row_bnds(prob, row, C.GLP_FX, C.double(lb), C.double(ub))
	default:
		C.glp_set_row_bnds(prob, row, C.GLP_DB, C.double(lb), C.double(ub))
	}
}

func (m *Model) SetRowBounds(row int, lb, ub float64) error {
	if row < 0 || row >= m.nRows {
		return &lpsolver.DimensionError{Context: "glpk.SetRowBounds", Expected: m.nRows, Actual: row}
	}
	setRowBounds(m.prob, C.int(row+1), lb, ub)
	return nil
}

func (m *Model) DeleteRows(rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	num := make([]C.int, len(rows)+1)
	for i, r := range rows {
		if r < 0 || r >= m.nRows {
			return &lpsolver.DimensionError{Context: "glpk.DeleteRows", Expected: m.nRows, Actual: r}
		}
		num[i+1] = C.int(r + 1)
	}
	C.glp_del_rows(m.prob, C.int(len(rows)), &num[0])
	m.nRows -= len(rows)
	m.reindexAfterDelete(rows)
	return nil
}

// reindexAfterDelete drops buffered triplets referencing deleted rows and
// shifts the remaining row indices down, mirroring glpk's own renumbering of
// surviving rows.
func (m *Model) reindexAfterDelete(deleted []int) {
	del := make(map[int]bool, len(deleted))
	for _, r := range deleted {
		del[r] = true
	}

	newIA := m.ia[:1]
	newJA := m.ja[:1]
	newAR := m.ar[:1]
	for k := 1; k < len(m.ia); k++ {
		oldRow := int(m.ia[k]) - 1
		if del[oldRow] {
			continue
		}
		shift := 0
		for _, r := range deleted {
			if r < oldRow {
				shift++
			}
		}
		newIA = append(newIA, C.int(oldRow-shift+1))
		newJA = append(newJA, m.ja[k])
		newAR = append(newAR, m.ar[k])
	}
	m.ia, m.ja, m.ar = newIA, newJA, newAR
}

func (m *Model) loadMatrix() {
	if len(m.ia) <= 1 {
		return
	}
	C.glp_load_matrix(m.prob, C.int(len(m.ia)-1), &m.ia[0], &m.ja[0], &m.ar[0])
}

func (m *Model) Solve() (lpsolver.Status, error) {
	m.loadMatrix()

	var parm C.glp_smcp
	C.glp_init_smcp(&parm)
	if m.Verbose {
		parm.msg_lev = C.GLP_MSG_ON
	} else {
		parm.msg_lev = C.GLP_MSG_OFF
	}
	if m.Presolve {
		parm.presolve = C.GLP_ON
	} else {
		parm.presolve = C.GLP_OFF
	}

	ret := C.glp_simplex(m.prob, &parm)
	if ret != 0 {
		return lpsolver.Other, glpkError(ret)
	}

	switch C.glp_get_status(m.prob) {
	case C.GLP_OPT:
		return lpsolver.Optimal, nil
	case C.GLP_NOFEAS, C.GLP_INFEAS:
		return lpsolver.Infeasible, nil
	case C.GLP_UNBND:
		return lpsolver.Unbounded, nil
	default:
		return lpsolver.Other, nil
	}
}

func (m *Model) Primal() []float64 {
	out := make([]float64, m.nCols)
	for i := range out {
		out[i] = float64(C.glp_get_col_prim(m.prob, C.int(i+1)))
	}
	return out
}

func (m *Model) ObjectiveValue() float64 {
	return float64(C.glp_get_obj_val(m.prob))
}

func (m *Model) RowDuals() []float64 {
	out := make([]float64, m.nRows)
	for i := range out {
		out[i] = float64(C.glp_get_row_dual(m.prob, C.int(i+1)))
	}
	return out
}

// FarkasRay returns the row duals at the terminal basis as a stand-in for a
// Farkas certificate: GLPK's simplex API has no dedicated ray accessor, and
// the duals of an infeasible terminal basis are only a heuristic proxy, not
// a certified ray. Feasibility cuts built from this backend may therefore be
// invalid; callers that rely on checkfeas should prefer the highs backend,
// whose Highs_getDualRay returns a certified ray.
func (m *Model) FarkasRay() []float64 {
	return m.RowDuals()
}

func glpkError(ret C.int) error {
	switch ret {
	case C.GLP_EBADB:
		return fmt.Errorf("glpk: initial basis invalid")
	case C.GLP_ESING:
		return fmt.Errorf("glpk: initial basis is singular")
	case C.GLP_EBOUND:
		return fmt.Errorf("glpk: incorrect bounds on a double-bounded variable")
	case C.GLP_EFAIL:
		return fmt.Errorf("glpk: problem instance has no rows/columns")
	case C.GLP_EITLIM:
		return fmt.Errorf("glpk: simplex iteration limit exceeded")
	case C.GLP_ETMLIM:
		return fmt.Errorf("glpk: time limit exceeded")
	default:
		return fmt.Errorf("glpk: unknown error code %d", int(ret))
	}
}

var _ lpsolver.Model = (*Model)(nil)
