package lshaped

import (
	"fmt"
	"math"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
	"github.com/lshaped-go/lshaped/lshaped/localize"
)

// ProjectionError reports that the level-set projection solve (spec.md
// §4.5, R6) did not return Optimal. A non-optimal projection means the
// level L was set infeasibly tight against the current committee, which
// should not happen for a correctly maintained model; it is surfaced rather
// than silently ignored.
type ProjectionError struct {
	Status lpsolver.Status
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("lshaped: level-set projection solve returned %s", e.Status)
}

// projectLevelSet implements the level-set projection step of spec.md §4.5:
// build the level L = λQ̃ + (1−λ)θ (already computed by the caller), then
// minimize the distance from ξ to x subject to every row currently held in
// the committee plus the level row c·x + Σθ_i ≤ L. In "linearize" mode the
// 1-norm is used instead of the 2-norm, so the projection stays LP-only
// (no SetQuadraticObjective call, hence no QP-capability requirement).
//
// The projection runs over a model fresh from newModel rather than the
// master's own model: the master's x-bounds may currently be mutated by a
// trust-region variant, the theta-column costs differ, and the master must
// not accumulate the auxiliary rows/columns this step needs.
func projectLevelSet(newModel ModelFactory, p Problem, st *LShapedState, loc *localize.State, level float64) ([]float64, error) {
	// The theta block is sized by bundle group, not raw subproblem count:
	// committee optimality cuts address column n+group, and a theta column no
	// cut constrains would be free to drive the level row's LHS to -Inf.
	n, s := st.n, st.s
	model := newModel(lpsolver.Minimize)

	for i := 0; i < n; i++ {
		model.AddVariable(0, p.Lower[i], p.Upper[i])
	}
	for i := 0; i < s; i++ {
		model.AddVariable(0, negInf, math.Inf(1))
	}

	for _, entry := range st.committee {
		idx, vals, lb, ub := entry.h.LowLevel(n)
		if _, err := model.AddRow(idx, vals, lb, ub); err != nil {
			return nil, fmt.Errorf("lshaped: projection committee row: %w", err)
		}
	}

	levelIdx := make([]int, 0, n+s)
	levelVals := make([]float64, 0, n+s)
	for i := 0; i < n; i++ {
		levelIdx = append(levelIdx, i)
		levelVals = append(levelVals, p.Cost[i])
	}
	for i := 0; i < s; i++ {
		levelIdx = append(levelIdx, n+i)
		levelVals = append(levelVals, 1.0)
	}
	if _, err := model.AddRow(levelIdx, levelVals, negInf, level); err != nil {
		return nil, fmt.Errorf("lshaped: projection level row: %w", err)
	}

	if loc.Linearize {
		tBase := n + s
		for i := 0; i < n; i++ {
			model.AddVariable(1.0, 0, math.Inf(1))
		}
		for i := 0; i < n; i++ {
			tcol := tBase + i
			if _, err := model.AddRow([]int{i, tcol}, []float64{1, -1}, negInf, loc.Xi[i]); err != nil {
				return nil, err
			}
			if _, err := model.AddRow([]int{i, tcol}, []float64{-1, -1}, negInf, -loc.Xi[i]); err != nil {
				return nil, err
			}
		}
	} else {
		linear := make([]float64, n+s)
		entries := make([]lpsolver.Nonzero, 0, n)
		for i := 0; i < n; i++ {
			linear[i] = -loc.Xi[i]
			entries = append(entries, lpsolver.Nonzero{Row: i, Col: i, Value: 1.0})
		}
		if err := model.SetObjective(linear); err != nil {
			return nil, err
		}
		if err := model.SetQuadraticObjective(entries); err != nil {
			return nil, err
		}
	}

	status, err := model.Solve()
	if err != nil {
		return nil, fmt.Errorf("lshaped: projection solve: %w", err)
	}
	if status != lpsolver.Optimal {
		return nil, &ProjectionError{Status: status}
	}

	primal := model.Primal()
	return append([]float64(nil), primal[:n]...), nil
}
