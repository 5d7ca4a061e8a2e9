// Package subproblem implements the second-stage LP evaluator (spec.md §4.2,
// L3): given a first-stage point x, it updates the owned LP model's RHS via
// masterTerms, solves it, and turns the solver's dual information into a
// hyperplane.Hyperplane. The emitted cut is pure data; it never references
// the subproblem or the solver that produced it.
package subproblem

import (
	"fmt"
	"math"
	"sort"

	"github.com/lshaped-go/lshaped/hyperplane"
	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

// MasterTerm links one row of the subproblem's LP to a first-stage column:
// the row's RHS shifts by coeff*x[col] as x changes (spec.md §3, "masterTerms").
type MasterTerm struct {
	Row, Col int
	Coeff    float64
}

// RowBase is a masterTerms-linked row's bounds at x = 0, the constant part of
// the second-stage RHS that the front-end built the row with. Evaluate
// subtracts the x-dependent masterTerms contribution from this base on every
// call, rather than mutating bounds incrementally.
type RowBase struct {
	Row          int
	Lower, Upper float64
}

// Subproblem is one scenario's (or bundle's) second-stage LP, owned
// exclusively by whichever goroutine currently holds it (§5): the serial
// engine holds all of them, a parallel worker holds only its own subset.
type Subproblem struct {
	ID          int
	Probability float64 // π

	// MasterTerms describes the T_i·x linkage into the LP's row bounds.
	// Columns must lie in [0, NMasterCols).
	MasterTerms []MasterTerm
	NMasterCols int

	Model lpsolver.Model

	// xSnapshot is the first-stage point passed to the most recent Evaluate
	// call (spec.md §3), recorded for callers that need to know which x a
	// cut or LP state corresponds to.
	xSnapshot []float64

	base map[int][2]float64
}

// New builds a Subproblem. bases gives, for every distinct row masterTerms
// touches, that row's bounds at x = 0 — the constant, x-independent part of
// the second-stage RHS the front-end built the row with.
func New(id int, probability float64, masterTerms []MasterTerm, nMasterCols int, model lpsolver.Model, bases []RowBase) *Subproblem {
	base := make(map[int][2]float64, len(bases))
	for _, b := range bases {
		base[b.Row] = [2]float64{b.Lower, b.Upper}
	}
	return &Subproblem{
		ID:          id,
		Probability: probability,
		MasterTerms: masterTerms,
		NMasterCols: nMasterCols,
		Model:       model,
		base:        base,
	}
}

// FatalSolveError wraps a solver status that the engine cannot interpret as
// Optimal, Infeasible or Unbounded (spec.md §4.2, §7): a solver fault that
// must propagate, never be swallowed.
type FatalSolveError struct {
	ID     int
	Status lpsolver.Status
}

func (e *FatalSolveError) Error() string {
	return fmt.Sprintf("subproblem %d: fatal solver status %s", e.ID, e.Status)
}

// Evaluate re-links the subproblem's RHS to x, solves it, and returns the
// resulting hyperplane. x must have length sp.NMasterCols; an out-of-range
// masterTerms column or row is a programming error (panics), per the
// dimension-mismatch handling spec.md §4.1/§7 applies throughout the engine.
func (sp *Subproblem) Evaluate(x []float64) (hyperplane.Hyperplane, error) {
	if len(x) != sp.NMasterCols {
		panic(&lpsolver.DimensionError{Context: "subproblem.Evaluate", Expected: sp.NMasterCols, Actual: len(x)})
	}

	if err := sp.relink(x); err != nil {
		return hyperplane.Hyperplane{}, err
	}
	sp.xSnapshot = append(sp.xSnapshot[:0], x...)

	status, err := sp.Model.Solve()
	if err != nil {
		return hyperplane.Hyperplane{}, fmt.Errorf("subproblem %d: solve: %w", sp.ID, err)
	}

	switch status {
	case lpsolver.Optimal:
		return sp.optimalityCut(x), nil
	case lpsolver.Infeasible:
		return sp.feasibilityCut(x), nil
	case lpsolver.Unbounded:
		return hyperplane.NewUnbounded(sp.ID), nil
	default:
		return hyperplane.Hyperplane{}, &FatalSolveError{ID: sp.ID, Status: status}
	}
}

// relink recomputes every masterTerms-linked row's bounds from its base and
// the new x, and pushes the result through SetRowBounds.
func (sp *Subproblem) relink(x []float64) error {
	shifted := make(map[int][2]float64, len(sp.base))
	for row, bounds := range sp.base {
		shifted[row] = bounds
	}

	for _, term := range sp.MasterTerms {
		if term.Col < 0 || term.Col >= sp.NMasterCols {
			panic(&lpsolver.DimensionError{Context: "subproblem.relink", Expected: sp.NMasterCols, Actual: term.Col})
		}
		bounds := shifted[term.Row]
		delta := term.Coeff * x[term.Col]
		bounds[0] -= delta
		bounds[1] -= delta
		shifted[term.Row] = bounds
	}

	for row, bounds := range shifted {
		if err := sp.Model.SetRowBounds(row, bounds[0], bounds[1]); err != nil {
			return fmt.Errorf("subproblem %d: relink row %d: %w", sp.ID, row, err)
		}
	}
	return nil
}

// optimalityCut builds the Optimality hyperplane from row duals (spec.md
// §4.2): δQ[col] = -π·λ[row]·coeff for every masterTerms entry touching col,
// q = π·obj + δQ·x.
func (sp *Subproblem) optimalityCut(x []float64) hyperplane.Hyperplane {
	duals := sp.Model.RowDuals()
	deltaQ := sp.sparseFromDuals(duals, sp.Probability)

	var gval float64
	for k, idx := range deltaQ.indices {
		gval += deltaQ.values[k] * x[idx]
	}
	q := sp.Probability*sp.Model.ObjectiveValue() + gval

	return hyperplane.NewOptimality(sp.ID, sp.NMasterCols, deltaQ.indices, deltaQ.values, q)
}

// feasibilityCut builds the Feasibility hyperplane from a Farkas ray (spec.md
// §4.2): G[col] = -λ[row]·coeff, g = obj - G·x, rescaled when magnitudes are
// extreme.
func (sp *Subproblem) feasibilityCut(x []float64) hyperplane.Hyperplane {
	ray := sp.Model.FarkasRay()
	g := sp.sparseFromDuals(ray, 1)

	var gval float64
	for k, idx := range g.indices {
		gval += g.values[k] * x[idx]
	}
	gConst := sp.Model.ObjectiveValue() - gval

	scale := math.Abs(gConst)
	if scale == 0 {
		scale = maxAbs(g.values)
	}
	if scale > 1 {
		gConst /= scale
		for k := range g.values {
			g.values[k] /= scale
		}
	}

	return hyperplane.NewFeasibility(sp.ID, sp.NMasterCols, g.indices, g.values, gConst)
}

type sparseVec struct {
	indices []int
	values  []float64
}

// sparseFromDuals folds masterTerms and a per-row dual vector into a single
// sparse vector over first-stage columns, summing contributions of any
// column touched by more than one row. weight is π for an optimality cut and
// 1 for a feasibility cut (spec.md §4.2).
func (sp *Subproblem) sparseFromDuals(dual []float64, weight float64) sparseVec {
	sign := -weight
	acc := make(map[int]float64, len(sp.MasterTerms))
	for _, term := range sp.MasterTerms {
		if term.Row < 0 || term.Row >= len(dual) {
			panic(&lpsolver.DimensionError{Context: "subproblem.sparseFromDuals", Expected: len(dual), Actual: term.Row})
		}
		acc[term.Col] += sign * dual[term.Row] * term.Coeff
	}

	indices := make([]int, 0, len(acc))
	for idx := range acc {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = acc[idx]
	}
	return sparseVec{indices: indices, values: values}
}

func maxAbs(values []float64) float64 {
	var m float64
	for _, v := range values {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

