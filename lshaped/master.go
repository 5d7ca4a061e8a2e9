package lshaped

import (
	"math"

	"github.com/lshaped-go/lshaped/hyperplane"
	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

// master owns the master LP/QP model and the bookkeeping the serial and
// distributed loops share: the column layout (n first-stage columns
// followed by one theta column per cut bundle, per spec.md §4.4 step 2 —
// "S theta columns" holds only for the multicut, bundle-size-1 case; a
// larger bundle size groups subproblems ceil(S/B) to a column), the base
// cost vector, and the regularized-decomposition proximal term layered on
// top of it (§4.5).
type master struct {
	model lpsolver.Model

	n int
	s int // theta-column count: ceil(S/bundle)

	// baseCost is the objective before any regularizer is applied: the
	// front-end's c, followed by each theta column's cost (1.0, or 0.0 under
	// linearize until that id's first optimality cut promotes it).
	baseCost []float64
	promoted []bool

	linearize bool

	// regLinear/regQuad are the regularized-decomposition contribution over
	// the x-block, nil when no regularizer is active (every variant but RD).
	regLinear, regQuad []float64
}

// buildMaster constructs the master model for a Problem: n first-stage
// columns at their given cost and bounds, followed by one theta column per
// cut bundle with (-inf, +inf) bounds (spec.md §4.4 step 2). bundle must be
// the same bundle size the cut aggregator (cutbundle.New) is built with, so
// that a bundle's leader hyperplane (whose ID is the group index, not a raw
// subproblem id — see cutbundle.Aggregator.groupOf) always addresses a real
// theta column.
func buildMaster(newModel ModelFactory, p Problem, bundle int, linearize bool) *master {
	n := len(p.Cost)
	groups := bundleGroups(len(p.Subproblems), bundle)

	model := newModel(lpsolver.Minimize)

	thetaCost := 1.0
	if linearize {
		thetaCost = 0.0
	}

	baseCost := make([]float64, n+groups)
	copy(baseCost, p.Cost)
	for i := 0; i < n; i++ {
		model.AddVariable(p.Cost[i], p.Lower[i], p.Upper[i])
	}
	for i := 0; i < groups; i++ {
		model.AddVariable(thetaCost, negInf, math.Inf(1))
		baseCost[n+i] = thetaCost
	}

	return &master{
		model:     model,
		n:         n,
		s:         groups,
		baseCost:  baseCost,
		promoted:  make([]bool, groups),
		linearize: linearize,
	}
}

// bundleGroups returns ceil(s/bundle), the number of theta columns a bundle
// size of bundle needs to cover s subproblems. bundle is clamped to at least
// 1.
func bundleGroups(s, bundle int) int {
	if bundle < 1 {
		bundle = 1
	}
	if s == 0 {
		return 0
	}
	return (s + bundle - 1) / bundle
}

// insert adds a hyperplane's low-level row to the master model and records it
// in the committee. It promotes the hyperplane's theta column first, so the
// row it inserts is priced consistently with the column it references.
func (m *master) insert(h hyperplane.Hyperplane, st *LShapedState) error {
	if h.Kind == hyperplane.Optimality {
		if err := m.promote(h.ID); err != nil {
			return err
		}
	}
	idx, vals, lb, ub := h.LowLevel(m.n)
	row, err := m.model.AddRow(idx, vals, lb, ub)
	if err != nil {
		return err
	}
	st.addCommitteeEntry(h, row)
	return nil
}

// promote implements the linearize-mode cost promotion of spec.md §4.4 step
// 2: a theta column's cost starts at 0 and is raised to 1.0 the first time an
// optimality cut for that id is added. A no-op outside linearize mode, and
// idempotent per id.
func (m *master) promote(id int) error {
	if !m.linearize || id < 0 || id >= m.s || m.promoted[id] {
		return nil
	}
	m.promoted[id] = true
	m.baseCost[m.n+id] = 1.0
	return m.refreshObjective()
}

// applyRegularizer layers the regularized-decomposition proximal term
// (spec.md §4.5) on top of the base objective: a linear part over the
// x-block and a diagonal quadratic, both recomputed from scratch every call
// since σ or ξ may change on any take_step! invocation.
func (m *master) applyRegularizer(linear, quadDiag []float64) error {
	m.regLinear = linear
	m.regQuad = quadDiag
	return m.refreshObjective()
}

func (m *master) refreshObjective() error {
	obj := append([]float64(nil), m.baseCost...)
	for i, l := range m.regLinear {
		obj[i] += l
	}
	if err := m.model.SetObjective(obj); err != nil {
		return err
	}
	if m.regQuad == nil {
		return nil
	}
	entries := make([]lpsolver.Nonzero, 0, len(m.regQuad))
	for i, q := range m.regQuad {
		if q != 0 {
			entries = append(entries, lpsolver.Nonzero{Row: i, Col: i, Value: q})
		}
	}
	return m.model.SetQuadraticObjective(entries)
}

// setTrustBounds restricts the x-block's columns to [lb[i], ub[i]]; theta
// columns are never touched by the trust-region variant (spec.md §4.5).
func (m *master) setTrustBounds(lb, ub []float64) error {
	for i := range lb {
		if err := m.model.SetBounds(i, lb[i], ub[i]); err != nil {
			return err
		}
	}
	return nil
}

// split separates a master primal vector into its x-block and theta-block.
func (m *master) split(primal []float64) (x, thetas []float64) {
	return primal[:m.n], primal[m.n : m.n+m.s]
}
