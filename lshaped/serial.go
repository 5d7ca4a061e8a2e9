package lshaped

import (
	"context"
	"fmt"
	"math"

	"github.com/lshaped-go/lshaped/cutbundle"
	"github.com/lshaped-go/lshaped/hyperplane"
	"github.com/lshaped-go/lshaped/internal/lpsolver"
	"github.com/lshaped-go/lshaped/lshaped/localize"
	"github.com/lshaped-go/lshaped/subproblem"
)

// Solve drives the configured engine variant to termination over problem p
// (spec.md §6.2 "solve"). It is equivalent to SolveWithContext with a
// background context.
func (s *Solver) Solve(p Problem) (Result, error) {
	return s.SolveWithContext(context.Background(), p)
}

// SolveWithContext drives the engine as Solve does, but checks ctx at the
// top of every outer-loop iteration (mirroring golpa's
// Model.SolveWithContext). A cancelled or expired context stops the loop and
// returns StoppedPrematurely with ctx.Err(), reporting whatever gap was
// reached so far (spec.md §7 "the engine catches master solves so it can
// report the gap achieved so far").
func (s *Solver) SolveWithContext(ctx context.Context, p Problem) (Result, error) {
	if err := s.validate(p); err != nil {
		return Result{}, err
	}
	if s.kind.Distributed() {
		return s.solveParallel(ctx, p)
	}
	return s.solveSerial(ctx, p)
}

func (s *Solver) validate(p Problem) error {
	n := len(p.Cost)
	if len(p.Lower) != n {
		return &ShapeError{Context: "first-stage lower bounds", Expected: n, Actual: len(p.Lower)}
	}
	if len(p.Upper) != n {
		return &ShapeError{Context: "first-stage upper bounds", Expected: n, Actual: len(p.Upper)}
	}
	if p.X0 != nil && len(p.X0) != n {
		return &ShapeError{Context: "x0", Expected: n, Actual: len(p.X0)}
	}
	return nil
}

// crash picks x0 when the caller supplies none (spec.md §6.2 "crash").
// CrashEVP is documented as solving the expected-value problem (every
// scenario replaced by its mean); the engine has no access to per-scenario
// distributional data, which belongs entirely to the modeling front-end
// (spec.md §1 non-goal), so it falls back to the same random-within-bounds
// point CrashNone uses (see DESIGN.md).
func (s *Solver) crash(p Problem) []float64 {
	x0 := make([]float64, len(p.Cost))
	for i := range x0 {
		lo, hi := p.Lower[i], p.Upper[i]
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			x0[i] = 0
		case math.IsInf(lo, -1):
			x0[i] = hi
		case math.IsInf(hi, 1):
			x0[i] = lo
		default:
			x0[i] = lo + s.rng.Float64()*(hi-lo)
		}
	}
	return x0
}

// solveSerial implements the serial master loop (spec.md §4.4, L5) composed
// with whichever localization variant s.kind selects (§4.5, L6).
func (s *Solver) solveSerial(ctx context.Context, p Problem) (Result, error) {
	n, S := len(p.Cost), len(p.Subproblems)
	bundle := s.params.Bundle
	if bundle < 1 {
		bundle = 1
	}
	if bundle > S {
		bundle = S
	}

	x0 := p.X0
	if x0 == nil {
		x0 = s.crash(p)
	}

	groups := bundleGroups(S, bundle)

	// Ingest before sizing the state: an equality row contributes two
	// committee entries, so the pruning baseline counts ingested hyperplanes,
	// not input rows.
	firstStageRows, err := ingestRows(p.Rows, n)
	if err != nil {
		return Result{}, err
	}

	lk := s.kind.Localize()
	st := newState(n, groups, len(firstStageRows))
	loc := localize.New(lk, localize.Params{
		Tau:       s.params.Tau,
		Gamma:     s.params.Gamma,
		Sigma:     s.params.Sigma,
		Lambda:    s.params.Lambda,
		DeltaBar:  s.params.DeltaBar,
		Linearize: s.params.Linearize,
	}, x0)

	m := buildMaster(s.newModel, p, bundle, s.params.Linearize)
	for _, h := range firstStageRows {
		if err := m.insert(h, st); err != nil {
			return Result{}, fmt.Errorf("lshaped: seeding committee: %w", err)
		}
	}

	x := append([]float64(nil), x0...)
	thetas := make([]float64, groups)
	theta := thetaFloor

	result := Result{Status: StoppedPrematurely}

	for iter := 0; iter < s.params.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			result.Gap = math.Inf(1)
			if k := len(result.QHistory); k > 0 {
				result.Gap = result.QHistory[k-1] - result.ThetaHistory[k-1]
			}
			return result, err
		}

		Q, unbounded, infeasible, err := s.resolveSubproblems(p.Cost, p.Subproblems, x, bundle, n, m, st)
		if err != nil {
			return result, err
		}
		if unbounded {
			result.Status = Unbounded
			return result, nil
		}
		if infeasible {
			result.Status = Infeasible
			return result, nil
		}

		loc.TakeStep(x, Q, theta)

		if lk == localize.Regularized {
			linear, quad := loc.Regularizer()
			if err := m.applyRegularizer(linear, quad); err != nil {
				return result, fmt.Errorf("lshaped: applying regularizer: %w", err)
			}
		}
		if lk == localize.TrustRegion {
			lb, ub := loc.TrustBounds(p.Lower, p.Upper)
			if err := m.setTrustBounds(lb, ub); err != nil {
				return result, fmt.Errorf("lshaped: applying trust bounds: %w", err)
			}
		}

		status, err := m.model.Solve()
		if err != nil {
			result.Gap = Q - theta
			return result, fmt.Errorf("lshaped: master solve: %w", err)
		}
		switch status {
		case lpsolver.Infeasible:
			result.Status = Infeasible
			return result, nil
		case lpsolver.Optimal:
		default:
			result.Gap = Q - theta
			return result, nil
		}

		primal := m.model.Primal()
		mx, mthetas := m.split(primal)
		x = append([]float64(nil), mx...)
		thetas = append([]float64(nil), mthetas...)
		st.x, st.thetas = x, thetas
		theta = dot(p.Cost, x) + sum(thetas)

		if lk == localize.LevelSet {
			level := loc.Level(theta)
			projected, err := projectLevelSet(s.newModel, p, st, loc, level)
			if err != nil {
				return result, fmt.Errorf("lshaped: level-set projection: %w", err)
			}
			x = projected
			loc.SetProjected(x)
		}

		if lk != localize.Plain {
			if err := st.removeInactive(m.model, x, s.params.Tau); err != nil {
				return result, fmt.Errorf("lshaped: pruning committee: %w", err)
			}
			st.queueViolated(x, s.params.Tau)
			for _, h := range st.reinsertViolating() {
				if err := m.insert(h, st); err != nil {
					return result, fmt.Errorf("lshaped: reinserting violated cut: %w", err)
				}
			}
		}

		gap := Q - theta
		result.QHistory = append(result.QHistory, Q)
		result.ThetaHistory = append(result.ThetaHistory, theta)
		if lk != localize.Plain {
			result.QtildeHistory = append(result.QtildeHistory, loc.Qtilde)
		}
		if lk == localize.TrustRegion {
			result.DeltaHistory = append(result.DeltaHistory, loc.Delta)
		}

		s.sink.Update(iter, Q, gap, st.cuts)
		if s.params.Log {
			s.logger.Print(fmt.Sprintf("solver=%s iter=%d Q=%g theta=%g gap=%g cuts=%d", s.id, iter, Q, theta, gap, st.cuts))
		}

		if loc.CheckOptimality(Q, theta) {
			result.Status = Optimal
			result.X = x
			result.Thetas = thetas
			result.Gap = gap
			return result, nil
		}
	}

	result.X, result.Thetas = x, thetas
	return result, nil
}

// resolveSubproblems implements R1/R2 of spec.md §4.4: re-solve every
// subproblem at x, route the resulting cut through the bundle aggregator
// (§4.3, L4) into the master, and report Q = c·x + Σ(subproblem recourse
// values) — comparable to theta = c·x + Σthetas — alongside whether any
// subproblem signalled Unbounded or (with feasibility-cut generation off)
// Infeasible.
func (s *Solver) resolveSubproblems(cost []float64, subs []*subproblem.Subproblem, x []float64, bundle, n int, m *master, st *LShapedState) (q float64, unbounded, infeasible bool, err error) {
	agg := cutbundle.New(bundle, n, len(subs))

	sawFeas := false
	for _, sp := range subs {
		h, evalErr := sp.Evaluate(x)
		if evalErr != nil {
			return 0, false, false, fmt.Errorf("lshaped: evaluating subproblem: %w", evalErr)
		}

		switch h.Kind {
		case hyperplane.Unbounded:
			unbounded = true
			continue
		case hyperplane.Feasibility:
			if !s.params.Checkfeas {
				infeasible = true
				continue
			}
			// Q(x) is undefined at a second-stage-infeasible x; the running
			// recourse sum goes to +Inf, matching the bundle's running-q
			// convention (spec.md §4.3).
			sawFeas = true
		default:
			q += h.Evaluate(x).Q
		}

		for _, ready := range agg.Add(h) {
			if err := m.insert(ready, st); err != nil {
				return 0, false, false, fmt.Errorf("lshaped: inserting cut: %w", err)
			}
		}
	}
	for _, ready := range agg.Flush() {
		if err := m.insert(ready, st); err != nil {
			return 0, false, false, fmt.Errorf("lshaped: inserting bundle: %w", err)
		}
	}
	total := dot(cost, x) + q
	if sawFeas {
		total = math.Inf(1)
	}
	return total, unbounded, infeasible, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}
