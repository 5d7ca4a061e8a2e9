package lshaped

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lshaped-go/lshaped/cutbundle"
	"github.com/lshaped-go/lshaped/hyperplane"
	"github.com/lshaped-go/lshaped/internal/lpsolver"
	"github.com/lshaped-go/lshaped/lshaped/localize"
	"github.com/lshaped-go/lshaped/subproblem"
)

// distTask is sent from the coordinator to one worker: either "compute at
// timestamp T against point X" or Shutdown, the poison value of spec.md §4.6
// ("work: ... messages are 'compute at timestamp t' or -1 meaning 'shut
// down'"). spec.md §4.6 models this as two separate channels (decisions,
// work); this implementation folds them into one per-worker channel so a
// worker can never observe a work(t) message before the x_t it needs to act
// on — reading two channels via select gives no ordering guarantee between
// them, which would otherwise let a worker compute against a stale or absent
// x (see DESIGN.md). The cutqueue direction (worker → coordinator) is kept
// as its own channel, matching spec.md §4.6 exactly.
type distTask struct {
	T        int
	X        []float64
	Shutdown bool
}

// distCut is one cutqueue message (spec.md §4.6): a subproblem's cut, tagged
// with the timestamp it was computed for and its own recourse value so the
// coordinator need not retain every past x_t to reconstruct it.
type distCut struct {
	T     int
	SubID int
	QSub  float64
	Cut   hyperplane.Hyperplane
}

// workerCount resolves W (spec.md §4.6 "1 coordinator + W >= 1 workers"):
// the configured Params.Workers, or runtime.NumCPU() if unset, clamped to
// the subproblem count (a worker with nothing to evaluate is never useful).
func (s *Solver) workerCount(S int) int {
	w := s.params.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > S {
		w = S
	}
	if w < 1 {
		w = 1
	}
	return w
}

// partitionSubproblems splits subs into w disjoint, round-robin buckets so
// each worker owns a fixed subset for the whole solve (spec.md §5: "No
// worker ever touches master state; the coordinator never holds a
// subproblem's LP").
func partitionSubproblems(subs []*subproblem.Subproblem, w int) [][]*subproblem.Subproblem {
	buckets := make([][]*subproblem.Subproblem, w)
	for i, sp := range subs {
		buckets[i%w] = append(buckets[i%w], sp)
	}
	return buckets
}

// runWorker implements one worker of spec.md §4.6: it holds a disjoint
// subset of subproblems, waits for a task, and for each non-shutdown task
// evaluates every owned subproblem at the task's x and reports one distCut
// per subproblem.
func (s *Solver) runWorker(ctx context.Context, subs []*subproblem.Subproblem, tasks <-chan distTask, cuts chan<- distCut) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-tasks:
			if !ok || task.Shutdown {
				return nil
			}
			for _, sp := range subs {
				h, err := sp.Evaluate(task.X)
				if err != nil {
					return fmt.Errorf("lshaped: worker evaluating subproblem %d: %w", sp.ID, err)
				}
				qsub := 0.0
				switch h.Kind {
				case hyperplane.Unbounded:
				case hyperplane.Feasibility:
					// Q is undefined at a second-stage-infeasible point; the
					// coordinator's round sum goes to +Inf (spec.md §4.3's
					// running-q convention).
					qsub = math.Inf(1)
				default:
					qsub = h.Evaluate(task.X).Q
				}
				select {
				case cuts <- distCut{T: task.T, SubID: sp.ID, QSub: qsub, Cut: h}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// solveParallel implements the parallel/asynchronous master loop (spec.md
// §4.6, L7): a coordinator goroutine owns the master model, x, θs, ξ and
// history; W worker goroutines each own a disjoint slice of subproblems.
// Every variant runs the same coordinator loop; only the distributed
// Level-Set variant relaxes its advance condition below κ=1 (spec.md §4.6
// "Asynchronous variant (Level-set)").
func (s *Solver) solveParallel(ctx context.Context, p Problem) (Result, error) {
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

	// Same ordering as the serial loop: ingest first, so the pruning
	// baseline counts ingested hyperplanes (an equality row contributes two).
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

	kappa := 1.0
	if lk == localize.LevelSet {
		kappa = s.params.Kappa
		if kappa <= 0 || kappa > 1 {
			kappa = 1
		}
	}

	W := s.workerCount(S)
	buckets := partitionSubproblems(p.Subproblems, W)
	tasks := make([]chan distTask, W)
	for i := range tasks {
		tasks[i] = make(chan distTask, 2)
	}
	cutCh := make(chan distCut, S*4+W*2)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < W; i++ {
		i := i
		g.Go(func() error { return s.runWorker(gctx, buckets[i], tasks[i], cutCh) })
	}

	var result Result
	g.Go(func() error {
		r, err := s.runCoordinator(gctx, p, x0, st, loc, m, tasks, cutCh, bundle, kappa)
		result = r
		return err
	})

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func dispatch(tasks []chan distTask, t distTask) {
	for _, ch := range tasks {
		ch <- t
	}
}

func shutdownWorkers(tasks []chan distTask) {
	dispatch(tasks, distTask{Shutdown: true})
}

// runCoordinator implements the coordinator side of spec.md §4.6: drains
// cutCh with the "wait; while(ready) drain" pattern of §5, folds arriving
// cuts through the bundle aggregator into the master, and advances its
// timestamp once the quorum for the current round is met.
func (s *Solver) runCoordinator(
	ctx context.Context,
	p Problem,
	x0 []float64,
	st *LShapedState,
	loc *localize.State,
	m *master,
	tasks []chan distTask,
	cutCh chan distCut,
	bundle int,
	kappa float64,
) (Result, error) {
	n, S := len(p.Cost), len(p.Subproblems)
	x := append([]float64(nil), x0...)
	thetas := make([]float64, bundleGroups(S, bundle))
	theta := thetaFloor

	agg := cutbundle.New(bundle, n, S)
	finished := map[int]int{}
	subobj := map[int]map[int]float64{}
	processed := 0

	result := Result{Status: StoppedPrematurely}
	t := 0
	dispatch(tasks, distTask{T: t, X: x})

	need := int(math.Ceil(kappa * float64(S)))
	if need < 1 {
		need = 1
	}

	for {
		select {
		case <-ctx.Done():
			shutdownWorkers(tasks)
			result.Gap = math.Inf(1)
			if k := len(result.QHistory); k > 0 {
				result.Gap = result.QHistory[k-1] - result.ThetaHistory[k-1]
			}
			return result, ctx.Err()
		case c := <-cutCh:
			terminal, err := s.applyDistCut(c, t, agg, m, st, subobj, finished)
			if err != nil {
				shutdownWorkers(tasks)
				return result, err
			}
			processed++
			if terminal == Unbounded || terminal == Infeasible {
				shutdownWorkers(tasks)
				result.Status = terminal
				return result, nil
			}

		drain:
			for {
				select {
				case c2 := <-cutCh:
					terminal, err := s.applyDistCut(c2, t, agg, m, st, subobj, finished)
					if err != nil {
						shutdownWorkers(tasks)
						return result, err
					}
					processed++
					if terminal == Unbounded || terminal == Infeasible {
						shutdownWorkers(tasks)
						result.Status = terminal
						return result, nil
					}
				default:
					break drain
				}
			}

			// processed >= S gates the very first round on a full sweep of raw
			// cutqueue arrivals, independent of how much the bundle aggregator
			// has compressed them into committee rows (st.cuts can undercount
			// badly under a large bundle size).
			if finished[t] >= need && processed >= S {
				for _, ready := range agg.Flush() {
					if err := m.insert(ready, st); err != nil {
						shutdownWorkers(tasks)
						return result, fmt.Errorf("lshaped: flushing bundle: %w", err)
					}
				}

				Qt := dot(p.Cost, x) + sumMap(subobj[t])
				loc.TakeStep(x, Qt, theta)

				if loc.Kind == localize.Regularized {
					linear, quad := loc.Regularizer()
					if err := m.applyRegularizer(linear, quad); err != nil {
						shutdownWorkers(tasks)
						return result, fmt.Errorf("lshaped: applying regularizer: %w", err)
					}
				}
				if loc.Kind == localize.TrustRegion {
					lb, ub := loc.TrustBounds(p.Lower, p.Upper)
					if err := m.setTrustBounds(lb, ub); err != nil {
						shutdownWorkers(tasks)
						return result, fmt.Errorf("lshaped: applying trust bounds: %w", err)
					}
				}

				status, err := m.model.Solve()
				if err != nil {
					shutdownWorkers(tasks)
					result.Gap = Qt - theta
					return result, fmt.Errorf("lshaped: master solve: %w", err)
				}
				switch status {
				case lpsolver.Infeasible:
					shutdownWorkers(tasks)
					result.Status = Infeasible
					return result, nil
				case lpsolver.Optimal:
				default:
					shutdownWorkers(tasks)
					result.Gap = Qt - theta
					return result, nil
				}

				primal := m.model.Primal()
				mx, mthetas := m.split(primal)
				x = append([]float64(nil), mx...)
				thetas = append([]float64(nil), mthetas...)
				st.x, st.thetas = x, thetas
				theta = dot(p.Cost, x) + sum(thetas)

				if loc.Kind == localize.LevelSet {
					level := loc.Level(theta)
					projected, err := projectLevelSet(s.newModel, p, st, loc, level)
					if err != nil {
						shutdownWorkers(tasks)
						return result, fmt.Errorf("lshaped: level-set projection: %w", err)
					}
					x = projected
					loc.SetProjected(x)
				}

				if loc.Kind != localize.Plain {
					if err := st.removeInactive(m.model, x, s.params.Tau); err != nil {
						shutdownWorkers(tasks)
						return result, fmt.Errorf("lshaped: pruning committee: %w", err)
					}
					st.queueViolated(x, s.params.Tau)
					for _, h := range st.reinsertViolating() {
						if err := m.insert(h, st); err != nil {
							shutdownWorkers(tasks)
							return result, fmt.Errorf("lshaped: reinserting violated cut: %w", err)
						}
					}
				}

				gap := Qt - theta
				result.QHistory = append(result.QHistory, Qt)
				result.ThetaHistory = append(result.ThetaHistory, theta)
				if loc.Kind != localize.Plain {
					result.QtildeHistory = append(result.QtildeHistory, loc.Qtilde)
				}
				if loc.Kind == localize.TrustRegion {
					result.DeltaHistory = append(result.DeltaHistory, loc.Delta)
				}
				s.sink.Update(t, Qt, gap, st.cuts)
				if s.params.Log {
					s.logger.Print(fmt.Sprintf("solver=%s t=%d Q=%g theta=%g gap=%g cuts=%d", s.id, t, Qt, theta, gap, st.cuts))
				}

				if loc.CheckOptimality(Qt, theta) {
					shutdownWorkers(tasks)
					result.Status = Optimal
					result.X, result.Thetas, result.Gap = x, thetas, gap
					return result, nil
				}

				t++
				if t >= s.params.MaxIter {
					shutdownWorkers(tasks)
					result.X, result.Thetas = x, thetas
					return result, nil
				}
				dispatch(tasks, distTask{T: t, X: x})
			}
		}
	}
}

// applyDistCut folds one arriving cutqueue message into the master
// (spec.md §4.6 steps 1-4). It returns Optimal as a "keep going" sentinel;
// Unbounded/Infeasible signal the caller should terminate.
//
// subobjectives are recorded under the coordinator's *current* timestamp
// (the t argument), not the cut's own generation timestamp: a late cut
// arriving after the coordinator has advanced still contributes a valid
// lower bound to the master (§4.6 "Ordering guarantee"), but its recourse
// value is booked against whichever round is open when it arrives (spec.md
// §9 Open Questions: "record under arrival-timestamp, not
// generation-timestamp").
func (s *Solver) applyDistCut(c distCut, currentT int, agg *cutbundle.Aggregator, m *master, st *LShapedState, subobj map[int]map[int]float64, finished map[int]int) (Status, error) {
	if c.Cut.Kind == hyperplane.Unbounded {
		return Unbounded, nil
	}
	if c.Cut.Kind == hyperplane.Feasibility && !s.params.Checkfeas {
		return Infeasible, nil
	}

	for _, ready := range agg.Add(c.Cut) {
		if err := m.insert(ready, st); err != nil {
			return Optimal, err
		}
	}

	if subobj[currentT] == nil {
		subobj[currentT] = make(map[int]float64)
	}
	subobj[currentT][c.SubID] = c.QSub
	finished[currentT]++
	return Optimal, nil
}

func sumMap(m map[int]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}
