// Package cutbundle implements the cut bundle aggregator (spec.md §4.3, L4):
// it groups optimality cuts in batches of B subproblems into a single master
// row, summing their δQ and q. Feasibility, LinearConstraint, Unbounded and
// Infeasible hyperplanes always bypass the bundle and are returned
// immediately, unaggregated.
package cutbundle

import (
	"math"
	"sort"

	"github.com/lshaped-go/lshaped/hyperplane"
)

// group accumulates the running sum for one bundle: subproblems
// [g*b, g*b+size) by id.
type group struct {
	sum   map[int]float64
	sumQ  float64
	count int
	size  int
}

// Aggregator accumulates optimality cuts in groups of B, keyed by subproblem
// id rather than arrival order: group g covers subproblem ids [g*B,
// (g+1)*B), clamped to total. This makes the aggregator safe to feed from an
// asynchronous, out-of-order source (the distributed coordinator's cutqueue,
// spec.md §4.6) as well as the serial loop's strictly sequential one. B=1
// disables aggregation: every optimality cut is returned from Add as soon as
// it arrives.
type Aggregator struct {
	b, dim, total int

	groups map[int]*group
}

// New creates an aggregator with bundle size b over hyperplanes of dimension
// dim, covering subproblem ids [0, total). b is clamped to at least 1.
func New(b, dim, total int) *Aggregator {
	if b < 1 {
		b = 1
	}
	return &Aggregator{b: b, dim: dim, total: total, groups: make(map[int]*group)}
}

// groupOf maps a subproblem id to its bundle group index. The emitted
// hyperplane for a group carries this index as its own ID, so the master's
// theta columns are addressed by group (ceil(total/b) of them), not by raw
// subproblem id (spec.md §4.4 step 2 "S theta columns" holds only for the
// multicut, B=1 case).
func (a *Aggregator) groupOf(id int) int { return id / a.b }

func (a *Aggregator) groupSize(g int) int {
	start := g * a.b
	end := start + a.b
	if end > a.total {
		end = a.total
	}
	if end < start {
		end = start
	}
	return end - start
}

// Add feeds one subproblem's cut into the aggregator. It returns the
// hyperplanes that are now ready to be inserted into the master: zero (cut
// absorbed into a still-open bundle), one (a bypassed non-optimality cut, a
// B=1 optimality cut, or a bundle that just filled up).
func (a *Aggregator) Add(h hyperplane.Hyperplane) []hyperplane.Hyperplane {
	if h.Kind != hyperplane.Optimality {
		return []hyperplane.Hyperplane{h}
	}

	g := a.groupOf(h.ID)
	grp := a.groups[g]
	if grp == nil {
		grp = &group{sum: make(map[int]float64), size: a.groupSize(g)}
		a.groups[g] = grp
	}
	for k, idx := range h.Indices {
		grp.sum[idx] += h.Values[k]
	}
	grp.sumQ += h.Q
	grp.count++

	if grp.count < grp.size {
		return nil
	}
	delete(a.groups, g)
	return []hyperplane.Hyperplane{a.build(g, grp)}
}

// Flush emits whatever partial bundles remain at the end of an outer-loop
// pass, per spec.md §4.3: each non-empty group whose running q is finite
// (meaning no component cut carried a non-finite contribution). Groups are
// emitted in ascending index order for reproducibility.
func (a *Aggregator) Flush() []hyperplane.Hyperplane {
	if len(a.groups) == 0 {
		return nil
	}

	keys := make([]int, 0, len(a.groups))
	for g := range a.groups {
		keys = append(keys, g)
	}
	sort.Ints(keys)

	var out []hyperplane.Hyperplane
	for _, g := range keys {
		grp := a.groups[g]
		if !math.IsInf(grp.sumQ, 0) {
			out = append(out, a.build(g, grp))
		}
	}
	a.groups = make(map[int]*group)
	return out
}

func (a *Aggregator) build(g int, grp *group) hyperplane.Hyperplane {
	indices := make([]int, 0, len(grp.sum))
	for idx := range grp.sum {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = grp.sum[idx]
	}

	return hyperplane.NewOptimality(g, a.dim, indices, values, grp.sumQ)
}

// Pending reports how many optimality cuts are currently buffered across all
// open bundles.
func (a *Aggregator) Pending() int {
	n := 0
	for _, grp := range a.groups {
		n += grp.count
	}
	return n
}
