package lshaped

import (
	"math"

	"github.com/lshaped-go/lshaped/hyperplane"
	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

// ingestRows implements L8: turns front-end-supplied first-stage rows into
// LinearConstraint hyperplanes seeding the committee (spec.md §4.4 step 3).
// A ranged row (finite, distinct lower and upper bound) is rejected here,
// before it ever reaches an LP/QP adapter — the adapter itself has no
// opinion on ranged rows (§4.7 accepts them generally). A single hyperplane
// can only represent one "Gval >= q" side, so a row with both bounds finite
// and equal (an equality constraint) emits two committee rows, one per
// side; every other row shape emits exactly one. IDs are assigned by output
// position, not input row position, since an equality row contributes two.
func ingestRows(rows []Row, n int) ([]hyperplane.Hyperplane, error) {
	out := make([]hyperplane.Hyperplane, 0, len(rows))
	for _, r := range rows {
		hasLower := !math.IsInf(r.Lower, -1)
		hasUpper := !math.IsInf(r.Upper, 1)
		if hasLower && hasUpper && r.Lower != r.Upper {
			return nil, &lpsolver.RangedRowError{Lower: r.Lower, Upper: r.Upper}
		}

		if hasLower {
			out = append(out, hyperplane.NewLinearConstraint(len(out), n, r.Indices, r.Values, r.Lower))
		}
		if hasUpper {
			// sum <= ub  <=>  -sum >= -ub, the only shape a hyperplane can
			// represent.
			negated := make([]float64, len(r.Values))
			for i, v := range r.Values {
				negated[i] = -v
			}
			out = append(out, hyperplane.NewLinearConstraint(len(out), n, r.Indices, negated, -r.Upper))
		}
	}
	return out, nil
}
