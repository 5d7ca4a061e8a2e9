// Package hyperplane implements the cut algebra of the decomposition engine
// (spec.md §3, §4.1): a tagged record of a sparse affine lower bound on the
// recourse function, or a signal that one of the second-stage subproblems was
// unbounded or infeasible.
//
// The shape mirrors github.com/costela/golpa's constraint bookkeeping
// (AddConstraint's switch on (lower, upper) and its row/column index
// conventions), generalized from "add this row to a model" to "this is an
// immutable value that can later be turned into such a row".
package hyperplane

import (
	"fmt"
	"math"
)

// Kind tags the five possible hyperplane shapes (spec.md §3).
type Kind int

const (
	Optimality Kind = iota
	Feasibility
	LinearConstraint
	Unbounded
	Infeasible
)

func (k Kind) String() string {
	switch k {
	case Optimality:
		return "optimality"
	case Feasibility:
		return "feasibility"
	case LinearConstraint:
		return "linear"
	case Unbounded:
		return "unbounded"
	case Infeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// ThetaFloor is the numerical sentinel used in place of -∞ for an
// as-yet-unpopulated θ value (spec.md §9). Any θ at or below this floor must
// be treated by callers as "not yet populated".
const ThetaFloor = -1e10

// Hyperplane is an immutable affine lower bound δQ·x ≥ q - B(id), or a bare
// Unbounded/Infeasible signal carrying no coefficients.
//
// Dimension is the length δQ is defined over: n (first-stage columns) for
// Feasibility/LinearConstraint, and n as well for Optimality (the extra
// θ-column contribution is not part of δQ; it is added at LowLevel time, per
// spec.md §4.1).
type Hyperplane struct {
	Kind Kind
	// ID identifies the subproblem (Optimality, Feasibility) or the source
	// row (LinearConstraint) this hyperplane was derived from.
	ID int

	// Indices and Values together are the sparse vector δQ (or G, for
	// Feasibility). len(Indices) == len(Values).
	Indices []int
	Values  []float64

	// Q is the scalar q (or g, for Feasibility).
	Q float64

	// Dim is the length x is expected to have at Evaluate time.
	Dim int
}

// DimensionError reports a length mismatch between a hyperplane's declared
// dimension and a query point — a programming error per spec.md §4.1, which
// must always be reported with both sizes.
type DimensionError struct {
	Expected, Actual int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("hyperplane: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Bounded reports whether the hyperplane carries coefficients at all: true
// for every kind except Unbounded and Infeasible.
func (h Hyperplane) Bounded() bool {
	return h.Kind != Unbounded && h.Kind != Infeasible
}

// Evaluation is the result of evaluating a hyperplane at a point x.
type Evaluation struct {
	// Gval is δQ·x (or G·x, for Feasibility).
	Gval float64
	// Q is q − Gval: for Optimality this is the recourse estimate Q(x) for
	// the hyperplane's subproblem; for other kinds it is exposed for
	// uniformity but rarely used directly.
	Q float64
}

// Evaluate computes Gval = δQ·x and Q = q − Gval. It panics with a
// *DimensionError if len(x) != h.Dim; per spec.md §4.1 this is always a
// programming error, never a recoverable run-time condition.
func (h Hyperplane) Evaluate(x []float64) Evaluation {
	if !h.Bounded() {
		return Evaluation{}
	}
	if len(x) != h.Dim {
		panic(&DimensionError{Expected: h.Dim, Actual: len(x)})
	}

	var gval float64
	for k, idx := range h.Indices {
		gval += h.Values[k] * x[idx]
	}
	return Evaluation{Gval: gval, Q: h.Q - gval}
}

// Active reports whether the hyperplane is tight at x (within tolerance tau).
// theta is the current θ_id value; it is only consulted for Optimality
// hyperplanes, where a θ at or below ThetaFloor means "not yet populated" and
// Active is always false.
func (h Hyperplane) Active(ev Evaluation, theta, tau float64) bool {
	if h.Kind == Optimality {
		if theta <= ThetaFloor {
			return false
		}
		return math.Abs(theta-ev.Q) <= tau*(1+math.Abs(ev.Q))
	}
	return math.Abs(ev.Gval-h.Q) <= tau*(1+math.Abs(ev.Gval))
}

// Satisfied reports whether x (together with, for Optimality, the current
// theta) satisfies the hyperplane's lower-bound inequality within tolerance.
func (h Hyperplane) Satisfied(ev Evaluation, theta, tau float64) bool {
	if h.Kind == Optimality {
		if theta <= ThetaFloor {
			return false
		}
		return theta >= ev.Q-tau*(1+math.Abs(ev.Q))
	}
	return ev.Gval >= h.Q-tau*(1+math.Abs(ev.Gval))
}

// Violated is the negation of Satisfied.
func (h Hyperplane) Violated(ev Evaluation, theta, tau float64) bool {
	return !h.Satisfied(ev, theta, tau)
}

// Gap returns the signed slack of the hyperplane at x: positive means
// satisfied with room to spare, negative means violated. For an Optimality
// hyperplane whose theta is not yet populated, Gap is +Inf, so in a
// max-first priority queue keyed by gap such a hyperplane comes out first.
func (h Hyperplane) Gap(ev Evaluation, theta float64) float64 {
	if h.Kind == Optimality {
		if theta <= ThetaFloor {
			return math.Inf(1)
		}
		return theta - ev.Q
	}
	return ev.Gval - h.Q
}

// LowLevel serializes the hyperplane into the (indices, values, lb, ub) shape
// the LP/QP adapter's AddRow expects (spec.md §4.1). n is the number of
// first-stage columns; for an Optimality hyperplane the θ_id contribution is
// appended here, at column n+id, so the emitted row reads
// δQ·x + θ_id ≥ q. LowLevel must not be called on Unbounded/Infeasible
// hyperplanes, which carry no row.
func (h Hyperplane) LowLevel(n int) (indices []int, values []float64, lb, ub float64) {
	if !h.Bounded() {
		panic(fmt.Sprintf("hyperplane: LowLevel called on a %s signal", h.Kind))
	}

	indices = append(indices, h.Indices...)
	values = append(values, h.Values...)

	if h.Kind == Optimality {
		indices = append(indices, n+h.ID)
		values = append(values, 1.0)
	}

	return indices, values, h.Q, math.Inf(1)
}

// NewOptimality builds an Optimality hyperplane. deltaQ is a sparse vector
// over [0, dim).
func NewOptimality(id, dim int, indices []int, values []float64, q float64) Hyperplane {
	return Hyperplane{Kind: Optimality, ID: id, Dim: dim, Indices: indices, Values: values, Q: q}
}

// NewFeasibility builds a Feasibility cut.
func NewFeasibility(id, dim int, indices []int, values []float64, g float64) Hyperplane {
	return Hyperplane{Kind: Feasibility, ID: id, Dim: dim, Indices: indices, Values: values, Q: g}
}

// NewLinearConstraint builds a first-stage LinearConstraint hyperplane (§4.4
// step 3, ingested by L8).
func NewLinearConstraint(id, dim int, indices []int, values []float64, lb float64) Hyperplane {
	return Hyperplane{Kind: LinearConstraint, ID: id, Dim: dim, Indices: indices, Values: values, Q: lb}
}

// NewUnbounded builds an Unbounded signal for subproblem id.
func NewUnbounded(id int) Hyperplane {
	return Hyperplane{Kind: Unbounded, ID: id}
}

// NewInfeasible builds an Infeasible signal for subproblem id.
func NewInfeasible(id int) Hyperplane {
	return Hyperplane{Kind: Infeasible, ID: id}
}
