package lshaped

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
	"github.com/lshaped-go/lshaped/internal/progress"
	"github.com/lshaped-go/lshaped/lshaped/localize"
	"github.com/lshaped-go/lshaped/subproblem"
)

// Kind selects one of the eight engine variants of spec.md §6.2: the serial
// ones (ls, rd, tr, lv) and their distributed counterparts (dls, drd, dtr,
// dlv), which run the same stabilization logic over the parallel master loop
// of L7 instead of the serial one of L5.
type Kind int

const (
	LS Kind = iota
	RD
	TR
	LV
	DLS
	DRD
	DTR
	DLV
)

// Localize reports the localize.Kind this engine variant stabilizes with.
func (k Kind) Localize() localize.Kind {
	switch k {
	case LS, DLS:
		return localize.Plain
	case RD, DRD:
		return localize.Regularized
	case TR, DTR:
		return localize.TrustRegion
	case LV, DLV:
		return localize.LevelSet
	default:
		return localize.Plain
	}
}

// Distributed reports whether this variant drives its subproblems through
// the parallel worker pool (L7) instead of the serial loop (L5).
func (k Kind) Distributed() bool {
	switch k {
	case DLS, DRD, DTR, DLV:
		return true
	default:
		return false
	}
}

// Status is the terminal outcome of a solve (spec.md §6.2, §7).
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	StoppedPrematurely
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "stopped prematurely"
	}
}

// CrashKind selects how x0 is chosen when the caller does not supply one.
type CrashKind int

const (
	CrashNone CrashKind = iota
	CrashEVP            // expected-value crash; x0 is picked exactly as for CrashNone (see crash)
)

// Params mirrors LShapedState.parameters (spec.md §3) and the options of
// §6.2.
type Params struct {
	Tau       float64
	Gamma     float64
	Sigma     float64
	Lambda    float64
	Kappa     float64 // async quorum fraction, distributed Level-Set only
	Bundle    int
	DeltaBar  float64
	Crash     CrashKind
	Autotune  bool
	Log       bool
	Linearize bool
	Checkfeas bool
	MaxIter   int

	// Workers is the distributed loop's worker count (spec.md §4.6, L7).
	// Zero means auto: min(runtime.NumCPU(), subproblem count). Ignored by
	// serial variants.
	Workers int
}

// defaultParams matches the defaults listed in spec.md §6.2.
func defaultParams() Params {
	return Params{
		Tau:      1e-6,
		Gamma:    1e-4,
		Sigma:    1,
		Lambda:   0.5,
		Kappa:    0.3,
		Bundle:   1,
		DeltaBar: 1e6,
		MaxIter:  10000,
	}
}

// Row is a first-stage linear constraint ingested by L8:
// lb <= sum(values[i]*x[indices[i]]) <= ub. Ranged rows (finite, distinct lb
// and ub) are rejected (spec.md §4.4 step 3).
type Row struct {
	Indices    []int
	Values     []float64
	Lower, Upper float64
}

// Problem is the front-end-supplied input to a solve (spec.md §1 "modeling
// front-end", out of scope beyond this shape): first-stage cost and bounds,
// first-stage rows, and the prebuilt per-scenario subproblems.
type Problem struct {
	Cost        []float64
	Lower, Upper []float64
	Rows        []Row
	Subproblems []*subproblem.Subproblem
	X0          []float64 // optional; random within bounds if nil
}

// Result is the observable outcome of a solve (spec.md §6.3): a terminal
// status plus the history vectors used for plotting.
type Result struct {
	Status Status
	X      []float64
	Thetas []float64
	Gap    float64

	QHistory      []float64
	ThetaHistory  []float64
	QtildeHistory []float64
	DeltaHistory  []float64
}

// ModelFactory builds a fresh, empty LP/QP model for the given optimization
// direction. The engine calls it once in New to probe QP support when the
// variant needs it, once per solve for the master model, and once per
// level-set projection step for a fresh projection model; subproblem models
// are built by the front-end and passed in via Problem.
type ModelFactory func(dir lpsolver.Direction) lpsolver.Model

// Solver drives one configured engine variant over a Problem.
type Solver struct {
	kind    Kind
	newModel ModelFactory
	params  Params
	logger  Logger
	sink    progress.Sink
	rng     *rand.Rand

	id string // correlation id, not algorithmic identity (§3's id stays the index)
}

// Option configures a Solver, mirroring golpa's functional Option
// pattern (option.go).
type Option func(*Solver) error

// New builds a Solver for kind against models produced by newModel.
// Regularized decomposition requires newModel to report QP support; this is
// checked eagerly so construction fails before any iteration runs (spec.md
// §7, §8 scenario 5).
func New(kind Kind, newModel ModelFactory, opts ...Option) (*Solver, error) {
	s := &Solver{
		kind:     kind,
		newModel: newModel,
		params:   defaultParams(),
		logger:   noopLogger{},
		sink:     progress.Null{},
		rng:      rand.New(rand.NewSource(1)),
		id:       uuid.NewString(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("applying solver option: %w", err)
		}
	}

	needsQP := kind.Localize().RequiresQP() || (kind.Localize() == localize.LevelSet && !s.params.Linearize)
	if needsQP {
		probe := newModel(lpsolver.Minimize)
		if !probe.SupportsQP() {
			return nil, &CapabilityError{Variant: kind.Localize().String()}
		}
	}

	return s, nil
}

// CapabilityError reports that a required solver capability (currently only
// QP support) is missing from the configured adapter (spec.md §7).
type CapabilityError struct {
	Variant string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("lshaped: variant %q requires a QP-capable LP adapter", e.Variant)
}

// ShapeError reports a fatal mismatch between a Problem's declared
// dimensions (spec.md §7 "shape errors"): first-stage bounds that disagree
// in length with the cost vector, or a caller-supplied x0 of the wrong
// length. These are programming errors in the front-end input and are
// reported immediately, before any iteration runs.
type ShapeError struct {
	Context          string
	Expected, Actual int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("lshaped: %s: expected length %d, got %d", e.Context, e.Expected, e.Actual)
}
