// Package localize implements the stabilization state machines of the
// decomposition engine (spec.md §4.5, L6): plain (no stabilization),
// regularized decomposition, trust region, and level sets. Rather than the
// mixin-style trait composition of the source this was distilled from (§9,
// "Trait composition in the source"), the four variants are a single tagged
// State dispatching on Kind, holding every variant's fields and exposing the
// shared {init, step, check} capability set.
package localize

import "math"

// Kind tags which stabilization variant a State implements.
type Kind int

const (
	Plain Kind = iota
	Regularized
	TrustRegion
	LevelSet
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Regularized:
		return "regularized"
	case TrustRegion:
		return "trust-region"
	case LevelSet:
		return "level-set"
	default:
		return "unknown"
	}
}

// RequiresQP reports whether this variant needs a QP-capable LP adapter
// (spec.md §4.5, §7) whatever its Params: only regularized decomposition
// does, since its master objective carries a quadratic proximal term. Level
// sets need QP support only for the 2-norm projection, which Linearize
// replaces with a 1-norm LP; RequiresQP reports false for them.
func (k Kind) RequiresQP() bool { return k == Regularized }

// Params configures a State at construction. Fields not meaningful to a given
// Kind are ignored.
type Params struct {
	Tau   float64 // convergence tolerance, all variants
	Gamma float64 // regularized: serious-step threshold; trust region: major-step threshold
	Sigma float64 // regularized: initial proximal weight
	Lambda float64 // level set: level-mixing weight
	DeltaBar float64 // trust region: maximum radius
	Linearize bool // level set: project in 1-norm instead of 2-norm, staying LP-only
}

// StepKind classifies the outcome of a TakeStep call.
type StepKind int

const (
	NoStep StepKind = iota
	SeriousStep
	ApproximateStep
	NullStep
	MajorStep
	MinorStep
)

// State is the stabilization state for one solve (spec.md §3 "SolverData").
type State struct {
	Kind Kind

	Tau, Gamma, Lambda float64
	Linearize          bool

	// Xi is the incumbent first-stage point ξ; Qtilde is Q̃, its recourse
	// value. Both are meaningless for Plain, which has no incumbent.
	Xi     []float64
	Qtilde float64

	// Regularized decomposition.
	Sigma float64

	// Trust region.
	Delta, DeltaBar float64
	CDelta          int
}

// New builds a State for kind, seeded with x0 (the initial first-stage
// point). Q̃ starts at +∞: no incumbent recourse value is known yet.
func New(kind Kind, p Params, x0 []float64) *State {
	s := &State{
		Kind:      kind,
		Tau:       p.Tau,
		Gamma:     p.Gamma,
		Lambda:    p.Lambda,
		Linearize: p.Linearize,
		Sigma:     p.Sigma,
		DeltaBar:  p.DeltaBar,
		Qtilde:    math.Inf(1),
	}
	if kind != Plain {
		s.Xi = append([]float64(nil), x0...)
	}
	if kind == TrustRegion {
		s.Delta = math.Max(1, 0.01*infNorm(x0))
	}
	return s
}

// CheckOptimality implements check_optimality (spec.md §4.5): Plain tests
// convergence of θ against Q directly; every stabilized variant tests θ
// against the incumbent Q̃ instead.
func (s *State) CheckOptimality(q, theta float64) bool {
	if theta <= thetaFloor {
		return false
	}
	target := q
	if s.Kind != Plain {
		target = s.Qtilde
	}
	return math.Abs(theta-target) <= s.Tau*(1+math.Abs(theta))
}

// thetaFloor mirrors hyperplane.ThetaFloor without importing the hyperplane
// package, since localize has no other dependency on cut representation.
const thetaFloor = -1e10

// TakeStep implements take_step! (spec.md §4.5) for the receiver's Kind,
// given the current iteration's Q = c·x + Σθ and lower model θ. x is the
// first-stage point the master just produced. It reports which branch fired
// and mutates Xi/Qtilde and any variant-specific state in place.
func (s *State) TakeStep(x []float64, q, theta float64) StepKind {
	switch s.Kind {
	case Plain:
		return NoStep
	case Regularized:
		return s.takeStepRegularized(x, q, theta)
	case TrustRegion:
		return s.takeStepTrustRegion(x, q, theta)
	case LevelSet:
		return s.takeStepLevelSet(x, q, theta)
	default:
		return NoStep
	}
}

func (s *State) takeStepRegularized(x []float64, q, theta float64) StepKind {
	switch {
	case math.Abs(theta-q) <= s.Tau*(1+math.Abs(theta)):
		s.Xi = append(s.Xi[:0], x...)
		s.Qtilde = q
		s.Sigma *= 2
		return SeriousStep
	case q+s.Tau*(1+math.Abs(q)) <= s.Gamma*s.Qtilde+(1-s.Gamma)*theta:
		s.Xi = append(s.Xi[:0], x...)
		s.Qtilde = q
		return ApproximateStep
	default:
		s.Sigma /= 2
		return NullStep
	}
}

func (s *State) takeStepTrustRegion(x []float64, q, theta float64) StepKind {
	qtildeOld, xiOld := s.Qtilde, append([]float64(nil), s.Xi...)

	// No incumbent value yet: with Q̃ at +∞ the major-step inequality reads
	// q <= Inf - γ·Inf and decides nothing. The first finite evaluation
	// becomes the incumbent outright, without touching Δ.
	if math.IsInf(qtildeOld, 1) {
		if math.IsInf(q, 1) {
			return MinorStep
		}
		s.CDelta = 0
		s.Xi = append(s.Xi[:0], x...)
		s.Qtilde = q
		return MajorStep
	}

	if q <= qtildeOld-s.Gamma*math.Abs(qtildeOld-theta) {
		s.CDelta = 0
		s.Xi = append(s.Xi[:0], x...)
		s.Qtilde = q
		if math.Abs(q-qtildeOld) <= 0.5*(qtildeOld-theta) && infNormDiff(xiOld, x)-s.Delta <= s.Tau {
			s.Delta = math.Min(s.DeltaBar, 2*s.Delta)
		}
		return MajorStep
	}

	denom := qtildeOld - theta
	var rho float64
	if denom != 0 {
		rho = math.Min(1, s.Delta) * (q - qtildeOld) / denom
	}
	if rho > 0 {
		s.CDelta++
	}
	if rho > 3 || (s.CDelta >= 3 && rho > 1 && rho <= 3) {
		s.CDelta = 0
		s.Delta /= math.Min(rho, 4)
	}
	return MinorStep
}

// takeStepLevelSet applies the same serious/null step test as regularized
// decomposition, substituting λ for γ: the spec's common contract names
// take_step! for every stabilized variant but only spells out the branch
// conditions for regularized and trust region (§4.5). Level sets are
// documented as using λ in the mixing role γ plays elsewhere (DESIGN.md).
func (s *State) takeStepLevelSet(x []float64, q, theta float64) StepKind {
	switch {
	case math.Abs(theta-q) <= s.Tau*(1+math.Abs(theta)):
		s.Xi = append(s.Xi[:0], x...)
		s.Qtilde = q
		return SeriousStep
	case q+s.Tau*(1+math.Abs(q)) <= s.Lambda*s.Qtilde+(1-s.Lambda)*theta:
		s.Xi = append(s.Xi[:0], x...)
		s.Qtilde = q
		return ApproximateStep
	default:
		return NullStep
	}
}

// Level computes L = λQ̃ + (1−λ)θ, the right-hand side of the level-set cut
// c·x + Σθ_i ≤ L used by the projection step (spec.md §4.5, R6).
func (s *State) Level(theta float64) float64 {
	return s.Lambda*s.Qtilde + (1-s.Lambda)*theta
}

// SetProjected records the result of the level-set projection step (R6) as
// the new incumbent: ξ ← projected x.
func (s *State) SetProjected(x []float64) {
	s.Xi = append(s.Xi[:0], x...)
}

// Regularizer returns the linear and quadratic-diagonal contributions the
// regularized-decomposition master objective adds over the x-block
// (spec.md §4.5): linear[i] = -(1/σ)ξ[i], quad[i] = 1/σ.
func (s *State) Regularizer() (linear, quadDiag []float64) {
	linear = make([]float64, len(s.Xi))
	quadDiag = make([]float64, len(s.Xi))
	inv := 1 / s.Sigma
	for i, xi := range s.Xi {
		linear[i] = -inv * xi
		quadDiag[i] = inv
	}
	return linear, quadDiag
}

// TrustBounds returns the trust-region box [max(lb,ξ-Δ), min(ub,ξ+Δ)]
// (spec.md §4.5) the master's x-columns should be restricted to this
// iteration. θ-bounds are never touched by this variant.
func (s *State) TrustBounds(lb, ub []float64) (newLB, newUB []float64) {
	newLB = make([]float64, len(lb))
	newUB = make([]float64, len(ub))
	for i := range lb {
		newLB[i] = math.Max(lb[i], s.Xi[i]-s.Delta)
		newUB[i] = math.Min(ub[i], s.Xi[i]+s.Delta)
	}
	return newLB, newUB
}

func infNorm(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func infNormDiff(a, b []float64) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}
