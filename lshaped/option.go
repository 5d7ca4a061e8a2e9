package lshaped

import "github.com/lshaped-go/lshaped/internal/progress"

// WithLogger sets the Logger progress messages are printed through.
func WithLogger(logger Logger) Option {
	return func(s *Solver) error {
		s.logger = logger
		return nil
	}
}

// WithProgressSink sets the injected progress.Sink (spec.md §9, "Global
// I/O"): tests substitute progress.Null{}, the default.
func WithProgressSink(sink progress.Sink) Option {
	return func(s *Solver) error {
		s.sink = sink
		return nil
	}
}

// WithTau sets the convergence tolerance τ (default 1e-6).
func WithTau(tau float64) Option {
	return func(s *Solver) error {
		s.params.Tau = tau
		return nil
	}
}

// WithGamma sets γ, the serious/major-step threshold for regularized
// decomposition and trust region.
func WithGamma(gamma float64) Option {
	return func(s *Solver) error {
		s.params.Gamma = gamma
		return nil
	}
}

// WithSigma sets σ, the initial regularized-decomposition proximal weight.
func WithSigma(sigma float64) Option {
	return func(s *Solver) error {
		s.params.Sigma = sigma
		return nil
	}
}

// WithLambda sets λ, the level-set mixing weight.
func WithLambda(lambda float64) Option {
	return func(s *Solver) error {
		s.params.Lambda = lambda
		return nil
	}
}

// WithKappa sets κ, the async Level-Set quorum fraction (default 0.3).
func WithKappa(kappa float64) Option {
	return func(s *Solver) error {
		s.params.Kappa = kappa
		return nil
	}
}

// WithBundle sets B, the optimality-cut bundle size (default 1, meaning no
// aggregation). Clamped to the subproblem count at solve time.
func WithBundle(b int) Option {
	return func(s *Solver) error {
		s.params.Bundle = b
		return nil
	}
}

// WithDeltaBar sets Δ̅, the maximum trust-region radius.
func WithDeltaBar(deltaBar float64) Option {
	return func(s *Solver) error {
		s.params.DeltaBar = deltaBar
		return nil
	}
}

// WithCrash selects how x0 is chosen when Problem.X0 is nil.
func WithCrash(c CrashKind) Option {
	return func(s *Solver) error {
		s.params.Crash = c
		return nil
	}
}

// WithAutotune sets the autotune flag in Params. No variant reads it: σ and
// Δ always follow the fixed update rules of §4.5 (see DESIGN.md).
func WithAutotune(on bool) Option {
	return func(s *Solver) error {
		s.params.Autotune = on
		return nil
	}
}

// WithLog enables Logger.Print progress messages every iteration.
func WithLog(on bool) Option {
	return func(s *Solver) error {
		s.params.Log = on
		return nil
	}
}

// WithLinearize enables LP-only mode: the level-set projection uses the
// 1-norm instead of a QP 2-norm, and θ-column costs start at 0, promoted to
// 1.0 on that id's first optimality cut (spec.md §4.4 step 2).
func WithLinearize(on bool) Option {
	return func(s *Solver) error {
		s.params.Linearize = on
		return nil
	}
}

// WithCheckfeas enables feasibility-cut generation: a subproblem Infeasible
// status is no longer terminal, and instead contributes a Feasibility cut.
func WithCheckfeas(on bool) Option {
	return func(s *Solver) error {
		s.params.Checkfeas = on
		return nil
	}
}

// WithMaxIter bounds the outer loop iteration count, after which the engine
// returns StoppedPrematurely.
func WithMaxIter(n int) Option {
	return func(s *Solver) error {
		s.params.MaxIter = n
		return nil
	}
}

// WithWorkers sets W, the distributed master loop's worker count (spec.md
// §4.6, L7). Ignored by serial variants. n <= 0 selects runtime.NumCPU(),
// clamped to the subproblem count at solve time.
func WithWorkers(n int) Option {
	return func(s *Solver) error {
		s.params.Workers = n
		return nil
	}
}
