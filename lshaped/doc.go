// Package lshaped implements the master-model cut-accumulation loop of the
// decomposition engine (spec.md §4.4, L5), first-stage linear-constraint
// ingestion (§4.4 step 3, L8), and the SolverData/LShapedState record of §3.
// It composes the hyperplane, cutbundle, subproblem and localize packages
// behind a single Solver entry point (§6.2), in the spirit of
// golpa.Model/Option/Logger's shape.
package lshaped

import "math"

// thetaFloor mirrors hyperplane.ThetaFloor (spec.md §9): the numerical
// sentinel standing in for -∞ before a θ_i value has ever been populated.
const thetaFloor = -1e10

var negInf = math.Inf(-1)
