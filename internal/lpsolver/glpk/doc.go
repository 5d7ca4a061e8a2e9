// Package glpk adapts the GNU Linear Programming Kit (GLPK) to the
// lpsolver.Model contract. It is generalized from github.com/costela/golpa's
// golp package: the same column/row bookkeeping, the same bound-case switch
// on (lower, upper) in SetBounds/AddRow, and the same finalizer-based cleanup
// of the underlying *C.glp_prob.
//
// GLPK has no quadratic solver, so SupportsQP always reports false: building
// a Solver in regularized-decomposition mode over a glpk.Model must fail
// before the first iteration (spec.md §7).
package glpk
