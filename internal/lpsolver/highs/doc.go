// Package highs adapts the HiGHS solver (https://highs.dev) to the
// lpsolver.Model contract. It is grounded on the retrieval pack's
// bartolsthoorn/gohighs reference binding: the same incremental row/column
// bookkeeping collapsed into CSR arrays at Solve time, the same
// Highs_create/Highs_run/Highs_getSolution low-level call sequence, and the
// same sparse-Hessian representation for QP terms.
//
// Unlike the glpk backend, SupportsQP reports true: HiGHS accepts an
// upper-triangular Hessian via Highs_passHessian, which is exactly the
// capability the regularized-decomposition variant (spec.md §4.5) needs for
// its quadratic proximal term.
package highs
