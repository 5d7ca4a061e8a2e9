package hyperplane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tau = 1e-6

func TestEvaluateGenericMatchesDefinition(t *testing.T) {
	h := NewFeasibility(0, 2, []int{0, 1}, []float64{2, 3}, 5)
	ev := h.Evaluate([]float64{1, 1})
	assert.InDelta(t, 5.0, ev.Gval, tau)
	assert.InDelta(t, 0.0, ev.Q, tau)
}

func TestEvaluateDimensionMismatchPanics(t *testing.T) {
	h := NewFeasibility(0, 2, []int{0}, []float64{1}, 1)
	assert.Panics(t, func() {
		h.Evaluate([]float64{1, 2, 3})
	})
}

func TestOptimalityActiveRequiresThetaPopulated(t *testing.T) {
	h := NewOptimality(0, 1, []int{0}, []float64{1}, 10)
	ev := h.Evaluate([]float64{4}) // Q = 10 - 4 = 6
	assert.False(t, h.Active(ev, ThetaFloor, tau), "unset theta must never be active")
	assert.True(t, h.Active(ev, 6, tau))
	assert.False(t, h.Active(ev, 6.5, tau))
}

func TestOptimalitySatisfiedAndGap(t *testing.T) {
	h := NewOptimality(0, 1, []int{0}, []float64{1}, 10)
	ev := h.Evaluate([]float64{4}) // Q = 6
	assert.True(t, h.Satisfied(ev, 7, tau), "theta above Q is satisfied")
	assert.False(t, h.Satisfied(ev, 5, tau), "theta below Q is violated")
	assert.InDelta(t, 1.0, h.Gap(ev, 7), tau)
	assert.True(t, math.IsInf(h.Gap(ev, ThetaFloor), 1), "gap is +Inf while theta unset")
}

func TestGenericSatisfiedViolatedGap(t *testing.T) {
	h := NewFeasibility(0, 1, []int{0}, []float64{1}, 5)
	ev := h.Evaluate([]float64{3}) // Gval = 3 < q = 5
	assert.True(t, h.Violated(ev, 0, tau))
	assert.False(t, h.Satisfied(ev, 0, tau))
	assert.InDelta(t, -2.0, h.Gap(ev, 0), tau)
}

func TestLowLevelRoundTrip(t *testing.T) {
	h := NewOptimality(2, 3, []int{0, 1}, []float64{-2, 5}, 7)
	indices, values, lb, ub := h.LowLevel(3)

	require.Len(t, indices, 3)
	assert.Equal(t, []int{0, 1, 5}, indices) // n=3, id=2 -> column 5
	assert.Equal(t, []float64{-2, 5, 1}, values)
	assert.Equal(t, 7.0, lb)
	assert.True(t, math.IsInf(ub, 1))

	// reconstructing the linear relation: lb <= sum(values[i]*z[indices[i]])
	// with z = [x0, x1, x2, theta_0, theta_1, theta_2]
	z := []float64{1, 1, 0, 10, 0, 4} // index 5 -> theta_2 = 4
	var lhs float64
	for i, idx := range indices {
		lhs += values[i] * z[idx]
	}
	assert.InDelta(t, -2*1+5*1+1*4, lhs, tau)
	assert.True(t, lhs >= lb-tau)
}

func TestLowLevelPanicsOnSignal(t *testing.T) {
	h := NewUnbounded(1)
	assert.Panics(t, func() {
		h.LowLevel(3)
	})
}

func TestBoundedByKind(t *testing.T) {
	assert.True(t, NewOptimality(0, 1, nil, nil, 0).Bounded())
	assert.True(t, NewFeasibility(0, 1, nil, nil, 0).Bounded())
	assert.True(t, NewLinearConstraint(0, 1, nil, nil, 0).Bounded())
	assert.False(t, NewUnbounded(0).Bounded())
	assert.False(t, NewInfeasible(0).Bounded())
}
