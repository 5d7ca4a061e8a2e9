package lshaped

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

func lpOnlyFactory(dir lpsolver.Direction) lpsolver.Model {
	return newStubModel(dir)
}

func qpFactory(dir lpsolver.Direction) lpsolver.Model {
	m := newStubModel(dir)
	m.supportsQP = true
	return m
}

func TestNewRegularizedRequiresQPCapableAdapter(t *testing.T) {
	_, err := New(RD, lpOnlyFactory)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "regularized", capErr.Variant)
}

func TestNewRegularizedSucceedsOverQPAdapter(t *testing.T) {
	s, err := New(RD, qpFactory)
	require.NoError(t, err)
	assert.Equal(t, RD, s.kind)
}

func TestNewPlainNeverRequiresQP(t *testing.T) {
	_, err := New(LS, lpOnlyFactory)
	require.NoError(t, err)
}

func TestNewLevelSetRequiresQPUnlessLinearized(t *testing.T) {
	_, err := New(LV, lpOnlyFactory)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)

	_, err = New(LV, lpOnlyFactory, WithLinearize(true))
	require.NoError(t, err, "linearize mode keeps the level-set projection LP-only")
}

func TestOptionsConfigureParams(t *testing.T) {
	s, err := New(LS, lpOnlyFactory,
		WithTau(1e-8),
		WithGamma(0.2),
		WithBundle(4),
		WithMaxIter(50),
		WithCheckfeas(true),
		WithWorkers(3),
	)
	require.NoError(t, err)
	assert.Equal(t, 1e-8, s.params.Tau)
	assert.Equal(t, 0.2, s.params.Gamma)
	assert.Equal(t, 4, s.params.Bundle)
	assert.Equal(t, 50, s.params.MaxIter)
	assert.True(t, s.params.Checkfeas)
	assert.Equal(t, 3, s.params.Workers)
}

func TestKindLocalizeAndDistributed(t *testing.T) {
	cases := []struct {
		kind        Kind
		localize    string
		distributed bool
	}{
		{LS, "plain", false},
		{RD, "regularized", false},
		{TR, "trust-region", false},
		{LV, "level-set", false},
		{DLS, "plain", true},
		{DRD, "regularized", true},
		{DTR, "trust-region", true},
		{DLV, "level-set", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.localize, c.kind.Localize().String())
		assert.Equal(t, c.distributed, c.kind.Distributed())
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "optimal", Optimal.String())
	assert.Equal(t, "infeasible", Infeasible.String())
	assert.Equal(t, "unbounded", Unbounded.String())
	assert.Equal(t, "stopped prematurely", StoppedPrematurely.String())
}

func TestValidateRejectsShapeMismatch(t *testing.T) {
	s, err := New(LS, lpOnlyFactory)
	require.NoError(t, err)

	p := Problem{Cost: []float64{1, 1}, Lower: []float64{0}, Upper: []float64{1, 1}}
	err = s.validate(p)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}
