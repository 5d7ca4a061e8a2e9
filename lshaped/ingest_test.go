package lshaped

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lshaped-go/lshaped/internal/lpsolver"
)

func TestIngestRowsRejectsRangedRow(t *testing.T) {
	rows := []Row{{Indices: []int{0}, Values: []float64{1}, Lower: 0, Upper: 10}}
	_, err := ingestRows(rows, 1)
	var rangeErr *lpsolver.RangedRowError
	require.ErrorAs(t, err, &rangeErr)
}

func TestIngestRowsAcceptsFixedRow(t *testing.T) {
	// an equality row needs both halves, since a hyperplane can only
	// represent one "Gval >= q" side.
	rows := []Row{{Indices: []int{0}, Values: []float64{1}, Lower: 5, Upper: 5}}
	out, err := ingestRows(rows, 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 5.0, out[0].Q)
	assert.Equal(t, []float64{1}, out[0].Values)
	assert.Equal(t, -5.0, out[1].Q)
	assert.Equal(t, []float64{-1}, out[1].Values)
}

func TestIngestRowsFlipsUpperOnlyRowToLowerForm(t *testing.T) {
	// sum(values*x) <= 10  <=>  -sum >= -10, the only shape a hyperplane can
	// represent (always "Gval >= q").
	rows := []Row{{Indices: []int{0, 1}, Values: []float64{2, 3}, Lower: math.Inf(-1), Upper: 10}}
	out, err := ingestRows(rows, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []float64{-2, -3}, out[0].Values)
	assert.Equal(t, -10.0, out[0].Q)
}

func TestIngestRowsPassesThroughLowerOnlyRow(t *testing.T) {
	rows := []Row{{Indices: []int{0}, Values: []float64{1}, Lower: 3, Upper: math.Inf(1)}}
	out, err := ingestRows(rows, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []float64{1}, out[0].Values)
	assert.Equal(t, 3.0, out[0].Q)
}

func TestIngestRowsAssignsIDsByPosition(t *testing.T) {
	// the first row is an equality (two output hyperplanes), so the second
	// row's single hyperplane must land at output position 2, not 1.
	rows := []Row{
		{Indices: []int{0}, Values: []float64{1}, Lower: 1, Upper: 1},
		{Indices: []int{0}, Values: []float64{1}, Lower: 2, Upper: math.Inf(1)},
	}
	out, err := ingestRows(rows, 1)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 0, out[0].ID)
	assert.Equal(t, 1, out[1].ID)
	assert.Equal(t, 2, out[2].ID)
}
