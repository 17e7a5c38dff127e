package randm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformBoxStaysWithinSpan(t *testing.T) {
	t.Parallel()

	s := NewSource(42)
	center := [3]float64{10, -5, 2}
	span := [3]float64{4, 2, 0}

	for i := 0; i < 200; i++ {
		draw := s.UniformBox(center, span)
		for axis := 0; axis < 3; axis++ {
			half := span[axis] * 0.5
			assert.GreaterOrEqual(t, draw[axis], center[axis]-half)
			assert.LessOrEqual(t, draw[axis], center[axis]+half)
		}
	}
}

func TestUniform01Range(t *testing.T) {
	t.Parallel()

	s := NewSource(1)
	for i := 0; i < 200; i++ {
		v := s.Uniform01()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestUniformRange(t *testing.T) {
	t.Parallel()

	s := NewSource(2)
	for i := 0; i < 200; i++ {
		v := s.UniformRange(5, 8)
		assert.GreaterOrEqual(t, v, 5.0)
		assert.Less(t, v, 8.0)
	}
}

func TestSameSeedIsReproducible(t *testing.T) {
	t.Parallel()

	a := NewSource(99)
	b := NewSource(99)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uniform01(), b.Uniform01())
	}
}

func TestGaussian1D(t *testing.T) {
	t.Parallel()

	t.Run("peaks at the mean", func(t *testing.T) {
		t.Parallel()
		atMean := Gaussian1D(0, 1, 0)
		offMean := Gaussian1D(0, 1, 2)
		assert.Greater(t, atMean, offMean)
	})

	t.Run("rejects non-positive variance", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, Gaussian1D(0, 0, 0))
		assert.Equal(t, 0.0, Gaussian1D(0, -1, 0))
	})
}

func TestCovarianceMatrix3(t *testing.T) {
	t.Parallel()

	flat := [9]float64{
		1, 0.1, 0,
		0.1, 2, 0,
		0, 0, 3,
	}
	sym := CovarianceMatrix3(flat)
	require.NotNil(t, sym)

	assert.InDelta(t, 1.0, sym.At(0, 0), 1e-9)
	assert.InDelta(t, 2.0, sym.At(1, 1), 1e-9)
	assert.InDelta(t, 3.0, sym.At(2, 2), 1e-9)
	assert.InDelta(t, 0.1, sym.At(0, 1), 1e-9)
	assert.InDelta(t, 0.1, sym.At(1, 0), 1e-9)
}

func TestDiagCovariance3(t *testing.T) {
	t.Parallel()

	sym := DiagCovariance3(1, 2, 3)
	assert.InDelta(t, 1.0, sym.At(0, 0), 1e-9)
	assert.InDelta(t, 2.0, sym.At(1, 1), 1e-9)
	assert.InDelta(t, 3.0, sym.At(2, 2), 1e-9)
	assert.InDelta(t, 0.0, sym.At(0, 1), 1e-9)
}

func TestMultiGaussian3(t *testing.T) {
	t.Parallel()

	s := NewSource(7)
	cov := DiagCovariance3(1, 1, 1)
	dist, ok := s.MultiGaussian3([3]float64{0, 0, 0}, cov)
	require.True(t, ok)
	require.NotNil(t, dist)

	sample := dist.Rand(nil)
	require.Len(t, sample, 3)
	for _, v := range sample {
		assert.False(t, math.IsNaN(v))
	}
}
