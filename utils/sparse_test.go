package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern(t *testing.T) {
	p := NewPattern(3, 4)
	for _, ij := range [][2]int{{0, 3}, {0, 1}, {0, 3}, {2, 0}, {2, 2}} {
		require.NoError(t, p.Insert(ij[0], ij[1]))
	}
	assert.Equal(t, []int{1, 3}, p.Row(0))
	assert.Empty(t, p.Row(1))
	assert.Equal(t, 4, p.NNZ())
	assert.True(t, p.Has(2, 2))
	assert.False(t, p.Has(1, 2))
	assert.ErrorIs(t, p.Insert(3, 0), ErrDimensionMismatch)
	assert.ErrorIs(t, p.Insert(0, 4), ErrDimensionMismatch)
}

func TestPatternCSR(t *testing.T) {
	R := NewPatternCSR("R")
	assert.True(t, R.HasPrebuiltPattern())
	{ // empty pattern is refused
		assert.ErrorIs(t, R.BuildPattern(NewPattern(0, 0)), ErrEmptyTarget)
	}
	p := NewPattern(2, 2)
	require.NoError(t, p.Insert(0, 0))
	require.NoError(t, p.Insert(1, 1))
	require.NoError(t, R.BuildPattern(p))
	require.NoError(t, R.AddValue(0, 0, 1.5))
	require.NoError(t, R.AddValue(0, 0, 1.5))
	assert.Equal(t, 3.0, R.At(0, 0))
	assert.ErrorIs(t, R.AddValue(0, 1, 1), ErrNotInPattern)
	assert.ErrorIs(t, R.AddValue(2, 0, 1), ErrIndexOutOfRange)

	{ // merge grows and keeps values
		q := NewPattern(3, 3)
		require.NoError(t, q.Insert(0, 1))
		require.NoError(t, q.Insert(2, 2))
		require.NoError(t, R.AddPattern(q))
		r, c := R.Dims()
		assert.Equal(t, [2]int{3, 3}, [2]int{r, c})
		assert.Equal(t, 4, R.NNZ())
		assert.Equal(t, 3.0, R.At(0, 0))
		require.NoError(t, R.AddValue(0, 1, 2))
		assert.Equal(t, []int{0, 1}, R.Pattern().Row(0))
		assert.Equal(t, []float64{5, 0, 0}, R.MulVec([]float64{1, 1, 1}))
		R.Clean()
		assert.Equal(t, 0.0, R.At(0, 0))
		assert.Equal(t, 4, R.NNZ())
	}
}

func TestMapDOK(t *testing.T) {
	M := NewMapDOK(0, 0)
	assert.False(t, M.HasPrebuiltPattern())
	require.NoError(t, M.AddValue(0, 0, 1))
	require.NoError(t, M.AddValue(4, 2, 2))
	require.NoError(t, M.AddValue(4, 2, 2))
	r, c := M.Dims()
	assert.Equal(t, [2]int{5, 3}, [2]int{r, c})
	assert.Equal(t, 4.0, M.At(4, 2))
	assert.Equal(t, 2, M.NNZ())
	assert.ErrorIs(t, M.AddValue(-1, 0, 1), ErrIndexOutOfRange)

	csr := M.ToCSR()
	r, c = csr.Dims()
	assert.Equal(t, [2]int{5, 3}, [2]int{r, c})
	assert.Equal(t, 4.0, csr.At(4, 2))

	M.Resize(2, 2)
	assert.Equal(t, 1, M.NNZ())

	{ // a zero column extent leaves no backing matrix behind the rows
		M := NewMapDOK(3, 0)
		require.NoError(t, M.AddValue(1, 0, 1))
		require.NoError(t, M.AddValue(2, 0, 1))
		require.NoError(t, M.AddValue(2, 0, 1))
		r, c := M.Dims()
		assert.Equal(t, [2]int{3, 1}, [2]int{r, c})
		assert.Equal(t, 2.0, M.At(2, 0))
		assert.Equal(t, 1.0, M.At(1, 0))
	}
}

func TestDenseTarget(t *testing.T) {
	M := NewMatrix(2, 2)
	require.NoError(t, M.AddValue(1, 0, 3))
	assert.Equal(t, 3.0, M.At(1, 0))
	assert.ErrorIs(t, M.AddValue(2, 0, 3), ErrIndexOutOfRange)
	assert.False(t, M.HasPrebuiltPattern())
}
