package utils

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/floats"
)

func randMatrix(rng *rand.Rand, nr, nc int) Matrix {
	data := make([]float64, nr*nc)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return NewMatrix(nr, nc, data)
}

func TestKernelPathEquivalence(t *testing.T) {
	var (
		rng      = rand.New(rand.NewSource(1))
		blasK    = NewKernel(WithBLAS(true))
		fallback = NewKernel(WithBLAS(false))
		shapes   = [][3]int{{1, 1, 1}, {3, 4, 2}, {7, 5, 9}, {2, 1, 6}, {12, 12, 12}}
		ops      = []blas.Transpose{blas.NoTrans, blas.Trans}
	)
	for _, s := range shapes {
		m, k, n := s[0], s[1], s[2]
		for _, tA := range ops {
			for _, tB := range ops {
				A := randMatrix(rng, m, k)
				if tA == blas.Trans {
					A = randMatrix(rng, k, m)
				}
				B := randMatrix(rng, k, n)
				if tB == blas.Trans {
					B = randMatrix(rng, n, k)
				}
				C0 := randMatrix(rng, m, n)
				for _, alpha := range []float64{0, 1, -1, 2.5, 0.5} {
					for _, beta := range []float64{0, 1, -1, 2.5} {
						C1, C2 := C0.Copy(), C0.Copy()
						require.NoError(t, blasK.Gemm(tA, tB, alpha, A, B, beta, &C1))
						require.NoError(t, fallback.Gemm(tA, tB, alpha, A, B, beta, &C2))
						assert.True(t, floats.EqualApprox(C1.Data(), C2.Data(), 1e-10),
							"shape %v tA %v tB %v alpha %v beta %v", s, tA, tB, alpha, beta)
					}
				}
			}
		}
	}
}

func TestKernelBetaBranches(t *testing.T) {
	var (
		k = NewKernel(WithBLAS(false))
		A = NewMatrix(2, 2, []float64{1, 2, 3, 4})
		B = NewMatrix(2, 2, []float64{0.1, 0.2, 0.3, 0.4})
	)
	for _, beta := range []float64{0, 1, -1, 2.5} {
		C0 := NewMatrix(2, 2, []float64{1.5, -2, 0.25, 7})
		AB := NewMatrix(2, 2)
		require.NoError(t, k.Mult(A, B, &AB, 0.7, 0))
		C := C0.Copy()
		require.NoError(t, k.Mult(A, B, &C, 0.7, beta))
		for i, c := range C.Data() {
			// bit for bit against the general formula
			assert.Equal(t, AB.Data()[i]+beta*C0.Data()[i], c, "beta %v", beta)
		}
	}
	{ // beta 0 overwrites whatever C holds
		C := NewMatrix(2, 2, []float64{1e300, -1e300, 5, 5})
		require.NoError(t, k.Mult(A, B, &C, 1, 0))
		assert.InDeltaSlice(t, []float64{0.7, 1, 1.5, 2.2}, C.Data(), 1e-14)
	}
	for _, useBLAS := range []bool{false, true} { // alpha 0 leaves beta·C on both paths
		kk := NewKernel(WithBLAS(useBLAS))
		C := NewMatrix(2, 2, []float64{1.5, -2, 0.25, 7})
		require.NoError(t, kk.Mult(A, B, &C, 0, 2.5))
		assert.Equal(t, []float64{3.75, -5, 0.625, 17.5}, C.Data(), "blas %v", useBLAS)
		require.NoError(t, kk.Mult(A, B, &C, 0, 0))
		assert.Equal(t, []float64{0, 0, 0, 0}, C.Data(), "blas %v", useBLAS)
	}
}

func TestKernelMultDispatch(t *testing.T) {
	k := NewKernel()
	{ // direct pairing
		A := NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
		B := NewMatrix(3, 1, []float64{1, 1, 1})
		var C Matrix
		require.NoError(t, k.Mult(A, B, &C, 1, 0))
		assert.Equal(t, []float64{6, 15}, C.Data())
	}
	{ // columns agree only: A·Bᵗ
		A := NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
		B := NewMatrix(1, 3, []float64{1, 0, 1})
		var C Matrix
		require.NoError(t, k.Mult(A, B, &C, 2, 0))
		r, c := C.Dims()
		assert.Equal(t, [2]int{2, 1}, [2]int{r, c})
		assert.Equal(t, []float64{8, 20}, C.Data())
	}
	{
		A := NewMatrix(2, 3)
		B := NewMatrix(4, 5)
		var C Matrix
		err := k.Mult(A, B, &C, 1, 0)
		assert.True(t, errors.Is(err, ErrDimensionMismatch))
	}
}

func TestKernelTransMult(t *testing.T) {
	var (
		rng = rand.New(rand.NewSource(7))
		k   = NewKernel(WithBLAS(false))
		A   = randMatrix(rng, 4, 3)
		B   = randMatrix(rng, 4, 2)
	)
	AtB := NewMatrix(3, 2)
	require.NoError(t, k.TransMult(A, B, &AtB, 1, 0))
	{ // C shaped like (AᵗB)ᵗ receives BᵗA
		C := NewMatrix(2, 3)
		require.NoError(t, k.TransMult(A, B, &C, 1, 0))
		assert.True(t, C.Equal(AtB.Transpose(), 1e-15))
	}
	{ // same through BLAS
		C := NewMatrix(2, 3)
		require.NoError(t, NewKernel(WithBLAS(true)).TransMult(A, B, &C, 1, 0))
		assert.True(t, C.Equal(AtB.Transpose(), 1e-12))
	}
	{ // A.rows == B.cols: AᵗBᵗ
		D := randMatrix(rng, 2, 4)
		var C Matrix
		require.NoError(t, k.TransMult(A, D, &C, 1, 0))
		var ref Matrix
		require.NoError(t, k.Gemm(blas.Trans, blas.Trans, 1, A, D, 0, &ref))
		assert.True(t, C.Equal(ref, 0))
	}
	{
		var C Matrix
		err := k.TransMult(A, randMatrix(rng, 5, 5), &C, 1, 0)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	}
}

func TestKernelVec(t *testing.T) {
	var (
		A = NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
		x = NewVector(3, []float64{1, 0, -1})
		y = NewVector(2, []float64{1, 1})
	)
	for _, useBLAS := range []bool{false, true} {
		k := NewKernel(WithBLAS(useBLAS))
		c := y.Copy()
		require.NoError(t, k.MultVec(A, x, &c, 2, 1))
		assert.InDeltaSlice(t, []float64{-3, -3}, c.Data(), 1e-14)
		var d Vector
		require.NoError(t, k.TransMultVec(A, y, &d, 1, 0))
		assert.InDeltaSlice(t, []float64{5, 7, 9}, d.Data(), 1e-14)
		assert.ErrorIs(t, k.MultVec(A, y, &d, 1, 0), ErrDimensionMismatch)
	}
}

func TestKernelMatMultABA(t *testing.T) {
	var (
		k   = NewKernel()
		A   = NewMatrix(2, 2, []float64{1, 1, 0, 1})
		B   = NewMatrix(2, 2, []float64{2, 0, 0, 3})
		C   = NewMatrix(2, 2, []float64{1, 1, 1, 1})
		AtB Matrix
	)
	require.NoError(t, k.MatMultABA(A, B, &C, &AtB, 1, 1))
	// AᵗBA = [[2,2],[2,5]]
	assert.InDeltaSlice(t, []float64{3, 3, 3, 6}, C.Data(), 1e-14)
	assert.InDeltaSlice(t, []float64{2, 0, 2, 3}, AtB.Data(), 1e-14)
}

func TestTransAdd(t *testing.T) {
	A := NewMatrix(2, 3)
	B := NewMatrix(3, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, TransAdd(A, B))
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, A.Data())
	assert.ErrorIs(t, TransAdd(A, A), ErrDimensionMismatch)
}

func TestKernelComplex(t *testing.T) {
	var (
		m = NewCounterMetrics()
		k = NewKernel(WithBLAS(true), WithMetrics(m))
		A = NewCMatrix(2, 2, []complex128{1 + 1i, 0, 0, 2})
		B = NewCMatrix(2, 1, []complex128{1, 1i})
		C CMatrix
	)
	require.NoError(t, k.MultComplex(A, B, &C, 1, 0))
	assert.Equal(t, []complex128{1 + 1i, 2i}, C.Data())
	var D CMatrix
	require.NoError(t, k.TransMultComplex(A, A, &D, 1, 0))
	assert.Equal(t, complex(0, 2), D.At(0, 0))
	// complex operands never reach BLAS
	assert.Equal(t, 0, m.Count(false))
	assert.Equal(t, 2, m.Fallbacks())
}

func TestArenaSpill(t *testing.T) {
	var (
		rng   = rand.New(rand.NewSource(3))
		arena = NewArena()
		k     = NewKernel(WithBLAS(true), WithArena(arena))
		ref   = NewKernel(WithBLAS(false))
	)
	{ // fits
		A, B := randMatrix(rng, 8, 8), randMatrix(rng, 8, 8)
		var C Matrix
		require.NoError(t, k.Mult(A, B, &C, 1, 0))
		assert.Equal(t, 0, arena.Spills())
	}
	{ // 100x100 > ArenaSize for all three operands
		A, B := randMatrix(rng, 100, 100), randMatrix(rng, 100, 100)
		var C1, C2 Matrix
		require.NoError(t, k.Mult(A, B, &C1, 1, 0))
		require.NoError(t, ref.Mult(A, B, &C2, 1, 0))
		assert.Equal(t, 3, arena.Spills())
		assert.True(t, floats.EqualApprox(C1.Data(), C2.Data(), 1e-10))
	}
}

func TestKernelMetrics(t *testing.T) {
	var (
		cm = NewCounterMetrics()
		A  = NewMatrix(2, 2, []float64{1, 2, 3, 4})
		C  Matrix
	)
	k := NewKernel(WithBLAS(true), WithMetrics(cm))
	for i := 0; i < 3; i++ {
		require.NoError(t, k.Mult(A, A, &C, 1, 0))
	}
	assert.Equal(t, 3, cm.Count(false))
	assert.True(t, cm.SumTime(false) >= cm.MinTime(false))
	assert.Equal(t, 3, cm.Count(true))
	assert.Equal(t, 0, cm.Count(false))

	{ // process wide switch is honoured by unpinned kernels only
		SetBLASEnabled(false)
		defer SetBLASEnabled(true)
		unpinned := NewKernel(WithMetrics(cm))
		require.NoError(t, unpinned.Mult(A, A, &C, 1, 0))
		require.NoError(t, k.Mult(A, A, &C, 1, 0))
		assert.Equal(t, 1, cm.Count(false))
		assert.Equal(t, 1, cm.Fallbacks())
	}
	{
		reg := prometheus.NewRegistry()
		pm, err := NewPrometheusMetrics(reg)
		require.NoError(t, err)
		k := NewKernel(WithBLAS(false), WithMetrics(pm))
		require.NoError(t, k.Mult(A, A, &C, 1, 0))
		assert.Equal(t, 1.0, testutil.ToFloat64(pm.calls.WithLabelValues("mult", "fallback")))
		_, err = NewPrometheusMetrics(reg)
		assert.Error(t, err)

		tee := NewCounterMetrics()
		k = NewKernel(WithBLAS(true), WithMetrics(TeeMetrics{pm, tee}))
		require.NoError(t, k.Mult(A, A, &C, 1, 0))
		assert.Equal(t, 1.0, testutil.ToFloat64(pm.calls.WithLabelValues("mult", "blas")))
		assert.Equal(t, 1, tee.Count(false))
	}
}
