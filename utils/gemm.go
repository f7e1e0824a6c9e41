package utils

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// Kernel computes C = alpha·op(A)·op(B) + beta·C on dense operands. The BLAS
// path and the fallback loop give the same result up to rounding.
//
// A Kernel owns its packing Arena and is not safe for concurrent use; create
// one per goroutine. C must not share storage with A or B.
type Kernel struct {
	arena   *Arena
	metrics KernelMetrics
	blas    *bool
}

type KernelOption func(*Kernel)

// WithBLAS pins the path of this kernel regardless of SetBLASEnabled.
func WithBLAS(enabled bool) KernelOption {
	return func(k *Kernel) { k.blas = &enabled }
}

func WithArena(a *Arena) KernelOption {
	return func(k *Kernel) { k.arena = a }
}

func WithMetrics(m KernelMetrics) KernelOption {
	return func(k *Kernel) { k.metrics = m }
}

func NewKernel(opts ...KernelOption) *Kernel {
	k := &Kernel{}
	for _, opt := range opts {
		opt(k)
	}
	if k.arena == nil {
		k.arena = NewArena()
	}
	if k.metrics == nil {
		k.metrics = NopMetrics{}
	}
	return k
}

func (k *Kernel) UseBLAS() bool {
	if k.blas != nil {
		return *k.blas
	}
	return BLASEnabled()
}

func (k *Kernel) Arena() *Arena { return k.arena }

func opDims(r, c int, t blas.Transpose) (int, int) {
	if t == blas.NoTrans {
		return r, c
	}
	return c, r
}

// Gemm computes C = alpha·op(A)·op(B) + beta·C with explicit operations. C is
// resized, and zeroed, when its shape differs from the result.
func (k *Kernel) Gemm(tA, tB blas.Transpose, alpha float64, A, B Matrix, beta float64, C *Matrix) error {
	return k.gemm("gemm", tA, tB, alpha, A, B, beta, C)
}

func (k *Kernel) gemm(op string, tA, tB blas.Transpose, alpha float64, A, B Matrix, beta float64, C *Matrix) error {
	var (
		ar, ac = A.Dims()
		br, bc = B.Dims()
		m, ka  = opDims(ar, ac, tA)
		kb, n  = opDims(br, bc, tB)
	)
	if ka != kb {
		return fmt.Errorf("%w: %s op(A) %dx%d, op(B) %dx%d", ErrDimensionMismatch, op, m, ka, kb, n)
	}
	C.Resize(m, n)
	if m == 0 || n == 0 {
		return nil
	}
	if ka == 0 || !k.UseBLAS() {
		t0 := time.Now()
		var (
			ra = A.RawMatrix()
			rb = B.RawMatrix()
			rc = C.RawMatrix()
		)
		if ka == 0 {
			ra.Stride, rb.Stride = 1, 1
		}
		gemmLoop(tA != blas.NoTrans, tB != blas.NoTrans, m, n, ka,
			alpha, ra.Data, ra.Stride, rb.Data, rb.Stride, beta, rc.Data, rc.Stride)
		k.metrics.ObserveFallback(op, time.Since(t0))
		return nil
	}
	var (
		a = k.pack(0, A, true)
		b = k.pack(1, B, true)
		c = k.pack(2, *C, beta != 0)
	)
	t0 := time.Now()
	blas64.Gemm(tA, tB, alpha, a, b, beta, c)
	k.metrics.ObserveBLAS(op, time.Since(t0))
	unpack(c, *C)
	return nil
}

// pack copies M into an arena slot as a contiguous row-major block.
func (k *Kernel) pack(slot int, M Matrix, copyData bool) blas64.General {
	var (
		r, c = M.Dims()
		buf  = k.arena.Buffer(slot, r*c)
		raw  = M.RawMatrix()
	)
	if copyData {
		for i := 0; i < r; i++ {
			copy(buf[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
		}
	}
	return blas64.General{Rows: r, Cols: c, Stride: c, Data: buf}
}

func unpack(g blas64.General, M Matrix) {
	raw := M.RawMatrix()
	for i := 0; i < g.Rows; i++ {
		copy(raw.Data[i*raw.Stride:i*raw.Stride+g.Cols], g.Data[i*g.Stride:(i+1)*g.Stride])
	}
}

type scalar interface {
	~float64 | ~complex128
}

// gemmLoop is the reference triple loop. Each beta branch is exactly the
// general formula c + beta*C for that beta.
func gemmLoop[T scalar](transA, transB bool, m, n, kk int, alpha T, a []T, sa int,
	b []T, sb int, beta T, c []T, sc int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum T
			for l := 0; l < kk; l++ {
				var av, bv T
				if transA {
					av = a[l*sa+i]
				} else {
					av = a[i*sa+l]
				}
				if transB {
					bv = b[j*sb+l]
				} else {
					bv = b[l*sb+j]
				}
				sum += av * bv
			}
			if alpha != 1 {
				sum *= alpha
			}
			p := &c[i*sc+j]
			switch beta {
			case 0:
				*p = sum
			case 1:
				*p = sum + *p
			case -1:
				*p = sum - *p
			default:
				*p = sum + beta*(*p)
			}
		}
	}
}

// Mult computes C = alpha·A·B + beta·C, or alpha·A·Bᵗ + beta·C when only the
// column counts of A and B agree.
func (k *Kernel) Mult(A, B Matrix, C *Matrix, alpha, beta float64) error {
	var (
		ar, ac = A.Dims()
		br, bc = B.Dims()
	)
	switch {
	case ac == br:
		return k.gemm("mult", blas.NoTrans, blas.NoTrans, alpha, A, B, beta, C)
	case ac == bc:
		return k.gemm("mult", blas.NoTrans, blas.Trans, alpha, A, B, beta, C)
	}
	return fmt.Errorf("%w: mult A %dx%d, B %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
}

// TransMult computes C = alpha·Aᵗ·B + beta·C when the row counts agree, or
// alpha·Aᵗ·Bᵗ + beta·C when A.rows == B.cols. If C already has the shape of
// (Aᵗ·B)ᵗ and not that of Aᵗ·B, Bᵗ·A is computed into it instead.
func (k *Kernel) TransMult(A, B Matrix, C *Matrix, alpha, beta float64) error {
	var (
		ar, ac = A.Dims()
		br, bc = B.Dims()
		cr, cc = C.Dims()
	)
	switch {
	case ar == br:
		if cr == bc && cc == ac && !(cr == ac && cc == bc) {
			return k.gemm("transMult", blas.Trans, blas.NoTrans, alpha, B, A, beta, C)
		}
		return k.gemm("transMult", blas.Trans, blas.NoTrans, alpha, A, B, beta, C)
	case ar == bc:
		return k.gemm("transMult", blas.Trans, blas.Trans, alpha, A, B, beta, C)
	}
	return fmt.Errorf("%w: transMult A %dx%d, B %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
}

// MultVec computes c = alpha·A·b + beta·c.
func (k *Kernel) MultVec(A Matrix, b Vector, c *Vector, alpha, beta float64) error {
	return k.gemv("multVec", blas.NoTrans, A, b, c, alpha, beta)
}

// TransMultVec computes c = alpha·Aᵗ·b + beta·c.
func (k *Kernel) TransMultVec(A Matrix, b Vector, c *Vector, alpha, beta float64) error {
	return k.gemv("transMultVec", blas.Trans, A, b, c, alpha, beta)
}

func (k *Kernel) gemv(op string, tA blas.Transpose, A Matrix, b Vector, c *Vector, alpha, beta float64) error {
	var (
		ar, ac = A.Dims()
		m, n   = opDims(ar, ac, tA)
	)
	if n != b.Len() {
		return fmt.Errorf("%w: %s op(A) %dx%d, b %d", ErrDimensionMismatch, op, m, n, b.Len())
	}
	if c.Len() != m {
		*c = NewVector(m)
	}
	if m == 0 {
		return nil
	}
	if n == 0 || !k.UseBLAS() {
		t0 := time.Now()
		ra := A.RawMatrix()
		if n == 0 {
			ra.Stride = 1
		}
		gemmLoop(tA != blas.NoTrans, false, m, 1, n, alpha, ra.Data, ra.Stride,
			b.Data(), 1, beta, c.Data(), 1)
		k.metrics.ObserveFallback(op, time.Since(t0))
		return nil
	}
	var (
		a  = k.pack(0, A, true)
		bx = k.arena.Buffer(1, n)
		cy = k.arena.Buffer(2, m)
	)
	copy(bx, b.Data())
	copy(cy, c.Data())
	t0 := time.Now()
	blas64.Gemv(tA, alpha, a, blas64.Vector{N: n, Data: bx, Inc: 1}, beta,
		blas64.Vector{N: m, Data: cy, Inc: 1})
	k.metrics.ObserveBLAS(op, time.Since(t0))
	copy(c.Data(), cy)
	return nil
}

// MatMultABA computes C = a·Aᵗ·B·A + b·C, leaving Aᵗ·B in AtB.
func (k *Kernel) MatMultABA(A, B Matrix, C, AtB *Matrix, a, b float64) error {
	if err := k.gemm("matMultABA", blas.Trans, blas.NoTrans, 1, A, B, 0, AtB); err != nil {
		return err
	}
	return k.gemm("matMultABA", blas.NoTrans, blas.NoTrans, a, *AtB, A, b, C)
}

// TransAdd computes A += Bᵗ.
func TransAdd(A Matrix, B Matrix) error {
	var (
		ar, ac = A.Dims()
		br, bc = B.Dims()
	)
	if ar != bc || ac != br {
		return fmt.Errorf("%w: transAdd A %dx%d, B %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
	}
	A.checkWritable()
	for i := 0; i < ar; i++ {
		row := A.Row(i)
		for j := range row {
			row[j] += B.At(j, i)
		}
	}
	return nil
}

// MultComplex computes C = alpha·A·B + beta·C (or A·Bᵗ when only the column
// counts agree) on the fallback path.
func (k *Kernel) MultComplex(A, B CMatrix, C *CMatrix, alpha, beta complex128) error {
	var (
		ar, ac = A.Dims()
		br, bc = B.Dims()
	)
	switch {
	case ac == br:
		return k.gemmComplex("multComplex", false, false, alpha, A, B, beta, C)
	case ac == bc:
		return k.gemmComplex("multComplex", false, true, alpha, A, B, beta, C)
	}
	return fmt.Errorf("%w: multComplex A %dx%d, B %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
}

// TransMultComplex computes C = alpha·Aᵗ·B + beta·C with plain, not
// conjugate, transposition.
func (k *Kernel) TransMultComplex(A, B CMatrix, C *CMatrix, alpha, beta complex128) error {
	var (
		ar, ac = A.Dims()
		br, bc = B.Dims()
	)
	switch {
	case ar == br:
		return k.gemmComplex("transMultComplex", true, false, alpha, A, B, beta, C)
	case ar == bc:
		return k.gemmComplex("transMultComplex", true, true, alpha, A, B, beta, C)
	}
	return fmt.Errorf("%w: transMultComplex A %dx%d, B %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
}

func (k *Kernel) gemmComplex(op string, transA, transB bool, alpha complex128, A, B CMatrix, beta complex128, C *CMatrix) error {
	var (
		ar, ac = A.Dims()
		br, bc = B.Dims()
		m, kk  = ar, ac
		n      = bc
	)
	if transA {
		m, kk = ac, ar
	}
	if transB {
		n = br
	}
	C.Resize(m, n)
	if m == 0 || n == 0 {
		return nil
	}
	var sa, sb int
	if kk > 0 {
		sa, sb = A.M.RawCMatrix().Stride, B.M.RawCMatrix().Stride
	}
	t0 := time.Now()
	gemmLoop(transA, transB, m, n, kk, alpha, A.Data(), sa, B.Data(), sb,
		beta, C.Data(), C.M.RawCMatrix().Stride)
	k.metrics.ObserveFallback(op, time.Since(t0))
	return nil
}
