package utils

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a row-major dense matrix. The zero size matrix is valid and is
// backed by an empty mat.Dense.
type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	switch {
	case nr == 0 || nc == 0:
		m = &mat.Dense{}
	case len(dataO) != 0:
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	default:
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		M:    m,
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int) {
	if m.M == nil {
		return 0, 0
	}
	return m.M.Dims()
}
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }

func (m Matrix) IsEmpty() bool {
	nr, nc := m.Dims()
	return nr == 0 || nc == 0
}

// Data returns the backing storage, row-major with stride == cols.
func (m Matrix) Data() []float64 {
	if m.IsEmpty() {
		return nil
	}
	return m.M.RawMatrix().Data
}

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m *Matrix) SetWritable() Matrix {
	m.readOnly = false
	return *m
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		panic(fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name))
	}
}

// Resize sets the shape to nr x nc. A shape change drops the old contents.
func (m *Matrix) Resize(nr, nc int) {
	m.checkWritable()
	if r, c := m.Dims(); r == nr && c == nc {
		return
	}
	name, ro := m.name, m.readOnly
	*m = NewMatrix(nr, nc)
	m.name, m.readOnly = name, ro
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	nr, nc := m.Dims()
	R = NewMatrix(nr, nc)
	if !m.IsEmpty() {
		R.M.Copy(m.M)
	}
	return
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			R.M.Set(j, i, m.M.At(i, j))
		}
	}
	return
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) Zero() Matrix { // Changes receiver
	m.checkWritable()
	if !m.IsEmpty() {
		m.M.Zero()
	}
	return m
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	m.checkWritable()
	data := m.Data()
	for i := range data {
		data[i] *= a
	}
	return m
}

// AddScaled adds a*A to the receiver.
func (m Matrix) AddScaled(A Matrix, a float64) Matrix { // Changes receiver
	m.checkWritable()
	var (
		dm = m.Data()
		da = A.Data()
	)
	if mr, mc := m.Dims(); !sameDims(A, mr, mc) {
		panic(fmt.Errorf("%w: AddScaled %v += %v", ErrDimensionMismatch, m.shape(), A.shape()))
	}
	for i := range dm {
		dm[i] += a * da[i]
	}
	return m
}

// ScaleCols multiplies column j by s[j].
func (m Matrix) ScaleCols(s []float64) Matrix { // Changes receiver
	m.checkWritable()
	nr, nc := m.Dims()
	data := m.Data()
	for i := 0; i < nr; i++ {
		row := data[i*nc : (i+1)*nc]
		for j := range row {
			row[j] *= s[j]
		}
	}
	return m
}

func (m Matrix) Row(i int) []float64 {
	_, nc := m.Dims()
	return m.Data()[i*nc : (i+1)*nc]
}

// SumRows returns the sum of the entries of each row.
func (m Matrix) SumRows() (s []float64) {
	nr, _ := m.Dims()
	s = make([]float64, nr)
	for i := range s {
		for _, v := range m.Row(i) {
			s[i] += v
		}
	}
	return
}

// AddValue satisfies MatrixTarget for dense global matrices.
func (m Matrix) AddValue(i, j int, v float64) error {
	nr, nc := m.Dims()
	if i < 0 || i >= nr || j < 0 || j >= nc {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, i, j, nr, nc)
	}
	m.checkWritable()
	data := m.M.RawMatrix()
	data.Data[i*data.Stride+j] += v
	return nil
}

func (m Matrix) HasPrebuiltPattern() bool { return false }

// Equal compares shapes and contents within tol.
func (m Matrix) Equal(A Matrix, tol float64) bool {
	r1, c1 := m.Dims()
	r2, c2 := A.Dims()
	if r1 != r2 || c1 != c2 {
		return false
	}
	if m.IsEmpty() {
		return true
	}
	return mat.EqualApprox(m.M, A.M, tol)
}

func sameDims(A Matrix, nr, nc int) bool {
	ar, ac := A.Dims()
	return ar == nr && ac == nc
}

func (m Matrix) shape() string {
	nr, nc := m.Dims()
	return fmt.Sprintf("%dx%d", nr, nc)
}

func (m Matrix) String() string {
	if m.IsEmpty() {
		return "[]"
	}
	var sb strings.Builder
	nr, _ := m.Dims()
	for i := 0; i < nr; i++ {
		fmt.Fprintf(&sb, "%8.5f\n", m.Row(i))
	}
	return sb.String()
}
