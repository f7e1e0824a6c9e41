package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CMatrix is the complex counterpart of Matrix. Products of CMatrix operands
// always run through the fallback kernel.
type CMatrix struct {
	M *mat.CDense
}

func NewCMatrix(nr, nc int, dataO ...[]complex128) (R CMatrix) {
	switch {
	case nr == 0 || nc == 0:
		R.M = &mat.CDense{}
	case len(dataO) != 0:
		if len(dataO[0]) != nr*nc {
			panic(fmt.Errorf("mismatch in allocation: NewCMatrix nr,nc = %v,%v, len(data[0]) = %v", nr, nc, len(dataO[0])))
		}
		R.M = mat.NewCDense(nr, nc, dataO[0])
	default:
		R.M = mat.NewCDense(nr, nc, nil)
	}
	return
}

func (m CMatrix) Dims() (r, c int) {
	if m.M == nil {
		return 0, 0
	}
	return m.M.Dims()
}
func (m CMatrix) At(i, j int) complex128 { return m.M.At(i, j) }
func (m CMatrix) Set(i, j int, v complex128) CMatrix {
	m.M.Set(i, j, v)
	return m
}

func (m CMatrix) IsEmpty() bool {
	nr, nc := m.Dims()
	return nr == 0 || nc == 0
}

func (m CMatrix) Data() []complex128 {
	if m.IsEmpty() {
		return nil
	}
	return m.M.RawCMatrix().Data
}

func (m *CMatrix) Resize(nr, nc int) {
	if r, c := m.Dims(); r == nr && c == nc {
		return
	}
	*m = NewCMatrix(nr, nc)
}
