package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) Vector {
	if n == 0 {
		return Vector{V: &mat.VecDense{}}
	}
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			panic(fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v", n, len(dataO[0])))
		}
		return Vector{V: mat.NewVecDense(n, dataO[0])}
	}
	return Vector{V: mat.NewVecDense(n, nil)}
}

func (v Vector) Len() int {
	if v.V == nil {
		return 0
	}
	return v.V.Len()
}

func (v Vector) AtVec(i int) float64 { return v.V.AtVec(i) }

// Data returns the backing storage, nil for an empty vector.
func (v Vector) Data() []float64 {
	if v.Len() == 0 {
		return nil
	}
	return v.V.RawVector().Data
}

// Resize grows or shrinks the vector keeping the leading values.
func (v *Vector) Resize(n int) {
	old := v.Data()
	if len(old) == n {
		return
	}
	data := make([]float64, n)
	copy(data, old)
	*v = NewVector(n, data)
}

// AddAt satisfies VectorTarget.
func (v Vector) AddAt(i int, val float64) error {
	if i < 0 || i >= v.Len() {
		return fmt.Errorf("%w: %d in vector of length %d", ErrIndexOutOfRange, i, v.Len())
	}
	v.Data()[i] += val
	return nil
}

func (v Vector) Copy() Vector {
	data := make([]float64, v.Len())
	copy(data, v.Data())
	return NewVector(len(data), data)
}

// Gather returns v[I].
func (v Vector) Gather(I Index) (r []float64) {
	r = make([]float64, len(I))
	data := v.Data()
	for i, ind := range I {
		r[i] = data[ind]
	}
	return
}

func (v Vector) Sum() (s float64) {
	for _, val := range v.Data() {
		s += val
	}
	return
}
