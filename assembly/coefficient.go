package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Value is a coefficient shape: scalar, vector or small matrix.
type Value interface {
	float64 | r3.Vec | []float64 | utils.Matrix
}

// Coefficient weights the local matrices of an operation. It is implemented
// by Const, PerCell and PerQuad only.
type Coefficient interface {
	at(cell, q int) (coeff, error)
	validate(nCells int) error
	perQuad() bool
}

// Const is one value for every cell.
type Const[T Value] struct{ V T }

// Scalar is shorthand for Const[float64].
func Scalar(v float64) Const[float64] { return Const[float64]{V: v} }

func (c Const[T]) at(int, int) (coeff, error) { return toCoeff(c.V), nil }
func (Const[T]) validate(int) error           { return nil }
func (Const[T]) perQuad() bool                { return false }

// PerCell holds one value per cell, indexed by cell id.
type PerCell[T Value] []T

func (p PerCell[T]) at(cell, _ int) (coeff, error) {
	if cell < 0 || cell >= len(p) {
		return coeff{}, fmt.Errorf("%w: cell %d of %d values", utils.ErrIndexOutOfRange, cell, len(p))
	}
	return toCoeff(p[cell]), nil
}

func (p PerCell[T]) validate(nCells int) error {
	if len(p) != nCells {
		return fmt.Errorf("%w: %d coefficients for %d cells", utils.ErrSizeMismatch, len(p), nCells)
	}
	return nil
}

func (PerCell[T]) perQuad() bool { return false }

// PerQuad holds one value per quadrature point of each cell.
type PerQuad[T Value] [][]T

func (p PerQuad[T]) at(cell, q int) (coeff, error) {
	if cell < 0 || cell >= len(p) || q < 0 || q >= len(p[cell]) {
		return coeff{}, fmt.Errorf("%w: cell %d point %d", utils.ErrIndexOutOfRange, cell, q)
	}
	return toCoeff(p[cell][q]), nil
}

func (p PerQuad[T]) validate(nCells int) error {
	if len(p) != nCells {
		return fmt.Errorf("%w: %d coefficients for %d cells", utils.ErrSizeMismatch, len(p), nCells)
	}
	return nil
}

func (PerQuad[T]) perQuad() bool { return true }

type coeffKind int

const (
	scalarCoeff coeffKind = iota
	vectorCoeff
	matrixCoeff
)

type coeff struct {
	kind coeffKind
	s    float64
	v    []float64
	m    utils.Matrix
}

func toCoeff[T Value](v T) coeff {
	switch x := any(v).(type) {
	case float64:
		return coeff{kind: scalarCoeff, s: x}
	case r3.Vec:
		return coeff{kind: vectorCoeff, v: []float64{x.X, x.Y, x.Z}}
	case []float64:
		return coeff{kind: vectorCoeff, v: x}
	case utils.Matrix:
		return coeff{kind: matrixCoeff, m: x}
	}
	panic(fmt.Sprintf("unsupported coefficient type %T", v))
}

// apply returns M⊙c: M*s, M with column j scaled by v[j], or M·F.
func (c coeff) apply(k *utils.Kernel, M utils.Matrix) (utils.Matrix, error) {
	_, nc := M.Dims()
	switch c.kind {
	case vectorCoeff:
		if len(c.v) < nc {
			return utils.Matrix{}, fmt.Errorf("%w: %d vector components for %d columns",
				utils.ErrDimensionMismatch, len(c.v), nc)
		}
		return M.Copy().ScaleCols(c.v[:nc]), nil
	case matrixCoeff:
		var R utils.Matrix
		if fr, fc := c.m.Dims(); fr != nc {
			return R, fmt.Errorf("%w: %d columns times %dx%d coefficient", utils.ErrDimensionMismatch, nc, fr, fc)
		}
		err := k.Mult(M, c.m, &R, 1, 0)
		return R, err
	}
	return M.Copy().Scale(c.s), nil
}
