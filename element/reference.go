package element

import (
	"fmt"
	"math"

	"github.com/notargets/feassembly/mesh"
	"github.com/notargets/feassembly/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

/*
	Reference simplices live on [-1,1]:
		Line:     r in [-1,1]
		Triangle: (-1,-1), (1,-1), (-1,1)
		Tet:      (-1,-1,-1), (1,-1,-1), (-1,1,-1), (-1,-1,1)
	A point with barycentric coordinates L has reference coordinates
	r_d = 2*L_{d+1} - 1.
*/

// RefVolume is the measure of the reference simplex.
func RefVolume(typ mesh.ElementType) float64 {
	return [...]float64{2, 2, 4. / 3}[typ]
}

// ShapeFunctions evaluates the linear Lagrange basis at xi.
func ShapeFunctions(typ mesh.ElementType, xi r3.Vec) []float64 {
	var (
		r, s, t = xi.X, xi.Y, xi.Z
	)
	switch typ {
	case mesh.Line:
		return []float64{(1 - r) / 2, (1 + r) / 2}
	case mesh.Triangle:
		return []float64{-(r + s) / 2, (1 + r) / 2, (1 + s) / 2}
	default:
		return []float64{-(1 + r + s + t) / 2, (1 + r) / 2, (1 + s) / 2, (1 + t) / 2}
	}
}

// ShapeGradients returns dN_i/dxi_d, constant on a linear simplex.
func ShapeGradients(typ mesh.ElementType) [][]float64 {
	switch typ {
	case mesh.Line:
		return [][]float64{{-.5}, {.5}}
	case mesh.Triangle:
		return [][]float64{{-.5, -.5}, {.5, 0}, {0, .5}}
	default:
		return [][]float64{{-.5, -.5, -.5}, {.5, 0, 0}, {0, .5, 0}, {0, 0, .5}}
	}
}

func fromBarycentric(L ...float64) (xi r3.Vec) {
	var c [3]float64
	for d := 0; d+1 < len(L); d++ {
		c[d] = 2*L[d+1] - 1
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}
}

// Quadrature returns the reference points and weights of the rule of the given
// degree. Weights sum to RefVolume.
func Quadrature(typ mesh.ElementType, degree int) (x []r3.Vec, w []float64, err error) {
	switch degree {
	case 1:
		n := float64(typ.NumNodes())
		L := make([]float64, typ.NumNodes())
		for i := range L {
			L[i] = 1 / n
		}
		return []r3.Vec{fromBarycentric(L...)}, []float64{RefVolume(typ)}, nil
	case 2:
		switch typ {
		case mesh.Line:
			g := 1 / math.Sqrt(3)
			return []r3.Vec{{X: -g}, {X: g}}, []float64{1, 1}, nil
		case mesh.Triangle:
			var (
				a, b = 2. / 3, 1. / 6
				wq   = RefVolume(typ) / 3
			)
			x = []r3.Vec{fromBarycentric(a, b, b), fromBarycentric(b, a, b), fromBarycentric(b, b, a)}
			return x, []float64{wq, wq, wq}, nil
		case mesh.Tet:
			var (
				a  = 0.5854101966249685
				b  = 0.1381966011250105
				wq = RefVolume(typ) / 4
			)
			x = []r3.Vec{
				fromBarycentric(a, b, b, b), fromBarycentric(b, a, b, b),
				fromBarycentric(b, b, a, b), fromBarycentric(b, b, b, a),
			}
			return x, []float64{wq, wq, wq, wq}, nil
		}
	}
	return nil, nil, fmt.Errorf("no %s quadrature of degree %d", typ, degree)
}

// MapToPhysical maps reference coordinates of the cell to physical space.
func MapToPhysical(cell *mesh.Cell, xi r3.Vec) (x r3.Vec) {
	N := ShapeFunctions(cell.Type(), xi)
	for i, X := range cell.Coordinates() {
		x = r3.Add(x, r3.Scale(N[i], X))
	}
	return
}

func component(v r3.Vec, d int) float64 {
	return [...]float64{v.X, v.Y, v.Z}[d]
}

// geometry returns |det J| and the physical gradients dN_i/dx_d of the cell.
func geometry(cell *mesh.Cell) (detJ float64, grad [][]float64, err error) {
	var (
		dim = cell.Dim()
		dN  = ShapeGradients(cell.Type())
		X   = cell.Coordinates()
		J   = mat.NewDense(dim, dim, nil)
		inv mat.Dense
	)
	for d := 0; d < dim; d++ {
		for e := 0; e < dim; e++ {
			var s float64
			for i := range X {
				s += component(X[i], d) * dN[i][e]
			}
			J.Set(d, e, s)
		}
	}
	detJ = mat.Det(J)
	if math.Abs(detJ) < utils.NODETOL {
		return 0, nil, fmt.Errorf("degenerate %s cell %d", cell.Type(), cell.ID())
	}
	if err = inv.Inverse(J); err != nil {
		return 0, nil, fmt.Errorf("cell %d: %w", cell.ID(), err)
	}
	grad = make([][]float64, len(dN))
	for i := range dN {
		grad[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			for e := 0; e < dim; e++ {
				grad[i][d] += dN[i][e] * inv.At(e, d)
			}
		}
	}
	return math.Abs(detJ), grad, nil
}
