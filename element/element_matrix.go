package element

import (
	"fmt"

	"github.com/notargets/feassembly/mesh"
	"github.com/notargets/feassembly/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// ElementMatrix is the local matrix of one cell. Rows map to global DOFs
// through rowIDs, columns through colIDs (component ids for field matrices,
// global DOFs for products). Before integration the per quadrature point
// matrices matX hold the values; Integrate folds them into mat.
type ElementMatrix struct {
	mat        utils.Matrix
	matX       []utils.Matrix
	w          []float64
	x          []r3.Vec
	rowIDs     utils.Index
	colIDs     utils.Index
	cell       *mesh.Cell
	order      int
	nCoeff     int
	dofOffset  int
	integrated bool
}

// NewElementMatrix creates an empty matrix. cell may be nil for matrices not
// tied to a mesh cell; order 0 marks the constant space.
func NewElementMatrix(cell *mesh.Cell, order, nCoeff, dofOffset int) *ElementMatrix {
	return &ElementMatrix{
		mat:       utils.NewMatrix(0, 0),
		cell:      cell,
		order:     order,
		nCoeff:    nCoeff,
		dofOffset: dofOffset,
	}
}

func (e *ElementMatrix) Mat() utils.Matrix        { return e.mat }
func (e *ElementMatrix) MatX() []utils.Matrix     { return e.matX }
func (e *ElementMatrix) Weights() []float64       { return e.w }
func (e *ElementMatrix) QuadPoints() []r3.Vec     { return e.x }
func (e *ElementMatrix) RowIDs() utils.Index      { return e.rowIDs }
func (e *ElementMatrix) ColIDs() utils.Index      { return e.colIDs }
func (e *ElementMatrix) Cell() *mesh.Cell         { return e.cell }
func (e *ElementMatrix) Order() int               { return e.order }
func (e *ElementMatrix) NCoeff() int              { return e.nCoeff }
func (e *ElementMatrix) DofOffset() int           { return e.dofOffset }
func (e *ElementMatrix) Integrated() bool         { return e.integrated }
func (e *ElementMatrix) Rows() int                { return len(e.rowIDs) }
func (e *ElementMatrix) Cols() int                { return len(e.colIDs) }
func (e *ElementMatrix) QuadCount() int           { return len(e.matX) }
func (e *ElementMatrix) MatAt(q int) utils.Matrix { return e.matX[q] }

// CellID is the id of the source cell, -1 without one.
func (e *ElementMatrix) CellID() int {
	if e.cell == nil {
		return -1
	}
	return e.cell.ID()
}

// SetIDs fixes the index arrays and resets the buffer to a zero matrix of
// matching shape. Quadrature data is dropped.
func (e *ElementMatrix) SetIDs(rowIDs, colIDs utils.Index) {
	e.rowIDs, e.colIDs = rowIDs, colIDs
	e.mat = utils.NewMatrix(len(rowIDs), len(colIDs))
	e.matX, e.w, e.x = nil, nil, nil
	e.integrated = false
}

// SetQuadrature allocates one zero matrix per quadrature point.
func (e *ElementMatrix) SetQuadrature(x []r3.Vec, w []float64) error {
	if len(x) != len(w) {
		return fmt.Errorf("%w: %d points, %d weights", utils.ErrSizeMismatch, len(x), len(w))
	}
	e.x, e.w = x, w
	e.matX = make([]utils.Matrix, len(w))
	for q := range e.matX {
		e.matX[q] = utils.NewMatrix(e.Rows(), e.Cols())
	}
	e.integrated = false
	return nil
}

// SetMat replaces the buffer; its shape must match the index arrays.
func (e *ElementMatrix) SetMat(m utils.Matrix, integrated bool) error {
	if r, c := m.Dims(); r != e.Rows() || c != e.Cols() {
		return fmt.Errorf("%w: buffer %dx%d for %d row ids, %d col ids",
			utils.ErrDimensionMismatch, r, c, e.Rows(), e.Cols())
	}
	e.mat = m
	e.integrated = integrated
	return nil
}

// SetMatAt replaces the matrix of quadrature point q. Shapes may change as
// long as all points agree with the buffer afterwards; callers re-sync the
// buffer with SetMat or Reintegrate.
func (e *ElementMatrix) SetMatAt(q int, m utils.Matrix) error {
	if q < 0 || q >= len(e.matX) {
		return fmt.Errorf("%w: quadrature point %d of %d", utils.ErrIndexOutOfRange, q, len(e.matX))
	}
	e.matX[q] = m
	return nil
}

// Reintegrate recomputes the buffer from the quadrature matrices.
func (e *ElementMatrix) Reintegrate() {
	if len(e.matX) == 0 {
		return
	}
	r, c := e.matX[0].Dims()
	e.mat = utils.NewMatrix(r, c)
	e.integrated = false
	e.Integrate()
}

// Integrate sums w_q*matX[q] into the buffer once.
func (e *ElementMatrix) Integrate() {
	if e.integrated {
		return
	}
	if len(e.matX) > 0 {
		e.mat.Zero()
		for q, m := range e.matX {
			e.mat.AddScaled(m, e.w[q])
		}
	}
	e.integrated = true
}

// Copy is deep except for the cell reference.
func (e *ElementMatrix) Copy() *ElementMatrix {
	r := *e
	r.mat = e.mat.Copy()
	r.rowIDs, r.colIDs = e.rowIDs.Copy(), e.colIDs.Copy()
	if e.matX != nil {
		r.matX = make([]utils.Matrix, len(e.matX))
		for q, m := range e.matX {
			r.matX[q] = m.Copy()
		}
		r.w = append([]float64(nil), e.w...)
		r.x = append([]r3.Vec(nil), e.x...)
	}
	return &r
}

func (e *ElementMatrix) String() string {
	return fmt.Sprintf("cell %d rows %v cols %v integrated %v\n%v",
		e.CellID(), e.rowIDs, e.colIDs, e.integrated, e.mat)
}
