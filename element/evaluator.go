package element

import (
	"fmt"

	"github.com/notargets/feassembly/mesh"
	"github.com/notargets/feassembly/utils"
)

// Evaluator fills the local matrix of one cell.
//
// order selects the quadrature degree, nCoeff the number of field components,
// nNodes the node count of the mesh (components are blocked by nNodes) and
// dofOffset shifts every row id.
type Evaluator interface {
	// Pot integrates the shape functions: rows are DOFs, columns components.
	Pot(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *ElementMatrix) error
	// Grad keeps the shape function gradients per quadrature point, one
	// column per component and spatial direction.
	Grad(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *ElementMatrix) error
	// Identity keeps the shape function values per quadrature point.
	Identity(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *ElementMatrix) error
}

// LinearSimplex evaluates P1 Lagrange elements on lines, triangles and tets.
type LinearSimplex struct{}

func (LinearSimplex) Pot(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *ElementMatrix) error {
	if err := fillValues(cell, order, nCoeff, nNodes, dofOffset, e); err != nil {
		return err
	}
	e.Integrate()
	return nil
}

func (LinearSimplex) Identity(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *ElementMatrix) error {
	return fillValues(cell, order, nCoeff, nNodes, dofOffset, e)
}

func (LinearSimplex) Grad(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *ElementMatrix) error {
	if nCoeff < 1 {
		return fmt.Errorf("%w: nCoeff %d", utils.ErrDimensionMismatch, nCoeff)
	}
	var (
		dim  = cell.Dim()
		nv   = len(cell.Nodes())
		cols = utils.NewRange(0, nCoeff*dim-1)
	)
	quadX, quadW, err := Quadrature(cell.Type(), order)
	if err != nil {
		return err
	}
	detJ, grad, err := geometry(cell)
	if err != nil {
		return err
	}
	reset(e, cell, order, nCoeff, dofOffset)
	e.SetIDs(rowIDs(cell, nCoeff, nNodes, dofOffset), cols)
	if err = e.SetQuadrature(quadX, scaled(quadW, detJ)); err != nil {
		return err
	}
	for q := range quadW {
		m := e.MatAt(q)
		for c := 0; c < nCoeff; c++ {
			for i := 0; i < nv; i++ {
				for d := 0; d < dim; d++ {
					m.Set(c*nv+i, c*dim+d, grad[i][d])
				}
			}
		}
	}
	return nil
}

func fillValues(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *ElementMatrix) error {
	if nCoeff < 1 {
		return fmt.Errorf("%w: nCoeff %d", utils.ErrDimensionMismatch, nCoeff)
	}
	quadX, quadW, err := Quadrature(cell.Type(), order)
	if err != nil {
		return err
	}
	detJ, _, err := geometry(cell)
	if err != nil {
		return err
	}
	nv := len(cell.Nodes())
	reset(e, cell, order, nCoeff, dofOffset)
	e.SetIDs(rowIDs(cell, nCoeff, nNodes, dofOffset), utils.NewRange(0, nCoeff-1))
	if err = e.SetQuadrature(quadX, scaled(quadW, detJ)); err != nil {
		return err
	}
	for q, xi := range quadX {
		var (
			N = ShapeFunctions(cell.Type(), xi)
			m = e.MatAt(q)
		)
		for c := 0; c < nCoeff; c++ {
			for i := 0; i < nv; i++ {
				m.Set(c*nv+i, c, N[i])
			}
		}
	}
	return nil
}

func reset(e *ElementMatrix, cell *mesh.Cell, order, nCoeff, dofOffset int) {
	e.cell, e.order, e.nCoeff, e.dofOffset = cell, order, nCoeff, dofOffset
}

// rowIDs blocks the components: node n of component c is n + c*nNodes.
func rowIDs(cell *mesh.Cell, nCoeff, nNodes, dofOffset int) (ids utils.Index) {
	nodes := cell.Nodes()
	ids = utils.NewIndex(nCoeff * len(nodes))
	for c := 0; c < nCoeff; c++ {
		for i, n := range nodes {
			ids[c*len(nodes)+i] = n + c*nNodes + dofOffset
		}
	}
	return
}

func scaled(w []float64, s float64) (r []float64) {
	r = make([]float64, len(w))
	for i, v := range w {
		r[i] = v * s
	}
	return
}
