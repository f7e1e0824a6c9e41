package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/element"
	"github.com/notargets/feassembly/mesh"
	"github.com/notargets/feassembly/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type evalFunc func(cell *mesh.Cell, order, nCoeff, nNodes, dofOffset int, e *element.ElementMatrix) error

// NewUMap builds the integrated shape function map of a field with nCoeff
// components. An empty mesh yields the constant space: nCoeff global unknowns
// starting at dofOffset.
func NewUMap(msh *mesh.Mesh, ev element.Evaluator, order, nCoeff, dofOffset int, opts ...Option) (*ElementMap, error) {
	if msh == nil || msh.CellCount() == 0 {
		return NewConstantSpace(nCoeff, dofOffset, opts...), nil
	}
	return build("u", msh, ev.Pot, order, nCoeff, dofOffset, opts)
}

// NewGradUMap keeps the shape function gradients per quadrature point.
func NewGradUMap(msh *mesh.Mesh, ev element.Evaluator, order, nCoeff, dofOffset int, opts ...Option) (*ElementMap, error) {
	if msh == nil || msh.CellCount() == 0 {
		return nil, fmt.Errorf("gradient of the constant space: %w", utils.ErrNotImplemented)
	}
	return build("grad u", msh, ev.Grad, order, nCoeff, dofOffset, opts)
}

// NewIdentityMap keeps the shape function values per quadrature point.
func NewIdentityMap(msh *mesh.Mesh, ev element.Evaluator, order, nCoeff, dofOffset int, opts ...Option) (*ElementMap, error) {
	if msh == nil || msh.CellCount() == 0 {
		return NewConstantSpace(nCoeff, dofOffset, opts...), nil
	}
	return build("identity", msh, ev.Identity, order, nCoeff, dofOffset, opts)
}

// NewConstantSpace is a single order 0 matrix of ones holding nCoeff global
// unknowns at dofOffset..dofOffset+nCoeff-1.
func NewConstantSpace(nCoeff, dofOffset int, opts ...Option) *ElementMap {
	var (
		m = NewElementMap(opts...)
		e = element.NewElementMatrix(nil, 0, nCoeff, dofOffset)
		M = utils.NewMatrix(nCoeff, 1)
	)
	for i := 0; i < nCoeff; i++ {
		M.Set(i, 0, 1)
	}
	e.SetIDs(utils.NewRange(dofOffset, dofOffset+nCoeff-1), utils.Index{0})
	if nCoeff > 0 {
		_ = e.SetMat(M, true)
	}
	m.PushBack(e)
	m.SetDof(dofOffset + nCoeff)
	return m
}

func build(name string, msh *mesh.Mesh, eval evalFunc, order, nCoeff, dofOffset int, opts []Option) (*ElementMap, error) {
	var (
		m      = NewElementMap(opts...)
		nNodes = msh.NodeCount()
		cells  = msh.Cells()
		pm     = msh.Partition(m.opts.parallel)
		g      errgroup.Group
	)
	m.mats = make([]*element.ElementMatrix, len(cells))
	for np := 0; np < pm.ParallelDegree; np++ {
		kMin, kMax := pm.GetBucketRange(np)
		g.Go(func() error {
			for k := kMin; k < kMax; k++ {
				e := element.NewElementMatrix(cells[k], order, nCoeff, dofOffset)
				if err := eval(cells[k], order, nCoeff, nNodes, dofOffset, e); err != nil {
					return fmt.Errorf("%s map, cell %d: %w", name, k, err)
				}
				m.mats[k] = e
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	m.SetDof(nNodes*nCoeff + dofOffset)
	m.opts.logger.Debug("built element map",
		zap.String("map", name),
		zap.Int("cells", len(cells)),
		zap.Int("dof", m.dofA),
		zap.Int("workers", pm.ParallelDegree))
	return m, nil
}
