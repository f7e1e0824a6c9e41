package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/utils"
	"go.uber.org/zap"
)

// FillSparsityPattern adds the structural nonzeros of the cell couplings to
// target: m.rowIDs × B.rowIDs with extents (m.dofA, B.dofA), where B is
// others[0] or m itself. A target already holding those extents is taken as
// built.
func (m *ElementMap) FillSparsityPattern(target utils.PatternTarget, others ...*ElementMap) error {
	B := m
	if len(others) > 0 {
		B = others[0]
	}
	nCols := B.dofA
	if m.sized(target, nCols) {
		return nil
	}
	if m.Kind() == ConstantField || B.Kind() == ConstantField {
		return fmt.Errorf("sparsity pattern of the constant space: %w", utils.ErrNotImplemented)
	}
	if len(m.mats) != len(B.mats) {
		return fmt.Errorf("%w: pattern of %d and %d element matrices",
			utils.ErrSizeMismatch, len(m.mats), len(B.mats))
	}
	p := utils.NewPattern(m.dofA, nCols)
	for i, a := range m.mats {
		if err := insert(p, a.RowIDs(), B.mats[i].RowIDs()); err != nil {
			return fmt.Errorf("cell %d: %w", a.CellID(), err)
		}
	}
	return commit(target, p)
}

// fillLocalPattern is the rowIDs × colIDs pattern of every local matrix,
// with extents (dofA, dofB).
func (m *ElementMap) fillLocalPattern(target utils.PatternTarget) error {
	if m.sized(target, m.dofB) {
		return nil
	}
	p := utils.NewPattern(m.dofA, m.dofB)
	for _, e := range m.mats {
		if err := insert(p, e.RowIDs(), e.ColIDs()); err != nil {
			return fmt.Errorf("cell %d: %w", e.CellID(), err)
		}
	}
	return commit(target, p)
}

// sized is the extent check standing in for a structural one: a target of
// dofA rows and nCols columns is assumed to hold the pattern already.
func (m *ElementMap) sized(target utils.PatternTarget, nCols int) bool {
	r, c := target.Dims()
	if r != m.dofA || c != nCols || r == 0 {
		return false
	}
	m.options().logger.Debug("sparsity pattern already sized, skipping",
		zap.Int("rows", r), zap.Int("cols", c))
	return true
}

func insert(p *utils.Pattern, rows, cols utils.Index) error {
	for _, r := range rows {
		for _, c := range cols {
			if err := p.Insert(r, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func commit(target utils.PatternTarget, p *utils.Pattern) error {
	if r, c := target.Dims(); r == 0 || c == 0 {
		return target.BuildPattern(p)
	}
	return target.AddPattern(p)
}
