package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/element"
	"github.com/notargets/feassembly/utils"
	"gonum.org/v1/gonum/blas"
)

type pairKind int

const (
	cellsCells pairKind = iota
	constCells
	cellsConst
	constConst
)

func kindOf(A, B *ElementMap) pairKind {
	switch a, b := A.Kind(), B.Kind(); {
	case a == ConstantField && b == ConstantField:
		return constConst
	case a == ConstantField:
		return constCells
	case b == ConstantField:
		return cellsConst
	}
	return cellsCells
}

// emitFunc receives the product of one cell pair; rows and cols are the
// global ids of the rows and columns of C.
type emitFunc func(ref *element.ElementMatrix, C utils.Matrix, rows, cols utils.Index) error

// pair walks the cell pairs of A and B and emits sign*Σ_q w_q A_q·F_q·B_qᵗ for
// each, or the constant space fan-out when one side is the constant space.
func pair(A, B *ElementMap, f Coefficient, sign float64, emit emitFunc) error {
	kind := kindOf(A, B)
	switch kind {
	case constConst:
		return fmt.Errorf("constant space times constant space: %w", utils.ErrNotImplemented)
	case constCells, cellsConst:
		return pairConst(A, B, kind, f, sign, emit)
	}
	if len(A.mats) != len(B.mats) {
		return fmt.Errorf("%w: %d and %d element matrices", utils.ErrSizeMismatch, len(A.mats), len(B.mats))
	}
	if err := f.validate(len(A.mats)); err != nil {
		return err
	}
	k := A.options().kernel
	for i, a := range A.mats {
		b := B.mats[i]
		C, err := pairCell(k, a, b, f, cellIndex(a, i), sign)
		if err != nil {
			return fmt.Errorf("cell %d: %w", a.CellID(), err)
		}
		if err = emit(a, C, a.RowIDs(), b.RowIDs()); err != nil {
			return fmt.Errorf("cell %d: %w", a.CellID(), err)
		}
	}
	return nil
}

func pairCell(k *utils.Kernel, a, b *element.ElementMatrix, f Coefficient, cell int, sign float64) (utils.Matrix, error) {
	C := utils.NewMatrix(a.Rows(), b.Rows())
	if a.Integrated() && b.Integrated() {
		if f.perQuad() {
			return C, fmt.Errorf("%w: per quadrature coefficient on integrated operands", utils.ErrDimensionMismatch)
		}
		c, err := f.at(cell, 0)
		if err != nil {
			return C, err
		}
		return C, accumulate(k, a.Mat(), b.Mat(), c, sign, &C)
	}
	if a.QuadCount() == 0 || a.QuadCount() != b.QuadCount() {
		return C, fmt.Errorf("%w: quadrature of %d and %d points",
			utils.ErrDimensionMismatch, a.QuadCount(), b.QuadCount())
	}
	c, err := f.at(cell, 0)
	for q, w := range a.Weights() {
		if f.perQuad() {
			c, err = f.at(cell, q)
		}
		if err != nil {
			return C, err
		}
		if err = accumulate(k, a.MatAt(q), b.MatAt(q), c, sign*w, &C); err != nil {
			return C, err
		}
	}
	return C, nil
}

// accumulate adds alpha·(A⊙c)·Bᵗ to C.
func accumulate(k *utils.Kernel, A, B utils.Matrix, c coeff, alpha float64, C *utils.Matrix) error {
	if c.kind == scalarCoeff {
		return k.Gemm(blas.NoTrans, blas.Trans, alpha*c.s, A, B, 1, C)
	}
	T, err := c.apply(k, A)
	if err != nil {
		return err
	}
	return k.Gemm(blas.NoTrans, blas.Trans, alpha, T, B, 1, C)
}

// pairConst spreads each row of the cell matrices over the nCoeff unknowns of
// the constant space: const×cells puts alpha*B(i,c) at (dofOffset+c,
// B.rowIDs[i]), cells×const mirrors it.
func pairConst(A, B *ElementMap, kind pairKind, f Coefficient, sign float64, emit emitFunc) error {
	var (
		cs, cells = A, B
		o         = A.options()
	)
	if kind == cellsConst {
		cs, cells = B, A
	}
	var (
		space  = cs.mats[0]
		nCoeff = space.NCoeff()
		ids    = utils.NewRange(space.DofOffset(), space.DofOffset()+nCoeff-1)
	)
	if nCoeff == 0 {
		return fmt.Errorf("constant space without unknowns: %w", utils.ErrNotImplemented)
	}
	if f.perQuad() {
		return fmt.Errorf("per quadrature coefficient on the constant space: %w", utils.ErrNotImplemented)
	}
	if err := f.validate(len(cells.mats)); err != nil {
		return err
	}
	for i, e := range cells.mats {
		if e.NCoeff() == 0 {
			return fmt.Errorf("cell %d without coefficients: %w", e.CellID(), utils.ErrNotImplemented)
		}
		if err := o.checkIntegrated(e, "cell"); err != nil {
			return err
		}
		c, err := f.at(cellIndex(e, i), 0)
		if err != nil {
			return fmt.Errorf("cell %d: %w", e.CellID(), err)
		}
		if c.kind != scalarCoeff {
			return fmt.Errorf("non scalar coefficient on the constant space: %w", utils.ErrNotImplemented)
		}
		if e.Cols() != nCoeff {
			return fmt.Errorf("cell %d: %w: %d columns for %d constant unknowns",
				e.CellID(), utils.ErrDimensionMismatch, e.Cols(), nCoeff)
		}
		var (
			alpha = sign * c.s
			M     = e.Mat()
			C     utils.Matrix
		)
		if kind == constCells {
			C = utils.NewMatrix(nCoeff, e.Rows())
			for r := 0; r < e.Rows(); r++ {
				for cc := 0; cc < nCoeff; cc++ {
					C.Set(cc, r, alpha*M.At(r, cc))
				}
			}
			err = emit(e, C, ids, e.RowIDs())
		} else {
			C = utils.NewMatrix(e.Rows(), nCoeff)
			for r := 0; r < e.Rows(); r++ {
				for cc := 0; cc < nCoeff; cc++ {
					C.Set(r, cc, alpha*M.At(r, cc))
				}
			}
			err = emit(e, C, e.RowIDs(), ids)
		}
		if err != nil {
			return fmt.Errorf("cell %d: %w", e.CellID(), err)
		}
	}
	return nil
}

// Dot sets ret to the cellwise products m_i·other_iᵗ, summed over quadrature
// points unless both sides are integrated. Row ids come from m, column ids
// from the row ids of other; the extents are (m.dofA, other.dofA).
func (m *ElementMap) Dot(other, ret *ElementMap) error {
	var mats []*element.ElementMatrix
	err := pair(m, other, Scalar(1), 1, func(ref *element.ElementMatrix, C utils.Matrix, rows, cols utils.Index) error {
		e := element.NewElementMatrix(ref.Cell(), ref.Order(), ref.NCoeff(), ref.DofOffset())
		e.SetIDs(rows.Copy(), cols.Copy())
		if err := e.SetMat(C, true); err != nil {
			return err
		}
		mats = append(mats, e)
		return nil
	})
	if err != nil {
		return err
	}
	ret.reset(m, 0)
	ret.mats = mats
	ret.SetDof(m.dofA, other.dofA)
	return nil
}

// IntegrateBilinear adds sign*Σ_q w_q A_q·F_q·B_qᵗ of every cell pair into
// target at (A.rowIDs, B.rowIDs). Pattern based targets get their pattern
// first, empty map based targets are sized to (A.dofA, B.dofA).
func IntegrateBilinear(A, B *ElementMap, f Coefficient, target utils.MatrixTarget, neg bool) error {
	fill := func(pt utils.PatternTarget) error { return A.FillSparsityPattern(pt, B) }
	if err := A.prepare(target, B.dofA, fill); err != nil {
		return err
	}
	return pair(A, B, f, sign(neg), func(_ *element.ElementMatrix, C utils.Matrix, rows, cols utils.Index) error {
		for i, r := range rows {
			for j, c := range cols {
				if err := target.AddValue(r, c, C.At(i, j)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// IntegrateBilinearMatrix is IntegrateBilinear into a new map based matrix.
func IntegrateBilinearMatrix(A, B *ElementMap, f Coefficient, neg bool) (*utils.MapDOK, error) {
	R := utils.NewMapDOK(0, 0)
	if err := IntegrateBilinear(A, B, f, R, neg); err != nil {
		return nil, err
	}
	return R, nil
}
