package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/element"
	"github.com/notargets/feassembly/utils"
	"go.uber.org/zap"
)

// Integrate accumulates f times every local matrix into target.
//
// A utils.VectorTarget receives the linear form
// R[rowIDs[j]] += sign * Σ_i (mat⊙f)(j,i). A utils.MatrixTarget receives the
// weighted local buffer at (rowIDs[i], colIDs[j]).
func (m *ElementMap) Integrate(f Coefficient, target any, neg bool) error {
	if err := f.validate(len(m.mats)); err != nil {
		return err
	}
	switch R := target.(type) {
	case utils.VectorTarget:
		return m.integrateVector(f, R, sign(neg))
	case utils.MatrixTarget:
		return m.integrateMatrix(f, R, sign(neg))
	}
	return fmt.Errorf("integrate: unsupported target %T", target)
}

// Assemble is Integrate into a matrix whose structure is prepared first:
// pattern based targets get the rowIDs × colIDs pattern, empty map based
// targets are sized to (dofA, dofB).
func (m *ElementMap) Assemble(f Coefficient, target utils.MatrixTarget, neg bool) error {
	if err := f.validate(len(m.mats)); err != nil {
		return err
	}
	if err := m.prepare(target, m.dofB, m.fillLocalPattern); err != nil {
		return err
	}
	return m.integrateMatrix(f, target, sign(neg))
}

// IntegrateVector returns the linear form in a new vector sized max(rowID)+1.
func (m *ElementMap) IntegrateVector(f Coefficient, neg bool) (utils.Vector, error) {
	var n int
	for _, e := range m.mats {
		n = max(n, e.RowIDs().Max()+1)
	}
	if n == 0 {
		return utils.Vector{}, fmt.Errorf("integrate: %w", utils.ErrEmptyTarget)
	}
	R := utils.NewVector(n)
	if err := m.Integrate(f, &R, neg); err != nil {
		return utils.Vector{}, err
	}
	return R, nil
}

// prepare builds the pattern of pattern based targets or sizes empty map
// based ones.
func (m *ElementMap) prepare(target utils.MatrixTarget, nCols int, fill func(utils.PatternTarget) error) error {
	if target.HasPrebuiltPattern() {
		pt, ok := target.(utils.PatternTarget)
		if !ok {
			return fmt.Errorf("target %T has a prebuilt pattern but cannot build one", target)
		}
		return fill(pt)
	}
	if r, c := target.Dims(); r == 0 || c == 0 {
		if rs, ok := target.(utils.Resizer); ok {
			rs.Resize(m.dofA, nCols)
		}
	}
	return nil
}

// weighted returns Σ_q w_q matX[q]⊙f_q, or mat⊙f for integrated matrices.
func (m *ElementMap) weighted(e *element.ElementMatrix, f Coefficient, cell int) (utils.Matrix, error) {
	k := m.options().kernel
	if !f.perQuad() {
		c, err := f.at(cell, 0)
		if err != nil {
			return utils.Matrix{}, err
		}
		return c.apply(k, integratedMat(e))
	}
	if e.QuadCount() == 0 {
		return utils.Matrix{}, fmt.Errorf("%w: per quadrature coefficient for cell %d without quadrature",
			utils.ErrDimensionMismatch, e.CellID())
	}
	var sum utils.Matrix
	for q, X := range e.MatX() {
		c, err := f.at(cell, q)
		if err != nil {
			return sum, err
		}
		fX, err := c.apply(k, X)
		if err != nil {
			return sum, err
		}
		if q == 0 {
			sum = fX.Scale(e.Weights()[q])
			continue
		}
		if r1, c1 := fX.Dims(); !sameShape(sum, r1, c1) {
			return sum, fmt.Errorf("%w: point %d gives %dx%d", utils.ErrDimensionMismatch, q, r1, c1)
		}
		sum.AddScaled(fX, e.Weights()[q])
	}
	return sum, nil
}

func sameShape(M utils.Matrix, r, c int) bool {
	mr, mc := M.Dims()
	return mr == r && mc == c
}

// integratedMat is the buffer of e, integrated on a copy when needed.
func integratedMat(e *element.ElementMatrix) utils.Matrix {
	if e.Integrated() || e.QuadCount() == 0 {
		return e.Mat()
	}
	c := e.Copy()
	c.Integrate()
	return c.Mat()
}

func (m *ElementMap) integrateVector(f Coefficient, R utils.VectorTarget, sign float64) error {
	if R.Len() == 0 {
		return fmt.Errorf("integrate: %w", utils.ErrEmptyTarget)
	}
	for i, e := range m.mats {
		M, err := m.weighted(e, f, cellIndex(e, i))
		if err != nil {
			return fmt.Errorf("cell %d: %w", e.CellID(), err)
		}
		for j, s := range M.SumRows() {
			if err = R.AddAt(e.RowIDs()[j], sign*s); err != nil {
				return fmt.Errorf("cell %d: %w", e.CellID(), err)
			}
		}
	}
	return nil
}

func (m *ElementMap) integrateMatrix(f Coefficient, R utils.MatrixTarget, sign float64) error {
	for i, e := range m.mats {
		M, err := m.weighted(e, f, cellIndex(e, i))
		if err != nil {
			return fmt.Errorf("cell %d: %w", e.CellID(), err)
		}
		if _, nc := M.Dims(); nc != e.Cols() {
			return fmt.Errorf("cell %d: %w: %d columns for %d col ids",
				e.CellID(), utils.ErrDimensionMismatch, nc, e.Cols())
		}
		for r, row := range e.RowIDs() {
			for c, col := range e.ColIDs() {
				if err = R.AddValue(row, col, sign*M.At(r, c)); err != nil {
					return fmt.Errorf("cell %d: %w", e.CellID(), err)
				}
			}
		}
	}
	return nil
}

// Mult sets ret to the coefficient weighted copy of m. Matrices that are not
// integrated are weighted per quadrature point. A matrix coefficient must be
// square to keep the column ids.
func (m *ElementMap) Mult(f Coefficient, ret *ElementMap) error {
	if err := f.validate(len(m.mats)); err != nil {
		return err
	}
	var (
		k    = m.options().kernel
		mats = make([]*element.ElementMatrix, len(m.mats))
	)
	for i, e := range m.mats {
		var (
			r    = e.Copy()
			cell = cellIndex(e, i)
		)
		if f.perQuad() && e.QuadCount() == 0 {
			return fmt.Errorf("cell %d: %w: per quadrature coefficient without quadrature",
				e.CellID(), utils.ErrDimensionMismatch)
		}
		for q, X := range e.MatX() {
			c, err := f.at(cell, q)
			if err != nil {
				return fmt.Errorf("cell %d: %w", e.CellID(), err)
			}
			if err = checkSquare(c, e.Cols()); err != nil {
				return fmt.Errorf("cell %d: %w", e.CellID(), err)
			}
			fX, err := c.apply(k, X)
			if err != nil {
				return fmt.Errorf("cell %d: %w", e.CellID(), err)
			}
			if err = r.SetMatAt(q, fX); err != nil {
				return err
			}
		}
		switch {
		case !e.Integrated():
		case f.perQuad():
			r.Reintegrate()
		default:
			c, err := f.at(cell, 0)
			if err != nil {
				return fmt.Errorf("cell %d: %w", e.CellID(), err)
			}
			if err = checkSquare(c, e.Cols()); err != nil {
				return fmt.Errorf("cell %d: %w", e.CellID(), err)
			}
			fM, err := c.apply(k, e.Mat())
			if err != nil {
				return fmt.Errorf("cell %d: %w", e.CellID(), err)
			}
			if err = r.SetMat(fM, true); err != nil {
				return err
			}
		}
		mats[i] = r
	}
	ret.reset(m, 0)
	ret.mats = mats
	m.options().logger.Debug("weighted element map", zap.Int("cells", len(mats)))
	return nil
}

func checkSquare(c coeff, n int) error {
	if c.kind != matrixCoeff {
		return nil
	}
	if r, cc := c.m.Dims(); r != n || cc != n {
		return fmt.Errorf("%w: %dx%d coefficient for %d columns", utils.ErrDimensionMismatch, r, cc, n)
	}
	return nil
}
