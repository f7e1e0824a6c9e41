package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/element"
	"github.com/notargets/feassembly/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind tells a cell field from the constant space.
type Kind int

const (
	CellField Kind = iota
	// ConstantField is a single order 0 matrix holding global unknowns that
	// are not tied to any cell.
	ConstantField
)

var kindNames = [...]string{"CellField", "ConstantField"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
	return kindNames[k]
}

// ElementMap is the ordered collection of the local matrices of a field, one
// per cell in cell id order. dofA is the extent of the row space, dofB of the
// column space.
type ElementMap struct {
	mats      []*element.ElementMatrix
	dofA      int
	dofB      int
	quadrPnts [][]r3.Vec
	opts      options
}

func NewElementMap(opts ...Option) *ElementMap {
	return &ElementMap{opts: newOptions(opts)}
}

func (m *ElementMap) Kind() Kind {
	if len(m.mats) == 1 && m.mats[0].Order() == 0 {
		return ConstantField
	}
	return CellField
}

func (m *ElementMap) Mats() []*element.ElementMatrix { return m.mats }

func (m *ElementMap) Mat(i int) *element.ElementMatrix { return m.mats[i] }

// Rows is the number of local matrices.
func (m *ElementMap) Rows() int { return len(m.mats) }

func (m *ElementMap) Dof() int  { return m.dofA }
func (m *ElementMap) DofA() int { return m.dofA }
func (m *ElementMap) DofB() int { return m.dofB }

// SetDof sets the row and column extents; b defaults to a.
func (m *ElementMap) SetDof(a int, b ...int) {
	m.dofA, m.dofB = a, a
	if len(b) != 0 {
		m.dofB = b[0]
	}
}

// Resize truncates or extends the collection with empty matrices.
func (m *ElementMap) Resize(n int) {
	for len(m.mats) < n {
		m.mats = append(m.mats, element.NewElementMatrix(nil, 1, 0, 0))
	}
	m.mats = m.mats[:n]
	m.quadrPnts = nil
}

func (m *ElementMap) PushBack(e *element.ElementMatrix) {
	m.mats = append(m.mats, e)
}

// QuadraturePoints returns the physical quadrature points of every cell. The
// cache is rebuilt whenever its length differs from the number of cells.
func (m *ElementMap) QuadraturePoints() [][]r3.Vec {
	if len(m.quadrPnts) != len(m.mats) {
		m.quadrPnts = make([][]r3.Vec, len(m.mats))
		for i, e := range m.mats {
			if e.Cell() == nil {
				continue
			}
			x := make([]r3.Vec, len(e.QuadPoints()))
			for q, xi := range e.QuadPoints() {
				x[q] = element.MapToPhysical(e.Cell(), xi)
			}
			m.quadrPnts[i] = x
		}
	}
	return m.quadrPnts
}

// EntityCenters returns the center of each source cell.
func (m *ElementMap) EntityCenters() []r3.Vec {
	c := make([]r3.Vec, len(m.mats))
	for i, e := range m.mats {
		if e.Cell() != nil {
			c[i] = e.Cell().Center()
		}
	}
	return c
}

func (m *ElementMap) reset(src *ElementMap, n int) {
	m.mats = make([]*element.ElementMatrix, n)
	m.quadrPnts = nil
	m.SetDof(src.dofA, src.dofB)
}

// cellIndex is the index of e into per cell coefficient data.
func cellIndex(e *element.ElementMatrix, i int) int {
	if id := e.CellID(); id >= 0 {
		return id
	}
	return i
}

func sign(neg bool) float64 {
	if neg {
		return -1
	}
	return 1
}

// Add sets ret[i] = m[i] + scale*other[i] for column dim of every matrix, or
// for all columns when dim < 0.
func (m *ElementMap) Add(other, ret *ElementMap, dim int, scale float64) error {
	if len(m.mats) != len(other.mats) {
		return fmt.Errorf("%w: add %d and %d element matrices", utils.ErrSizeMismatch, len(m.mats), len(other.mats))
	}
	mats := make([]*element.ElementMatrix, len(m.mats))
	for i, a := range m.mats {
		var (
			b = other.mats[i]
			r = a.Copy()
		)
		if err := addCols(r.Mat(), b.Mat(), dim, scale); err != nil {
			return fmt.Errorf("cell %d: %w", a.CellID(), err)
		}
		if r.QuadCount() == b.QuadCount() {
			for q, X := range r.MatX() {
				if err := addCols(X, b.MatAt(q), dim, scale); err != nil {
					return fmt.Errorf("cell %d point %d: %w", a.CellID(), q, err)
				}
			}
		}
		mats[i] = r
	}
	ret.reset(m, 0)
	ret.mats = mats
	return nil
}

func addCols(A, B utils.Matrix, dim int, scale float64) error {
	ar, ac := A.Dims()
	br, bc := B.Dims()
	if ar != br || ac != bc || dim >= ac {
		return fmt.Errorf("%w: %dx%d plus %dx%d at column %d", utils.ErrDimensionMismatch, ar, ac, br, bc, dim)
	}
	if dim < 0 {
		A.AddScaled(B, scale)
		return nil
	}
	for i := 0; i < ar; i++ {
		A.Row(i)[dim] += scale * B.Row(i)[dim]
	}
	return nil
}

// Sym is not defined for element maps.
func Sym(A *ElementMap) (*ElementMap, error) {
	return nil, fmt.Errorf("sym: %w", utils.ErrNotImplemented)
}

// Tr is not defined for element maps.
func Tr(A *ElementMap) (*ElementMap, error) {
	return nil, fmt.Errorf("tr: %w", utils.ErrNotImplemented)
}

// options returns the operation options, defaulting a zero value map.
func (m *ElementMap) options() options {
	if m.opts.kernel == nil {
		m.opts = newOptions(nil)
	}
	return m.opts
}
