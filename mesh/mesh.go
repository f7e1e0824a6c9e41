package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ElementType enumerates the linear simplices the assembler supports.
type ElementType int

const (
	Line ElementType = iota
	Triangle
	Tet
)

func (e ElementType) String() string {
	return [...]string{"Line", "Triangle", "Tet"}[e]
}

// Dim is the topological dimension.
func (e ElementType) Dim() int { return int(e) + 1 }

func (e ElementType) NumNodes() int { return int(e) + 2 }

// Mesh is an unstructured simplex mesh. Cells keep their insertion order as
// their id.
type Mesh struct {
	Dim          int
	Vertices     []r3.Vec
	BoundaryTags map[int]string
	cells        []*Cell
}

// Cell is a handle on one mesh element.
type Cell struct {
	id    int
	nodes []int
	typ   ElementType
	tag   int
	mesh  *Mesh
}

func NewMesh(dim int, vertices []r3.Vec) *Mesh {
	return &Mesh{
		Dim:          dim,
		Vertices:     vertices,
		BoundaryTags: make(map[int]string),
	}
}

// AddCell appends a cell of type typ with the given vertex ids.
func (m *Mesh) AddCell(typ ElementType, tag int, nodes ...int) (*Cell, error) {
	if len(nodes) != typ.NumNodes() {
		return nil, fmt.Errorf("%s needs %d nodes, got %d", typ, typ.NumNodes(), len(nodes))
	}
	if typ.Dim() != m.Dim {
		return nil, fmt.Errorf("%s cell in a %dD mesh", typ, m.Dim)
	}
	for _, n := range nodes {
		if n < 0 || n >= len(m.Vertices) {
			return nil, fmt.Errorf("node %d out of range [0,%d)", n, len(m.Vertices))
		}
	}
	c := &Cell{
		id:    len(m.cells),
		nodes: append([]int(nil), nodes...),
		typ:   typ,
		tag:   tag,
		mesh:  m,
	}
	m.cells = append(m.cells, c)
	return c, nil
}

func (m *Mesh) CellCount() int { return len(m.cells) }

func (m *Mesh) NodeCount() int { return len(m.Vertices) }

func (m *Mesh) Cells() []*Cell { return m.cells }

func (m *Mesh) Cell(i int) *Cell { return m.cells[i] }

func (c *Cell) ID() int           { return c.id }
func (c *Cell) Nodes() []int      { return c.nodes }
func (c *Cell) Type() ElementType { return c.typ }
func (c *Cell) Tag() int          { return c.tag }
func (c *Cell) Dim() int          { return c.typ.Dim() }

func (c *Cell) Coordinates() []r3.Vec {
	x := make([]r3.Vec, len(c.nodes))
	for i, n := range c.nodes {
		x[i] = c.mesh.Vertices[n]
	}
	return x
}

// Center is the vertex average.
func (c *Cell) Center() (x r3.Vec) {
	for _, n := range c.nodes {
		x = r3.Add(x, c.mesh.Vertices[n])
	}
	return r3.Scale(1/float64(len(c.nodes)), x)
}
