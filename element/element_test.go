package element

import (
	"testing"

	"github.com/notargets/feassembly/mesh"
	"github.com/notargets/feassembly/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitSimplex(t *testing.T, typ mesh.ElementType) *mesh.Cell {
	t.Helper()
	verts := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}[:typ.NumNodes()]
	m := mesh.NewMesh(typ.Dim(), verts)
	c, err := m.AddCell(typ, 0, utils.NewRange(0, typ.NumNodes()-1)...)
	require.NoError(t, err)
	return c
}

func TestQuadrature(t *testing.T) {
	for _, typ := range []mesh.ElementType{mesh.Line, mesh.Triangle, mesh.Tet} {
		for _, degree := range []int{1, 2} {
			x, w, err := Quadrature(typ, degree)
			require.NoError(t, err)
			assert.InDelta(t, RefVolume(typ), floats.Sum(w), 1e-14)
			// partition of unity everywhere
			for _, xi := range x {
				assert.InDelta(t, 1, floats.Sum(ShapeFunctions(typ, xi)), 1e-14)
			}
		}
		_, _, err := Quadrature(typ, 3)
		assert.Error(t, err)
	}
	x, _, _ := Quadrature(mesh.Triangle, 1)
	assert.InDelta(t, -1./3, x[0].X, 1e-15)
	assert.InDelta(t, -1./3, x[0].Y, 1e-15)
}

func TestLinearSimplexPot(t *testing.T) {
	var (
		ev   LinearSimplex
		cell = unitSimplex(t, mesh.Triangle)
		e    = NewElementMatrix(nil, 0, 0, 0)
	)
	require.NoError(t, ev.Pot(cell, 2, 1, 3, 0, e))
	assert.True(t, e.Integrated())
	assert.Equal(t, utils.Index{0, 1, 2}, e.RowIDs())
	assert.Equal(t, utils.Index{0}, e.ColIDs())
	assert.InDeltaSlice(t, []float64{1. / 6, 1. / 6, 1. / 6}, e.Mat().Data(), 1e-15)
	assert.Equal(t, 3, e.QuadCount())
	assert.InDelta(t, 0.5, floats.Sum(e.Weights()), 1e-15)
	assert.Same(t, cell, e.Cell())

	{ // two components, blocked by the node count of the mesh
		require.NoError(t, ev.Pot(cell, 1, 2, 3, 10, e))
		assert.Equal(t, utils.Index{10, 11, 12, 13, 14, 15}, e.RowIDs())
		assert.Equal(t, utils.Index{0, 1}, e.ColIDs())
		assert.InDelta(t, 1./6, e.Mat().At(4, 1), 1e-15)
		assert.Equal(t, 0., e.Mat().At(4, 0))
	}
	{
		tet := unitSimplex(t, mesh.Tet)
		require.NoError(t, ev.Pot(tet, 2, 1, 4, 0, e))
		assert.InDeltaSlice(t, []float64{1. / 24, 1. / 24, 1. / 24, 1. / 24}, e.Mat().Data(), 1e-15)
		line := unitSimplex(t, mesh.Line)
		require.NoError(t, ev.Pot(line, 1, 1, 2, 0, e))
		assert.InDeltaSlice(t, []float64{0.5, 0.5}, e.Mat().Data(), 1e-15)
	}
}

func TestLinearSimplexGrad(t *testing.T) {
	var (
		ev   LinearSimplex
		cell = unitSimplex(t, mesh.Triangle)
		e    = NewElementMatrix(nil, 0, 0, 0)
	)
	require.NoError(t, ev.Grad(cell, 1, 1, 3, 0, e))
	assert.False(t, e.Integrated())
	assert.Equal(t, utils.Index{0, 1}, e.ColIDs())
	assert.InDeltaSlice(t, []float64{-1, -1, 1, 0, 0, 1}, e.MatAt(0).Data(), 1e-15)
	e.Integrate()
	assert.InDeltaSlice(t, []float64{-.5, -.5, .5, 0, 0, .5}, e.Mat().Data(), 1e-15)

	{ // Identity keeps the values per quadrature point
		require.NoError(t, ev.Identity(cell, 1, 1, 3, 0, e))
		assert.False(t, e.Integrated())
		assert.InDeltaSlice(t, []float64{1. / 3, 1. / 3, 1. / 3}, e.MatAt(0).Data(), 1e-15)
	}
	{
		m := mesh.NewMesh(2, []r3.Vec{{}, {X: 1}, {X: 2}})
		flat, err := m.AddCell(mesh.Triangle, 0, 0, 1, 2)
		require.NoError(t, err)
		assert.Error(t, ev.Grad(flat, 1, 1, 3, 0, e))
		assert.ErrorIs(t, ev.Pot(cell, 1, 0, 3, 0, e), utils.ErrDimensionMismatch)
	}
}

func TestElementMatrix(t *testing.T) {
	var (
		ev   LinearSimplex
		cell = unitSimplex(t, mesh.Triangle)
		e    = NewElementMatrix(nil, 0, 0, 0)
	)
	require.NoError(t, ev.Identity(cell, 2, 1, 3, 0, e))
	c := e.Copy()
	c.MatAt(0).Set(0, 0, 42)
	assert.NotEqual(t, 42., e.MatAt(0).At(0, 0))

	assert.ErrorIs(t, e.SetMat(utils.NewMatrix(2, 2), true), utils.ErrDimensionMismatch)
	require.NoError(t, e.SetMat(utils.NewMatrix(3, 1, []float64{1, 2, 3}), true))
	e.Integrate() // no-op once integrated
	assert.Equal(t, []float64{1, 2, 3}, e.Mat().Data())
	assert.Equal(t, 0, e.CellID())
	assert.Equal(t, -1, NewElementMatrix(nil, 0, 1, 0).CellID())

	x := MapToPhysical(cell, r3.Vec{X: -1. / 3, Y: -1. / 3})
	assert.InDelta(t, 1./3, x.X, 1e-15)
	assert.InDelta(t, 1./3, x.Y, 1e-15)
}

func TestDegenerateCell(t *testing.T) {
	var ev LinearSimplex
	for _, verts := range [][]r3.Vec{
		{{}, {X: 1}, {X: 2}},     // collinear
		{{}, {X: 1}, {Y: 1e-14}}, // below NODETOL
	} {
		m := mesh.NewMesh(2, verts)
		c, err := m.AddCell(mesh.Triangle, 0, 0, 1, 2)
		require.NoError(t, err)
		err = ev.Pot(c, 1, 1, 3, 0, NewElementMatrix(nil, 0, 0, 0))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "degenerate")
	}
}
