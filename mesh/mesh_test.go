package mesh

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const twoTriangles = `% unit square split along the diagonal
NDIME= 2
NELEM= 2
5 0 1 2 0
5 1 3 2 1
NPOIN= 4
0.0 0.0 0
1.0 0.0 1
0.0 1.0 2
1.0 1.0 3
NMARK= 1
MARKER_TAG= wall
MARKER_ELEMS= 2
3 0 1
3 1 3
`

// Helper function to create temporary test files
func createTempSU2File(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.su2")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}

func TestReadSU2(t *testing.T) {
	m, err := ReadSU2(createTempSU2File(t, twoTriangles))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dim)
	assert.Equal(t, 4, m.NodeCount())
	assert.Equal(t, 2, m.CellCount())
	assert.Equal(t, "wall", m.BoundaryTags[0])
	c := m.Cell(1)
	assert.Equal(t, 1, c.ID())
	assert.Equal(t, Triangle, c.Type())
	assert.Equal(t, []int{1, 3, 2}, c.Nodes())
	assert.Equal(t, r3.Vec{X: 1, Y: 1}, c.Coordinates()[1])
	center := c.Center()
	assert.InDelta(t, 2./3, center.X, 1e-15)
	assert.InDelta(t, 2./3, center.Y, 1e-15)
}

func TestReadSU2Dimensions(t *testing.T) {
	{
		m, err := ParseSU2(strings.NewReader("NDIME= 1\nNELEM= 2\n3 0 1\n3 1 2\nNPOIN= 3\n0\n0.5\n1\n"))
		require.NoError(t, err)
		assert.Equal(t, Line, m.Cell(0).Type())
		assert.Equal(t, 0.5, m.Vertices[1].X)
	}
	{
		m, err := ParseSU2(strings.NewReader("NDIME= 3\nNPOIN= 4\n0 0 0\n1 0 0\n0 1 0\n0 0 1\nNELEM= 1\n10 0 1 2 3 0\n"))
		require.NoError(t, err)
		assert.Equal(t, Tet, m.Cell(0).Type())
		assert.Equal(t, 3, m.Cell(0).Dim())
	}
	testCases := []struct {
		name, content, errMsg string
	}{
		{"quad", "NDIME= 2\nNELEM= 1\n9 0 1 2 3\nNPOIN= 0\n", "unsupported SU2 element type 9"},
		{"mixed", "NDIME= 2\nNELEM= 1\n3 0 1\nNPOIN= 2\n0 0\n1 0\n", "Line cell in a 2D mesh"},
		{"node range", "NDIME= 2\nNELEM= 1\n5 0 1 7\nNPOIN= 3\n0 0\n1 0\n0 1\n", "node 7 out of range"},
		{"truncated", "NDIME= 2\nNPOIN= 3\n0 0\n", "point 1"},
		{"dimension", "NDIME= 4\n", "unsupported NDIME=4"},
		{"no header", "NELEM= 0\n", "missing NDIME"},
		{"duplicate point", "NDIME= 2\nNPOIN= 3\n0 0 0\n1 0 0\n0 1 2\n", "duplicate point id 0"},
		{"point id range", "NDIME= 2\nNPOIN= 2\n0 0 0\n1 0 5\n", "point id 5 out of range"},
		{"point id", "NDIME= 2\nNPOIN= 1\n0 0 x\n", "bad point id"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSU2(strings.NewReader(tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
	_, err := ReadSU2(filepath.Join(t.TempDir(), "missing.su2"))
	assert.Error(t, err)
}

func TestPartitionMap(t *testing.T) {
	sizes := func(K, Np int) (histo map[int]int) {
		pm := NewPartitionMap(Np, K)
		histo = make(map[int]int)
		var next int
		for np := 0; np < pm.ParallelDegree; np++ {
			kMin, kMax := pm.GetBucketRange(np)
			require.Equal(t, next, kMin, "buckets are contiguous")
			next = kMax
			histo[kMax-kMin]++
		}
		require.Equal(t, K, next, "buckets cover every index")
		return
	}
	assert.Equal(t, map[int]int{0: 30, 1: 2}, sizes(2, 32))
	assert.Equal(t, map[int]int{8: 1, 9: 31}, sizes(287, 32))
	for n := 64; n < 2000; n++ {
		histo := sizes(n, 32)
		require.LessOrEqual(t, len(histo), 2)
		if len(histo) == 2 {
			var keys []float64
			for key := range histo {
				keys = append(keys, float64(key))
			}
			assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
		}
	}
	{ // the larger buckets come first
		pm := NewPartitionMap(3, 7)
		assert.Equal(t, [][2]int{{0, 3}, {3, 5}, {5, 7}}, pm.Partitions)
	}
	{
		m, err := ParseSU2(strings.NewReader(twoTriangles))
		require.NoError(t, err)
		pm := m.Partition(0)
		assert.Equal(t, [][2]int{{0, 2}}, pm.Partitions)
	}
}
