package assembly

import (
	"fmt"

	"github.com/notargets/feassembly/element"
	"github.com/notargets/feassembly/utils"
	"gonum.org/v1/gonum/floats"
)

// RowMap collects square local matrices that each contribute a single value
// to an output row, as used for per cell energy like sums.
type RowMap struct {
	mats   []utils.Matrix
	ids    []utils.Index
	rows   []int
	nRows  int
	nCols  int
	kernel *utils.Kernel
}

func NewRowMap(k *utils.Kernel) *RowMap {
	if k == nil {
		k = utils.NewKernel()
	}
	return &RowMap{kernel: k}
}

// Add appends the integrated buffer of e for output row row.
func (rm *RowMap) Add(row int, e *element.ElementMatrix) error {
	M := e.Mat()
	if r, c := M.Dims(); r != c || r != e.Rows() {
		return fmt.Errorf("%w: row map needs a square matrix, got %dx%d for %d ids",
			utils.ErrDimensionMismatch, r, c, e.Rows())
	}
	if row < 0 {
		return fmt.Errorf("%w: row %d", utils.ErrIndexOutOfRange, row)
	}
	rm.mats = append(rm.mats, M)
	rm.ids = append(rm.ids, e.RowIDs().Copy())
	rm.rows = append(rm.rows, row)
	rm.nRows = max(rm.nRows, row+1)
	rm.nCols = max(rm.nCols, e.RowIDs().Max()+1)
	return nil
}

// Rows is the length of the vectors returned by Mult and MultDiff.
func (rm *RowMap) Rows() int { return rm.nRows }

// Cols is the minimum length of the input vectors.
func (rm *RowMap) Cols() int { return rm.nCols }

// Mult returns ret[row] += b[ids]ᵗ·S·a[ids] for every entry.
func (rm *RowMap) Mult(a, b utils.Vector) (utils.Vector, error) {
	return rm.mult(func(idx utils.Index) ([]float64, []float64) {
		return a.Gather(idx), b.Gather(idx)
	}, a, b)
}

// MultDiff returns ret[row] += (m-n)[ids]ᵗ·S·(a-b)[ids] for every entry.
func (rm *RowMap) MultDiff(a, b, m, n utils.Vector) (utils.Vector, error) {
	return rm.mult(func(idx utils.Index) ([]float64, []float64) {
		x := a.Gather(idx)
		floats.Sub(x, b.Gather(idx))
		y := m.Gather(idx)
		floats.Sub(y, n.Gather(idx))
		return x, y
	}, a, b, m, n)
}

func (rm *RowMap) mult(gather func(utils.Index) ([]float64, []float64), vecs ...utils.Vector) (utils.Vector, error) {
	for _, v := range vecs {
		if v.Len() < rm.nCols {
			return utils.Vector{}, fmt.Errorf("%w: vector of %d for %d columns",
				utils.ErrIndexOutOfRange, v.Len(), rm.nCols)
		}
	}
	var (
		ret = utils.NewVector(rm.nRows)
		t   utils.Vector
	)
	for r, S := range rm.mats {
		x, y := gather(rm.ids[r])
		if err := rm.kernel.MultVec(S, utils.NewVector(len(x), x), &t, 1, 0); err != nil {
			return utils.Vector{}, err
		}
		if err := ret.AddAt(rm.rows[r], floats.Dot(t.Data(), y)); err != nil {
			return utils.Vector{}, err
		}
	}
	return ret, nil
}
