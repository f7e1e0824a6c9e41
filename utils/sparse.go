package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
)

// MatrixTarget receives element contributions of an assembled global matrix.
type MatrixTarget interface {
	Dims() (r, c int)
	AddValue(i, j int, v float64) error
	// HasPrebuiltPattern is true when entries can only be added inside a
	// structure fixed beforehand with BuildPattern/AddPattern.
	HasPrebuiltPattern() bool
}

// PatternTarget is a MatrixTarget whose nonzero structure is built up front.
type PatternTarget interface {
	MatrixTarget
	BuildPattern(p *Pattern) error
	AddPattern(p *Pattern) error
}

// Resizer is implemented by map based targets that can be sized before use.
type Resizer interface {
	Resize(r, c int)
}

// VectorTarget receives linear form contributions.
type VectorTarget interface {
	Len() int
	Resize(n int)
	AddAt(i int, v float64) error
}

// Pattern holds one deduplicated column set per row.
type Pattern struct {
	rows  []map[int]struct{}
	nCols int
}

func NewPattern(nRows, nCols int) *Pattern {
	p := &Pattern{
		rows:  make([]map[int]struct{}, nRows),
		nCols: nCols,
	}
	for i := range p.rows {
		p.rows[i] = make(map[int]struct{})
	}
	return p
}

func (p *Pattern) Dims() (r, c int) { return len(p.rows), p.nCols }

func (p *Pattern) Insert(i, j int) error {
	if i < 0 || i >= len(p.rows) || j < 0 || j >= p.nCols {
		return fmt.Errorf("%w: (%d,%d) in pattern %dx%d", ErrDimensionMismatch, i, j, len(p.rows), p.nCols)
	}
	p.rows[i][j] = struct{}{}
	return nil
}

func (p *Pattern) Has(i, j int) bool {
	if i < 0 || i >= len(p.rows) {
		return false
	}
	_, ok := p.rows[i][j]
	return ok
}

// Row returns the columns of row i in ascending order.
func (p *Pattern) Row(i int) []int {
	var cols []int
	for j := range p.rows[i] {
		cols = append(cols, j)
	}
	sort.Ints(cols)
	return cols
}

func (p *Pattern) NNZ() (n int) {
	for _, r := range p.rows {
		n += len(r)
	}
	return
}

// PatternCSR is a CSR matrix whose structure is fixed by a Pattern; values can
// only be accumulated into existing entries.
type PatternCSR struct {
	M    *sparse.CSR
	name string
}

func NewPatternCSR(name ...string) *PatternCSR {
	m := &PatternCSR{name: "unnamed"}
	if len(name) != 0 {
		m.name = name[0]
	}
	return m
}

func (m *PatternCSR) Dims() (r, c int) {
	if m.M == nil {
		return 0, 0
	}
	return m.M.Dims()
}

func (m *PatternCSR) At(i, j int) float64 { return m.M.At(i, j) }

func (m *PatternCSR) HasPrebuiltPattern() bool { return true }

func (m *PatternCSR) NNZ() int {
	if m.M == nil {
		return 0
	}
	return m.M.NNZ()
}

// BuildPattern replaces the structure with p, all values zero.
func (m *PatternCSR) BuildPattern(p *Pattern) error {
	nr, nc := p.Dims()
	if nr == 0 || nc == 0 {
		return fmt.Errorf("%w: pattern %dx%d for %s", ErrEmptyTarget, nr, nc, m.name)
	}
	var (
		ia = make([]int, nr+1)
		ja = make([]int, 0, p.NNZ())
	)
	for i := 0; i < nr; i++ {
		ja = append(ja, p.Row(i)...)
		ia[i+1] = len(ja)
	}
	m.M = sparse.NewCSR(nr, nc, ia, ja, make([]float64, len(ja)))
	return nil
}

// AddPattern merges p into the existing structure, growing to the larger of
// both extents and keeping the values already accumulated.
func (m *PatternCSR) AddPattern(p *Pattern) error {
	if m.M == nil {
		return m.BuildPattern(p)
	}
	var (
		nr, nc = m.Dims()
		pr, pc = p.Dims()
		mr, mc = max(nr, pr), max(nc, pc)
		merged = NewPattern(mr, mc)
		values = make(map[[2]int]float64, m.NNZ())
		ia, ja []int
		data   []float64
		raw    = m.M.RawMatrix()
	)
	for i := 0; i < nr; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			j := raw.Ind[k]
			merged.rows[i][j] = struct{}{}
			values[[2]int{i, j}] = raw.Data[k]
		}
	}
	for i := 0; i < pr; i++ {
		for j := range p.rows[i] {
			merged.rows[i][j] = struct{}{}
		}
	}
	ia = make([]int, mr+1)
	ja = make([]int, 0, merged.NNZ())
	data = make([]float64, 0, merged.NNZ())
	for i := 0; i < mr; i++ {
		for _, j := range merged.Row(i) {
			ja = append(ja, j)
			data = append(data, values[[2]int{i, j}])
		}
		ia[i+1] = len(ja)
	}
	m.M = sparse.NewCSR(mr, mc, ia, ja, data)
	return nil
}

// AddValue accumulates v at (i,j), which must be part of the pattern.
func (m *PatternCSR) AddValue(i, j int, v float64) error {
	nr, nc := m.Dims()
	if i < 0 || i >= nr || j < 0 || j >= nc {
		return fmt.Errorf("%w: (%d,%d) in %s %dx%d", ErrIndexOutOfRange, i, j, m.name, nr, nc)
	}
	raw := m.M.RawMatrix()
	cols := raw.Ind[raw.Indptr[i]:raw.Indptr[i+1]]
	k := sort.SearchInts(cols, j)
	if k == len(cols) || cols[k] != j {
		return fmt.Errorf("%w: (%d,%d) in %s", ErrNotInPattern, i, j, m.name)
	}
	raw.Data[raw.Indptr[i]+k] += v
	return nil
}

// Clean zeroes all values and keeps the structure.
func (m *PatternCSR) Clean() {
	if m.M == nil {
		return
	}
	data := m.M.RawMatrix().Data
	for i := range data {
		data[i] = 0
	}
}

// Pattern returns the current structure.
func (m *PatternCSR) Pattern() *Pattern {
	nr, nc := m.Dims()
	p := NewPattern(nr, nc)
	if m.M == nil {
		return p
	}
	raw := m.M.RawMatrix()
	for i := 0; i < nr; i++ {
		for _, j := range raw.Ind[raw.Indptr[i]:raw.Indptr[i+1]] {
			p.rows[i][j] = struct{}{}
		}
	}
	return p
}

// MulVec returns M·x.
func (m *PatternCSR) MulVec(x []float64) []float64 {
	nr, _ := m.Dims()
	y := make([]float64, nr)
	m.M.MulVecTo(y, false, x)
	return y
}

// MapDOK is a map based sparse target. Entries are created on demand and the
// matrix grows to fit any index it receives.
type MapDOK struct {
	M      *sparse.DOK
	nr, nc int
}

func NewMapDOK(nr, nc int) *MapDOK {
	m := &MapDOK{}
	m.Resize(nr, nc)
	return m
}

func (m *MapDOK) Dims() (r, c int) { return m.nr, m.nc }

func (m *MapDOK) HasPrebuiltPattern() bool { return false }

func (m *MapDOK) At(i, j int) float64 {
	if i >= m.nr || j >= m.nc {
		panic(fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, i, j, m.nr, m.nc))
	}
	return m.M.At(i, j)
}

func (m *MapDOK) NNZ() int {
	if m.M == nil {
		return 0
	}
	return m.M.NNZ()
}

// Resize sets the logical extent. Entries outside the new extent are dropped.
func (m *MapDOK) Resize(nr, nc int) {
	m.grow(nr, nc, true)
	m.nr, m.nc = nr, nc
}

func (m *MapDOK) grow(nr, nc int, exact bool) {
	var cr, cc int
	if m.M != nil {
		cr, cc = m.M.Dims()
	}
	if !exact && nr <= cr && nc <= cc {
		return
	}
	if !exact {
		// amortize repeated growth
		nr, nc = max(nr, 2*cr), max(nc, 2*cc)
	}
	if nr == 0 || nc == 0 {
		m.M = nil
		return
	}
	dok := sparse.NewDOK(nr, nc)
	if m.M != nil {
		m.M.DoNonZero(func(i, j int, v float64) {
			if i < nr && j < nc {
				dok.Set(i, j, v)
			}
		})
	}
	m.M = dok
}

func (m *MapDOK) AddValue(i, j int, v float64) error {
	if i < 0 || j < 0 {
		return fmt.Errorf("%w: (%d,%d)", ErrIndexOutOfRange, i, j)
	}
	nr, nc := max(m.nr, i+1), max(m.nc, j+1)
	// the backing DOK always covers the logical extent
	m.grow(nr, nc, false)
	m.nr, m.nc = nr, nc
	m.M.Set(i, j, m.M.At(i, j)+v)
	return nil
}

// ToCSR compresses the logical extent into a CSR matrix.
func (m *MapDOK) ToCSR() *sparse.CSR {
	var (
		ia, ja []int
		data   []float64
	)
	if m.M != nil {
		m.M.DoNonZero(func(i, j int, v float64) {
			if i < m.nr && j < m.nc {
				ia = append(ia, i)
				ja = append(ja, j)
				data = append(data, v)
			}
		})
	}
	return sparse.NewCOO(max(m.nr, 1), max(m.nc, 1), ia, ja, data).ToCSR()
}
