package utils

// ArenaSize is the capacity, in float64 values, of each fixed arena buffer.
const ArenaSize = 8192

// Arena holds the three packing buffers used by the BLAS path of a Kernel.
// Requests above ArenaSize are served from the heap for the duration of one
// call. An Arena must not be shared between goroutines.
type Arena struct {
	bufs   [3][]float64
	spills int
}

func NewArena() *Arena {
	a := &Arena{}
	for i := range a.bufs {
		a.bufs[i] = make([]float64, ArenaSize)
	}
	return a
}

// Buffer returns a slice of length n for slot 0, 1 or 2.
func (a *Arena) Buffer(slot, n int) []float64 {
	if n > ArenaSize {
		a.spills++
		return make([]float64, n)
	}
	return a.bufs[slot][:n]
}

// Spills counts the requests that did not fit in the fixed buffers.
func (a *Arena) Spills() int { return a.spills }
