package utils

type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size <= 0 {
		return Index{}
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Add(val int) (r Index) {
	r = make(Index, len(I))
	for i, v := range I {
		r[i] = v + val
	}
	return
}

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

// Max returns the largest entry, -1 for an empty index.
func (I Index) Max() (m int) {
	m = -1
	for _, v := range I {
		if v > m {
			m = v
		}
	}
	return
}

func (I Index) Equal(J Index) bool {
	if len(I) != len(J) {
		return false
	}
	for i := range I {
		if I[i] != J[i] {
			return false
		}
	}
	return true
}
