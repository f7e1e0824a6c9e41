package utils

// NODETOL is the smallest Jacobian determinant of a non degenerate cell.
const NODETOL = 1.e-12

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}
