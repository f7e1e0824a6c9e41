package utils

import (
	"fmt"
	"math"
	"runtime"
)

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	bToMb := func(b uint64) float64 {
		return float64(b) / (1 << 20)
	}
	return fmt.Sprintf("Alloc = %.1f MiB TotalAlloc = %.1f MiB Sys = %.1f MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}

// IsNaN reports whether any value held by A is NaN.
func IsNaN(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
	case Matrix:
		return IsNaN(v.Data())
	case Vector:
		return IsNaN(v.Data())
	case CMatrix:
		for _, c := range v.Data() {
			if math.IsNaN(real(c)) || math.IsNaN(imag(c)) {
				return true
			}
		}
	}
	return false
}
