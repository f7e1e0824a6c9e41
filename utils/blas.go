package utils

import "sync/atomic"

var (
	blasDisabled atomic.Bool
	blasVendor   = "gonum"
)

// BLASEnabled reports whether kernels without a pinned choice take the BLAS
// path.
func BLASEnabled() bool { return !blasDisabled.Load() }

// SetBLASEnabled switches the BLAS path on or off for the whole process.
func SetBLASEnabled(enabled bool) { blasDisabled.Store(!enabled) }

// BLASVendor names the blas64 implementation in use.
func BLASVendor() string { return blasVendor }
