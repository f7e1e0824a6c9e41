package utils

import "errors"

var (
	// ErrDimensionMismatch reports operands whose shapes cannot be combined.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrSizeMismatch reports collections of unequal length.
	ErrSizeMismatch = errors.New("size mismatch")
	ErrEmptyTarget  = errors.New("target has zero size")
	// ErrNotImplemented is returned for operand combinations that have no
	// defined result, e.g. a constant space paired with itself.
	ErrNotImplemented  = errors.New("not implemented")
	ErrNotIntegrated   = errors.New("element matrix is not integrated")
	ErrNotInPattern    = errors.New("entry is not part of the sparsity pattern")
	ErrIndexOutOfRange = errors.New("index out of range")
)
