// Package volerr defines the error kinds shared by the blending pipeline.
//
// Every failure is returned wrapped around one of these sentinels so callers
// can branch with errors.Is. None of them are retryable: all operations are
// deterministic, so the caller has to supply a corrected configuration.
package volerr

import "errors"

var (
	// ErrShape reports an array dimension or length mismatch.
	ErrShape = errors.New("shape error")

	// ErrRange reports alpha or index values outside their valid domain.
	ErrRange = errors.New("range error")

	// ErrAlignment reports a non-diagonal or unreconciled affine between grids.
	ErrAlignment = errors.New("alignment error")

	// ErrType reports an input of the wrong kind assigned to a main/over slot.
	ErrType = errors.New("type error")

	// ErrConfiguration reports degenerate normalization bounds or an
	// inconsistent lookup table.
	ErrConfiguration = errors.New("configuration error")
)
