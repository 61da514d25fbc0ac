package raster

import "github.com/pkg/errors"

var (
	// ErrNotFound reports a missing key, group, dimension, variable or
	// category. Reads of an absent category return it without touching the
	// destination buffer.
	ErrNotFound = errors.New("not found")
	// ErrOutOfRange reports a chunk whose start+extent leaves the parent
	// shape. It always means the index and the buffer disagree.
	ErrOutOfRange = errors.New("index out of range")
	// ErrUnsupportedRank reports a variable that is not 2, 3 or 4 dimensional.
	ErrUnsupportedRank = errors.New("unsupported rank")

	ErrShapeMismatch     = errors.New("buffer length does not match shape")
	ErrTypeMismatch      = errors.New("element type does not match variable")
	ErrInvalidTable      = errors.New("invalid region table")
	ErrDimensionConflict = errors.New("dimension already defined with a different length")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Status codes returned by Status. Zero is success; the negative values
// follow the netCDF convention of negative error codes.
const (
	StatusOK              = 0
	StatusInvalid         = -36
	StatusOutOfRange      = -40
	StatusUnsupportedRank = -45
	StatusNotFound        = -49
	StatusBackend         = -101
)

// Status maps an error returned by this package to a backend-style status
// code.
func Status(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrOutOfRange):
		return StatusOutOfRange
	case errors.Is(err, ErrUnsupportedRank):
		return StatusUnsupportedRank
	case errors.Is(err, ErrShapeMismatch),
		errors.Is(err, ErrTypeMismatch),
		errors.Is(err, ErrInvalidTable),
		errors.Is(err, ErrDimensionConflict),
		errors.Is(err, ErrInvalidConfig):
		return StatusInvalid
	default:
		return StatusBackend
	}
}
