package raster

import "github.com/pkg/errors"

// rowMajorStrides returns the element stride of every dimension of a
// row-major ("C" order) array of the given shape.
func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func checkSlab(start, shape, extent []int) error {
	if len(shape) == 0 {
		return errors.Wrap(ErrUnsupportedRank, "zero dimensional slab")
	}
	if len(start) != len(shape) || len(extent) != len(shape) {
		return errors.Wrapf(ErrOutOfRange, "slab rank %d/%d does not match array rank %d", len(start), len(extent), len(shape))
	}
	for i := range shape {
		if start[i] < 0 || extent[i] < 0 || start[i]+extent[i] > shape[i] {
			return errors.Wrapf(ErrOutOfRange, "dimension %d: start %d + extent %d exceeds length %d", i, start[i], extent[i], shape[i])
		}
	}
	return nil
}

// copyOut copies the hyper-rectangle at start with the given extent out of
// src, a dense array of shape, into dst, a dense array of shape extent.
func copyOut[T any](dst, src []T, start, shape, extent []int) error {
	if err := checkSlab(start, shape, extent); err != nil {
		return err
	}
	if len(src) < product(shape) || len(dst) < product(extent) {
		return errors.Wrapf(ErrShapeMismatch, "copy out of %v: buffers hold %d and %d elements", shape, len(src), len(dst))
	}
	if product(extent) == 0 {
		return nil
	}
	srcStrides := rowMajorStrides(shape)
	srcOff := 0
	for i := range start {
		srcOff += start[i] * srcStrides[i]
	}
	stridedCopy(dst, src, 0, srcOff, rowMajorStrides(extent), srcStrides, extent, 0)
	return nil
}

// copyIn is the inverse of copyOut: it scatters src, a dense array of shape
// extent, into the hyper-rectangle at start of dst, a dense array of shape.
func copyIn[T any](dst, src []T, start, shape, extent []int) error {
	if err := checkSlab(start, shape, extent); err != nil {
		return err
	}
	if len(dst) < product(shape) || len(src) < product(extent) {
		return errors.Wrapf(ErrShapeMismatch, "copy into %v: buffers hold %d and %d elements", shape, len(dst), len(src))
	}
	if product(extent) == 0 {
		return nil
	}
	dstStrides := rowMajorStrides(shape)
	dstOff := 0
	for i := range start {
		dstOff += start[i] * dstStrides[i]
	}
	stridedCopy(dst, src, dstOff, 0, dstStrides, rowMajorStrides(extent), extent, 0)
	return nil
}

// stridedCopy walks extent one dimension at a time. The innermost dimension
// is contiguous in both buffers and is moved with a single copy.
func stridedCopy[T any](dst, src []T, dstOff, srcOff int, dstStrides, srcStrides, extent []int, dim int) {
	if dim == len(extent)-1 {
		copy(dst[dstOff:dstOff+extent[dim]], src[srcOff:srcOff+extent[dim]])
		return
	}
	for i := 0; i < extent[dim]; i++ {
		stridedCopy(dst, src, dstOff+i*dstStrides[dim], srcOff+i*srcStrides[dim], dstStrides, srcStrides, extent, dim+1)
	}
}
