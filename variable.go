package raster

import (
	"github.com/pkg/errors"
)

// Attributes recorded on every variable group.
const (
	attrNDims = "_ndims_"
	attrXType = "_xtype_"
	attrDims  = "_dims_"
)

// Variable is a chunked raster variable: a group below a root group whose
// dimensions it shares.
type Variable struct {
	s     *Session
	g     *Group
	name  string
	dtype Dtype
	dims  []string
	shape []int
}

func elementDtype(dt Dtype) bool {
	switch dt {
	case DtypeInt32, DtypeFloat32, DtypeFloat64, DtypeUint8:
		return true
	}
	return false
}

func resolveShape(root *Group, dims []string) ([]int, error) {
	shape := make([]int, len(dims))
	for i, d := range dims {
		l, err := root.DimLen(d)
		if err != nil {
			return nil, err
		}
		shape[i] = l
	}
	return shape, checkRank(shape)
}

// DefVar defines variable name in root. dims name dimensions already defined
// in root; the last two are the spatial ones the chunking mask covers.
func (s *Session) DefVar(root *Group, name string, dtype Dtype, dims []string) (*Variable, error) {
	if !elementDtype(dtype) {
		return nil, errors.Wrapf(ErrTypeMismatch, "variable %q: unsupported element type %s", name, dtype)
	}
	shape, err := resolveShape(root, dims)
	if err != nil {
		return nil, errors.Wrapf(err, "define variable %q", name)
	}
	g, err := root.CreateGroup(name)
	if err != nil {
		return nil, err
	}
	if err := g.PutAttr(attrNDims, len(dims)); err != nil {
		return nil, err
	}
	if err := g.PutAttr(attrXType, dtype.String()); err != nil {
		return nil, err
	}
	if err := g.PutAttr(attrDims, dims); err != nil {
		return nil, err
	}
	return &Variable{s: s, g: g, name: name, dtype: dtype, dims: dims, shape: shape}, nil
}

// OpenVar opens a variable previously defined in root.
func (s *Session) OpenVar(root *Group, name string) (*Variable, error) {
	g, err := root.Group(name)
	if err != nil {
		return nil, err
	}
	ndims, err := g.GetAttrInt(attrNDims)
	if err != nil {
		return nil, errors.Wrapf(err, "open variable %q", name)
	}
	xtype, err := g.GetAttrString(attrXType)
	if err != nil {
		return nil, errors.Wrapf(err, "open variable %q", name)
	}
	dtype, err := ParseDtype(xtype)
	if err != nil {
		return nil, errors.Wrapf(err, "open variable %q", name)
	}
	dims, err := g.GetAttrStrings(attrDims)
	if err != nil {
		return nil, errors.Wrapf(err, "open variable %q", name)
	}
	if len(dims) != ndims {
		return nil, errors.Errorf("open variable %q: %d dimension names for rank %d", name, len(dims), ndims)
	}
	shape, err := resolveShape(root, dims)
	if err != nil {
		return nil, errors.Wrapf(err, "open variable %q", name)
	}
	return &Variable{s: s, g: g, name: name, dtype: dtype, dims: dims, shape: shape}, nil
}

func (v *Variable) Name() string { return v.name }

func (v *Variable) Dtype() Dtype { return v.dtype }

func (v *Variable) Dims() []string { return append([]string(nil), v.dims...) }

func (v *Variable) Shape() []int { return append([]int(nil), v.shape...) }

func (v *Variable) Group() *Group { return v.g }

func (v *Variable) Size() int { return product(v.shape) }

// DefChunking partitions the variable with mask, one category per cell of
// its two spatial dimensions.
func (v *Variable) DefChunking(mask []int32) error {
	return v.s.BuildIndex(v.g, v.shape, mask)
}

// MaskIDs returns the categories of the variable's chunking.
func (v *Variable) MaskIDs() ([]int, error) {
	return v.s.MaskIDs(v.g)
}

func checkElement[T Element](v *Variable) error {
	if dt := DtypeOf[T](); dt != v.dtype {
		return errors.Wrapf(ErrTypeMismatch, "variable %q is %s, not %s", v.name, v.dtype, dt)
	}
	return nil
}

// PutVar writes the whole variable.
func PutVar[T Element](v *Variable, data []T) error {
	if err := checkElement[T](v); err != nil {
		return err
	}
	return WriteVar(v.s, v.g, data, v.shape)
}

// GetVar reads the whole variable.
func GetVar[T Element](v *Variable) ([]T, error) {
	if err := checkElement[T](v); err != nil {
		return nil, err
	}
	dst := make([]T, v.Size())
	if err := ReadVar(v.s, v.g, dst, v.shape); err != nil {
		return nil, err
	}
	return dst, nil
}

// GetRegion reads the cells of category maskID together with the mixed
// chunks overlapping it. Every other cell is zero.
func GetRegion[T Element](v *Variable, maskID int) ([]T, error) {
	if err := checkElement[T](v); err != nil {
		return nil, err
	}
	dst := make([]T, v.Size())
	if err := ReadRegion(v.s, v.g, maskID, dst, v.shape, true); err != nil {
		return nil, err
	}
	return dst, nil
}
