package raster

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// Group is a hierarchical container in a Store. It holds named dimensions,
// variables, attributes and child groups.
type Group struct {
	store Store
	path  Path
	id    uint64

	// guards read-modify-write of .zdims and .zattrs through this handle
	lk sync.Mutex
}

func newGroup(store Store, p Path) *Group {
	return &Group{
		store: store,
		path:  p,
		id:    xxhash.Sum64String(store.URI() + "/" + p.String()),
	}
}

// CreateGroup marks path as a group in store. An existing group is left as
// is.
func CreateGroup(store Store, path string) (*Group, error) {
	g := newGroup(store, NewPath(path))
	if err := writeJSON(store, g.key(string(MTGroup)), GroupMeta{ZarrFormat: ZarrFormat}); err != nil {
		return nil, errors.Wrapf(err, "create group %q", path)
	}
	return g, nil
}

// OpenGroup opens an existing group. It fails with ErrNotFound when path
// was never created.
func OpenGroup(store Store, path string) (*Group, error) {
	g := newGroup(store, NewPath(path))
	meta := GroupMeta{}
	if err := readJSON(store, g.key(string(MTGroup)), &meta); err != nil {
		return nil, errors.Wrapf(err, "open group %q", path)
	}
	return g, nil
}

// ID identifies the group across handles. It is derived from the store URI
// and the group path.
func (g *Group) ID() uint64 { return g.id }

func (g *Group) Path() string { return g.path.String() }

func (g *Group) Store() Store { return g.store }

func (g *Group) key(elems ...string) string {
	return g.path.Join(elems...).String()
}

func (g *Group) CreateGroup(name string) (*Group, error) {
	return CreateGroup(g.store, g.key(name))
}

func (g *Group) Group(name string) (*Group, error) {
	return OpenGroup(g.store, g.key(name))
}

func (g *Group) dimensions() (Dimensions, error) {
	dims := Dimensions{}
	err := readJSON(g.store, g.key(string(MTDimensions)), &dims)
	if errors.Is(err, ErrNotFound) {
		return Dimensions{}, nil
	}
	return dims, err
}

// DefDim defines a named dimension. Redefining a dimension with the same
// length is a no-op.
func (g *Group) DefDim(name string, length int) error {
	if length < 0 {
		return errors.Errorf("dimension %q: negative length %d", name, length)
	}
	g.lk.Lock()
	defer g.lk.Unlock()

	dims, err := g.dimensions()
	if err != nil {
		return err
	}
	if l, ok := dims[name]; ok {
		if l != length {
			return errors.Wrapf(ErrDimensionConflict, "dimension %q has length %d, not %d", name, l, length)
		}
		return nil
	}
	dims[name] = length
	return writeJSON(g.store, g.key(string(MTDimensions)), dims)
}

func (g *Group) DimLen(name string) (int, error) {
	dims, err := g.dimensions()
	if err != nil {
		return 0, err
	}
	l, ok := dims[name]
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "dimension %q in group %q", name, g.Path())
	}
	return l, nil
}

// VarOption configures variable creation.
type VarOption func(*varOptions)

type varOptions struct {
	chunks     []int
	compressor *CompressionMeta
}

// WithChunks sets the chunk shape recorded for a variable.
func WithChunks(dims ...int) VarOption {
	return func(o *varOptions) {
		o.chunks = dims
	}
}

// WithCompression compresses the variable with codec at level. Level 0
// stores it raw.
func WithCompression(codec string, level int) VarOption {
	return func(o *varOptions) {
		if level > 0 {
			o.compressor = &CompressionMeta{ID: codec, Clevel: level}
		}
	}
}

// DefVar defines (or redefines) a variable whose shape is given by the named
// dimensions of this group.
func (g *Group) DefVar(name string, dtype Dtype, dims []string, opts ...VarOption) error {
	o := &varOptions{}
	for _, opt := range opts {
		opt(o)
	}

	shape := make([]int, len(dims))
	for i, d := range dims {
		l, err := g.DimLen(d)
		if err != nil {
			return errors.Wrapf(err, "define variable %q", name)
		}
		shape[i] = l
	}
	chunks := o.chunks
	if chunks == nil {
		chunks = shape
	}
	if o.compressor != nil && !validCodec(o.compressor.ID) {
		return errors.Errorf("define variable %q: unsupported compressor %q", name, o.compressor.ID)
	}

	meta := &ArrayMeta{
		ZarrFormat: ZarrFormat,
		Shape:      shape,
		Chunks:     chunks,
		Dtype:      dtype,
		Compressor: o.compressor,
		Order:      "C",
		Dimensions: dims,
	}
	return writeJSON(g.store, g.key(name, string(MTArray)), meta)
}

func (g *Group) VarMeta(name string) (*ArrayMeta, error) {
	meta := &ArrayMeta{}
	if err := readJSON(g.store, g.key(name, string(MTArray)), meta); err != nil {
		return nil, errors.Wrapf(err, "variable %q in group %q", name, g.Path())
	}
	return meta, nil
}

// PutVarBytes writes the raw bytes of a whole variable.
func (g *Group) PutVarBytes(name string, d []byte) error {
	meta, err := g.VarMeta(name)
	if err != nil {
		return err
	}
	if want := meta.size() * meta.Dtype.ByteSize; len(d) != want {
		return errors.Wrapf(ErrShapeMismatch, "variable %q: got %d bytes, want %d", name, len(d), want)
	}
	if meta.Compressor != nil {
		if d, err = meta.Compressor.compress(d); err != nil {
			return errors.Wrapf(err, "compress variable %q", name)
		}
	}
	return g.store.Put(g.key(name, meta.chunkKey()), bytes.NewReader(d))
}

// GetVarBytes reads the raw bytes of a whole variable.
func (g *Group) GetVarBytes(name string) ([]byte, error) {
	meta, err := g.VarMeta(name)
	if err != nil {
		return nil, err
	}
	rc, err := g.store.Get(g.key(name, meta.chunkKey()))
	if err != nil {
		return nil, errors.Wrapf(err, "variable %q in group %q", name, g.Path())
	}
	defer rc.Close()
	d, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if meta.Compressor != nil {
		if d, err = meta.Compressor.decompress(d); err != nil {
			return nil, errors.Wrapf(err, "decompress variable %q", name)
		}
	}
	return d, nil
}

// WriteArray writes a whole typed variable.
func WriteArray[T Scalar](g *Group, name string, vals []T) error {
	meta, err := g.VarMeta(name)
	if err != nil {
		return err
	}
	if dt := scalarDtype[T](); meta.Dtype != dt {
		return errors.Wrapf(ErrTypeMismatch, "variable %q is %s, not %s", name, meta.Dtype, dt)
	}
	return g.PutVarBytes(name, encodeElements(vals))
}

// ReadArray reads a whole typed variable.
func ReadArray[T Scalar](g *Group, name string) ([]T, error) {
	meta, err := g.VarMeta(name)
	if err != nil {
		return nil, err
	}
	if dt := scalarDtype[T](); meta.Dtype != dt {
		return nil, errors.Wrapf(ErrTypeMismatch, "variable %q is %s, not %s", name, meta.Dtype, dt)
	}
	d, err := g.GetVarBytes(name)
	if err != nil {
		return nil, err
	}
	vals := make([]T, meta.size())
	if err := decodeElements(vals, d); err != nil {
		return nil, errors.Wrapf(err, "variable %q", name)
	}
	return vals, nil
}

// Attrs returns every attribute of the group.
func (g *Group) Attrs() (Attributes, error) {
	attrs := Attributes{}
	err := readJSON(g.store, g.key(string(MTAttributes)), &attrs)
	if errors.Is(err, ErrNotFound) {
		return Attributes{}, nil
	}
	return attrs, err
}

func (g *Group) PutAttr(name string, val interface{}) error {
	g.lk.Lock()
	defer g.lk.Unlock()
	attrs, err := g.Attrs()
	if err != nil {
		return err
	}
	attrs[name] = val
	return writeJSON(g.store, g.key(string(MTAttributes)), attrs)
}

func (g *Group) GetAttr(name string) (interface{}, error) {
	attrs, err := g.Attrs()
	if err != nil {
		return nil, err
	}
	v, ok := attrs[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "attribute %q in group %q", name, g.Path())
	}
	return v, nil
}

// GetAttrInt reads an integer attribute. JSON decodes every number as a
// float64, so the value is converted back.
func (g *Group) GetAttrInt(name string) (int, error) {
	v, err := g.GetAttr(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("attribute %q is %T, not a number", name, v)
	}
	return int(f), nil
}

func (g *Group) GetAttrString(name string) (string, error) {
	v, err := g.GetAttr(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("attribute %q is %T, not a string", name, v)
	}
	return s, nil
}

func (g *Group) GetAttrStrings(name string) ([]string, error) {
	v, err := g.GetAttr(name)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("attribute %q is %T, not a list", name, v)
	}
	strs := make([]string, len(list))
	for i, el := range list {
		if strs[i], ok = el.(string); !ok {
			return nil, errors.Errorf("attribute %q element %d is %T, not a string", name, i, el)
		}
	}
	return strs, nil
}

func readJSON(store Store, key string, v interface{}) error {
	rc, err := store.Get(key)
	if err != nil {
		return err
	}
	defer rc.Close()
	return errors.Wrapf(json.NewDecoder(rc).Decode(v), "decode %s", key)
}

func writeJSON(store Store, key string, v interface{}) error {
	d, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Put(key, bytes.NewReader(d))
}
