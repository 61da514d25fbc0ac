package raster

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Dtype is a numpy array-protocol type string ("typestr"), the encoding
// zarr uses for element types. It has three parts:
//   - one byte order character: "<" little-endian, ">" big-endian,
//     "|" not relevant
//   - one basic type character (see BasicType)
//   - the number of bytes per element
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

// Dtypes used by the region layout and the supported element types.
var (
	DtypeInt32   = Dtype{BOLittleEndian, BTInteger, 4}
	DtypeFloat32 = Dtype{BOLittleEndian, BTFloatingPoint, 4}
	DtypeFloat64 = Dtype{BOLittleEndian, BTFloatingPoint, 8}
	DtypeUint8   = Dtype{BONotRelevant, BTUnsigned, 1}
	DtypeUint64  = Dtype{BOLittleEndian, BTUnsigned, 8}
)

func ParseDtype(s string) (dt Dtype, err error) {
	// python zarr html-escapes the byte order in some JSON documents
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	if dt.ByteOrder, err = ParseByteOrder(rune(s[0])); err != nil {
		return dt, err
	}
	if dt.BasicType, err = ParseBasicType(rune(s[1])); err != nil {
		return dt, err
	}

	size, err := strconv.ParseInt(s[2:], 10, 0)
	if err != nil {
		return dt, errors.Wrapf(err, "invalid Dtype size in %q", s)
	}
	dt.ByteSize = int(size)
	return dt, nil
}

func (dt Dtype) String() string {
	return fmt.Sprintf("%s%s%d", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize)
}

// Order returns the binary byte order elements of this type are stored in.
func (dt Dtype) Order() binary.ByteOrder {
	if dt.ByteOrder == BOBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := supportedBasicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return supportedBasicTypes[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
)

var supportedBasicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
}

// Element is the set of Go types a raster variable can hold: int, float,
// double and byte.
type Element interface {
	int32 | float32 | float64 | uint8
}

// Scalar adds the unsigned 64-bit integers of the region tables to Element.
type Scalar interface {
	int32 | float32 | float64 | uint8 | uint64
}

// DtypeOf returns the Dtype that stores elements of type T.
func DtypeOf[T Element]() Dtype {
	return scalarDtype[T]()
}

func scalarDtype[T Scalar]() Dtype {
	var zero T
	switch any(zero).(type) {
	case int32:
		return DtypeInt32
	case float32:
		return DtypeFloat32
	case float64:
		return DtypeFloat64
	case uint64:
		return DtypeUint64
	default:
		return DtypeUint8
	}
}

// encodeElements serializes vals in the byte order of their Dtype.
func encodeElements[T Scalar](vals []T) []byte {
	dt := scalarDtype[T]()
	buf := bytes.NewBuffer(make([]byte, 0, len(vals)*dt.ByteSize))
	// writes to a bytes.Buffer cannot fail
	_ = binary.Write(buf, dt.Order(), vals)
	return buf.Bytes()
}

// decodeElements fills dst from d, which must hold exactly len(dst) elements.
func decodeElements[T Scalar](dst []T, d []byte) error {
	dt := scalarDtype[T]()
	if len(d) != len(dst)*dt.ByteSize {
		return errors.Wrapf(ErrShapeMismatch, "payload holds %d bytes, want %d", len(d), len(dst)*dt.ByteSize)
	}
	return binary.Read(bytes.NewReader(d), dt.Order(), dst)
}
