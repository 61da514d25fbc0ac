package raster

import "strings"

type MetaType string

const (
	// MTAttributes stores userland metadata of a group
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on a variable
	MTArray MetaType = ".zarray"
	// MTGroup is the key marking a group
	MTGroup MetaType = ".zgroup"
	// MTDimensions stores the named dimensions defined in a group
	MTDimensions MetaType = ".zdims"
)

// ZarrFormat is the zarr format version written to every
// metadata document.
const ZarrFormat = 2

// Attributes holds group attributes. Values are strings, integers or
// string lists.
type Attributes map[string]interface{}

// Dimensions maps dimension names to lengths.
type Dimensions map[string]int

// GroupMeta is the document stored under a group's .zgroup key.
type GroupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// ArrayMeta is the document stored under a variable's .zarray key.
type ArrayMeta struct {
	ZarrFormat int `json:"zarr_format"`
	// Length of each dimension of the variable.
	Shape []int `json:"shape"`
	// Length of each dimension of a chunk. Variables written by this
	// package are stored as a single chunk.
	Chunks []int `json:"chunks"`
	Dtype  Dtype `json:"dtype"`
	// Compressor is null when the chunk is stored raw.
	Compressor *CompressionMeta `json:"compressor"`
	// Either "C" or "F". Always "C" (row-major) here.
	Order string `json:"order"`
	// Names of the group dimensions the shape was resolved from.
	Dimensions []string `json:"dimensions,omitempty"`
}

// chunkKey is the zarr key of the single chunk that holds a whole variable:
// "0" joined by "." once per dimension.
func (a *ArrayMeta) chunkKey() string {
	if len(a.Shape) == 0 {
		return "0"
	}
	return strings.TrimSuffix(strings.Repeat("0.", len(a.Shape)), ".")
}

func (a *ArrayMeta) size() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}
