// Package raster stores large N-dimensional gridded variables as chunks
// grouped by the categories of a 2D mask over their trailing dimensions.
//
// A mask is cut into a fixed grid, each cell is classified by the categories
// it contains, and neighbouring cells of the same class are merged. Every
// category's chunks are then written below their own group so reading one
// category only touches that category's chunks plus the mixed chunks its
// relation table points at.
//
// The array backend is a zarr style layout on top of a Store: groups,
// dimensions, variables and attributes are JSON documents next to single
// chunk payloads.
package raster

import "strings"

const (
	// Version is the current version of this library.
	Version = "0.1.0"
)

// Path is a logical, "/" separated location inside a Store.
type Path []string

// NewPath normalizes a posix style path: backslashes become forward slashes,
// and leading, trailing and repeated slashes are dropped.
func NewPath(posix string) Path {
	posix = strings.ReplaceAll(posix, "\\", "/")
	p := Path{}
	for _, el := range strings.Split(posix, "/") {
		if el != "" {
			p = append(p, el)
		}
	}
	return p
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Join returns a new path; p is never modified.
func (p Path) Join(elems ...string) Path {
	j := make(Path, 0, len(p)+len(elems))
	j = append(j, p...)
	return append(j, elems...)
}
