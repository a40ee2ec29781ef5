package geom

import (
	"fmt"
	"math"
)

var ErrNegativeExtent = fmt.Errorf("aabb extent must not be negative")

// AABB is an axis-aligned box described by its minimum corner and its size
// along each axis. Zero extents are legal.
type AABB struct {
	Base   Vector
	Extent Vector
}

// NewAABB returns a box at base with the given extent.
func NewAABB(base, extent Vector) (AABB, error) {
	for axis, e := range extent {
		if e < 0 || math.IsNaN(e) {
			return AABB{}, fmt.Errorf("axis %d is %v: %w", axis, e, ErrNegativeExtent)
		}
	}
	return AABB{Base: base, Extent: extent}, nil
}

// FromBounds builds a box from its minimum and maximum corners.
func FromBounds(min, max Vector) (AABB, error) {
	return NewAABB(min, max.Sub(min))
}

func (a AABB) Max() Vector {
	return a.Base.Add(a.Extent)
}

func (a *AABB) Translate(v Vector) {
	a.Base = a.Base.Add(v)
}

func (a *AABB) SetBase(v Vector) {
	a.Base = v
}

// Clone returns an independent copy of the box.
func (a AABB) Clone() AABB {
	return AABB{Base: a.Base, Extent: a.Extent}
}

func (a AABB) Volume() float64 {
	return a.Extent[X] * a.Extent[Y] * a.Extent[Z]
}

// Intersects reports whether the open interiors of the boxes overlap, so boxes
// that only share a face do not intersect.
func (a AABB) Intersects(b AABB) bool {
	aMax, bMax := a.Max(), b.Max()
	for axis := 0; axis < 3; axis++ {
		if a.Base[axis] >= bMax[axis] || aMax[axis] <= b.Base[axis] {
			return false
		}
	}
	return true
}

// VoxelRange returns the inclusive integer voxel coordinates the box
// occupies. A face lying exactly on a voxel boundary does not claim the
// voxel beyond it.
func (a AABB) VoxelRange() (min, max [3]int) {
	top := a.Max()
	for axis := 0; axis < 3; axis++ {
		min[axis] = int(math.Floor(a.Base[axis]))
		max[axis] = int(math.Ceil(top[axis])) - 1
		if max[axis] < min[axis] {
			max[axis] = min[axis]
		}
	}
	return min, max
}

func (a AABB) String() string {
	return fmt.Sprintf("[%v..%v]", a.Base, a.Max())
}
