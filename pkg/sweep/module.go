// Package sweep moves axis-aligned boxes through a voxel grid, stopping them
// at the faces of solid voxels.
//
// The sweep walks the leading face of the box across voxel boundaries along
// the displacement, testing each newly entered layer of voxels. When two axes
// reach a boundary at exactly the same point the higher axis index is stepped
// first (Z, then Y, then X), so contact order is reproducible.
package sweep

import (
	"math"

	"github.com/cfoust/voxphys/pkg/geom"
)

// DefaultEpsilon is the tolerance used when converting box edges to voxel
// coordinates, so a face resting exactly on a boundary does not claim the
// voxel beyond it.
const DefaultEpsilon = 1e-10

// TestFunc reports whether the voxel at integer coordinates satisfies some
// property, usually solidity.
type TestFunc func(x, y, z int) bool

// Callback is invoked on every contact. dist is the cumulative distance
// travelled so far, axis is the axis of the face that was hit and dir the
// direction of travel along it (+1 or -1). remaining holds the displacement
// left to travel and may be modified, typically by zeroing the blocked axis.
// Returning true aborts the sweep at the contact point.
type Callback func(dist float64, axis int, dir int, remaining *geom.Vector) bool

// Sweep moves box along displacement until it has travelled the whole
// displacement or the callback stops it. Unless noTranslate is set the box is
// left at its final position. The return value is the total distance
// travelled, which is not necessarily the distance between the start and end
// points since the path may be redirected by the callback. A nil callback
// stops at the first contact.
func Sweep(isSolid TestFunc, box *geom.AABB, displacement geom.Vector, onHit Callback, noTranslate bool) float64 {
	return SweepWithEpsilon(isSolid, box, displacement, onHit, noTranslate, DefaultEpsilon)
}

// SweepWithEpsilon is Sweep with a custom edge tolerance.
func SweepWithEpsilon(isSolid TestFunc, box *geom.AABB, displacement geom.Vector, onHit Callback, noTranslate bool, epsilon float64) float64 {
	if onHit == nil {
		onHit = stopOnHit
	}

	s := sweeper{
		isSolid: isSolid,
		onHit:   onHit,
		epsilon: epsilon,
		vec:     displacement,
		base:    box.Base,
		max:     box.Max(),
	}

	dist := s.run()

	if !noTranslate {
		var offset geom.Vector
		start := box.Max()
		for i := 0; i < 3; i++ {
			if displacement[i] > 0 {
				offset[i] = s.max[i] - start[i]
			} else {
				offset[i] = s.base[i] - box.Base[i]
			}
		}
		box.Translate(offset)
	}

	return dist
}

func stopOnHit(float64, int, int, *geom.Vector) bool {
	return true
}

type sweeper struct {
	isSolid TestFunc
	onHit   Callback
	epsilon float64

	// current sweep vector and box corners
	vec  geom.Vector
	base geom.Vector
	max  geom.Vector

	// trailing edge coordinates, normalized direction and DDA state
	tr     geom.Vector
	normed geom.Vector
	tDelta geom.Vector
	tNext  geom.Vector
	ldi    [3]int
	tri    [3]int
	step   [3]int

	t          float64
	maxT       float64
	cumulative float64
}

func (s *sweeper) run() float64 {
	s.init()
	if s.maxT == 0 {
		return 0
	}

	axis := s.stepForward()
	for s.t <= s.maxT {
		if s.collides(axis) && s.handleCollision(axis) {
			return s.cumulative
		}
		axis = s.stepForward()
	}

	// reached the end of the vector unobstructed
	s.cumulative += s.maxT
	s.base = s.base.Add(s.vec)
	s.max = s.max.Add(s.vec)
	return s.cumulative
}

func (s *sweeper) init() {
	s.t = 0
	s.maxT = s.vec.Magnitude()
	if s.maxT == 0 {
		return
	}

	for i := 0; i < 3; i++ {
		positive := s.vec[i] >= 0
		lead := s.base[i]
		s.step[i] = -1
		s.tr[i] = s.max[i]
		if positive {
			lead = s.max[i]
			s.step[i] = 1
			s.tr[i] = s.base[i]
		}

		s.ldi[i] = s.leadEdgeToInt(lead, s.step[i])
		s.tri[i] = s.trailEdgeToInt(s.tr[i], s.step[i])

		s.normed[i] = s.vec[i] / s.maxT
		s.tDelta[i] = math.Abs(1 / s.normed[i])

		// distance to the nearest voxel boundary, in units of t
		dist := lead - float64(s.ldi[i])
		if positive {
			dist = float64(s.ldi[i]+1) - lead
		}
		if math.IsInf(s.tDelta[i], 1) {
			s.tNext[i] = math.Inf(1)
		} else {
			s.tNext[i] = s.tDelta[i] * dist
		}
	}
}

// stepForward advances to the next voxel boundary and returns the axis that
// was stepped. Exact ties go to the higher axis index.
func (s *sweeper) stepForward() int {
	axis := 2
	if s.tNext[0] < s.tNext[1] {
		if s.tNext[0] < s.tNext[2] {
			axis = 0
		}
	} else if s.tNext[1] < s.tNext[2] {
		axis = 1
	}

	dt := s.tNext[axis] - s.t
	s.t = s.tNext[axis]
	s.ldi[axis] += s.step[axis]
	s.tNext[axis] += s.tDelta[axis]
	for i := 0; i < 3; i++ {
		s.tr[i] += dt * s.normed[i]
		s.tri[i] = s.trailEdgeToInt(s.tr[i], s.step[i])
	}
	return axis
}

// collides checks the layer of voxels the leading face just entered on axis.
func (s *sweeper) collides(axis int) bool {
	var from, to [3]int
	for i := 0; i < 3; i++ {
		from[i] = s.tri[i]
		if i == axis {
			from[i] = s.ldi[i]
		}
		to[i] = s.ldi[i] + s.step[i]
		if (to[i]-from[i])*s.step[i] <= 0 {
			return false
		}
	}

	for x := from[0]; x != to[0]; x += s.step[0] {
		for y := from[1]; y != to[1]; y += s.step[1] {
			for z := from[2]; z != to[2]; z += s.step[2] {
				if s.isSolid(x, y, z) {
					return true
				}
			}
		}
	}
	return false
}

// handleCollision moves the box to the contact point and hands the rest of
// the displacement to the callback. It returns true when sweeping is over.
func (s *sweeper) handleCollision(axis int) bool {
	s.cumulative += s.t
	dir := s.step[axis]

	done := s.t / s.maxT
	var left geom.Vector
	for i := 0; i < 3; i++ {
		dv := s.vec[i] * done
		s.base[i] += dv
		s.max[i] += dv
		left[i] = s.vec[i] - dv
	}

	// snap the leading edge onto the voxel boundary to absorb rounding error
	if dir > 0 {
		s.max[axis] = math.Round(s.max[axis])
	} else {
		s.base[axis] = math.Round(s.base[axis])
	}

	if s.onHit(s.cumulative, axis, dir, &left) {
		return true
	}

	s.vec = left
	s.init()
	return s.maxT == 0
}

func (s *sweeper) leadEdgeToInt(coord float64, step int) int {
	return int(math.Floor(coord - float64(step)*s.epsilon))
}

func (s *sweeper) trailEdgeToInt(coord float64, step int) int {
	return int(math.Floor(coord + float64(step)*s.epsilon))
}
