package geom

import "math"

// Axis indices into a Vector.
const (
	X = 0
	Y = 1
	Z = 2
)

// Vector is a 3D vector in world (voxel) units. It is a plain value: every
// operation returns a new Vector and never allocates.
type Vector [3]float64

func NewVector(x, y, z float64) Vector {
	return Vector{x, y, z}
}

func (v Vector) X() float64 { return v[X] }
func (v Vector) Y() float64 { return v[Y] }
func (v Vector) Z() float64 { return v[Z] }

func (v Vector) IsZero() bool { return v[X] == 0 && v[Y] == 0 && v[Z] == 0 }

func (v Vector) Add(o Vector) Vector {
	return Vector{v[X] + o[X], v[Y] + o[Y], v[Z] + o[Z]}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{v[X] - o[X], v[Y] - o[Y], v[Z] - o[Z]}
}

func (v Vector) Mul(k float64) Vector {
	return Vector{v[X] * k, v[Y] * k, v[Z] * k}
}

// ScaleAndAdd returns v + o*k.
func (v Vector) ScaleAndAdd(o Vector, k float64) Vector {
	return Vector{v[X] + o[X]*k, v[Y] + o[Y]*k, v[Z] + o[Z]*k}
}

func (v Vector) Dot(o Vector) float64 {
	return v[X]*o[X] + v[Y]*o[Y] + v[Z]*o[Z]
}

func (v Vector) SquaredMagnitude() float64 {
	return v.Dot(v)
}

func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.SquaredMagnitude())
}

// Scale returns v resized to length k. Near-zero vectors are returned as-is.
func (v Vector) Scale(k float64) Vector {
	if mag := v.Magnitude(); mag > 1e-6 {
		return v.Mul(k / mag)
	}
	return v
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func Distance(from, to Vector) float64 {
	return from.Sub(to).Magnitude()
}
