package physics

import "math"

// applyFluidForces samples the column of voxels under the body's minimum
// corner and applies buoyancy proportional to the submerged share of the
// box. Fluid is assumed to be settled, so only that one column is checked
// and only from the bottom up.
func (w *World) applyFluidForces(b *RigidBody) {
	box := b.AABB
	top := box.Max()
	cx := int(math.Floor(box.Base[0]))
	cz := int(math.Floor(box.Base[2]))
	y0 := int(math.Floor(box.Base[1]))
	y1 := int(math.Floor(top[1]))

	if !w.isFluid(cx, y0, cz) {
		b.InFluid = false
		b.RatioInFluid = 0
		return
	}

	submerged := 1
	for cy := y0 + 1; cy <= y1 && w.isFluid(cx, cy, cz); cy++ {
		submerged++
	}

	b.InFluid = true
	b.RatioInFluid = submersion(float64(y0+submerged), box.Base[1], box.Extent[1])

	// applying buoyancy keeps submerged bodies awake
	displaced := box.Volume() * b.RatioInFluid
	b.ApplyForce(w.opts.Gravity.Mul(-w.opts.FluidDensity * displaced))
}

// submersion is the share of a box of the given height starting at base
// that lies below level, clamped to [0, 1].
func submersion(level, base, height float64) float64 {
	if height <= 0 {
		return 1
	}
	return math.Min(math.Max((level-base)/height, 0), 1)
}
