package physics

import "github.com/cfoust/voxphys/pkg/geom"

type BodySnapshot struct {
	ID           uint32      `cbor:"id" json:"id"`
	Base         geom.Vector `cbor:"base" json:"base"`
	Extent       geom.Vector `cbor:"extent" json:"extent"`
	Velocity     geom.Vector `cbor:"velocity" json:"velocity"`
	Resting      [3]int8     `cbor:"resting" json:"resting"`
	RatioInFluid float64     `cbor:"fluid" json:"fluid"`
	Asleep       bool        `cbor:"asleep" json:"asleep"`
}

// Snapshot is a copy of the world's body state at the end of a tick.
type Snapshot struct {
	Tick   uint64         `cbor:"tick" json:"tick"`
	Bodies []BodySnapshot `cbor:"bodies" json:"bodies"`
}

func (w *World) Snapshot() Snapshot {
	snapshot := Snapshot{
		Tick:   w.ticks,
		Bodies: make([]BodySnapshot, 0, w.Len()),
	}

	for _, h := range w.bodies.order {
		b := w.bodies.get(h)
		if b == nil {
			continue
		}

		snapshot.Bodies = append(snapshot.Bodies, BodySnapshot{
			ID:           h.ID(),
			Base:         b.AABB.Base,
			Extent:       b.AABB.Extent,
			Velocity:     b.Velocity,
			Resting:      b.Resting,
			RatioInFluid: b.RatioInFluid,
			Asleep:       b.asleep,
		})
	}

	return snapshot
}
