package physics

import "fmt"

// Handle refers to a body in a World. The zero Handle never refers to a
// body, and a handle stops resolving once its body is removed even if the
// slot is later reused.
type Handle struct {
	index      uint32
	generation uint32
}

func (h Handle) IsZero() bool {
	return h.generation == 0
}

// ID is the slot index, unique among live bodies.
func (h Handle) ID() uint32 {
	return h.index
}

func (h Handle) String() string {
	return fmt.Sprintf("body(%d#%d)", h.index, h.generation)
}

type slot struct {
	body       *RigidBody
	generation uint32
	// removing is set when removal was requested mid-tick
	removing bool
}

// arena stores bodies in reusable slots and remembers insertion order.
type arena struct {
	slots []slot
	free  []uint32
	order []Handle
}

func (a *arena) insert(body *RigidBody) Handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}

	s := &a.slots[index]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.body = body
	s.removing = false

	handle := Handle{index: index, generation: s.generation}
	a.order = append(a.order, handle)
	return handle
}

func (a *arena) lookup(h Handle) *slot {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if s.body == nil || s.generation != h.generation {
		return nil
	}
	return s
}

func (a *arena) get(h Handle) *RigidBody {
	s := a.lookup(h)
	if s == nil {
		return nil
	}
	return s.body
}

func (a *arena) remove(h Handle) bool {
	s := a.lookup(h)
	if s == nil {
		return false
	}

	s.body = nil
	s.removing = false
	s.generation++
	a.free = append(a.free, h.index)

	for i, other := range a.order {
		if other == h {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

func (a *arena) len() int {
	return len(a.order)
}
