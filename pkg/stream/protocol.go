package stream

import (
	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/physics"
)

type Op int

const (
	SnapshotOp Op = iota
	ContactOp
	CommandOp
	ResponseOp
)

type GenericMessage struct {
	Op Op `cbor:"op"`
}

type SnapshotMessage struct {
	Op       Op               `cbor:"op"`
	Snapshot physics.Snapshot `cbor:"snapshot"`
}

type Contact struct {
	Body    uint32      `cbor:"body"`
	Impulse geom.Vector `cbor:"impulse"`
	Axes    [3]int8     `cbor:"axes"`
	Stepped bool        `cbor:"stepped"`
	Bounced bool        `cbor:"bounced"`
}

type ContactMessage struct {
	Op       Op        `cbor:"op"`
	Tick     uint64    `cbor:"tick"`
	Contacts []Contact `cbor:"contacts"`
}

// Commands a client may send.
const (
	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandImpulse  = "impulse"
	CommandForce    = "force"
	CommandTeleport = "teleport"
)

type CommandMessage struct {
	Op      Op          `cbor:"op"`
	Id      int         `cbor:"id"`
	Command string      `cbor:"command"`
	Body    uint32      `cbor:"body"`
	Vector  geom.Vector `cbor:"vector"`
}

type ResponseMessage struct {
	Op       Op     `cbor:"op"`
	Id       int    `cbor:"id"`
	Success  bool   `cbor:"success"`
	Response string `cbor:"response"`
}

func contactsOf(events []physics.ContactEvent) []Contact {
	contacts := make([]Contact, len(events))
	for i, event := range events {
		contacts[i] = Contact{
			Body:    event.Body.ID(),
			Impulse: event.Impulse,
			Axes:    event.Axes,
			Stepped: event.Stepped,
			Bounced: event.Bounced,
		}
	}
	return contacts
}
