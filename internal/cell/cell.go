// Package cell defines the capability set a simulated entity has to supply
// to the engine. The engine prescribes no force law, growth model or
// reaction kinetics; it only routes positions, forces and lifecycle events
// between implementations of these interfaces.
package cell

import (
	"fmt"
	"math/rand/v2"

	"github.com/jonaspleyer/cellular-control/internal/domain"
	"github.com/jonaspleyer/cellular-control/internal/vec"
)

// Info is the copyable auxiliary interaction payload a cell exposes to
// others, e.g. its radius. It travels inside position messages and must not
// reference the owning cell.
type Info any

// Event signals a lifecycle transition observed during an intrinsic update.
type Event int

const (
	NoEvent Event = iota
	// Division requests that the cell divides at the next intrinsic
	// update.
	Division
)

// Cell is the full capability set the engine requires from an entity.
type Cell interface {
	Pos() vec.Vector
	Vel() vec.Vector
	SetPos(pos vec.Vector)
	SetVel(vel vec.Vector)

	// InteractionInfo returns the payload shipped to interaction
	// partners alongside this cell's position.
	InteractionInfo() Info

	// ComputeForce evaluates the force this cell exerts on a body at
	// otherPos. The boolean is false when the other body is outside
	// interaction range and no force applies.
	ComputeForce(ownPos, ownVel, otherPos, otherVel vec.Vector, otherInfo Info) (vec.Vector, bool, error)

	// ComputeIncrement turns the accumulated force into position and
	// velocity increments for one time step.
	ComputeIncrement(force vec.Vector) (dx, dv vec.Vector, err error)

	// UpdateCycle advances intrinsic state (growth, cycle progression)
	// by dt and reports any lifecycle event.
	UpdateCycle(rng *rand.Rand, dt float64) Event

	// Divide splits the cell, mutating the receiver into one daughter
	// and returning the other. A nil cell with nil error means the
	// division was aborted.
	Divide(rng *rand.Rand) (Cell, error)
}

// ID identifies a cell uniquely and reproducibly: the PlainIndex of the
// voxel that created it paired with that voxel's monotonic counter value.
// It is independent of thread interleaving.
type ID struct {
	Voxel   domain.PlainIndex
	Counter uint64
}

func (id ID) String() string {
	return fmt.Sprintf("%d.%d", id.Voxel, id.Counter)
}

// Less orders IDs by (voxel, counter). Used to keep per-voxel cell lists in
// a canonical order regardless of migration arrival order.
func (id ID) Less(other ID) bool {
	if id.Voxel != other.Voxel {
		return id.Voxel < other.Voxel
	}
	return id.Counter < other.Counter
}

// Box pairs a cell with its identifier.
type Box struct {
	ID   ID
	Cell Cell
}
