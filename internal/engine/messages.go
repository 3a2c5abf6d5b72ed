package engine

import (
	"github.com/jonaspleyer/cellular-control/internal/cell"
	"github.com/jonaspleyer/cellular-control/internal/domain"
	"github.com/jonaspleyer/cellular-control/internal/vec"
)

// The message protocol between partitions. All payloads are copies; no
// message ever carries a reference into another partition's state. Replies
// are matched by the explicit (sender voxel, slot) key, never by arrival
// order, since nothing orders messages from different senders.

// posInfo asks the partition owning TargetVoxel for the force its cells
// exert on the cell at Slot in SenderVoxel.
type posInfo struct {
	Pos  vec.Vector
	Vel  vec.Vector
	Info cell.Info
	// Slot is the cell's position in its voxel's list, stable within the
	// step because the list only changes after force integration.
	Slot        int
	SenderVoxel domain.PlainIndex
	TargetVoxel domain.PlainIndex
}

// forceInfo answers a posInfo with the aggregate force FromVoxel's cells
// exert on the asking cell.
type forceInfo struct {
	Force       vec.Vector
	Slot        int
	SenderVoxel domain.PlainIndex
	// FromVoxel identifies the replying voxel so contributions can be
	// folded in a fixed order independent of arrival order.
	FromVoxel domain.PlainIndex
}

// cellTransfer migrates a cell to the partition owning its new voxel. The
// integrator history travels along so results do not depend on where the
// partition boundaries happen to lie.
type cellTransfer struct {
	Box cell.Box
	Aux auxStorage
}
