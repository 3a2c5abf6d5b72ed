package engine

import (
	"errors"
	"fmt"

	"github.com/jonaspleyer/cellular-control/internal/cell"
)

// Failure categories for a run. Setup errors are returned before any worker
// starts; everything below aborts the whole run, since partitions cannot
// make independent progress once one of them stops arriving at barriers.
var (
	// ErrNumeric indicates a failed force or increment computation.
	ErrNumeric = errors.New("engine: numeric failure in force or increment computation")

	// ErrBoundary indicates an entity outside the domain even after
	// reflection.
	ErrBoundary = errors.New("engine: boundary violation")

	// ErrLookup indicates a voxel index missing from the owned or
	// neighbor maps, i.e. a broken decomposition or migration invariant.
	ErrLookup = errors.New("engine: voxel lookup failed")

	// ErrClosed indicates a send to a partition whose mailbox has
	// terminated.
	ErrClosed = errors.New("engine: peer mailbox closed")

	// ErrBarrier indicates the shared barrier was broken by a failed
	// worker.
	ErrBarrier = errors.New("engine: barrier broken")
)

// RunError aggregates what failed, where, and for which entity if known.
type RunError struct {
	Partition int
	Step      int
	Cell      cell.ID
	HasCell   bool
	Wrapped   error
}

func (e *RunError) Error() string {
	if e.HasCell {
		return fmt.Sprintf("partition %d step %d cell %s: %v", e.Partition, e.Step, e.Cell, e.Wrapped)
	}
	return fmt.Sprintf("partition %d step %d: %v", e.Partition, e.Step, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
