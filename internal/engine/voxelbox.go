package engine

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/jonaspleyer/cellular-control/internal/cell"
	"github.com/jonaspleyer/cellular-control/internal/domain"
	"github.com/jonaspleyer/cellular-control/internal/integrate"
	"github.com/jonaspleyer/cellular-control/internal/vec"
)

// contribution is one neighbor-sourced force on a cell, tagged with the
// voxel it came from. Contributions are folded into the accumulator in
// ascending source order so the floating-point sum is identical no matter
// how the voxels are spread over workers.
type contribution struct {
	From  domain.PlainIndex
	Force vec.Vector
}

// auxStorage is the engine-side state kept per cell: the force accumulator,
// buffered neighbor contributions, a pending lifecycle event and the
// integrator history for position and velocity increments.
type auxStorage struct {
	Force      vec.Vector
	Contribs   []contribution
	CycleEvent bool
	PosHist    integrate.History
	VelHist    integrate.History
}

func newAuxStorage(dim int) auxStorage {
	return auxStorage{Force: vec.Zero(dim)}
}

type cellEntry struct {
	Box cell.Box
	Aux auxStorage
}

// VoxelBox wraps one voxel with the cells currently inside it, a local
// deterministic random generator and a monotonic counter for new cell
// identifiers. Invariant: every held cell maps back to this voxel under the
// domain's index function (re-established by migration each step).
type VoxelBox struct {
	Plain     domain.PlainIndex
	Voxel     domain.Voxel
	Neighbors []domain.PlainIndex
	Cells     []cellEntry

	newCells []cell.Cell
	counter  uint64
	rng      *rand.Rand
	dim      int
}

// newVoxelBox seeds the generator from the domain seed and the voxel's own
// plain index, never from wall clock or thread identity, so runs reproduce
// independent of scheduling.
func newVoxelBox(plain domain.PlainIndex, voxel domain.Voxel, neighbors []domain.PlainIndex, seed uint64, dim int) *VoxelBox {
	return &VoxelBox{
		Plain:     plain,
		Voxel:     voxel,
		Neighbors: neighbors,
		rng:       rand.New(rand.NewPCG(seed, uint64(plain))),
		dim:       dim,
	}
}

func (vb *VoxelBox) add(box cell.Box, aux auxStorage) {
	vb.Cells = append(vb.Cells, cellEntry{Box: box, Aux: aux})
}

// seed inserts an initial cell and assigns it the next identifier of this
// voxel.
func (vb *VoxelBox) seed(c cell.Cell) {
	vb.counter++
	vb.add(cell.Box{ID: cell.ID{Voxel: vb.Plain, Counter: vb.counter}, Cell: c}, newAuxStorage(vb.dim))
}

// sortCanonical orders the cell list by identifier. Migration receipt order
// depends on scheduling, so the list is re-canonicalized after every step to
// keep iteration (and thus RNG consumption) order reproducible.
func (vb *VoxelBox) sortCanonical() {
	sort.Slice(vb.Cells, func(i, j int) bool {
		return vb.Cells[i].Box.ID.Less(vb.Cells[j].Box.ID)
	})
}

// forceInternal accumulates pairwise forces between all co-located cells.
func (vb *VoxelBox) forceInternal() error {
	for n := range vb.Cells {
		for m := range vb.Cells {
			if n == m {
				continue
			}
			src := vb.Cells[n].Box.Cell
			dst := vb.Cells[m].Box.Cell
			f, ok, err := src.ComputeForce(src.Pos(), src.Vel(), dst.Pos(), dst.Vel(), dst.InteractionInfo())
			if err != nil {
				return fmt.Errorf("%w: %v", ErrNumeric, err)
			}
			if ok {
				vb.Cells[m].Aux.Force.Acc(f)
			}
		}
	}
	return nil
}

// forceCustom accumulates the voxel-intrinsic force on every cell, if this
// voxel carries a field.
func (vb *VoxelBox) forceCustom() error {
	if vb.Voxel.Field == nil {
		return nil
	}
	for i := range vb.Cells {
		f, err := vb.Voxel.CustomForce(vb.Cells[i].Box.Cell.Pos())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNumeric, err)
		}
		if f != nil {
			vb.Cells[i].Aux.Force.Acc(f)
		}
	}
	return nil
}

// forceOnExternal sums the force of all local cells on an external body.
func (vb *VoxelBox) forceOnExternal(pos, vel vec.Vector, info cell.Info) (vec.Vector, error) {
	force := vec.Zero(vb.dim)
	for i := range vb.Cells {
		c := vb.Cells[i].Box.Cell
		f, ok, err := c.ComputeForce(c.Pos(), c.Vel(), pos, vel, info)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNumeric, err)
		}
		if ok {
			force.Acc(f)
		}
	}
	return force, nil
}

// updateCycle executes divisions flagged in the previous step, then advances
// every cell's intrinsic state and flags newly signalled events. Daughters
// are adopted at the end with identifiers from this voxel's counter.
func (vb *VoxelBox) updateCycle(dt float64) error {
	for i := range vb.Cells {
		entry := &vb.Cells[i]
		if entry.Aux.CycleEvent {
			child, err := entry.Box.Cell.Divide(vb.rng)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrNumeric, err)
			}
			if child != nil {
				vb.newCells = append(vb.newCells, child)
			}
		}
		entry.Aux.CycleEvent = false

		if entry.Box.Cell.UpdateCycle(vb.rng, dt) == cell.Division {
			entry.Aux.CycleEvent = true
		}
	}

	for _, c := range vb.newCells {
		vb.counter++
		vb.add(cell.Box{ID: cell.ID{Voxel: vb.Plain, Counter: vb.counter}, Cell: c}, newAuxStorage(vb.dim))
	}
	vb.newCells = vb.newCells[:0]
	return nil
}
