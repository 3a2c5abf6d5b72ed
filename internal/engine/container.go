package engine

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/jonaspleyer/cellular-control/internal/cell"
	"github.com/jonaspleyer/cellular-control/internal/domain"
	"github.com/jonaspleyer/cellular-control/internal/integrate"
)

// Partition owns a disjoint shard of voxels and the cells inside them, and
// drives the per-step protocol. No partition ever touches another's voxels;
// all cross-partition interaction goes through the mailboxes, synchronized
// by the shared barrier.
type Partition struct {
	id  int
	dom *domain.CartesianCuboid

	voxels map[domain.PlainIndex]*VoxelBox
	// order is the sorted key list of voxels; Go maps iterate in random
	// order, which would leak scheduling noise into float accumulation.
	order []domain.PlainIndex

	// owner maps every voxel of the whole domain to its partition id.
	owner map[domain.PlainIndex]int

	posOut   map[int]*mailbox[posInfo]
	forceOut map[int]*mailbox[forceInfo]
	cellOut  map[int]*mailbox[cellTransfer]

	posIn   *mailbox[posInfo]
	forceIn *mailbox[forceInfo]
	cellIn  *mailbox[cellTransfer]

	barrier *Barrier
	log     zerolog.Logger
}

func (p *Partition) ID() int { return p.id }

// NumCells counts the cells currently owned by this partition.
func (p *Partition) NumCells() int {
	n := 0
	for _, plain := range p.order {
		n += len(p.voxels[plain].Cells)
	}
	return n
}

// OwnedCells snapshots all owned cells in canonical voxel order.
func (p *Partition) OwnedCells() []cell.Box {
	out := make([]cell.Box, 0, p.NumCells())
	for _, plain := range p.order {
		for _, entry := range p.voxels[plain].Cells {
			out = append(out, entry.Box)
		}
	}
	return out
}

// Step executes one full simulation step. Any error is fatal for the run:
// the caller must break the barrier so peers do not deadlock.
func (p *Partition) Step(dt float64) error {
	if err := p.accumulateLocalForces(); err != nil {
		return err
	}
	if err := p.requestNeighborForces(); err != nil {
		return err
	}
	// Barrier A: every partition has finished sending position messages.
	if err := p.barrier.Wait(); err != nil {
		return err
	}
	if err := p.replyForces(); err != nil {
		return err
	}
	// Barrier B: every force reply has been sent.
	if err := p.barrier.Wait(); err != nil {
		return err
	}
	if err := p.integrateForces(); err != nil {
		return err
	}
	if err := p.updateMechanics(dt); err != nil {
		return err
	}
	if err := p.updateCells(dt); err != nil {
		return err
	}
	if err := p.migrateCells(); err != nil {
		return err
	}
	// Barrier C: every cell transfer is in flight.
	if err := p.barrier.Wait(); err != nil {
		return err
	}
	if err := p.receiveCells(); err != nil {
		return err
	}
	return p.applyBoundary()
}

// accumulateLocalForces covers phase 1: pairwise forces between co-located
// cells plus any voxel-intrinsic force.
func (p *Partition) accumulateLocalForces() error {
	for _, plain := range p.order {
		vb := p.voxels[plain]
		if err := vb.forceInternal(); err != nil {
			return err
		}
		if err := vb.forceCustom(); err != nil {
			return err
		}
	}
	return nil
}

// requestNeighborForces covers phase 2: neighbor voxels owned locally are
// evaluated directly, everything else becomes a position message to the
// owning partition. Local results are buffered as contributions, not added
// immediately, so that phase 6 can fold local and remote contributions in
// one deterministic order.
func (p *Partition) requestNeighborForces() error {
	for _, plain := range p.order {
		vb := p.voxels[plain]
		for slot := range vb.Cells {
			c := vb.Cells[slot].Box.Cell
			pos := c.Pos()
			vel := c.Vel()
			info := c.InteractionInfo()
			for _, nb := range vb.Neighbors {
				if nbBox, ok := p.voxels[nb]; ok {
					f, err := nbBox.forceOnExternal(pos, vel, info)
					if err != nil {
						return err
					}
					vb.Cells[slot].Aux.Contribs = append(vb.Cells[slot].Aux.Contribs, contribution{From: nb, Force: f})
					continue
				}
				target, ok := p.owner[nb]
				if !ok {
					return fmt.Errorf("%w: neighbor voxel %d has no owner", ErrLookup, nb)
				}
				msg := posInfo{
					Pos:         pos.Clone(),
					Vel:         vel.Clone(),
					Info:        info,
					Slot:        slot,
					SenderVoxel: plain,
					TargetVoxel: nb,
				}
				if err := p.posOut[target].Send(msg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// replyForces covers phase 4: drain queued position messages, evaluate the
// requested force with local cells and send it back.
func (p *Partition) replyForces() error {
	for _, msg := range p.posIn.Drain() {
		vb, ok := p.voxels[msg.TargetVoxel]
		if !ok {
			return fmt.Errorf("%w: position message for voxel %d not owned here", ErrLookup, msg.TargetVoxel)
		}
		force, err := vb.forceOnExternal(msg.Pos, msg.Vel, msg.Info)
		if err != nil {
			return err
		}
		sender, ok := p.owner[msg.SenderVoxel]
		if !ok {
			return fmt.Errorf("%w: sender voxel %d has no owner", ErrLookup, msg.SenderVoxel)
		}
		reply := forceInfo{
			Force:       force,
			Slot:        msg.Slot,
			SenderVoxel: msg.SenderVoxel,
			FromVoxel:   msg.TargetVoxel,
		}
		if err := p.forceOut[sender].Send(reply); err != nil {
			return err
		}
	}
	return nil
}

// integrateForces covers phase 6: file every reply under its (voxel, slot)
// key, then fold all buffered contributions in ascending source-voxel order.
func (p *Partition) integrateForces() error {
	for _, msg := range p.forceIn.Drain() {
		vb, ok := p.voxels[msg.SenderVoxel]
		if !ok {
			return fmt.Errorf("%w: force reply for voxel %d not owned here", ErrLookup, msg.SenderVoxel)
		}
		if msg.Slot < 0 || msg.Slot >= len(vb.Cells) {
			return fmt.Errorf("%w: force reply for voxel %d names slot %d of %d", ErrLookup, msg.SenderVoxel, msg.Slot, len(vb.Cells))
		}
		aux := &vb.Cells[msg.Slot].Aux
		aux.Contribs = append(aux.Contribs, contribution{From: msg.FromVoxel, Force: msg.Force})
	}

	for _, plain := range p.order {
		vb := p.voxels[plain]
		for i := range vb.Cells {
			aux := &vb.Cells[i].Aux
			sort.Slice(aux.Contribs, func(a, b int) bool {
				return aux.Contribs[a].From < aux.Contribs[b].From
			})
			for _, contrib := range aux.Contribs {
				aux.Force.Acc(contrib.Force)
			}
			aux.Contribs = aux.Contribs[:0]
		}
	}
	return nil
}

// updateMechanics covers phase 7: compute increments from the accumulated
// force, advance position and velocity with the multi-step integrator,
// record the increments as history and reset the accumulator.
func (p *Partition) updateMechanics(dt float64) error {
	for _, plain := range p.order {
		vb := p.voxels[plain]
		for i := range vb.Cells {
			entry := &vb.Cells[i]
			c := entry.Box.Cell
			dx, dv, err := c.ComputeIncrement(entry.Aux.Force)
			if err != nil {
				return &RunError{Partition: p.id, Cell: entry.Box.ID, HasCell: true,
					Wrapped: fmt.Errorf("%w: %v", ErrNumeric, err)}
			}
			if !dx.IsValid() || !dv.IsValid() {
				return &RunError{Partition: p.id, Cell: entry.Box.ID, HasCell: true,
					Wrapped: fmt.Errorf("%w: increment is NaN or Inf", ErrNumeric)}
			}
			c.SetPos(integrate.Step(c.Pos(), dx, &entry.Aux.PosHist, dt))
			c.SetVel(integrate.Step(c.Vel(), dv, &entry.Aux.VelHist, dt))
			entry.Aux.PosHist.Push(dx)
			entry.Aux.VelHist.Push(dv)
			for k := range entry.Aux.Force {
				entry.Aux.Force[k] = 0
			}
		}
	}
	return nil
}

// updateCells covers phase 8: intrinsic updates and divisions.
func (p *Partition) updateCells(dt float64) error {
	for _, plain := range p.order {
		if err := p.voxels[plain].updateCycle(dt); err != nil {
			return err
		}
	}
	return nil
}

// migrateCells covers phase 9: remove every cell whose recomputed voxel no
// longer matches its host and either re-insert it locally or hand it to the
// owning partition.
func (p *Partition) migrateCells() error {
	var moved []cellEntry
	for _, plain := range p.order {
		vb := p.voxels[plain]
		kept := vb.Cells[:0]
		for _, entry := range vb.Cells {
			target := p.dom.PlainIndexOf(p.dom.VoxelIndexOf(entry.Box.Cell.Pos()))
			if target == plain {
				kept = append(kept, entry)
			} else {
				moved = append(moved, entry)
			}
		}
		vb.Cells = kept
	}

	for _, entry := range moved {
		target := p.dom.PlainIndexOf(p.dom.VoxelIndexOf(entry.Box.Cell.Pos()))
		if vb, ok := p.voxels[target]; ok {
			vb.add(entry.Box, entry.Aux)
			continue
		}
		owner, ok := p.owner[target]
		if !ok {
			return fmt.Errorf("%w: migration target voxel %d has no owner", ErrLookup, target)
		}
		if err := p.cellOut[owner].Send(cellTransfer{Box: entry.Box, Aux: entry.Aux}); err != nil {
			return err
		}
	}
	return nil
}

// receiveCells covers phase 11, then restores the canonical per-voxel cell
// order so the next step is independent of arrival order.
func (p *Partition) receiveCells() error {
	for _, msg := range p.cellIn.Drain() {
		target := p.dom.PlainIndexOf(p.dom.VoxelIndexOf(msg.Box.Cell.Pos()))
		vb, ok := p.voxels[target]
		if !ok {
			return fmt.Errorf("%w: received cell %s for voxel %d not owned here", ErrLookup, msg.Box.ID, target)
		}
		vb.add(msg.Box, msg.Aux)
	}
	for _, plain := range p.order {
		p.voxels[plain].sortCanonical()
	}
	return nil
}

// applyBoundary covers phase 12: reflect every owned cell into the domain.
func (p *Partition) applyBoundary() error {
	for _, plain := range p.order {
		vb := p.voxels[plain]
		for i := range vb.Cells {
			c := vb.Cells[i].Box.Cell
			pos := c.Pos().Clone()
			vel := c.Vel().Clone()
			if err := p.dom.ApplyBoundary(pos, vel); err != nil {
				return &RunError{Partition: p.id, Cell: vb.Cells[i].Box.ID, HasCell: true,
					Wrapped: fmt.Errorf("%w: %v", ErrBoundary, err)}
			}
			c.SetPos(pos)
			c.SetVel(vel)
		}
	}
	return nil
}
