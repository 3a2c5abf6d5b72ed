package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonaspleyer/cellular-control/internal/cell"
	"github.com/jonaspleyer/cellular-control/internal/domain"
)

// Recorder receives, at caller-chosen checkpoints, the iteration number and
// the full list of cells a partition currently owns. The engine assumes
// nothing about storage format or timing beyond "called after a completed
// step". Implementations must be safe for concurrent calls.
type Recorder interface {
	RecordCells(iteration int, partition int, cells []cell.Box) error
}

// Observer is notified after every completed step of every partition.
// Implementations must be safe for concurrent calls.
type Observer interface {
	OnStep(iteration int, partition int, cells []cell.Box)
}

// Settings fixes the time stepping of a run. Dt must stay constant for the
// whole run; the multi-step integrator's coefficients assume it.
type Settings struct {
	Dt    float64
	Steps int
	// SaveInterval is the checkpoint spacing for the Recorder; 0 disables
	// intermediate checkpoints (the final state is always recorded when a
	// Recorder is present).
	SaveInterval int
}

func (s Settings) validate() error {
	if s.Dt <= 0 {
		return fmt.Errorf("engine: dt must be positive, got %f", s.Dt)
	}
	if s.Steps < 1 {
		return fmt.Errorf("engine: step count must be positive, got %d", s.Steps)
	}
	if s.SaveInterval < 0 {
		return fmt.Errorf("engine: save interval must not be negative, got %d", s.SaveInterval)
	}
	return nil
}

// Runner owns the partition runtimes of one simulation and drives them, one
// goroutine per partition, for the duration of a run.
type Runner struct {
	dom       *domain.CartesianCuboid
	parts     []*Partition
	barrier   *Barrier
	observers []Observer
	log       zerolog.Logger
}

// NewRunner constructs one Partition per decomposition region, wires the
// mailboxes between them and sorts the initial cells into their voxels.
// Cells outside the domain boundaries are a setup error.
func NewRunner(dom *domain.CartesianCuboid, dec *domain.Decomposition, cells []cell.Cell, logger zerolog.Logger) (*Runner, error) {
	n := dec.NumRegions
	barrier := NewBarrier(n)

	posIn := make([]*mailbox[posInfo], n)
	forceIn := make([]*mailbox[forceInfo], n)
	cellIn := make([]*mailbox[cellTransfer], n)
	for i := 0; i < n; i++ {
		posIn[i] = newMailbox[posInfo]()
		forceIn[i] = newMailbox[forceInfo]()
		cellIn[i] = newMailbox[cellTransfer]()
	}

	parts := make([]*Partition, n)
	boxByPlain := make(map[domain.PlainIndex]*VoxelBox, dom.TotalVoxels())
	for _, region := range dec.Regions {
		p := &Partition{
			id:       region.ID,
			dom:      dom,
			voxels:   make(map[domain.PlainIndex]*VoxelBox, len(region.Voxels)),
			owner:    dec.Owner,
			posOut:   make(map[int]*mailbox[posInfo], n),
			forceOut: make(map[int]*mailbox[forceInfo], n),
			cellOut:  make(map[int]*mailbox[cellTransfer], n),
			posIn:    posIn[region.ID],
			forceIn:  forceIn[region.ID],
			cellIn:   cellIn[region.ID],
			barrier:  barrier,
			log:      logger.With().Int("partition", region.ID).Logger(),
		}
		for peer := 0; peer < n; peer++ {
			p.posOut[peer] = posIn[peer]
			p.forceOut[peer] = forceIn[peer]
			p.cellOut[peer] = cellIn[peer]
		}

		for _, idx := range region.Voxels {
			plain := dom.PlainIndexOf(idx)
			neighbors := make([]domain.PlainIndex, 0, len(dom.NeighborIndices(idx)))
			for _, nb := range dom.NeighborIndices(idx) {
				neighbors = append(neighbors, dom.PlainIndexOf(nb))
			}
			slices.Sort(neighbors)
			vb := newVoxelBox(plain, dom.MakeVoxel(idx), neighbors, dec.Seed, dom.Dim())
			p.voxels[plain] = vb
			p.order = append(p.order, plain)
			boxByPlain[plain] = vb
		}
		slices.Sort(p.order)
		parts[region.ID] = p
	}

	for _, c := range cells {
		idx, err := dom.VoxelIndexOfStrict(c.Pos())
		if err != nil {
			return nil, err
		}
		vb, ok := boxByPlain[dom.PlainIndexOf(idx)]
		if !ok {
			return nil, fmt.Errorf("%w: voxel %v missing from decomposition", ErrLookup, idx)
		}
		vb.seed(c)
	}

	return &Runner{dom: dom, parts: parts, barrier: barrier, log: logger}, nil
}

func (r *Runner) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// NumPartitions reports how many partitions were actually created.
func (r *Runner) NumPartitions() int { return len(r.parts) }

// Cells snapshots every cell in the simulation, ordered by identifier.
func (r *Runner) Cells() []cell.Box {
	var out []cell.Box
	for _, p := range r.parts {
		out = append(out, p.OwnedCells()...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

// Run executes the configured number of steps on all partitions in
// parallel. The first failure breaks the barrier, so every other worker
// unblocks and the aggregated error is returned; a run either completes
// every step fully or fails as a whole.
func (r *Runner) Run(ctx context.Context, set Settings, rec Recorder) error {
	if err := set.validate(); err != nil {
		return err
	}

	r.log.Info().
		Int("partitions", len(r.parts)).
		Int("steps", set.Steps).
		Float64("dt", set.Dt).
		Msg("starting run")

	g, ctx := errgroup.WithContext(ctx)

	// Frees barrier waiters when the first worker fails or the caller
	// cancels; without this the survivors would block forever.
	go func() {
		<-ctx.Done()
		r.barrier.Break()
	}()

	for _, p := range r.parts {
		g.Go(func() error {
			for step := 1; step <= set.Steps; step++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := p.Step(set.Dt); err != nil {
					p.log.Error().Err(err).Int("step", step).Msg("step failed")
					return &RunError{Partition: p.id, Step: step, Wrapped: err}
				}
				if len(r.observers) > 0 || rec != nil {
					cells := p.OwnedCells()
					for _, o := range r.observers {
						o.OnStep(step, p.id, cells)
					}
					if rec != nil && r.checkpoint(step, set) {
						if err := rec.RecordCells(step, p.id, cells); err != nil {
							return &RunError{Partition: p.id, Step: step, Wrapped: err}
						}
					}
				}
				p.log.Debug().Int("step", step).Int("cells", p.NumCells()).Msg("step done")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	r.log.Info().Int("cells", len(r.Cells())).Msg("run complete")
	return nil
}

func (r *Runner) checkpoint(step int, set Settings) bool {
	if step == set.Steps {
		return true
	}
	return set.SaveInterval > 0 && step%set.SaveInterval == 0
}
