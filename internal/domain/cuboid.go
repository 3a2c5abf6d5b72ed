package domain

import (
	"fmt"
	"math"

	"github.com/jonaspleyer/cellular-control/internal/vec"
)

// VoxelIndex identifies one grid cell by its per-axis position.
type VoxelIndex []int

func (i VoxelIndex) Clone() VoxelIndex {
	c := make(VoxelIndex, len(i))
	copy(c, i)
	return c
}

func (i VoxelIndex) Equal(other VoxelIndex) bool {
	if len(i) != len(other) {
		return false
	}
	for k := range i {
		if i[k] != other[k] {
			return false
		}
	}
	return true
}

// PlainIndex is a dense integer alias for a VoxelIndex, assigned once at
// setup. It is bijective with VoxelIndex for the lifetime of a run and is
// the key used for all internal lookups and message routing.
type PlainIndex uint32

// ForceField is an optional per-voxel force acting on any position inside
// the voxel, e.g. a constant gravity vector or a chemical field gradient.
type ForceField interface {
	ForceAt(pos vec.Vector) (vec.Vector, error)
}

// Voxel is the smallest spatial unit. It knows its own bounds and may carry
// a ForceField exerting a position-dependent force on contained cells.
type Voxel struct {
	Index  VoxelIndex
	Min    vec.Vector
	Max    vec.Vector
	Middle vec.Vector
	Field  ForceField
}

// CustomForce evaluates the voxel-intrinsic force at pos. Returns nil when
// the voxel carries no field.
func (v *Voxel) CustomForce(pos vec.Vector) (vec.Vector, error) {
	if v.Field == nil {
		return nil, nil
	}
	return v.Field.ForceAt(pos)
}

// CartesianCuboid is a regular D-dimensional grid over [Min, Max]. It is
// read-only after construction and may be shared by every partition without
// synchronization.
type CartesianCuboid struct {
	Min   vec.Vector
	Max   vec.Vector
	Dx    vec.Vector
	NVox  []int
	Seed  uint64
	Field ForceField
}

func checkBounds(min, max vec.Vector) error {
	if len(min) == 0 || len(min) != len(max) {
		return fmt.Errorf("domain: boundary dimensions do not match: %d vs %d", len(min), len(max))
	}
	for i := range min {
		if min[i] >= max[i] {
			return fmt.Errorf("domain: min %v must be smaller than max %v on every axis", min, max)
		}
	}
	return nil
}

// NewCartesianCuboidFromInteractionRange discretizes [min, max] so that every
// voxel side is at least interactionRange long and the box divides evenly.
func NewCartesianCuboidFromInteractionRange(min, max vec.Vector, interactionRange float64, seed uint64) (*CartesianCuboid, error) {
	if err := checkBounds(min, max); err != nil {
		return nil, err
	}
	if interactionRange <= 0 {
		return nil, fmt.Errorf("domain: interaction range must be positive, got %f", interactionRange)
	}
	dim := len(min)
	nVox := make([]int, dim)
	dx := vec.Zero(dim)
	for i := 0; i < dim; i++ {
		n := int(math.Floor((max[i] - min[i]) / interactionRange))
		if n < 1 {
			n = 1
		}
		nVox[i] = n
		dx[i] = (max[i] - min[i]) / float64(n)
	}
	return &CartesianCuboid{Min: min.Clone(), Max: max.Clone(), Dx: dx, NVox: nVox, Seed: seed}, nil
}

// NewCartesianCuboidFromVoxelCounts discretizes [min, max] into an explicit
// number of voxels per axis.
func NewCartesianCuboidFromVoxelCounts(min, max vec.Vector, nVox []int, seed uint64) (*CartesianCuboid, error) {
	if err := checkBounds(min, max); err != nil {
		return nil, err
	}
	if len(nVox) != len(min) {
		return nil, fmt.Errorf("domain: voxel counts have dimension %d, boundaries %d", len(nVox), len(min))
	}
	dim := len(min)
	dx := vec.Zero(dim)
	for i := 0; i < dim; i++ {
		if nVox[i] < 1 {
			return nil, fmt.Errorf("domain: voxel count must be positive on every axis, got %v", nVox)
		}
		dx[i] = (max[i] - min[i]) / float64(nVox[i])
	}
	counts := make([]int, dim)
	copy(counts, nVox)
	return &CartesianCuboid{Min: min.Clone(), Max: max.Clone(), Dx: dx, NVox: counts, Seed: seed}, nil
}

func (c *CartesianCuboid) Dim() int { return len(c.Min) }

func (c *CartesianCuboid) TotalVoxels() int {
	total := 1
	for _, n := range c.NVox {
		total *= n
	}
	return total
}

// Contains reports whether pos lies inside [Min, Max] on every axis.
func (c *CartesianCuboid) Contains(pos vec.Vector) bool {
	for i := range pos {
		if pos[i] < c.Min[i] || pos[i] > c.Max[i] {
			return false
		}
	}
	return true
}

// VoxelIndexOf maps a position to its voxel, clamping to the boundary voxels
// on each axis. Positions slightly outside the domain (e.g. before boundary
// enforcement ran) land in the nearest edge voxel.
func (c *CartesianCuboid) VoxelIndexOf(pos vec.Vector) VoxelIndex {
	idx := make(VoxelIndex, c.Dim())
	for i := range idx {
		n := int(math.Floor((pos[i] - c.Min[i]) / c.Dx[i]))
		if n < 0 {
			n = 0
		}
		if n > c.NVox[i]-1 {
			n = c.NVox[i] - 1
		}
		idx[i] = n
	}
	return idx
}

// VoxelIndexOfStrict is VoxelIndexOf with strict containment: a position
// outside the domain is a boundary error instead of being clamped.
func (c *CartesianCuboid) VoxelIndexOfStrict(pos vec.Vector) (VoxelIndex, error) {
	if !c.Contains(pos) {
		return nil, fmt.Errorf("domain: position %v outside boundaries [%v, %v]", pos, c.Min, c.Max)
	}
	return c.VoxelIndexOf(pos), nil
}

// PlainIndexOf linearizes a voxel index in lexicographic axis order. The
// mapping is the enumeration order of AllIndices, so plain indices are dense
// in [0, TotalVoxels).
func (c *CartesianCuboid) PlainIndexOf(idx VoxelIndex) PlainIndex {
	plain := 0
	for i := 0; i < c.Dim(); i++ {
		plain = plain*c.NVox[i] + idx[i]
	}
	return PlainIndex(plain)
}

// VoxelIndexFromPlain inverts PlainIndexOf.
func (c *CartesianCuboid) VoxelIndexFromPlain(plain PlainIndex) VoxelIndex {
	idx := make(VoxelIndex, c.Dim())
	rest := int(plain)
	for i := c.Dim() - 1; i >= 0; i-- {
		idx[i] = rest % c.NVox[i]
		rest /= c.NVox[i]
	}
	return idx
}

// AllIndices enumerates every voxel index in lexicographic order over axes.
// This order is the global enumeration the decomposition chunks.
func (c *CartesianCuboid) AllIndices() []VoxelIndex {
	total := c.TotalVoxels()
	indices := make([]VoxelIndex, 0, total)
	idx := make(VoxelIndex, c.Dim())
	for {
		indices = append(indices, idx.Clone())
		axis := c.Dim() - 1
		for axis >= 0 {
			idx[axis]++
			if idx[axis] < c.NVox[axis] {
				break
			}
			idx[axis] = 0
			axis--
		}
		if axis < 0 {
			return indices
		}
	}
}

// NeighborIndices returns the Moore neighborhood of idx, clipped at the
// domain boundary and never containing idx itself.
func (c *CartesianCuboid) NeighborIndices(idx VoxelIndex) []VoxelIndex {
	dim := c.Dim()
	lo := make([]int, dim)
	hi := make([]int, dim)
	count := 1
	for i := 0; i < dim; i++ {
		lo[i] = idx[i] - 1
		if lo[i] < 0 {
			lo[i] = 0
		}
		hi[i] = idx[i] + 1
		if hi[i] > c.NVox[i]-1 {
			hi[i] = c.NVox[i] - 1
		}
		count *= hi[i] - lo[i] + 1
	}

	neighbors := make([]VoxelIndex, 0, count-1)
	cur := make(VoxelIndex, dim)
	copy(cur, lo)
	for {
		if !cur.Equal(idx) {
			neighbors = append(neighbors, cur.Clone())
		}
		axis := dim - 1
		for axis >= 0 {
			cur[axis]++
			if cur[axis] <= hi[axis] {
				break
			}
			cur[axis] = lo[axis]
			axis--
		}
		if axis < 0 {
			return neighbors
		}
	}
}

// VoxelBounds returns the geometric bounds of one voxel.
func (c *CartesianCuboid) VoxelBounds(idx VoxelIndex) (min, max vec.Vector) {
	dim := c.Dim()
	min = vec.Zero(dim)
	max = vec.Zero(dim)
	for i := 0; i < dim; i++ {
		min[i] = c.Min[i] + float64(idx[i])*c.Dx[i]
		max[i] = c.Min[i] + float64(idx[i]+1)*c.Dx[i]
	}
	return min, max
}

// MakeVoxel builds the Voxel value for one index, attaching the domain-wide
// force field if any.
func (c *CartesianCuboid) MakeVoxel(idx VoxelIndex) Voxel {
	min, max := c.VoxelBounds(idx)
	middle := vec.Zero(c.Dim())
	for i := range middle {
		middle[i] = (min[i] + max[i]) / 2
	}
	return Voxel{Index: idx.Clone(), Min: min, Max: max, Middle: middle, Field: c.Field}
}

// ApplyBoundary reflects pos into the domain and forces vel to point inward,
// in place. Interior positions are left untouched. A position still outside
// the domain after one reflection is a boundary violation.
func (c *CartesianCuboid) ApplyBoundary(pos, vel vec.Vector) error {
	for i := range pos {
		if pos[i] < c.Min[i] {
			pos[i] = 2*c.Min[i] - pos[i]
			vel[i] = math.Abs(vel[i])
		}
		if pos[i] > c.Max[i] {
			pos[i] = 2*c.Max[i] - pos[i]
			vel[i] = -math.Abs(vel[i])
		}
	}
	for i := range pos {
		if pos[i] < c.Min[i] || pos[i] > c.Max[i] {
			return fmt.Errorf("domain: position %v outside boundaries after reflection", pos)
		}
	}
	return nil
}
