package domain

import (
	"fmt"
	"slices"

	"github.com/jonaspleyer/cellular-control/internal/vec"
)

// Region is one partition's share of the grid: a contiguous chunk of the
// global voxel enumeration together with the union of its voxel bounds.
type Region struct {
	ID     int
	Min    vec.Vector
	Max    vec.Vector
	Voxels []VoxelIndex
}

// Decomposition is the setup-time result of splitting a domain into regions.
// It is consumed to construct partition runtimes and then discarded.
type Decomposition struct {
	NumRegions int
	Regions    []Region
	// Neighbors holds, per region, the sorted ids of the distinct other
	// regions owning a voxel adjacent to one of its voxels.
	Neighbors map[int][]int
	// Owner maps every voxel to the region owning it. Ownership never
	// changes after decomposition.
	Owner map[PlainIndex]int
	Seed  uint64
}

// CreatePartitions enumerates all voxels in lexicographic order, determines
// chunk sizes via Decompose and groups the enumeration into contiguous
// regions. Requesting more regions than voxels yields one region per voxel.
func (c *CartesianCuboid) CreatePartitions(nRegions int) (*Decomposition, error) {
	if nRegions < 1 {
		return nil, fmt.Errorf("domain: region count must be positive, got %d", nRegions)
	}
	total := c.TotalVoxels()
	if nRegions > total {
		nRegions = total
	}

	res, err := Decompose(total, nRegions)
	if err != nil {
		return nil, err
	}

	indices := c.AllIndices()
	dec := &Decomposition{
		NumRegions: nRegions,
		Regions:    make([]Region, 0, nRegions),
		Neighbors:  make(map[int][]int, nRegions),
		Owner:      make(map[PlainIndex]int, total),
		Seed:       c.Seed,
	}

	next := 0
	for id := 0; id < nRegions; id++ {
		size := res.AverageLen
		if id >= res.N {
			size = res.AverageLen - 1
		}
		chunk := indices[next : next+size]
		next += size

		region := Region{ID: id, Voxels: make([]VoxelIndex, 0, size)}
		for k, idx := range chunk {
			vmin, vmax := c.VoxelBounds(idx)
			if k == 0 {
				region.Min = vmin
				region.Max = vmax
			} else {
				for i := range vmin {
					region.Min[i] = min(region.Min[i], vmin[i])
					region.Max[i] = max(region.Max[i], vmax[i])
				}
			}
			region.Voxels = append(region.Voxels, idx)
			dec.Owner[c.PlainIndexOf(idx)] = id
		}
		dec.Regions = append(dec.Regions, region)
	}

	// Adjacency between distinct regions, one entry per neighbor.
	for _, region := range dec.Regions {
		seen := map[int]bool{}
		for _, idx := range region.Voxels {
			for _, nb := range c.NeighborIndices(idx) {
				owner, ok := dec.Owner[c.PlainIndexOf(nb)]
				if !ok {
					return nil, fmt.Errorf("domain: voxel %v has no owner, decomposition inconsistent", nb)
				}
				if owner != region.ID {
					seen[owner] = true
				}
			}
		}
		ids := make([]int, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		dec.Neighbors[region.ID] = ids
	}

	return dec, nil
}
