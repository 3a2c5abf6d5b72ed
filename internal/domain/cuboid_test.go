package domain

import (
	"testing"

	"github.com/jonaspleyer/cellular-control/internal/vec"
)

func testCuboid(t *testing.T, nVox []int) *CartesianCuboid {
	t.Helper()
	dim := len(nVox)
	min := vec.Zero(dim)
	max := vec.Zero(dim)
	for i := range max {
		max[i] = 10.0
	}
	c, err := NewCartesianCuboidFromVoxelCounts(min, max, nVox, 42)
	if err != nil {
		t.Fatalf("failed to build cuboid: %v", err)
	}
	return c
}

func TestCuboidFromInteractionRange(t *testing.T) {
	c, err := NewCartesianCuboidFromInteractionRange(
		vec.Vector{0, 0}, vec.Vector{10, 7}, 2.0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.NVox[0] != 5 || c.NVox[1] != 3 {
		t.Errorf("voxel counts = %v, want [5 3]", c.NVox)
	}
	// Each side must cover at least the interaction range.
	for i, dx := range c.Dx {
		if dx < 2.0 {
			t.Errorf("axis %d voxel side %f shorter than interaction range", i, dx)
		}
	}
}

func TestCuboidFromInteractionRangeTooLarge(t *testing.T) {
	// An interaction range larger than the domain still yields one voxel.
	c, err := NewCartesianCuboidFromInteractionRange(
		vec.Vector{0, 0}, vec.Vector{1, 1}, 5.0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.TotalVoxels() != 1 {
		t.Errorf("total voxels = %d, want 1", c.TotalVoxels())
	}
}

func TestCuboidInvalidBounds(t *testing.T) {
	if _, err := NewCartesianCuboidFromVoxelCounts(
		vec.Vector{0, 0}, vec.Vector{10}, []int{2, 2}, 0); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
	if _, err := NewCartesianCuboidFromVoxelCounts(
		vec.Vector{5, 0}, vec.Vector{5, 10}, []int{2, 2}, 0); err == nil {
		t.Error("expected error for min == max on an axis")
	}
	if _, err := NewCartesianCuboidFromVoxelCounts(
		vec.Vector{0, 0}, vec.Vector{10, 10}, []int{2, 0}, 0); err == nil {
		t.Error("expected error for zero voxel count")
	}
	if _, err := NewCartesianCuboidFromInteractionRange(
		vec.Vector{0, 0}, vec.Vector{10, 10}, -1.0, 0); err == nil {
		t.Error("expected error for negative interaction range")
	}
}

func TestPlainIndexBijection(t *testing.T) {
	c := testCuboid(t, []int{3, 4, 5})

	seen := make(map[PlainIndex]bool)
	for _, idx := range c.AllIndices() {
		plain := c.PlainIndexOf(idx)
		if seen[plain] {
			t.Fatalf("plain index %d assigned twice", plain)
		}
		seen[plain] = true
		if back := c.VoxelIndexFromPlain(plain); !back.Equal(idx) {
			t.Errorf("round trip of %v through plain %d gave %v", idx, plain, back)
		}
	}
	if len(seen) != c.TotalVoxels() {
		t.Errorf("got %d distinct plain indices, want %d", len(seen), c.TotalVoxels())
	}
	for plain := range seen {
		if int(plain) >= c.TotalVoxels() {
			t.Errorf("plain index %d not dense in [0, %d)", plain, c.TotalVoxels())
		}
	}
}

func TestAllIndicesLexicographic(t *testing.T) {
	c := testCuboid(t, []int{2, 3})
	want := []VoxelIndex{
		{0, 0}, {0, 1}, {0, 2},
		{1, 0}, {1, 1}, {1, 2},
	}
	got := c.AllIndices()
	if len(got) != len(want) {
		t.Fatalf("got %d indices, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("index %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestVoxelIndexOfClamps(t *testing.T) {
	c := testCuboid(t, []int{4, 4})

	tests := []struct {
		pos  vec.Vector
		want VoxelIndex
	}{
		{vec.Vector{1.0, 1.0}, VoxelIndex{0, 0}},
		{vec.Vector{9.9, 9.9}, VoxelIndex{3, 3}},
		{vec.Vector{-5.0, 5.0}, VoxelIndex{0, 2}},
		{vec.Vector{5.0, 42.0}, VoxelIndex{2, 3}},
	}
	for _, tt := range tests {
		if got := c.VoxelIndexOf(tt.pos); !got.Equal(tt.want) {
			t.Errorf("VoxelIndexOf(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}

	if _, err := c.VoxelIndexOfStrict(vec.Vector{-5.0, 5.0}); err == nil {
		t.Error("expected strict lookup to reject an outside position")
	}
	if _, err := c.VoxelIndexOfStrict(vec.Vector{5.0, 5.0}); err != nil {
		t.Errorf("strict lookup rejected an interior position: %v", err)
	}
}

func TestNeighborIndices(t *testing.T) {
	c := testCuboid(t, []int{3, 3})

	tests := []struct {
		idx       VoxelIndex
		wantCount int
	}{
		{VoxelIndex{1, 1}, 8}, // interior
		{VoxelIndex{0, 0}, 3}, // corner
		{VoxelIndex{0, 1}, 5}, // edge
	}
	for _, tt := range tests {
		got := c.NeighborIndices(tt.idx)
		if len(got) != tt.wantCount {
			t.Errorf("NeighborIndices(%v) has %d entries, want %d", tt.idx, len(got), tt.wantCount)
		}
		for _, nb := range got {
			if nb.Equal(tt.idx) {
				t.Errorf("NeighborIndices(%v) contains the voxel itself", tt.idx)
			}
			for k := range nb {
				if nb[k] < 0 || nb[k] >= c.NVox[k] {
					t.Errorf("neighbor %v of %v out of grid", nb, tt.idx)
				}
				if d := nb[k] - tt.idx[k]; d < -1 || d > 1 {
					t.Errorf("neighbor %v of %v is not adjacent", nb, tt.idx)
				}
			}
		}
	}
}

func TestNeighborIndices3D(t *testing.T) {
	c := testCuboid(t, []int{3, 3, 3})
	if got := c.NeighborIndices(VoxelIndex{1, 1, 1}); len(got) != 26 {
		t.Errorf("interior 3d voxel has %d neighbors, want 26", len(got))
	}
	if got := c.NeighborIndices(VoxelIndex{0, 0, 0}); len(got) != 7 {
		t.Errorf("corner 3d voxel has %d neighbors, want 7", len(got))
	}
}

func TestVoxelBounds(t *testing.T) {
	c := testCuboid(t, []int{4, 5})
	min, max := c.VoxelBounds(VoxelIndex{1, 2})
	if min[0] != 2.5 || min[1] != 4.0 {
		t.Errorf("voxel min = %v, want [2.5 4]", min)
	}
	if max[0] != 5.0 || max[1] != 6.0 {
		t.Errorf("voxel max = %v, want [5 6]", max)
	}

	v := c.MakeVoxel(VoxelIndex{1, 2})
	if v.Middle[0] != 3.75 || v.Middle[1] != 5.0 {
		t.Errorf("voxel middle = %v, want [3.75 5]", v.Middle)
	}
}

func TestApplyBoundaryReflects(t *testing.T) {
	c := testCuboid(t, []int{4, 4})

	pos := vec.Vector{-1.0, 11.0}
	vel := vec.Vector{-2.0, 3.0}
	if err := c.ApplyBoundary(pos, vel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos[0] != 1.0 || pos[1] != 9.0 {
		t.Errorf("reflected position = %v, want [1 9]", pos)
	}
	// Velocity must point back inward on reflected axes.
	if vel[0] != 2.0 {
		t.Errorf("velocity x = %f, want 2 (inward)", vel[0])
	}
	if vel[1] != -3.0 {
		t.Errorf("velocity y = %f, want -3 (inward)", vel[1])
	}
}

func TestApplyBoundaryLeavesInteriorAlone(t *testing.T) {
	c := testCuboid(t, []int{4, 4})

	pos := vec.Vector{3.0, 7.0}
	vel := vec.Vector{-1.0, 1.0}
	if err := c.ApplyBoundary(pos, vel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos[0] != 3.0 || pos[1] != 7.0 {
		t.Errorf("interior position moved to %v", pos)
	}
	if vel[0] != -1.0 || vel[1] != 1.0 {
		t.Errorf("interior velocity changed to %v", vel)
	}
}

func TestApplyBoundaryEpsilonOvershoot(t *testing.T) {
	c := testCuboid(t, []int{4, 4})

	// Exactly eps below min must come out exactly eps above min, velocity
	// turned inward. 0.25 is exact in binary so the equality is strict.
	eps := 0.25
	pos := vec.Vector{0.0 - eps, 5.0}
	vel := vec.Vector{-1.0, 0.0}
	if err := c.ApplyBoundary(pos, vel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos[0] != eps {
		t.Errorf("reflected position x = %v, want %v", pos[0], eps)
	}
	if vel[0] < 0 {
		t.Errorf("velocity x = %f, want non-negative", vel[0])
	}

	pos = vec.Vector{10.0 + eps, 5.0}
	vel = vec.Vector{1.0, 0.0}
	if err := c.ApplyBoundary(pos, vel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos[0] != 10.0-eps {
		t.Errorf("reflected position x = %v, want %v", pos[0], 10.0-eps)
	}
	if vel[0] > 0 {
		t.Errorf("velocity x = %f, want non-positive", vel[0])
	}
}

func TestApplyBoundaryFarOutside(t *testing.T) {
	c := testCuboid(t, []int{4, 4})

	// One reflection cannot bring a position this far out back inside.
	pos := vec.Vector{-25.0, 5.0}
	vel := vec.Vector{0.0, 0.0}
	if err := c.ApplyBoundary(pos, vel); err == nil {
		t.Error("expected boundary violation for far-outside position")
	}
}

func TestCustomForce(t *testing.T) {
	c := testCuboid(t, []int{2, 2})
	v := c.MakeVoxel(VoxelIndex{0, 0})
	if f, err := v.CustomForce(vec.Vector{1, 1}); err != nil || f != nil {
		t.Errorf("fieldless voxel returned force %v, err %v", f, err)
	}
}
