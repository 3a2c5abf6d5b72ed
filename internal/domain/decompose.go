package domain

import "fmt"

// DecompResult describes how nVoxels voxels are split into near-equal
// contiguous chunks: N chunks receive AverageLen voxels each and M chunks
// receive AverageLen-1, with N+M equal to the requested region count.
type DecompResult struct {
	N          int
	M          int
	AverageLen int
}

// Decompose solves
//
//	nVoxels = avg*n + (avg-1)*m,   n + m = nRegions
//
// for whole positive n, m. Starting from avg = ceil(nVoxels/nRegions) it
// shifts weight between the two chunk sizes until the residue vanishes.
//
// Examples:
//
//	nVoxels nRegions  result
//	10      3          1*4  +  2*3
//	225     16         1*15 + 15*14
//	225     17         4*14 + 13*13
func Decompose(nVoxels, nRegions int) (DecompResult, error) {
	if nVoxels < 1 || nRegions < 1 {
		return DecompResult{}, fmt.Errorf("decompose: need positive voxel and region counts, got %d voxels, %d regions", nVoxels, nRegions)
	}

	averageLen := nVoxels / nRegions
	if nVoxels%nRegions != 0 {
		averageLen++
	}

	residue := func(n, m, avg int) int {
		return nVoxels - avg*n - (avg-1)*m
	}

	n := nRegions
	m := 0

	for i := 0; i < nRegions; i++ {
		r := residue(n, m, averageLen)
		switch {
		case r == 0:
			return DecompResult{N: n, M: m, AverageLen: averageLen}, nil
		case r > 0:
			if n == nRegions {
				// All chunks already at the large size: grow the
				// average length and restart the search.
				averageLen++
				n = nRegions
				m = 0
			} else {
				n++
				m--
			}
		default:
			// Subtracted too much: move one chunk to the small size.
			n--
			m++
		}
	}
	return DecompResult{}, fmt.Errorf("decompose: no solution splitting %d voxels into %d regions", nVoxels, nRegions)
}
