package metrics

import (
	"math"
	"testing"

	"github.com/jonaspleyer/cellular-control/internal/cell"
	"github.com/jonaspleyer/cellular-control/internal/models"
	"github.com/jonaspleyer/cellular-control/internal/vec"
)

func boxesWithVelocities(vels ...vec.Vector) []cell.Box {
	params := models.SphereParams{Mass: 1, Sigma: 0.5, Bound: 0.1, Cutoff: 1}
	out := make([]cell.Box, 0, len(vels))
	for i, v := range vels {
		out = append(out, cell.Box{
			ID:   cell.ID{Voxel: 0, Counter: uint64(i + 1)},
			Cell: models.NewSphere(vec.Vector{0, 0}, v, params),
		})
	}
	return out
}

func TestPopulationAggregatesPartitions(t *testing.T) {
	p := NewPopulation()

	p.OnStep(1, 0, boxesWithVelocities(vec.Vector{0, 0}, vec.Vector{0, 0}))
	p.OnStep(1, 1, boxesWithVelocities(vec.Vector{0, 0}))
	p.OnStep(2, 0, boxesWithVelocities(vec.Vector{0, 0}, vec.Vector{0, 0}))
	p.OnStep(2, 1, boxesWithVelocities(vec.Vector{0, 0}, vec.Vector{0, 0}))

	series := p.Series()
	if len(series) != 2 {
		t.Fatalf("series has %d entries, want 2", len(series))
	}
	if series[0] != 3 || series[1] != 4 {
		t.Errorf("series = %v, want [3 4]", series)
	}
	if p.Value() != 4 {
		t.Errorf("final value = %f, want 4", p.Value())
	}
}

func TestPopulationEmpty(t *testing.T) {
	p := NewPopulation()
	if len(p.Series()) != 0 || p.Value() != 0 {
		t.Error("fresh population metric must be empty")
	}
}

func TestMeanSpeed(t *testing.T) {
	m := NewMeanSpeed()

	m.OnStep(1, 0, boxesWithVelocities(vec.Vector{3, 4}))    // speed 5
	m.OnStep(1, 1, boxesWithVelocities(vec.Vector{1, 0}))    // speed 1
	m.OnStep(2, 0, boxesWithVelocities(vec.Vector{0, 2}))    // speed 2

	series := m.Series()
	if len(series) != 2 {
		t.Fatalf("series has %d entries, want 2", len(series))
	}
	if math.Abs(series[0]-3) > 1e-12 {
		t.Errorf("step 1 mean speed = %f, want 3", series[0])
	}
	if math.Abs(series[1]-2) > 1e-12 {
		t.Errorf("step 2 mean speed = %f, want 2", series[1])
	}
	if math.Abs(m.Value()-2) > 1e-12 {
		t.Errorf("final value = %f, want 2", m.Value())
	}
}

func TestMeanSpeedEmptyStep(t *testing.T) {
	m := NewMeanSpeed()
	m.OnStep(1, 0, nil)
	if len(m.Series()) != 0 {
		t.Error("a step without cells must not contribute to the series")
	}
}
