// Package metrics provides per-step observers aggregating over all
// partitions of a run.
package metrics

import (
	"sort"
	"sync"

	"github.com/jonaspleyer/cellular-control/internal/cell"
)

// Population counts cells per step across partitions.
type Population struct {
	mu     sync.Mutex
	counts map[int]int
}

func NewPopulation() *Population {
	return &Population{counts: make(map[int]int)}
}

func (p *Population) Name() string { return "population" }

func (p *Population) OnStep(iteration int, partition int, cells []cell.Box) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[iteration] += len(cells)
}

// Series returns the population per step in step order.
func (p *Population) Series() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return seriesOf(p.counts, func(v int) float64 { return float64(v) })
}

// Value returns the final population.
func (p *Population) Value() float64 {
	s := p.Series()
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// MeanSpeed tracks the mean velocity magnitude per step.
type MeanSpeed struct {
	mu     sync.Mutex
	sums   map[int]float64
	counts map[int]int
}

func NewMeanSpeed() *MeanSpeed {
	return &MeanSpeed{sums: make(map[int]float64), counts: make(map[int]int)}
}

func (m *MeanSpeed) Name() string { return "mean_speed" }

func (m *MeanSpeed) OnStep(iteration int, partition int, cells []cell.Box) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cells {
		m.sums[iteration] += c.Cell.Vel().Norm()
	}
	m.counts[iteration] += len(cells)
}

func (m *MeanSpeed) Series() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := make([]int, 0, len(m.sums))
	for step := range m.sums {
		steps = append(steps, step)
	}
	sort.Ints(steps)
	out := make([]float64, 0, len(steps))
	for _, step := range steps {
		if n := m.counts[step]; n > 0 {
			out = append(out, m.sums[step]/float64(n))
		} else {
			out = append(out, 0)
		}
	}
	return out
}

func (m *MeanSpeed) Value() float64 {
	s := m.Series()
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

func seriesOf[V any](byStep map[int]V, conv func(V) float64) []float64 {
	steps := make([]int, 0, len(byStep))
	for step := range byStep {
		steps = append(steps, step)
	}
	sort.Ints(steps)
	out := make([]float64, 0, len(steps))
	for _, step := range steps {
		out = append(out, conv(byStep[step]))
	}
	return out
}
