package integrate

import (
	"math"
	"testing"

	"github.com/jonaspleyer/cellular-control/internal/vec"
)

func TestOrderProgression(t *testing.T) {
	var h History
	if h.Order() != 1 {
		t.Errorf("empty history order = %d, want 1", h.Order())
	}
	h.Push(vec.Vector{1})
	if h.Order() != 2 {
		t.Errorf("order after one push = %d, want 2", h.Order())
	}
	h.Push(vec.Vector{2})
	if h.Order() != 3 {
		t.Errorf("order after two pushes = %d, want 3", h.Order())
	}
	h.Push(vec.Vector{3})
	if h.Order() != 3 {
		t.Errorf("order stays 3, got %d", h.Order())
	}
	// Oldest slot is discarded, newest promoted.
	if h.Back1[0] != 3 || h.Back2[0] != 2 {
		t.Errorf("history = back1 %v, back2 %v, want 3 and 2", h.Back1, h.Back2)
	}
}

func TestStepEuler(t *testing.T) {
	var h History
	got := Step(vec.Vector{1}, vec.Vector{2}, &h, 0.5)
	if got[0] != 2 {
		t.Errorf("euler step = %v, want 2", got)
	}
}

func TestStepSecondOrder(t *testing.T) {
	h := History{Back1: vec.Vector{4}}
	// 1 + 0.5*(3/2*2 - 1/2*4) = 1.5
	got := Step(vec.Vector{1}, vec.Vector{2}, &h, 0.5)
	if math.Abs(got[0]-1.5) > 1e-12 {
		t.Errorf("second order step = %v, want 1.5", got)
	}
}

func TestStepThirdOrder(t *testing.T) {
	h := History{Back1: vec.Vector{4}, Back2: vec.Vector{6}}
	// 1 + 0.5*(23/12*2 - 16/12*4 + 5/12*6) = 1 + 0.5*(46 - 64 + 30)/12 = 1.5
	got := Step(vec.Vector{1}, vec.Vector{2}, &h, 0.5)
	if math.Abs(got[0]-1.5) > 1e-12 {
		t.Errorf("third order step = %v, want 1.5", got)
	}
}

// Adams-Bashforth of every order integrates a constant derivative exactly,
// since the coefficients of each scheme sum to one.
func TestStepConstantDerivativeExact(t *testing.T) {
	var h History
	value := vec.Vector{0}
	inc := vec.Vector{3}
	dt := 0.25
	for step := 1; step <= 10; step++ {
		value = Step(value, inc, &h, dt)
		h.Push(inc)
		want := 3 * dt * float64(step)
		if math.Abs(value[0]-want) > 1e-12 {
			t.Fatalf("step %d: value = %f, want %f", step, value[0], want)
		}
	}
}

// Accuracy check against x' = x with x(0)=1: the multi-step scheme must beat
// plain Euler at the same dt once history is available.
func TestStepMoreAccurateThanEuler(t *testing.T) {
	dt := 1.0 / 128
	steps := 128

	var h History
	multi := vec.Vector{1}
	for i := 0; i < steps; i++ {
		inc := multi.Clone()
		multi = Step(multi, inc, &h, dt)
		h.Push(inc)
	}

	euler := vec.Vector{1}
	for i := 0; i < steps; i++ {
		var fresh History
		euler = Step(euler, euler.Clone(), &fresh, dt)
	}

	exact := math.Exp(1)
	errMulti := math.Abs(multi[0] - exact)
	errEuler := math.Abs(euler[0] - exact)
	if errMulti >= errEuler {
		t.Errorf("multi-step error %e not smaller than euler error %e", errMulti, errEuler)
	}
	if errMulti > 1e-3 {
		t.Errorf("multi-step error %e too large for dt=%f", errMulti, dt)
	}
}
