// Package integrate advances positions and velocities with explicit linear
// multi-step schemes (Adams-Bashforth family), degrading gracefully to lower
// orders while an entity has not yet accumulated enough increment history.
package integrate

import "github.com/jonaspleyer/cellular-control/internal/vec"

// History is a two-slot ring of previous increments for one quantity.
// Pushing a new increment promotes Back1 into Back2 and discards the oldest
// slot, so after two steps the third-order scheme becomes available.
type History struct {
	Back1 vec.Vector
	Back2 vec.Vector
}

func (h *History) Push(inc vec.Vector) {
	h.Back2 = h.Back1
	h.Back1 = inc
}

// Order reports which scheme Step will use given the current history.
func (h *History) Order() int {
	switch {
	case h.Back1 != nil && h.Back2 != nil:
		return 3
	case h.Back1 != nil:
		return 2
	default:
		return 1
	}
}

// Adams-Bashforth coefficients. The schemes assume a fixed dt between
// consecutive evaluations; a changing dt invalidates the higher orders.
const (
	ab3c0 = 23.0 / 12.0
	ab3c1 = -16.0 / 12.0
	ab3c2 = 5.0 / 12.0
	ab2c0 = 3.0 / 2.0
	ab2c1 = -1.0 / 2.0
)

// Step advances value by the most accurate scheme the history allows:
//
//	order 3:  value + dt*(23/12*inc - 16/12*back1 + 5/12*back2)
//	order 2:  value + dt*(3/2*inc - 1/2*back1)
//	order 1:  value + dt*inc
//
// The caller records inc into the history afterwards via History.Push.
func Step(value, inc vec.Vector, h *History, dt float64) vec.Vector {
	switch h.Order() {
	case 3:
		out := value.AddScaled(inc, ab3c0*dt)
		out = out.AddScaled(h.Back1, ab3c1*dt)
		return out.AddScaled(h.Back2, ab3c2*dt)
	case 2:
		out := value.AddScaled(inc, ab2c0*dt)
		return out.AddScaled(h.Back1, ab2c1*dt)
	default:
		return value.AddScaled(inc, dt)
	}
}
