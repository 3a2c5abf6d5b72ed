// Package models provides example cell behaviors for the engine. The engine
// itself prescribes no force law or growth model; these implementations are
// reference collaborators used by the CLI and the tests.
package models

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/jonaspleyer/cellular-control/internal/cell"
	"github.com/jonaspleyer/cellular-control/internal/vec"
)

// SphereParams configures a Sphere cell.
type SphereParams struct {
	Mass    float64
	Damping float64
	// Bounded Lennard-Jones interaction.
	Epsilon float64
	Sigma   float64
	Bound   float64
	Cutoff  float64
	// DivisionAge is the intrinsic age at which the cell divides;
	// 0 disables division.
	DivisionAge float64
}

// Sphere is a soft spherical cell with damped Newtonian mechanics, a bounded
// Lennard-Jones interaction and an age-based division cycle.
type Sphere struct {
	SphereParams
	position vec.Vector
	velocity vec.Vector
	age      float64
}

func NewSphere(pos, vel vec.Vector, params SphereParams) *Sphere {
	return &Sphere{SphereParams: params, position: pos.Clone(), velocity: vel.Clone()}
}

func (s *Sphere) Pos() vec.Vector       { return s.position }
func (s *Sphere) Vel() vec.Vector       { return s.velocity }
func (s *Sphere) SetPos(pos vec.Vector) { s.position = pos }
func (s *Sphere) SetVel(vel vec.Vector) { s.velocity = vel }

// InteractionInfo exposes the interaction radius to partners.
func (s *Sphere) InteractionInfo() cell.Info { return s.Sigma }

// ComputeForce evaluates the bounded Lennard-Jones force this sphere exerts
// on a body at otherPos, using the averaged radius when the partner supplies
// one. Positive values push the partner away. Bodies beyond the cutoff feel
// nothing.
func (s *Sphere) ComputeForce(ownPos, ownVel, otherPos, otherVel vec.Vector, otherInfo cell.Info) (vec.Vector, bool, error) {
	dir := otherPos.Sub(ownPos)
	r := dir.Norm()
	if r > s.Cutoff || r == 0 {
		return nil, false, nil
	}

	sigma := s.Sigma
	if otherSigma, ok := otherInfo.(float64); ok {
		sigma = (sigma + otherSigma) / 2
	}

	x := sigma / r
	x3 := x * x * x
	x6 := x3 * x3
	x12 := x6 * x6
	strength := 4 * s.Epsilon / r * (12*x12 - 6*x6)
	if math.IsNaN(strength) || math.IsInf(strength, 0) {
		return nil, false, fmt.Errorf("models: lennard-jones force diverged at distance %g", r)
	}
	if strength > s.Bound {
		strength = s.Bound
	}
	if strength < -s.Bound {
		strength = -s.Bound
	}

	return dir.Scale(strength / r), true, nil
}

// ComputeIncrement implements damped Newtonian mechanics:
//
//	dx/dt = v
//	dv/dt = (F - damping*v) / m
func (s *Sphere) ComputeIncrement(force vec.Vector) (vec.Vector, vec.Vector, error) {
	if s.Mass <= 0 {
		return nil, nil, fmt.Errorf("models: mass must be positive, got %g", s.Mass)
	}
	dx := s.velocity.Clone()
	dv := force.AddScaled(s.velocity, -s.Damping).Scale(1 / s.Mass)
	return dx, dv, nil
}

// UpdateCycle ages the cell and signals division once the division age is
// reached.
func (s *Sphere) UpdateCycle(rng *rand.Rand, dt float64) cell.Event {
	s.age += dt
	if s.DivisionAge > 0 && s.age >= s.DivisionAge {
		return cell.Division
	}
	return cell.NoEvent
}

// Divide splits the sphere into two daughters displaced by half a radius in
// a random direction. The receiver becomes one daughter.
func (s *Sphere) Divide(rng *rand.Rand) (cell.Cell, error) {
	dim := len(s.position)
	offset := vec.Zero(dim)
	for i := range offset {
		offset[i] = rng.Float64() - 0.5
	}
	norm := offset.Norm()
	if norm == 0 {
		offset[0] = 1
		norm = 1
	}
	offset = offset.Scale(s.Sigma / 2 / norm)

	s.age = 0
	child := &Sphere{
		SphereParams: s.SphereParams,
		position:     s.position.Add(offset),
		velocity:     s.velocity.Clone(),
	}
	s.position = s.position.Sub(offset)
	return child, nil
}

// ConstantField is a uniform voxel force field, e.g. gravity.
type ConstantField struct {
	Force vec.Vector
}

func (f *ConstantField) ForceAt(pos vec.Vector) (vec.Vector, error) {
	return f.Force, nil
}
