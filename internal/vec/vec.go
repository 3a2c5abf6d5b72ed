package vec

import "math"

// Vector is a point, velocity or force in D-dimensional space.
type Vector []float64

func Zero(dim int) Vector {
	return make(Vector, dim)
}

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func (v Vector) Add(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

func (v Vector) Sub(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}

func (v Vector) Scale(factor float64) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] * factor
	}
	return result
}

// Acc adds other into v in place. Used on hot accumulation paths where
// allocating a fresh slice per contribution would dominate the step cost.
func (v Vector) Acc(other Vector) {
	for i := range v {
		v[i] += other[i]
	}
}

// AddScaled returns v + factor*other.
func (v Vector) AddScaled(other Vector, factor float64) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] + factor*other[i]
	}
	return result
}
