package vec

import (
	"math"
	"testing"
)

func TestArithmetic(t *testing.T) {
	a := Vector{1, 2, 3}
	b := Vector{4, 5, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add = %v, want [5 7 9]", sum)
	}
	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub = %v, want [3 3 3]", diff)
	}
	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale = %v, want [2 4 6]", scaled)
	}
	// Originals untouched.
	if a[0] != 1 || b[0] != 4 {
		t.Errorf("operands modified: a=%v b=%v", a, b)
	}
}

func TestAddScaled(t *testing.T) {
	a := Vector{1, 1}
	got := a.AddScaled(Vector{2, 4}, 0.5)
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("AddScaled = %v, want [2 3]", got)
	}
	if a[0] != 1 {
		t.Errorf("operand modified: %v", a)
	}
}

func TestAcc(t *testing.T) {
	a := Vector{1, 2}
	a.Acc(Vector{3, -1})
	if a[0] != 4 || a[1] != 1 {
		t.Errorf("Acc = %v, want [4 1]", a)
	}
}

func TestNorm(t *testing.T) {
	if got := (Vector{3, 4}).Norm(); got != 5 {
		t.Errorf("Norm = %f, want 5", got)
	}
	if got := Zero(3).Norm(); got != 0 {
		t.Errorf("Norm of zero = %f, want 0", got)
	}
}

func TestIsValid(t *testing.T) {
	if !(Vector{1, 2}).IsValid() {
		t.Error("finite vector reported invalid")
	}
	if (Vector{1, math.NaN()}).IsValid() {
		t.Error("NaN vector reported valid")
	}
	if (Vector{math.Inf(1), 0}).IsValid() {
		t.Error("Inf vector reported valid")
	}
}

func TestClone(t *testing.T) {
	a := Vector{1, 2}
	c := a.Clone()
	c[0] = 99
	if a[0] != 1 {
		t.Error("Clone shares backing array")
	}
}
