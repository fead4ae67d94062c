package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCapsule_ComputeMass(t *testing.T) {
	tests := []struct {
		name    string
		capsule Capsule
		density float64
	}{
		{name: "unit density limb", capsule: Capsule{Radius: 0.1, Length: 0.3}, density: 1.0},
		{name: "dense torso", capsule: Capsule{Radius: 0.13, Length: 0.23}, density: 500.0},
		{name: "sphere-like capsule", capsule: Capsule{Radius: 0.5, Length: 0}, density: 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, l := tt.capsule.Radius, tt.capsule.Length
			expected := tt.density * (math.Pi*r*r*l + 4.0/3.0*math.Pi*r*r*r)

			mass := tt.capsule.ComputeMass(tt.density)
			if !almostEqual(mass, expected, 1e-10) {
				t.Errorf("ComputeMass() = %v, want %v", mass, expected)
			}
		})
	}
}

func TestCapsule_ComputeInertia(t *testing.T) {
	t.Run("zero length matches a solid sphere", func(t *testing.T) {
		c := &Capsule{Radius: 0.5, Length: 0}
		mass := c.ComputeMass(1.0)
		inertia := c.ComputeInertia(mass)

		expected := 2.0 / 5.0 * mass * 0.25
		for _, i := range []int{0, 4, 8} {
			if !almostEqual(inertia[i], expected, 1e-10) {
				t.Errorf("inertia[%d] = %v, want %v", i, inertia[i], expected)
			}
		}
	})

	t.Run("long capsule resists bending more than twisting", func(t *testing.T) {
		c := &Capsule{Radius: 0.1, Length: 1.0}
		inertia := c.ComputeInertia(c.ComputeMass(1000))

		if inertia[0] <= inertia[8] {
			t.Errorf("Ixx = %v should exceed Izz = %v", inertia[0], inertia[8])
		}
		if inertia[0] != inertia[4] {
			t.Errorf("Ixx = %v, Iyy = %v, want symmetric", inertia[0], inertia[4])
		}
	})
}

func TestCapsule_Support(t *testing.T) {
	c := &Capsule{Radius: 0.1, Length: 0.4}

	tests := []struct {
		name      string
		direction mgl64.Vec3
		expected  mgl64.Vec3
	}{
		{name: "along +Z", direction: mgl64.Vec3{0, 0, 1}, expected: mgl64.Vec3{0, 0, 0.3}},
		{name: "along -Z", direction: mgl64.Vec3{0, 0, -2}, expected: mgl64.Vec3{0, 0, -0.3}},
		{name: "sideways", direction: mgl64.Vec3{1, 0, 0}, expected: mgl64.Vec3{0.1, 0, 0.2}},
		{name: "zero direction", direction: mgl64.Vec3{}, expected: mgl64.Vec3{0, 0, 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Support(tt.direction)
			if !vec3AlmostEqual(got, tt.expected, 1e-12) {
				t.Errorf("Support(%v) = %v, want %v", tt.direction, got, tt.expected)
			}
		})
	}
}

func TestCapsule_ComputeAABB(t *testing.T) {
	c := &Capsule{Radius: 0.1, Length: 0.4}

	t.Run("axis aligned", func(t *testing.T) {
		transform := NewTransform()
		transform.Position = mgl64.Vec3{1, 2, 3}
		c.ComputeAABB(transform)

		aabb := c.GetAABB()
		if !vec3AlmostEqual(aabb.Min, mgl64.Vec3{0.9, 1.9, 2.7}, 1e-12) {
			t.Errorf("Min = %v", aabb.Min)
		}
		if !vec3AlmostEqual(aabb.Max, mgl64.Vec3{1.1, 2.1, 3.3}, 1e-12) {
			t.Errorf("Max = %v", aabb.Max)
		}
	})

	t.Run("rotated onto X", func(t *testing.T) {
		transform := NewTransform()
		transform.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
		transform.InverseRotation = transform.Rotation.Inverse()
		c.ComputeAABB(transform)

		size := c.GetAABB().Size()
		if !vec3AlmostEqual(size, mgl64.Vec3{0.6, 0.2, 0.2}, 1e-9) {
			t.Errorf("Size = %v, want (0.6, 0.2, 0.2)", size)
		}
	})
}

func TestAABB_Merge(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	b := AABB{Min: mgl64.Vec3{-1, 0.5, 0.5}, Max: mgl64.Vec3{0.5, 2, 0.7}}

	merged := a.Merge(b)
	if merged.Min != (mgl64.Vec3{-1, 0, 0}) || merged.Max != (mgl64.Vec3{1, 2, 1}) {
		t.Errorf("Merge() = %v", merged)
	}
	if !merged.ContainsPoint(mgl64.Vec3{-0.5, 1.5, 0.5}) {
		t.Error("merged box should contain (-0.5, 1.5, 0.5)")
	}
}
