package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeInterface is the interface that all body shapes must implement
type ShapeInterface interface {
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform)
	GetAABB() AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	Support(direction mgl64.Vec3) mgl64.Vec3
}

// Capsule is a cylinder capped by two hemispheres, aligned with the local Z axis.
// Length is the cylinder length only; the full extent along Z is Length + 2*Radius.
type Capsule struct {
	Radius float64
	Length float64
	aabb   AABB
}

func (c *Capsule) ComputeAABB(transform Transform) {
	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	var min, max mgl64.Vec3
	for i, axis := range axes {
		// support in +axis and -axis, expressed back in world space
		high := transform.LocalToWorld(c.Support(transform.InverseRotation.Rotate(axis)))
		low := transform.LocalToWorld(c.Support(transform.InverseRotation.Rotate(axis.Mul(-1))))

		max[i] = high[i]
		min[i] = low[i]
	}

	c.aabb = AABB{Min: min, Max: max}
}

func (c *Capsule) GetAABB() AABB {
	return c.aabb
}

// volumes returns the cylinder volume and the volume of both hemispheres combined
func (c *Capsule) volumes() (float64, float64) {
	cylinder := math.Pi * c.Radius * c.Radius * c.Length
	caps := (4.0 / 3.0) * math.Pi * math.Pow(c.Radius, 3)

	return cylinder, caps
}

// ComputeMass calculates the mass of the capsule
func (c *Capsule) ComputeMass(density float64) float64 {
	cylinder, caps := c.volumes()

	return density * (cylinder + caps)
}

// ComputeInertia splits the mass between the cylinder and the caps by volume,
// the caps being shifted by the parallel axis theorem along Z.
func (c *Capsule) ComputeInertia(mass float64) mgl64.Mat3 {
	cylinder, caps := c.volumes()
	total := cylinder + caps
	if total == 0 {
		return mgl64.Mat3{}
	}

	mc := mass * cylinder / total
	ms := mass * caps / total
	r2 := c.Radius * c.Radius
	h := c.Length

	iz := mc*r2/2.0 + ms*2.0*r2/5.0
	ix := mc*(h*h/12.0+r2/4.0) + ms*(2.0*r2/5.0+h*h/4.0+3.0*h*c.Radius/8.0)

	return mgl64.Mat3{
		ix, 0, 0,
		0, ix, 0,
		0, 0, iz,
	}
}

func (c *Capsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	halfLength := c.Length / 2.0
	if direction.Z() < 0 {
		halfLength = -halfLength
	}
	tip := mgl64.Vec3{0, 0, halfLength}

	if direction.Len() < 1e-12 {
		return tip
	}

	return tip.Add(direction.Normalize().Mul(c.Radius))
}
