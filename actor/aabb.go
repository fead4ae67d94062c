package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Merge returns the smallest AABB enclosing both boxes
func (a AABB) Merge(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{
			math.Min(a.Min.X(), other.Min.X()),
			math.Min(a.Min.Y(), other.Min.Y()),
			math.Min(a.Min.Z(), other.Min.Z()),
		},
		Max: mgl64.Vec3{
			math.Max(a.Max.X(), other.Max.X()),
			math.Max(a.Max.Y(), other.Max.Y()),
			math.Max(a.Max.Z(), other.Max.Z()),
		},
	}
}

// Size returns the extent of the box along each axis
func (a AABB) Size() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}
