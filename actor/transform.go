package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and orientation in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// LocalToWorld maps a point from body space to world space
func (t Transform) LocalToWorld(point mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(point).Add(t.Position)
}

// WorldToLocal maps a point from world space to body space
func (t Transform) WorldToLocal(point mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(point.Sub(t.Position))
}

// DirectionToLocal rotates a world direction into body space, ignoring translation
func (t Transform) DirectionToLocal(direction mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(direction)
}

// normalized returns the transform with a unit rotation and a matching inverse.
// A zero quaternion (Transform{} literal) is treated as identity.
func (t Transform) normalized() Transform {
	if t.Rotation.Len() == 0 {
		t.Rotation = mgl64.QuatIdent()
	}
	t.Rotation = t.Rotation.Normalize()
	t.InverseRotation = t.Rotation.Inverse()

	return t
}
