package ragdoll

import (
	"fmt"
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// segments shorter than this are rejected
const minSegmentLength = 1e-9

// Frame is an orthonormal, right-handed body frame expressed in world space.
// Z runs along the capsule, from its first anchor to its second.
type Frame struct {
	X mgl64.Vec3
	Y mgl64.Vec3
	Z mgl64.Vec3
}

// CapsuleFrame builds the body frame of a segment going from p1 to p2
func CapsuleFrame(p1, p2 mgl64.Vec3) (Frame, error) {
	d := p2.Sub(p1)
	if d.Len() < minSegmentLength {
		return Frame{}, fmt.Errorf("%w: anchors %v and %v coincide", ErrDegenerateSegment, p1, p2)
	}

	z := d.Normalize()
	x := referenceAxis(z)
	y := z.Cross(x)
	x = y.Cross(z).Normalize()
	y = z.Cross(x)

	return Frame{X: x, Y: y, Z: z}, nil
}

// Mat3 returns the rotation matrix whose columns are the frame axes
func (f Frame) Mat3() mgl64.Mat3 {
	return mgl64.Mat3FromCols(f.X, f.Y, f.Z)
}

// Quat returns the rotation carrying world axes onto the frame axes
func (f Frame) Quat() mgl64.Quat {
	return mgl64.Mat4ToQuat(f.Mat3().Mat4()).Normalize()
}

// referenceAxis picks world X, or world Y when X is too close to v
func referenceAxis(v mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(v.Dot(mgl64.Vec3{1, 0, 0})) < 0.7 {
		return mgl64.Vec3{1, 0, 0}
	}

	return mgl64.Vec3{0, 1, 0}
}

// perpendicular returns a unit vector orthogonal to v, chosen deterministically
func perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	return v.Cross(referenceAxis(v)).Normalize()
}

// createCapsuleBody creates the capsule spanning p1..p2 (ragdoll-local) and stages it.
// The cylinder is shortened by the radius so that neighbours overlap by radius/2 at each joint.
func (a *assembler) createCapsuleBody(name string, p1, p2 mgl64.Vec3, radius float64) (int, error) {
	frame, err := CapsuleFrame(p1, p2)
	if err != nil {
		return -1, &ConstructionError{Segment: name, Err: err}
	}

	length := p2.Sub(p1).Len() - radius
	if length < 0 {
		return -1, &ConstructionError{
			Segment: name,
			Err:     fmt.Errorf("%w: length %v shorter than radius %v", ErrDegenerateSegment, p2.Sub(p1).Len(), radius),
		}
	}

	transform := actor.Transform{
		Position: p1.Add(p2).Mul(0.5).Add(a.skeleton.Offset),
		Rotation: frame.Quat(),
	}
	handle := actor.NewRigidBody(transform, &actor.Capsule{Radius: radius, Length: length}, actor.BodyTypeDynamic, a.skeleton.Density)
	a.bodies = append(a.bodies, handle)

	a.skeleton.Bodies = append(a.skeleton.Bodies, Body{
		Name:     name,
		P1:       p1,
		P2:       p2,
		Radius:   radius,
		Length:   length,
		Density:  a.skeleton.Density,
		Mass:     handle.Material.GetMass(),
		Position: transform.Position,
		Frame:    frame,
		Handle:   handle,
	})

	return len(a.skeleton.Bodies) - 1, nil
}
