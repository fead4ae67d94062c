package constraint

import (
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultCompliance controls joint stiffness.
	// Lower values = stiffer joints (less drift, potential jitter)
	// Typical range: 1e-10 (very stiff) to 1e-6 (soft)
	DefaultCompliance = 1e-9

	// corrections below this are skipped
	epsilon = 1e-10
)

// Kind tags the native joint type
type Kind uint8

const (
	KindFixed Kind = iota
	KindHinge
	KindUniversal
	KindBall
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindHinge:
		return "hinge"
	case KindUniversal:
		return "universal"
	case KindBall:
		return "ball"
	}
	return "unknown"
}

// Param selects a joint stop to set with SetParam
type Param uint8

const (
	ParamLoStop Param = iota
	ParamHiStop
	ParamLoStop2
	ParamHiStop2
)

// Joint is solved once per substep, PBD style
type Joint interface {
	Kind() Kind
	Bodies() (*actor.RigidBody, *actor.RigidBody)
	SolvePosition(dt float64)
}

// attachment pins a point of body1 to a point of body2.
// Every native joint embeds one; the angular parts are joint specific.
type attachment struct {
	Body1 *actor.RigidBody
	Body2 *actor.RigidBody

	// anchor in each body's local frame
	localAnchor1 mgl64.Vec3
	localAnchor2 mgl64.Vec3

	Compliance float64
}

func newAttachment(body1, body2 *actor.RigidBody, anchor mgl64.Vec3) attachment {
	return attachment{
		Body1:        body1,
		Body2:        body2,
		localAnchor1: body1.Transform.WorldToLocal(anchor),
		localAnchor2: body2.Transform.WorldToLocal(anchor),
		Compliance:   DefaultCompliance,
	}
}

func (a *attachment) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return a.Body1, a.Body2
}

// Anchors returns the world anchor as seen from each body; they coincide when the joint holds
func (a *attachment) Anchors() (mgl64.Vec3, mgl64.Vec3) {
	return a.Body1.Transform.LocalToWorld(a.localAnchor1), a.Body2.Transform.LocalToWorld(a.localAnchor2)
}

// solveAttachment moves both anchors onto each other
func (a *attachment) solveAttachment(dt float64) {
	anchor1, anchor2 := a.Anchors()
	delta := anchor2.Sub(anchor1)
	c := delta.Len()
	if c <= epsilon {
		return
	}
	n := delta.Mul(1.0 / c)

	r1 := anchor1.Sub(a.Body1.Transform.Position)
	r2 := anchor2.Sub(a.Body2.Transform.Position)
	I1Inv := a.Body1.GetInverseInertiaWorld()
	I2Inv := a.Body2.GetInverseInertiaWorld()

	r1n := r1.Cross(n)
	r2n := r2.Cross(n)
	w1 := a.Body1.GetInverseMass() + I1Inv.Mul3x1(r1n).Dot(r1n)
	w2 := a.Body2.GetInverseMass() + I2Inv.Mul3x1(r2n).Dot(r2n)

	alphaTilde := a.Compliance / (dt * dt)
	if w1+w2+alphaTilde <= epsilon {
		return
	}
	impulse := n.Mul(c / (w1 + w2 + alphaTilde))

	a.Body1.Transform.Position = a.Body1.Transform.Position.Add(impulse.Mul(a.Body1.GetInverseMass()))
	a.Body2.Transform.Position = a.Body2.Transform.Position.Sub(impulse.Mul(a.Body2.GetInverseMass()))

	applyRotation(a.Body1, I1Inv.Mul3x1(r1.Cross(impulse)))
	applyRotation(a.Body2, I2Inv.Mul3x1(r2.Cross(impulse)).Mul(-1))
}

// solveAngular rotates body1 by +correction and body2 by -correction, weighted by inertia.
// correction is the rotation vector carrying body1's feature onto body2's.
func (a *attachment) solveAngular(dt float64, correction mgl64.Vec3) {
	angle := correction.Len()
	if angle <= epsilon {
		return
	}
	n := correction.Mul(1.0 / angle)

	I1Inv := a.Body1.GetInverseInertiaWorld()
	I2Inv := a.Body2.GetInverseInertiaWorld()
	w1 := I1Inv.Mul3x1(n).Dot(n)
	w2 := I2Inv.Mul3x1(n).Dot(n)

	alphaTilde := a.Compliance / (dt * dt)
	if w1+w2+alphaTilde <= epsilon {
		return
	}
	impulse := n.Mul(angle / (w1 + w2 + alphaTilde))

	applyRotation(a.Body1, I1Inv.Mul3x1(impulse))
	applyRotation(a.Body2, I2Inv.Mul3x1(impulse).Mul(-1))
}

// applyRotation applies a small rotation vector to the body orientation.
// For a small angle δθ, the rotation quaternion is q_delta ≈ [1, δθ/2]
func applyRotation(body *actor.RigidBody, deltaRot mgl64.Vec3) {
	if body.BodyType == actor.BodyTypeStatic || deltaRot.Len() <= epsilon {
		return
	}

	qDelta := mgl64.Quat{W: 1.0, V: deltaRot.Mul(0.5)}.Normalize()
	body.Transform.Rotation = qDelta.Mul(body.Transform.Rotation).Normalize()
	body.Transform.InverseRotation = body.Transform.Rotation.Inverse()
}

// limitAngle returns the correction keeping the angle from n1 to n2 about n within [lo, hi].
// n1 is fixed in body1, n2 in body2, both perpendicular to n.
func limitAngle(n, n1, n2 mgl64.Vec3, lo, hi float64) (mgl64.Vec3, bool) {
	phi := signedAngle(n, n1, n2)
	if phi >= lo && phi <= hi {
		return mgl64.Vec3{}, false
	}

	phi = mgl64.Clamp(phi, lo, hi)
	target := mgl64.QuatRotate(phi, n).Rotate(n1)

	return target.Cross(n2), true
}

// signedAngle measures the rotation about n carrying a onto b, in (-π, π]
func signedAngle(n, a, b mgl64.Vec3) float64 {
	a = projectOnPlane(a, n)
	b = projectOnPlane(b, n)

	return math.Atan2(a.Cross(b).Dot(n), a.Dot(b))
}

func projectOnPlane(v, n mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}
