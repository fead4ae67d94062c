package constraint

import (
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// FixedJoint locks all relative motion between two bodies
type FixedJoint struct {
	attachment
	restRelative mgl64.Quat // q1⁻¹ q2 at attach time
}

// NewFixedJoint glues body2 to body1 at anchor, in their current relative pose
func NewFixedJoint(body1, body2 *actor.RigidBody, anchor mgl64.Vec3) *FixedJoint {
	return &FixedJoint{
		attachment:   newAttachment(body1, body2, anchor),
		restRelative: body1.Transform.InverseRotation.Mul(body2.Transform.Rotation).Normalize(),
	}
}

func (j *FixedJoint) Kind() Kind { return KindFixed }

func (j *FixedJoint) SolvePosition(dt float64) {
	j.solveAttachment(dt)

	target := j.Body1.Transform.Rotation.Mul(j.restRelative)
	qErr := j.Body2.Transform.Rotation.Mul(target.Inverse()).Normalize()
	correction := qErr.V.Mul(2)
	if qErr.W < 0 {
		correction = correction.Mul(-1)
	}
	j.solveAngular(dt, correction)
}

// HingeJoint allows rotation about one axis, within [LoStop, HiStop]
type HingeJoint struct {
	attachment
	localAxis1 mgl64.Vec3
	localAxis2 mgl64.Vec3
	localRef1  mgl64.Vec3
	localRef2  mgl64.Vec3

	LoStop float64
	HiStop float64
}

// NewHingeJoint creates an unlimited hinge; the current relative pose is angle 0
func NewHingeJoint(body1, body2 *actor.RigidBody, anchor, axis mgl64.Vec3) *HingeJoint {
	axis = axis.Normalize()
	ref, _ := getTangentBasis(axis)

	return &HingeJoint{
		attachment: newAttachment(body1, body2, anchor),
		localAxis1: body1.Transform.DirectionToLocal(axis),
		localAxis2: body2.Transform.DirectionToLocal(axis),
		localRef1:  body1.Transform.DirectionToLocal(ref),
		localRef2:  body2.Transform.DirectionToLocal(ref),
		LoStop:     math.Inf(-1),
		HiStop:     math.Inf(1),
	}
}

func (j *HingeJoint) Kind() Kind { return KindHinge }

func (j *HingeJoint) SetParam(param Param, value float64) {
	switch param {
	case ParamLoStop:
		j.LoStop = value
	case ParamHiStop:
		j.HiStop = value
	}
}

// Axis returns the hinge axis in world space, as carried by body1
func (j *HingeJoint) Axis() mgl64.Vec3 {
	return j.Body1.Transform.Rotation.Rotate(j.localAxis1)
}

// Angle returns the rotation of body2 relative to body1 about the hinge axis
func (j *HingeJoint) Angle() float64 {
	return signedAngle(j.Axis(),
		j.Body1.Transform.Rotation.Rotate(j.localRef1),
		j.Body2.Transform.Rotation.Rotate(j.localRef2))
}

func (j *HingeJoint) SolvePosition(dt float64) {
	j.solveAttachment(dt)

	a1 := j.Axis()
	a2 := j.Body2.Transform.Rotation.Rotate(j.localAxis2)
	j.solveAngular(dt, a1.Cross(a2))

	if math.IsInf(j.LoStop, -1) && math.IsInf(j.HiStop, 1) {
		return
	}
	a1 = j.Axis()
	ref1 := j.Body1.Transform.Rotation.Rotate(j.localRef1)
	ref2 := j.Body2.Transform.Rotation.Rotate(j.localRef2)
	if correction, limited := limitAngle(a1, ref1, ref2, j.LoStop, j.HiStop); limited {
		j.solveAngular(dt, correction)
	}
}

// UniversalJoint keeps Axis1 (body1) perpendicular to Axis2 (body2), each with its own stops
type UniversalJoint struct {
	attachment
	localAxis1 mgl64.Vec3 // body1 frame
	localAxis2 mgl64.Vec3 // body2 frame
	restAxis2  mgl64.Vec3 // axis2 in body1 frame, reference for the first stop pair
	restAxis1  mgl64.Vec3 // axis1 in body2 frame, reference for the second stop pair

	LoStop  float64
	HiStop  float64
	LoStop2 float64
	HiStop2 float64
}

// NewUniversalJoint creates an unlimited universal joint. axis1 and axis2 are expected
// perpendicular; axis2 is re-orthogonalized against axis1.
func NewUniversalJoint(body1, body2 *actor.RigidBody, anchor, axis1, axis2 mgl64.Vec3) *UniversalJoint {
	axis1 = axis1.Normalize()
	axis2 = projectOnPlane(axis2, axis1).Normalize()

	return &UniversalJoint{
		attachment: newAttachment(body1, body2, anchor),
		localAxis1: body1.Transform.DirectionToLocal(axis1),
		localAxis2: body2.Transform.DirectionToLocal(axis2),
		restAxis2:  body1.Transform.DirectionToLocal(axis2),
		restAxis1:  body2.Transform.DirectionToLocal(axis1),
		LoStop:     math.Inf(-1),
		HiStop:     math.Inf(1),
		LoStop2:    math.Inf(-1),
		HiStop2:    math.Inf(1),
	}
}

func (j *UniversalJoint) Kind() Kind { return KindUniversal }

func (j *UniversalJoint) SetParam(param Param, value float64) {
	switch param {
	case ParamLoStop:
		j.LoStop = value
	case ParamHiStop:
		j.HiStop = value
	case ParamLoStop2:
		j.LoStop2 = value
	case ParamHiStop2:
		j.HiStop2 = value
	}
}

// Axes returns axis1 (carried by body1) and axis2 (carried by body2) in world space
func (j *UniversalJoint) Axes() (mgl64.Vec3, mgl64.Vec3) {
	return j.Body1.Transform.Rotation.Rotate(j.localAxis1), j.Body2.Transform.Rotation.Rotate(j.localAxis2)
}

// Angles returns the rotation of body2 about axis1 and about axis2
func (j *UniversalJoint) Angles() (float64, float64) {
	a1, a2 := j.Axes()
	angle1 := signedAngle(a1, j.Body1.Transform.Rotation.Rotate(j.restAxis2), a2)
	angle2 := signedAngle(a2, a1, j.Body2.Transform.Rotation.Rotate(j.restAxis1))

	return angle1, angle2
}

func (j *UniversalJoint) SolvePosition(dt float64) {
	j.solveAttachment(dt)

	a1, a2 := j.Axes()
	if axis := a1.Cross(a2); axis.Len() > epsilon {
		d := mgl64.Clamp(a1.Dot(a2), -1, 1)
		j.solveAngular(dt, axis.Normalize().Mul(-math.Asin(d)))
	}

	a1, a2 = j.Axes()
	if correction, limited := limitAngle(a1, j.Body1.Transform.Rotation.Rotate(j.restAxis2), a2, j.LoStop, j.HiStop); limited {
		j.solveAngular(dt, correction)
	}

	a1, a2 = j.Axes()
	if correction, limited := limitAngle(a2, a1, j.Body2.Transform.Rotation.Rotate(j.restAxis1), j.LoStop2, j.HiStop2); limited {
		j.solveAngular(dt, correction)
	}
}

// BallJoint only pins the anchor: rotation is free in the engine.
// Soft limits are applied by callers as torques.
type BallJoint struct {
	attachment
}

func NewBallJoint(body1, body2 *actor.RigidBody, anchor mgl64.Vec3) *BallJoint {
	return &BallJoint{attachment: newAttachment(body1, body2, anchor)}
}

func (j *BallJoint) Kind() Kind { return KindBall }

func (j *BallJoint) SolvePosition(dt float64) {
	j.solveAttachment(dt)
}

// Helper to generate the tangent basis
func getTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
