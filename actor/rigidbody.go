package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and joints
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., a hanging point)
	BodyTypeStatic
)

type Material struct {
	Density        float64
	mass           float64
	LinearDamping  float64 // 0.0 - 1.0, typical: 0.01
	AngularDamping float64 // 0.0 - 1.0, typical: 0.05
}

func (material Material) GetMass() float64 {
	return material.mass
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	Velocity mgl64.Vec3 // Linear velocity (m/s)

	// Angular motion
	AngularVelocity     mgl64.Vec3 // rad/s, world space
	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	// Physical properties
	Material Material
	BodyType BodyType // Dynamic or Static

	Shape ShapeInterface
}

// NewRigidBody creates a new rigid body with the given properties
// density is used to calculate mass for dynamic bodies (ignored for static)
func NewRigidBody(transform Transform, shape ShapeInterface, bodyType BodyType, density float64) *RigidBody {
	transform = transform.normalized()
	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
		Velocity:          mgl64.Vec3{0, 0, 0},
	}

	if bodyType == BodyTypeStatic {
		rb.Material = Material{
			Density: 0,
			mass:    math.Inf(1),
		}
		rb.InertiaLocal = mgl64.Mat3{}
		rb.InverseInertiaLocal = mgl64.Mat3{}
	} else {
		rb.Material = Material{
			Density: density,
			mass:    shape.ComputeMass(density),
		}
		rb.InertiaLocal = shape.ComputeInertia(rb.Material.mass)
		rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	}

	rb.Shape.ComputeAABB(rb.Transform)

	return rb
}

// GetInverseMass returns 0 for static bodies
func (rb *RigidBody) GetInverseMass() float64 {
	if rb.BodyType == BodyTypeStatic || rb.Material.mass == 0 {
		return 0
	}

	return 1.0 / rb.Material.mass
}

func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}

	rb.PreviousTransform = rb.Transform

	// ========== LINEAR ==========
	acceleration := gravity.Add(rb.accumulatedForce.Mul(rb.GetInverseMass()))
	rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))
	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))
	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// ========== ANGULAR ==========
	angularAccel := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))

	// ========== QUATERNION ==========
	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()

	rb.Shape.ComputeAABB(rb.Transform)
}

// Update derives the velocities from the corrected positions (XPBD)
func (rb *RigidBody) Update(dt float64) {
	if rb.BodyType == BodyTypeStatic || dt == 0 {
		return
	}

	rb.Velocity = rb.Transform.Position.Sub(rb.PreviousTransform.Position).Mul(1.0 / dt)
	qDelta := rb.Transform.Rotation.Mul(rb.PreviousTransform.Rotation.Conjugate())
	qDelta = qDelta.Normalize()
	if qDelta.W >= 0.0 {
		rb.AngularVelocity = qDelta.V.Mul(2.0 / dt)
	} else {
		rb.AngularVelocity = qDelta.V.Mul(-2.0 / dt)
	}

	rb.Shape.ComputeAABB(rb.Transform)
}

// SetPosition teleports the body, previous state included
func (rb *RigidBody) SetPosition(position mgl64.Vec3) {
	rb.Transform.Position = position
	rb.PreviousTransform.Position = position
	rb.Shape.ComputeAABB(rb.Transform)
}

// SetRotation teleports the body orientation, previous state included
func (rb *RigidBody) SetRotation(rotation mgl64.Quat) {
	rb.Transform.Rotation = rotation
	rb.Transform = rb.Transform.normalized()
	rb.PreviousTransform.Rotation = rb.Transform.Rotation
	rb.PreviousTransform.InverseRotation = rb.Transform.InverseRotation
	rb.Shape.ComputeAABB(rb.Transform)
}

func (rb *RigidBody) GetRotation() mgl64.Quat {
	return rb.Transform.Rotation
}

func (rb *RigidBody) GetAngularVelocity() mgl64.Vec3 {
	return rb.AngularVelocity
}

// AddForce in N, applied at the center of mass
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType != BodyTypeStatic {
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque in N⋅m. Torques accumulate until ClearForces.
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType != BodyTypeStatic {
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

// GetTorque returns the torque accumulated since the last ClearForces
func (rb *RigidBody) GetTorque() mgl64.Vec3 {
	return rb.accumulatedTorque
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// Inertia in world space
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	// I_world = R * I_local * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// Inverse inertia in world space
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType == BodyTypeStatic {
		return mgl64.Mat3{0, 0, 0, 0, 0, 0, 0, 0, 0}
	}

	// I_world^(-1) = R * I_local^(-1) * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}
