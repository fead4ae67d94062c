package world

import (
	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const DEFAULT_WORKERS = 1

type World struct {
	// List of all rigid bodies in the world
	Bodies []*actor.RigidBody
	// Native joints, solved in insertion order
	Joints []constraint.Joint
	// Gravity acceleration (m/s², or N/kg)
	Gravity  mgl64.Vec3
	Substeps int
	Workers  int
}

// AddBody adds a rigid body to the world
func (w *World) AddBody(body *actor.RigidBody) {
	w.Bodies = append(w.Bodies, body)
}

// AddJoint adds a joint to the world; both bodies are expected to be added already
func (w *World) AddJoint(joint constraint.Joint) {
	w.Joints = append(w.Joints, joint)
}

// RemoveBody removes a rigid body from the world, and every joint attached to it
func (w *World) RemoveBody(body *actor.RigidBody) {
	k := -1
	for i, b := range w.Bodies {
		if b == body {
			k = i
			break
		}
	}

	if k != -1 {
		w.Bodies = append(w.Bodies[:k], w.Bodies[k+1:]...)
	}

	joints := w.Joints[:0]
	for _, joint := range w.Joints {
		body1, body2 := joint.Bodies()
		if body1 != body && body2 != body {
			joints = append(joints, joint)
		}
	}
	w.Joints = joints
}

// Step advances the simulation by dt.
// Forces and torques added before Step act over the whole dt, then are cleared.
func (w *World) Step(dt float64) {
	w.Workers = max(DEFAULT_WORKERS, w.Workers)
	substeps := max(1, w.Substeps)
	h := dt / float64(substeps)

	for range substeps {
		// Phase 1: predict positions
		w.integrate(h)

		// Phase 2: joints, sequential since they share bodies
		w.solveJoints(h)

		// Phase 3: derive velocities from the corrected positions
		w.update(h)
	}

	w.clearForces()
}

func (w *World) integrate(h float64) {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		body.Integrate(h, w.Gravity)
	})
}

func (w *World) solveJoints(h float64) {
	for _, joint := range w.Joints {
		joint.SolvePosition(h)
	}
}

func (w *World) update(h float64) {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		body.Update(h)
	})
}

// clearForces is too simple to use a task, it slows down in multiple goroutines
func (w *World) clearForces() {
	for _, body := range w.Bodies {
		body.ClearForces()
	}
}
