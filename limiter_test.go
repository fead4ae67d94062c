package ragdoll

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var neckLimits = BallLimits{FlexLimit: math.Pi / 4, TwistLimit: math.Pi / 4, FlexForce: 80, TwistForce: 40}

// newNeck builds a vertical parent with a child hanging below it through a ball joint
func newNeck(t *testing.T, limits BallLimits) (*Skeleton, *BallJointLimiter) {
	t.Helper()

	a := newTestAssembler()
	parent, err := a.createCapsuleBody("parent", mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 1.5, 0}, 0.1)
	if err != nil {
		t.Fatalf("createCapsuleBody() error = %v", err)
	}
	child, err := a.createCapsuleBody("child", mgl64.Vec3{0, 1.5, 0}, mgl64.Vec3{0, 1, 0}, 0.1)
	if err != nil {
		t.Fatalf("createCapsuleBody() error = %v", err)
	}
	err = a.addJoint("neck", parent, child, mgl64.Vec3{0, 1.5, 0}, Ball{
		BaseAxis:    mgl64.Vec3{0, -1, 0},
		BaseTwistUp: mgl64.Vec3{0, 0, 1},
		BallLimits:  limits,
	})
	if err != nil {
		t.Fatalf("addJoint() error = %v", err)
	}

	return a.skeleton, NewBallJointLimiter(a.skeleton, zap.NewNop())
}

// bend rotates the child by angle about axis, from its rest orientation
func bend(s *Skeleton, axis mgl64.Vec3, angle float64) {
	child := s.Bodies[1].Handle
	child.SetRotation(mgl64.QuatRotate(angle, axis).Mul(s.Bodies[1].Frame.Quat()))
}

func childTorque(s *Skeleton) mgl64.Vec3 {
	return s.Bodies[1].Handle.GetTorque()
}

func TestBallJointLimiter_AtRest(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)

	limiter.UpdateInternalForces()

	if torque := childTorque(s); torque.Len() > tolerance {
		t.Errorf("torque at rest = %v, want zero", torque)
	}
	states := limiter.States()
	if len(states) != 1 || states[0].Name != "neck" {
		t.Fatalf("States() = %+v", states)
	}
	if states[0].FlexAngle > 1e-6 || states[0].TwistAngle > 1e-6 {
		t.Errorf("rest deviation = %+v, want zero", states[0])
	}
}

func TestBallJointLimiter_ZeroForces(t *testing.T) {
	tests := []struct {
		name  string
		axis  mgl64.Vec3
		angle float64
	}{
		{name: "flexed", axis: mgl64.Vec3{1, 0, 0}, angle: 2},
		{name: "twisted", axis: mgl64.Vec3{0, 1, 0}, angle: 2.5},
		{name: "reversed", axis: mgl64.Vec3{0, 0, 1}, angle: math.Pi},
		{name: "oblique", axis: mgl64.Vec3{1, 2, -1}.Normalize(), angle: 1.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, limiter := newNeck(t, BallLimits{})
			bend(s, tt.axis, tt.angle)
			s.Bodies[1].Handle.AngularVelocity = mgl64.Vec3{3, -2, 1}

			limiter.UpdateInternalForces()

			if torque := childTorque(s); torque != (mgl64.Vec3{}) {
				t.Errorf("torque = %v, want zero", torque)
			}
			if stats := limiter.Stats(); stats.FlexCorrections != 0 || stats.TwistCorrections != 0 {
				t.Errorf("Stats() = %+v, want no corrections", stats)
			}
		})
	}
}

func TestBallJointLimiter_WithinLimits(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	bend(s, mgl64.Vec3{1, 0, 0}, math.Pi/4-0.05)

	limiter.UpdateInternalForces()

	if torque := childTorque(s); torque.Len() > tolerance {
		t.Errorf("torque within limits = %v, want zero", torque)
	}
}

func TestBallJointLimiter_FlexIsLinear(t *testing.T) {
	excesses := []float64{0.05, 0.1, 0.2, 0.4}

	previous := 0.0
	for _, excess := range excesses {
		s, limiter := newNeck(t, neckLimits)
		bend(s, mgl64.Vec3{1, 0, 0}, neckLimits.FlexLimit+excess)

		limiter.UpdateInternalForces()

		torque := childTorque(s)
		if want := excess * neckLimits.FlexForce; !almostEqual(torque.Len(), want, 1e-6) {
			t.Errorf("excess %v: |torque| = %v, want %v", excess, torque.Len(), want)
		}
		if torque.Len() <= previous {
			t.Errorf("excess %v: |torque| = %v did not grow from %v", excess, torque.Len(), previous)
		}
		previous = torque.Len()

		// bending about +X is undone about -X
		if torque.X() >= 0 {
			t.Errorf("excess %v: torque = %v does not push back towards rest", excess, torque)
		}
		if stats := limiter.Stats(); stats.FlexCorrections != 1 || stats.TwistCorrections != 0 {
			t.Errorf("Stats() = %+v", stats)
		}
	}
}

func TestBallJointLimiter_FlexDamping(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	bend(s, mgl64.Vec3{1, 0, 0}, neckLimits.FlexLimit+0.1)
	s.Bodies[1].Handle.AngularVelocity = mgl64.Vec3{1, 0, 0}

	limiter.UpdateInternalForces()

	want := mgl64.Vec3{-0.1*neckLimits.FlexForce - DampingRatio*neckLimits.FlexForce, 0, 0}
	if torque := childTorque(s); !vec3AlmostEqual(torque, want, 1e-6) {
		t.Errorf("torque = %v, want %v", torque, want)
	}
}

func TestBallJointLimiter_Twist(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	// about the limb's own axis: no flex, only twist
	bend(s, mgl64.Vec3{0, -1, 0}, neckLimits.TwistLimit+0.2)

	limiter.UpdateInternalForces()

	torque := childTorque(s)
	if want := 0.2 * neckLimits.TwistForce; !almostEqual(torque.Len(), want, 1e-6) {
		t.Errorf("|torque| = %v, want %v", torque.Len(), want)
	}
	// twisting about -Y is undone about +Y
	if !vec3AlmostEqual(torque.Normalize(), mgl64.Vec3{0, 1, 0}, 1e-6) {
		t.Errorf("torque = %v, want it along +Y", torque)
	}

	stats := limiter.Stats()
	if stats.FlexCorrections != 0 || stats.TwistCorrections != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if state := limiter.States()[0]; !almostEqual(state.TwistAngle, neckLimits.TwistLimit+0.2, 1e-6) {
		t.Errorf("TwistAngle = %v, want %v", state.TwistAngle, neckLimits.TwistLimit+0.2)
	}
}

func TestBallJointLimiter_TwistDamping(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	bend(s, mgl64.Vec3{0, -1, 0}, neckLimits.TwistLimit+0.2)
	// still twisting away from rest
	s.Bodies[1].Handle.AngularVelocity = mgl64.Vec3{0, -2, 0}

	limiter.UpdateInternalForces()

	want := mgl64.Vec3{0, 0.2*neckLimits.TwistForce + 2*DampingRatio*neckLimits.TwistForce, 0}
	if torque := childTorque(s); !vec3AlmostEqual(torque, want, 1e-6) {
		t.Errorf("torque = %v, want %v", torque, want)
	}
	if stats := limiter.Stats(); stats.FlexCorrections != 0 || stats.TwistCorrections != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestBallJointLimiter_FollowsParent(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	// the whole neck turned together stays at rest
	turn := mgl64.QuatRotate(1.2, mgl64.Vec3{0, 0, 1})
	for _, body := range s.Bodies {
		body.Handle.SetRotation(turn.Mul(body.Frame.Quat()))
	}

	limiter.UpdateInternalForces()

	if torque := childTorque(s); torque.Len() > 1e-6 {
		t.Errorf("torque = %v, want zero", torque)
	}
}

func TestBallJointLimiter_Antiparallel(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	bend(s, mgl64.Vec3{1, 0, 0}, math.Pi)

	limiter.UpdateInternalForces()

	torque := childTorque(s)
	for i := range 3 {
		if math.IsNaN(torque[i]) || math.IsInf(torque[i], 0) {
			t.Fatalf("torque = %v, want finite", torque)
		}
	}
	if torque.Len() == 0 {
		t.Error("a reversed limb must still be pushed back")
	}
	if stats := limiter.Stats(); stats.Degeneracies == 0 {
		t.Errorf("Stats() = %+v, want a degeneracy", stats)
	}
	if state := limiter.States()[0]; !almostEqual(state.FlexAngle, math.Pi, 1e-6) {
		t.Errorf("FlexAngle = %v, want π", state.FlexAngle)
	}
}

func TestBallJointLimiter_Accumulates(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	bend(s, mgl64.Vec3{1, 0, 0}, neckLimits.FlexLimit+0.1)
	external := mgl64.Vec3{0, 5, 0}
	s.Bodies[1].Handle.AddTorque(external)

	limiter.UpdateInternalForces()
	limiter.UpdateInternalForces()

	want := external.Add(mgl64.Vec3{-2 * 0.1 * neckLimits.FlexForce, 0, 0})
	if torque := childTorque(s); !vec3AlmostEqual(torque, want, 1e-6) {
		t.Errorf("torque = %v, want %v", torque, want)
	}
	if stats := limiter.Stats(); stats.Ticks != 2 || stats.FlexCorrections != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestAngleBetween_Clamped(t *testing.T) {
	// rounding may push the dot product of unit vectors past ±1
	a := mgl64.Vec3{1 + 1e-15, 0, 0}
	if got := angleBetween(a, a); math.IsNaN(got) || got != 0 {
		t.Errorf("angleBetween() = %v, want 0", got)
	}
	if got := angleBetween(a, a.Mul(-1)); !almostEqual(got, math.Pi, tolerance) {
		t.Errorf("angleBetween() = %v, want π", got)
	}
}

func TestNewBallJointLimiter_SelectsBallJoints(t *testing.T) {
	s, err := Construct(&recordingEngine{}, mgl64.Vec3{}, 1000)
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}

	limiter := NewBallJointLimiter(s, nil)

	names := make(map[string]bool)
	for _, state := range limiter.States() {
		names[state.Name] = true
	}
	for _, name := range []string{"neck", "left_shoulder", "right_shoulder"} {
		if !names[name] {
			t.Errorf("limiter does not drive %q", name)
		}
	}
	if len(names) != 3 {
		t.Errorf("limiter drives %v, want the 3 ball joints", names)
	}
}

func TestBallJointLimiter_Measure(t *testing.T) {
	s, limiter := newNeck(t, neckLimits)
	bend(s, mgl64.Vec3{1, 0, 0}, 1.5)

	limiter.Measure()

	if torque := childTorque(s); torque != (mgl64.Vec3{}) {
		t.Errorf("Measure() applied torque %v", torque)
	}
	if state := limiter.States()[0]; !almostEqual(state.FlexAngle, 1.5, 1e-6) {
		t.Errorf("FlexAngle = %v, want 1.5", state.FlexAngle)
	}
	if stats := limiter.Stats(); stats != (LimiterStats{}) {
		t.Errorf("Stats() = %+v, want no activity", stats)
	}
	if limits := limiter.Limits(); len(limits) != 1 || limits[0] != neckLimits {
		t.Errorf("Limits() = %+v", limits)
	}
}
