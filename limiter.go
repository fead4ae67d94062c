package ragdoll

import (
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const (
	// DampingRatio scales the damping torque against the relative angular velocity
	DampingRatio = 0.01

	// cross products shorter than this have no usable direction
	degenerateCross = 1e-9
)

// LimiterStats counts the corrections issued since the limiter was created
type LimiterStats struct {
	Ticks            uint64 `yaml:"ticks"`
	FlexCorrections  uint64 `yaml:"flex_corrections"`
	TwistCorrections uint64 `yaml:"twist_corrections"`
	Degeneracies     uint64 `yaml:"degeneracies"`
}

// JointState is the deviation measured on a ball joint during the last tick
type JointState struct {
	Name       string  `yaml:"name"`
	FlexAngle  float64 `yaml:"flex_angle"`
	TwistAngle float64 `yaml:"twist_angle"`
}

type limitedJoint struct {
	name   string
	ball   *BallJoint
	parent *actor.RigidBody
	child  *actor.RigidBody
}

// BallJointLimiter keeps ball joints within their flex and twist limits by torquing the child.
// It must run once per physics step, before the step: the correction is not time-integrated.
type BallJointLimiter struct {
	joints []limitedJoint
	states []JointState
	stats  LimiterStats
	logger *zap.Logger
}

// NewBallJointLimiter captures the ball joints of the skeleton
func NewBallJointLimiter(skeleton *Skeleton, logger *zap.Logger) *BallJointLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &BallJointLimiter{logger: logger.Named("limiter")}
	for _, joint := range skeleton.Joints {
		if joint.ball == nil {
			continue
		}
		l.joints = append(l.joints, limitedJoint{
			name:   joint.Name,
			ball:   joint.ball,
			parent: skeleton.Bodies[joint.Body1].Handle,
			child:  skeleton.Bodies[joint.Body2].Handle,
		})
		l.states = append(l.states, JointState{Name: joint.Name})
	}

	return l
}

// UpdateInternalForces measures every ball joint and torques the children beyond their limits
func (l *BallJointLimiter) UpdateInternalForces() {
	for i := range l.joints {
		l.limit(i, true)
	}
	l.stats.Ticks++
}

// Measure updates States without applying any torque
func (l *BallJointLimiter) Measure() {
	for i := range l.joints {
		l.limit(i, false)
	}
}

// Limits returns the limits of every driven joint, in States order
func (l *BallJointLimiter) Limits() []BallLimits {
	limits := make([]BallLimits, len(l.joints))
	for i, j := range l.joints {
		limits[i] = j.ball.BallLimits
	}

	return limits
}

func (l *BallJointLimiter) limit(i int, correct bool) {
	j := &l.joints[i]
	rot1 := j.parent.GetRotation()
	rot2 := j.child.GetRotation()

	// the rest axis follows the parent, the current axis is read from the child
	baseAxis := rot1.Rotate(j.ball.BaseAxis)
	currAxis := rot2.Rotate(mgl64.Vec3{0, 0, 1})

	relAngVel := j.child.GetAngularVelocity().Sub(j.parent.GetAngularVelocity())
	twistComponent := currAxis.Mul(relAngVel.Dot(currAxis))
	flexComponent := relAngVel.Sub(twistComponent)

	flexAngle := angleBetween(currAxis, baseAxis)
	if correct && flexAngle > j.ball.FlexLimit && j.ball.FlexForce > 0 {
		axis := l.torqueAxis(j.name, "flex", currAxis.Cross(baseAxis), perpendicular(currAxis))
		torque := axis.Mul((flexAngle - j.ball.FlexLimit) * j.ball.FlexForce)
		torque = torque.Add(flexComponent.Mul(-DampingRatio * j.ball.FlexForce))
		j.child.AddTorque(torque)
		l.stats.FlexCorrections++
	}

	// carry the parent's twist reference along the shortest arc from the rest axis to the current one
	projectedBaseTwistUp := mgl64.QuatBetweenVectors(baseAxis, currAxis).Rotate(rot1.Rotate(j.ball.BaseTwistUp))
	actualTwistUp := rot2.Rotate(j.ball.BaseTwistUp2)

	twistAngle := angleBetween(actualTwistUp, projectedBaseTwistUp)
	if correct && twistAngle > j.ball.TwistLimit && j.ball.TwistForce > 0 {
		axis := l.torqueAxis(j.name, "twist", actualTwistUp.Cross(projectedBaseTwistUp), currAxis)
		torque := axis.Mul((twistAngle - j.ball.TwistLimit) * j.ball.TwistForce)
		torque = torque.Add(twistComponent.Mul(-DampingRatio * j.ball.TwistForce))
		j.child.AddTorque(torque)
		l.stats.TwistCorrections++
	}

	l.states[i].FlexAngle = flexAngle
	l.states[i].TwistAngle = twistAngle
}

// torqueAxis normalizes cross, or falls back when the vectors it came from are (anti)parallel
func (l *BallJointLimiter) torqueAxis(joint, correction string, cross, fallback mgl64.Vec3) mgl64.Vec3 {
	if cross.Len() >= degenerateCross {
		return cross.Normalize()
	}

	l.stats.Degeneracies++
	l.logger.Debug("Using fallback torque axis",
		zap.String("joint", joint),
		zap.String("correction", correction),
		zap.Error(ErrNumericalDegeneracy))

	return fallback
}

// Stats returns the counters accumulated so far
func (l *BallJointLimiter) Stats() LimiterStats {
	return l.stats
}

// States returns the deviations measured during the last tick, one per ball joint
func (l *BallJointLimiter) States() []JointState {
	return append([]JointState(nil), l.states...)
}

// angleBetween returns the angle between two unit vectors; the dot product is clamped for acos
func angleBetween(a, b mgl64.Vec3) float64 {
	return math.Acos(mgl64.Clamp(a.Dot(b), -1, 1))
}
