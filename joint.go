package ragdoll

import (
	"fmt"
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// JointSpec describes a joint to create. Axes are given in ragdoll-local space.
type JointSpec interface {
	Kind() constraint.Kind
	// mirrored returns the spec of the same joint on the other side of the body
	mirrored() JointSpec
}

// Fixed locks all relative motion
type Fixed struct{}

// Hinge rotates about Axis within [Lo, Hi]
type Hinge struct {
	Axis   mgl64.Vec3
	Lo, Hi float64
}

// Universal rotates about two perpendicular axes, each with its own stops.
// Axis1 is carried by the parent, Axis2 by the child.
type Universal struct {
	Axis1, Axis2 mgl64.Vec3
	Lo1, Hi1     float64
	Lo2, Hi2     float64
}

// Ball is a free 3-DOF joint with soft flex and twist limits enforced by the BallJointLimiter.
// BaseAxis is the rest direction of the child; BaseTwistUp any vector not parallel to it.
type Ball struct {
	BaseAxis    mgl64.Vec3
	BaseTwistUp mgl64.Vec3
	BallLimits
}

// BallLimits are the soft limits of a ball joint. Zero forces disable the limiter.
type BallLimits struct {
	FlexLimit  float64 `mapstructure:"flex_limit" yaml:"flex_limit"`
	TwistLimit float64 `mapstructure:"twist_limit" yaml:"twist_limit"`
	FlexForce  float64 `mapstructure:"flex_force" yaml:"flex_force"`
	TwistForce float64 `mapstructure:"twist_force" yaml:"twist_force"`
}

// DefaultBallLimits leaves the joint unlimited
func DefaultBallLimits() BallLimits {
	return BallLimits{FlexLimit: math.Pi, TwistLimit: math.Pi}
}

// Validate checks both limits lie in [0, π] and both forces are non-negative
func (l BallLimits) Validate(name string) error {
	for _, limit := range []struct {
		field string
		value float64
	}{{"flex_limit", l.FlexLimit}, {"twist_limit", l.TwistLimit}} {
		if math.IsNaN(limit.value) || limit.value < 0 || limit.value > math.Pi {
			return &ConfigurationError{Name: name, Field: limit.field, Value: limit.value, Err: ErrLimitOutOfRange}
		}
	}
	if l.FlexForce < 0 {
		return &ConfigurationError{Name: name, Field: "flex_force", Value: l.FlexForce, Err: ErrNegativeForce}
	}
	if l.TwistForce < 0 {
		return &ConfigurationError{Name: name, Field: "twist_force", Value: l.TwistForce, Err: ErrNegativeForce}
	}

	return nil
}

func (Fixed) Kind() constraint.Kind     { return constraint.KindFixed }
func (Hinge) Kind() constraint.Kind     { return constraint.KindHinge }
func (Universal) Kind() constraint.Kind { return constraint.KindUniversal }
func (Ball) Kind() constraint.Kind      { return constraint.KindBall }

func (f Fixed) mirrored() JointSpec { return f }

func (h Hinge) mirrored() JointSpec {
	h.Axis = mirrorAxis(h.Axis)
	return h
}

func (u Universal) mirrored() JointSpec {
	u.Axis1 = mirrorAxis(u.Axis1)
	u.Axis2 = mirrorAxis(u.Axis2)
	return u
}

// the rest direction and twist reference are directions, not axes
func (b Ball) mirrored() JointSpec {
	b.BaseAxis = mirrorPoint(b.BaseAxis)
	b.BaseTwistUp = mirrorPoint(b.BaseTwistUp)
	return b
}

// BallJoint is the rest frame of a ball joint captured at assembly time.
// BaseAxis and BaseTwistUp live in the parent's frame, BaseTwistUp2 in the child's.
type BallJoint struct {
	BaseAxis     mgl64.Vec3
	BaseTwistUp  mgl64.Vec3
	BaseTwistUp2 mgl64.Vec3
	BallLimits
}

// Joint connects Body1 (parent) to Body2 (child), both indices into Skeleton.Bodies
type Joint struct {
	Name   string
	Kind   constraint.Kind
	Body1  int
	Body2  int
	Anchor mgl64.Vec3 // world space, offset applied
	Spec   JointSpec
	Native constraint.Joint

	ball *BallJoint
}

// Ball returns the rest frame of a ball joint, nil for any other kind
func (j *Joint) Ball() *BallJoint {
	return j.ball
}

// addJoint creates the native joint between two staged bodies and records it
func (a *assembler) addJoint(name string, body1, body2 int, anchor mgl64.Vec3, spec JointSpec) error {
	if body1 < 0 || body1 >= len(a.skeleton.Bodies) || body2 < 0 || body2 >= len(a.skeleton.Bodies) || body1 == body2 {
		return &ConstructionError{Segment: name, Err: ErrUnknownBody}
	}

	parent := a.skeleton.Bodies[body1].Handle
	child := a.skeleton.Bodies[body2].Handle
	anchor = anchor.Add(a.skeleton.Offset)

	joint := Joint{
		Name:   name,
		Body1:  body1,
		Body2:  body2,
		Anchor: anchor,
		Spec:   spec,
	}

	switch spec := spec.(type) {
	case Fixed:
		joint.Native = constraint.NewFixedJoint(parent, child, anchor)

	case Hinge:
		hinge := constraint.NewHingeJoint(parent, child, anchor, spec.Axis)
		hinge.SetParam(constraint.ParamLoStop, spec.Lo)
		hinge.SetParam(constraint.ParamHiStop, spec.Hi)
		joint.Native = hinge

	case Universal:
		universal := constraint.NewUniversalJoint(parent, child, anchor, spec.Axis1, spec.Axis2)
		universal.SetParam(constraint.ParamLoStop, spec.Lo1)
		universal.SetParam(constraint.ParamHiStop, spec.Hi1)
		universal.SetParam(constraint.ParamLoStop2, spec.Lo2)
		universal.SetParam(constraint.ParamHiStop2, spec.Hi2)
		joint.Native = universal

	case Ball:
		if override, ok := a.limits[name]; ok {
			spec.BallLimits = override
			joint.Spec = spec
		}
		if err := spec.BallLimits.Validate(name); err != nil {
			return err
		}
		ball, err := newBallJoint(parent, child, spec)
		if err != nil {
			return &ConstructionError{Segment: name, Err: err}
		}
		joint.ball = ball
		joint.Native = constraint.NewBallJoint(parent, child, anchor)

	default:
		return &ConstructionError{Segment: name, Err: fmt.Errorf("%w: %T", ErrUnknownJoint, spec)}
	}

	joint.Kind = joint.Spec.Kind()
	a.joints = append(a.joints, joint.Native)
	a.skeleton.Joints = append(a.skeleton.Joints, joint)

	return nil
}

// newBallJoint stores the rest frame in the parent's coordinates, so it follows the parent.
// The twist reference is made orthogonal to the rest axis, whatever the caller passed.
func newBallJoint(parent, child *actor.RigidBody, spec Ball) (*BallJoint, error) {
	if spec.BaseAxis.Len() < minSegmentLength {
		return nil, fmt.Errorf("%w: zero base axis", ErrDegenerateSegment)
	}

	baseAxis := parent.Transform.DirectionToLocal(spec.BaseAxis.Normalize())
	tempTwistUp := parent.Transform.DirectionToLocal(spec.BaseTwistUp)
	baseSide := tempTwistUp.Cross(baseAxis)
	if baseSide.Len() < minSegmentLength {
		return nil, fmt.Errorf("%w: twist reference parallel to base axis", ErrDegenerateSegment)
	}
	baseTwistUp := baseAxis.Cross(baseSide.Normalize()).Normalize()

	// The child's reference is kept as given, not made orthogonal to the limb.
	// A limb that does not start along BaseAxis, like the shoulder, so reads a non-zero rest twist.
	return &BallJoint{
		BaseAxis:     baseAxis,
		BaseTwistUp:  baseTwistUp,
		BaseTwistUp2: child.Transform.DirectionToLocal(spec.BaseTwistUp.Normalize()),
		BallLimits:   spec.BallLimits,
	}, nil
}
