package ragdoll

import (
	"math"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine receives the bodies and joints of a completed skeleton
type Engine interface {
	AddBody(body *actor.RigidBody)
	AddJoint(joint constraint.Joint)
}

// Body is one capsule of the skeleton
type Body struct {
	Name     string
	P1, P2   mgl64.Vec3 // ragdoll-local anchors
	Radius   float64
	Length   float64 // cylinder only
	Density  float64
	Mass     float64
	Position mgl64.Vec3 // world, at assembly time
	Frame    Frame
	Handle   *actor.RigidBody
}

// Skeleton owns its bodies and joints; joints refer to bodies by index
type Skeleton struct {
	ID      uuid.UUID
	Offset  mgl64.Vec3
	Density float64
	Bodies  []Body
	Joints  []Joint
}

// TotalMass sums the mass of every body
func (s *Skeleton) TotalMass() float64 {
	total := 0.0
	for _, body := range s.Bodies {
		total += body.Mass
	}

	return total
}

// Kinds counts the joints of each style
func (s *Skeleton) Kinds() map[constraint.Kind]int {
	kinds := make(map[constraint.Kind]int)
	for _, joint := range s.Joints {
		kinds[joint.Kind]++
	}

	return kinds
}

// Bounds returns the box enclosing every capsule in its current pose
func (s *Skeleton) Bounds() actor.AABB {
	var bounds actor.AABB
	for i, body := range s.Bodies {
		body.Handle.Shape.ComputeAABB(body.Handle.Transform)
		if i == 0 {
			bounds = body.Handle.Shape.GetAABB()
			continue
		}
		bounds = bounds.Merge(body.Handle.Shape.GetAABB())
	}

	return bounds
}

// BodyIndex returns the index of the named body, -1 if absent
func (s *Skeleton) BodyIndex(name string) int {
	for i, body := range s.Bodies {
		if body.Name == name {
			return i
		}
	}

	return -1
}

// JointByName returns the named joint
func (s *Skeleton) JointByName(name string) (*Joint, bool) {
	for i := range s.Joints {
		if s.Joints[i].Name == name {
			return &s.Joints[i], true
		}
	}

	return nil, false
}

type point struct {
	landmark Landmark
	side     Side
}

func at(landmark Landmark) point { return point{landmark: landmark, side: Left} }

func mid(landmark Landmark) point { return point{landmark: landmark, side: Centre} }

func opposite(landmark Landmark) point { return point{landmark: landmark, side: Right} }

func (p point) mirrored() point {
	switch p.side {
	case Left:
		p.side = Right
	case Right:
		p.side = Left
	}
	return p
}

// segment is one body of the skeleton and the joint attaching it to its parent
type segment struct {
	name   string
	from   point
	to     point
	radius float64
	parent string
	joint  string
	anchor point
	spec   JointSpec
}

// trunk lies on the centre line: chest first, as every other chain hangs from it
var trunk = []segment{
	{name: "chest", from: opposite(ChestSide), to: at(ChestSide), radius: 0.13},
	{name: "belly", from: mid(BellyTop), to: mid(BellyBottom), radius: 0.125,
		parent: "chest", joint: "mid_spine", anchor: mid(BellyTop), spec: Fixed{}},
	{name: "pelvis", from: opposite(PelvisSide), to: at(PelvisSide), radius: 0.125,
		parent: "belly", joint: "low_spine", anchor: mid(BellyBottom), spec: Fixed{}},
	{name: "head", from: mid(Brow), to: mid(Mouth), radius: 0.11,
		parent: "chest", joint: "neck", anchor: mid(Neck), spec: Ball{
			BaseAxis:    mgl64.Vec3{0, -1, 0},
			BaseTwistUp: mgl64.Vec3{0, 0, 1},
			BallLimits:  BallLimits{FlexLimit: math.Pi * 0.25, TwistLimit: math.Pi * 0.25, FlexForce: 80, TwistForce: 40},
		}},
}

// limbs are written for the left side and mirrored for the right one.
// Hinge angles grow as the child turns about the axis, right-handed.
var limbs = []segment{
	{name: "upper_leg", from: at(Hip), to: at(Knee), radius: 0.11,
		parent: "pelvis", joint: "hip", anchor: at(Hip), spec: Universal{
			Axis1: mgl64.Vec3{0, 0, 1}, Axis2: mgl64.Vec3{-1, 0, 0},
			Lo1: -0.1 * math.Pi, Hi1: 0.3 * math.Pi,
			Lo2: -0.15 * math.Pi, Hi2: 0.75 * math.Pi,
		}},
	{name: "lower_leg", from: at(Knee), to: at(Ankle), radius: 0.09,
		parent: "upper_leg", joint: "knee", anchor: at(Knee), spec: Hinge{
			Axis: mgl64.Vec3{1, 0, 0}, Lo: 0, Hi: 0.75 * math.Pi,
		}},
	{name: "foot", from: at(Heel), to: at(Toes), radius: 0.09,
		parent: "lower_leg", joint: "ankle", anchor: at(Ankle), spec: Hinge{
			Axis: mgl64.Vec3{-1, 0, 0}, Lo: -0.1 * math.Pi, Hi: 0.05 * math.Pi,
		}},
	{name: "upper_arm", from: at(Shoulder), to: at(Elbow), radius: 0.08,
		parent: "chest", joint: "shoulder", anchor: at(Shoulder), spec: Ball{
			BaseAxis:    mgl64.Vec3{1, -1, 4}.Normalize(),
			BaseTwistUp: mgl64.Vec3{0, 0, 1},
			BallLimits:  BallLimits{FlexLimit: math.Pi * 0.5, TwistLimit: math.Pi * 0.25, FlexForce: 150, TwistForce: 100},
		}},
	{name: "fore_arm", from: at(Elbow), to: at(Wrist), radius: 0.075,
		parent: "upper_arm", joint: "elbow", anchor: at(Elbow), spec: Hinge{
			Axis: mgl64.Vec3{0, -1, 0}, Lo: 0, Hi: 0.6 * math.Pi,
		}},
	{name: "hand", from: at(Wrist), to: at(Fingers), radius: 0.075,
		parent: "fore_arm", joint: "wrist", anchor: at(Wrist), spec: Hinge{
			Axis: mgl64.Vec3{0, 0, -1}, Lo: -0.1 * math.Pi, Hi: 0.2 * math.Pi,
		}},
}

// sided names and mirrors a limb segment for one side of the body
func sided(s segment, side Side) segment {
	prefix := side.String() + "_"
	s.name = prefix + s.name
	s.joint = prefix + s.joint

	// a parent inside the limb is sided as well
	for _, limb := range limbs {
		if limb.name == s.parent {
			s.parent = prefix + s.parent
			break
		}
	}

	if side == Right {
		s.from = s.from.mirrored()
		s.to = s.to.mirrored()
		s.anchor = s.anchor.mirrored()
		s.spec = s.spec.mirrored()
	}

	return s
}

// blueprint lists every segment in assembly order
func blueprint() []segment {
	segments := append([]segment(nil), trunk...)
	for _, side := range []Side{Left, Right} {
		for _, limb := range limbs {
			segments = append(segments, sided(limb, side))
		}
	}

	return segments
}

func hasBallJoint(segments []segment, name string) bool {
	for _, s := range segments {
		if _, ok := s.spec.(Ball); ok && s.joint == name {
			return true
		}
	}

	return false
}

// Option configures Construct
type Option func(*assembler)

// WithProportions replaces the standard proportions
func WithProportions(proportions Proportions) Option {
	return func(a *assembler) {
		a.proportions = proportions
	}
}

// WithLimits overrides the limits of the named ball joints
func WithLimits(limits map[string]BallLimits) Option {
	return func(a *assembler) {
		a.limits = limits
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *assembler) {
		a.logger = logger
	}
}

type assembler struct {
	skeleton    *Skeleton
	proportions Proportions
	limits      map[string]BallLimits
	logger      *zap.Logger

	// staged until the whole skeleton is built
	bodies []*actor.RigidBody
	joints []constraint.Joint
}

// Construct builds the humanoid at offset and hands its bodies and joints to the engine.
// Nothing reaches the engine unless the whole skeleton could be built.
func Construct(engine Engine, offset mgl64.Vec3, density float64, opts ...Option) (*Skeleton, error) {
	a := &assembler{
		skeleton: &Skeleton{
			ID:      uuid.New(),
			Offset:  offset,
			Density: density,
		},
		proportions: StandardProportions(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if density <= 0 || math.IsNaN(density) {
		return nil, &ConfigurationError{Name: "skeleton", Field: "density", Value: density, Err: ErrInvalidDensity}
	}
	if err := a.proportions.Validate(); err != nil {
		return nil, err
	}
	segments := blueprint()
	for name, limits := range a.limits {
		if !hasBallJoint(segments, name) {
			return nil, &ConfigurationError{Name: "limits", Field: name, Err: ErrUnknownBallJoint}
		}
		if err := limits.Validate(name); err != nil {
			return nil, err
		}
	}

	anchors := a.proportions.Anchors()
	for _, s := range segments {
		if err := a.build(anchors, s); err != nil {
			a.logger.Error("Skeleton assembly aborted", zap.String("segment", s.name), zap.Error(err))
			return nil, err
		}
	}

	for _, body := range a.bodies {
		engine.AddBody(body)
	}
	for _, joint := range a.joints {
		engine.AddJoint(joint)
	}

	a.logger.Info("Skeleton assembled",
		zap.Stringer("id", a.skeleton.ID),
		zap.Int("bodies", len(a.skeleton.Bodies)),
		zap.Int("joints", len(a.skeleton.Joints)),
		zap.Float64("total_mass", a.skeleton.TotalMass()))

	return a.skeleton, nil
}

func (a *assembler) build(anchors Anchors, s segment) error {
	p1 := anchors.At(s.from.landmark, s.from.side)
	p2 := anchors.At(s.to.landmark, s.to.side)

	child, err := a.createCapsuleBody(s.name, p1, p2, s.radius*a.proportions.Girth)
	if err != nil {
		return err
	}
	if s.spec == nil {
		return nil
	}

	parent := a.skeleton.BodyIndex(s.parent)
	if parent < 0 {
		return &ConstructionError{Segment: s.joint, Err: ErrUnknownBody}
	}

	return a.addJoint(s.joint, parent, child, anchors.At(s.anchor.landmark, s.anchor.side), s.spec)
}
