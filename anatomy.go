package ragdoll

import (
	"reflect"

	"github.com/go-gl/mathgl/mgl64"
)

// Proportions are the anthropometric constants every anchor derives from, in metres.
// Heights are measured from the ground, widths between the two sides.
type Proportions struct {
	UpperArmLen float64 `mapstructure:"upper_arm_len" yaml:"upper_arm_len"`
	ForeArmLen  float64 `mapstructure:"fore_arm_len" yaml:"fore_arm_len"`
	HandLen     float64 `mapstructure:"hand_len" yaml:"hand_len"` // wrist to mid-fingers
	FootLen     float64 `mapstructure:"foot_len" yaml:"foot_len"` // ankle to ball of foot
	HeelLen     float64 `mapstructure:"heel_len" yaml:"heel_len"`

	BrowH     float64 `mapstructure:"brow_h" yaml:"brow_h"`
	MouthH    float64 `mapstructure:"mouth_h" yaml:"mouth_h"`
	NeckH     float64 `mapstructure:"neck_h" yaml:"neck_h"`
	ShoulderH float64 `mapstructure:"shoulder_h" yaml:"shoulder_h"`
	ChestH    float64 `mapstructure:"chest_h" yaml:"chest_h"`
	HipH      float64 `mapstructure:"hip_h" yaml:"hip_h"`
	KneeH     float64 `mapstructure:"knee_h" yaml:"knee_h"`
	AnkleH    float64 `mapstructure:"ankle_h" yaml:"ankle_h"`

	ShoulderW float64 `mapstructure:"shoulder_w" yaml:"shoulder_w"`
	ChestW    float64 `mapstructure:"chest_w" yaml:"chest_w"`  // narrower than the shoulders
	LegW      float64 `mapstructure:"leg_w" yaml:"leg_w"`      // between the middles of the upper legs
	PelvisW   float64 `mapstructure:"pelvis_w" yaml:"pelvis_w"` // narrower than the hips

	// SpineInset keeps the belly clear of the chest and pelvis capsules
	SpineInset float64 `mapstructure:"spine_inset" yaml:"spine_inset"`

	// Girth multiplies every segment radius
	Girth float64 `mapstructure:"girth" yaml:"girth"`
}

// StandardProportions is an adult of about 1.75m
func StandardProportions() Proportions {
	return Proportions{
		UpperArmLen: 0.30,
		ForeArmLen:  0.25,
		HandLen:     0.13,
		FootLen:     0.18,
		HeelLen:     0.05,

		BrowH:     1.68,
		MouthH:    1.53,
		NeckH:     1.50,
		ShoulderH: 1.37,
		ChestH:    1.35,
		HipH:      0.86,
		KneeH:     0.48,
		AnkleH:    0.08,

		ShoulderW: 0.41,
		ChestW:    0.36,
		LegW:      0.28,
		PelvisW:   0.25,

		SpineInset: 0.1,
		Girth:      1.0,
	}
}

// Scale returns the proportions of a body f times as large
func (p Proportions) Scale(f float64) Proportions {
	v := reflect.ValueOf(&p).Elem()
	for i := range v.NumField() {
		field := v.Field(i)
		field.SetFloat(field.Float() * f)
	}

	return p
}

// Validate rejects any non-positive constant
func (p Proportions) Validate() error {
	v := reflect.ValueOf(p)
	for i := range v.NumField() {
		if value := v.Field(i).Float(); value <= 0 {
			return &ConfigurationError{Name: "proportions", Field: v.Type().Field(i).Name, Value: value, Err: ErrInvalidProportion}
		}
	}

	return nil
}

// Landmark names an anchor. Sided landmarks are stored on the left (+x) side.
type Landmark uint8

const (
	Brow Landmark = iota
	Mouth
	Neck
	ChestSide
	BellyTop
	BellyBottom
	PelvisSide
	Shoulder
	Elbow
	Wrist
	Fingers
	Hip
	Knee
	Ankle
	Heel
	Toes
)

// Side selects which copy of a sided landmark to read
type Side int8

const (
	Centre Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "centre"
}

// Anchors maps every landmark to its ragdoll-local position.
// x is lateral (left positive), y vertical, z forward.
type Anchors map[Landmark]mgl64.Vec3

// Anchors derives every anchor from the proportions.
// Arms extend laterally from the shoulders, legs drop straight down, feet point forward.
func (p Proportions) Anchors() Anchors {
	lateral := mgl64.Vec3{1, 0, 0}
	forward := mgl64.Vec3{0, 0, 1}

	shoulder := mgl64.Vec3{p.ShoulderW * 0.5, p.ShoulderH, 0}
	elbow := shoulder.Add(lateral.Mul(p.UpperArmLen))
	wrist := elbow.Add(lateral.Mul(p.ForeArmLen))
	ankle := mgl64.Vec3{p.LegW * 0.5, p.AnkleH, 0}

	return Anchors{
		Brow:        {0, p.BrowH, 0},
		Mouth:       {0, p.MouthH, 0},
		Neck:        {0, p.NeckH, 0},
		ChestSide:   {p.ChestW * 0.5, p.ChestH, 0},
		BellyTop:    {0, p.ChestH - p.SpineInset, 0},
		BellyBottom: {0, p.HipH + p.SpineInset, 0},
		PelvisSide:  {p.PelvisW * 0.5, p.HipH, 0},

		Shoulder: shoulder,
		Elbow:    elbow,
		Wrist:    wrist,
		Fingers:  wrist.Add(lateral.Mul(p.HandLen)),

		Hip:   {p.LegW * 0.5, p.HipH, 0},
		Knee:  {p.LegW * 0.5, p.KneeH, 0},
		Ankle: ankle,
		Heel:  ankle.Sub(forward.Mul(p.HeelLen)),
		Toes:  ankle.Add(forward.Mul(p.FootLen)),
	}
}

// At returns the landmark on the requested side; Right mirrors the stored left point
func (a Anchors) At(landmark Landmark, side Side) mgl64.Vec3 {
	point := a[landmark]
	if side == Right {
		return mirrorPoint(point)
	}

	return point
}

// mirrorPoint reflects a position across the sagittal plane
func mirrorPoint(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{-p.X(), p.Y(), p.Z()}
}

// mirrorAxis reflects a rotation axis: being a pseudovector, its lateral component is kept
// and the others flip, so mirrored joints bend the same anatomical way.
func mirrorAxis(a mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a.X(), -a.Y(), -a.Z()}
}
