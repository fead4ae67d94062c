package ragdoll

import (
	"errors"
	"fmt"
)

var (
	ErrDegenerateSegment = errors.New("degenerate segment")
	ErrUnknownJoint      = errors.New("unknown joint style")
	ErrUnknownBody       = errors.New("unknown body")
	ErrLimitOutOfRange   = errors.New("limit outside [0, π]")
	ErrNegativeForce     = errors.New("negative limit force")
	ErrInvalidProportion = errors.New("proportion must be positive")
	ErrInvalidDensity    = errors.New("density must be positive")
	ErrUnknownBallJoint  = errors.New("no ball joint of that name")

	// ErrNumericalDegeneracy is never returned: the limiter recovers locally and only reports it
	ErrNumericalDegeneracy = errors.New("cross product of (anti)parallel axes has no direction")
)

// ConstructionError aborts an assembly. Segment names the body or joint being built.
type ConstructionError struct {
	Segment string
	Err     error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s: %v", e.Segment, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a parameter outside its valid range
type ConfigurationError struct {
	Name  string
	Field string
	Value float64
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s.%s = %v: %v", e.Name, e.Field, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
