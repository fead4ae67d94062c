package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/akmonengine/ragdoll"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RAGDOLL_SIMULATION_TICKS
const EnvPrefix = "RAGDOLL"

// Config is the full configuration of the ragdoll tool
type Config struct {
	Logger     LoggerConfig                  `mapstructure:"logger" yaml:"logger"`
	Skeleton   SkeletonConfig                `mapstructure:"skeleton" yaml:"skeleton"`
	Anatomy    AnatomyConfig                 `mapstructure:"anatomy" yaml:"anatomy"`
	Limits     map[string]ragdoll.BallLimits `mapstructure:"limits" yaml:"limits"`
	Simulation SimulationConfig              `mapstructure:"simulation" yaml:"simulation"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color of each log level on the console.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// SkeletonConfig places the skeleton in the world.
type SkeletonConfig struct {
	Offset  []float64 `mapstructure:"offset" yaml:"offset"`
	Density float64   `mapstructure:"density" yaml:"density"` // kg/m³
}

// AnatomyConfig sizes the skeleton. Proportions not set keep their standard value.
type AnatomyConfig struct {
	Scale       float64             `mapstructure:"scale" yaml:"scale"`
	Proportions ragdoll.Proportions `mapstructure:"proportions" yaml:"proportions"`
}

// SimulationConfig drives the simulate command.
type SimulationConfig struct {
	DT       float64   `mapstructure:"dt" yaml:"dt"`
	Substeps int       `mapstructure:"substeps" yaml:"substeps"`
	Workers  int       `mapstructure:"workers" yaml:"workers"`
	Ticks    int       `mapstructure:"ticks" yaml:"ticks"`
	Gravity  []float64 `mapstructure:"gravity" yaml:"gravity"`

	// Spin is the largest random angular velocity given to each body at start, rad/s
	Spin float64 `mapstructure:"spin" yaml:"spin"`
	Seed uint64  `mapstructure:"seed" yaml:"seed"`

	// Push is a forward force on the pelvis during the first tick, N
	Push float64 `mapstructure:"push" yaml:"push"`

	// Limiter can be turned off to compare against the unconstrained ball joints
	Limiter bool `mapstructure:"limiter" yaml:"limiter"`
}

// OffsetVec returns the skeleton offset as a vector
func (s SkeletonConfig) OffsetVec() mgl64.Vec3 {
	return toVec3(s.Offset)
}

// GravityVec returns the gravity as a vector
func (s SimulationConfig) GravityVec() mgl64.Vec3 {
	return toVec3(s.Gravity)
}

// Resolve returns the proportions at the configured scale
func (a AnatomyConfig) Resolve() ragdoll.Proportions {
	return a.Proportions.Scale(a.Scale)
}

func toVec3(v []float64) mgl64.Vec3 {
	var out mgl64.Vec3
	copy(out[:], v)

	return out
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// defaults are always valid
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "ragdoll")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Skeleton --
	v.SetDefault("skeleton.offset", []float64{0, 0, 0})
	v.SetDefault("skeleton.density", 1000.0)

	// -- Anatomy --
	v.SetDefault("anatomy.scale", 1.0)

	// -- Simulation --
	v.SetDefault("simulation.dt", 1.0/60.0)
	v.SetDefault("simulation.substeps", 8)
	v.SetDefault("simulation.workers", 1)
	v.SetDefault("simulation.ticks", 600)
	v.SetDefault("simulation.gravity", []float64{0, -9.81, 0})
	v.SetDefault("simulation.spin", 4.0)
	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.push", 0.0)
	v.SetDefault("simulation.limiter", true)
}

// BindEnv makes every key overridable from RAGDOLL_* environment variables
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg := Config{
		Anatomy: AnatomyConfig{Proportions: ragdoll.StandardProportions()},
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if len(c.Skeleton.Offset) != 3 {
		return fmt.Errorf("skeleton.offset must have 3 components, got %d", len(c.Skeleton.Offset))
	}
	if !(c.Skeleton.Density > 0) {
		return fmt.Errorf("skeleton.density must be positive")
	}
	if !(c.Anatomy.Scale > 0) || math.IsInf(c.Anatomy.Scale, 0) {
		return fmt.Errorf("anatomy.scale must be a positive number")
	}
	if err := c.Anatomy.Proportions.Validate(); err != nil {
		return fmt.Errorf("anatomy.proportions invalid: %w", err)
	}
	for name, limits := range c.Limits {
		if err := limits.Validate(name); err != nil {
			return fmt.Errorf("limits invalid: %w", err)
		}
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the SimulationConfig settings.
func (s *SimulationConfig) Validate() error {
	if !(s.DT > 0) {
		return fmt.Errorf("dt must be positive")
	}
	if s.Substeps <= 0 {
		return fmt.Errorf("substeps must be a positive integer")
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be a positive integer")
	}
	if s.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative")
	}
	if len(s.Gravity) != 3 {
		return fmt.Errorf("gravity must have 3 components, got %d", len(s.Gravity))
	}
	if s.Spin < 0 {
		return fmt.Errorf("spin must not be negative")
	}
	return nil
}
