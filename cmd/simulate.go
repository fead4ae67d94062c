package cmd

import (
	"math"
	"math/rand/v2"

	"github.com/akmonengine/ragdoll"
	"github.com/akmonengine/ragdoll/internal/observability"
	"github.com/akmonengine/ragdoll/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// progressEvery is the number of ticks between two progress logs
const progressEvery = 60

type jointReport struct {
	Name       string  `yaml:"name"`
	FlexLimit  float64 `yaml:"flex_limit"`
	TwistLimit float64 `yaml:"twist_limit"`
	WorstFlex  float64 `yaml:"worst_flex"`
	WorstTwist float64 `yaml:"worst_twist"`
}

// simulationReport is the YAML document written by the simulate command
type simulationReport struct {
	Skeleton string               `yaml:"skeleton"`
	Ticks    int                  `yaml:"ticks"`
	Limiter  bool                 `yaml:"limiter"`
	Stats    ragdoll.LimiterStats `yaml:"stats"`
	Joints   []jointReport        `yaml:"joints"`
	Bounds   boundsSummary        `yaml:"bounds"`
}

func newSimulateCommand(a *app) *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drops the skeleton and reports how well its ball joints keep their limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger().Named("simulate")
			sim := a.cfg.Simulation

			w := &world.World{
				Gravity:  sim.GravityVec(),
				Substeps: sim.Substeps,
				Workers:  sim.Workers,
			}
			s, err := a.construct(w, logger)
			if err != nil {
				return err
			}
			limiter := ragdoll.NewBallJointLimiter(s, logger)
			spin(s, sim.Spin, sim.Seed)
			pelvis := s.Bodies[s.BodyIndex("pelvis")].Handle

			report := simulationReport{Skeleton: s.ID.String(), Limiter: sim.Limiter}
			states := limiter.States()
			for i, limits := range limiter.Limits() {
				report.Joints = append(report.Joints, jointReport{
					Name:       states[i].Name,
					FlexLimit:  limits.FlexLimit,
					TwistLimit: limits.TwistLimit,
				})
			}

			ctx := cmd.Context()
			for tick := range sim.Ticks {
				if err := ctx.Err(); err != nil {
					logger.Warn("Simulation interrupted", zap.Int("tick", tick))
					return err
				}

				// forces only last one step
				if tick == 0 && sim.Push != 0 {
					pelvis.AddForce(mgl64.Vec3{0, 0, sim.Push})
				}
				if sim.Limiter {
					limiter.UpdateInternalForces()
				} else {
					limiter.Measure()
				}
				w.Step(sim.DT)
				report.Ticks++

				for i, state := range limiter.States() {
					report.Joints[i].WorstFlex = math.Max(report.Joints[i].WorstFlex, state.FlexAngle)
					report.Joints[i].WorstTwist = math.Max(report.Joints[i].WorstTwist, state.TwistAngle)
				}

				if (tick+1)%progressEvery == 0 {
					stats := limiter.Stats()
					logger.Debug("Simulation progress",
						zap.Int("tick", tick+1),
						zap.Uint64("flex_corrections", stats.FlexCorrections),
						zap.Uint64("twist_corrections", stats.TwistCorrections))
				}
			}

			report.Stats = limiter.Stats()
			report.Bounds = summarizeBounds(s.Bounds())
			logger.Info("Simulation complete",
				zap.Int("ticks", report.Ticks),
				zap.Uint64("degeneracies", report.Stats.Degeneracies))

			return writeYAML(cmd.OutOrStdout(), report)
		},
	}

	flags := simulateCmd.Flags()
	flags.Int("ticks", 600, "number of physics steps")
	flags.Float64("spin", 4, "largest random angular velocity given to each body, rad/s")
	flags.Uint64("seed", 1, "seed of the initial spin")
	flags.Bool("limiter", true, "enforce the ball-joint limits")
	flags.Float64("push", 0, "forward force on the pelvis during the first tick, N")
	for _, name := range []string{"ticks", "spin", "seed", "limiter", "push"} {
		_ = a.v.BindPFlag("simulation."+name, flags.Lookup(name))
	}

	return simulateCmd
}

// spin gives every body a random angular velocity, reproducible from seed
func spin(s *ragdoll.Skeleton, magnitude float64, seed uint64) {
	if magnitude == 0 {
		return
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	for _, body := range s.Bodies {
		direction := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		if direction.Len() == 0 {
			continue
		}
		body.Handle.AngularVelocity = direction.Normalize().Mul(magnitude * rng.Float64())
	}
}
