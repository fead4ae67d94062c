package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/akmonengine/ragdoll"
	"github.com/akmonengine/ragdoll/actor"
	"github.com/akmonengine/ragdoll/internal/observability"
	"github.com/akmonengine/ragdoll/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type boundsSummary struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

type bodySummary struct {
	Name     string     `yaml:"name"`
	Radius   float64    `yaml:"radius"`
	Length   float64    `yaml:"length"`
	Mass     float64    `yaml:"mass"`
	Position [3]float64 `yaml:"position"`
}

type jointSummary struct {
	Name   string              `yaml:"name"`
	Kind   string              `yaml:"kind"`
	Parent string              `yaml:"parent"`
	Child  string              `yaml:"child"`
	Anchor [3]float64          `yaml:"anchor"`
	Limits *ragdoll.BallLimits `yaml:"limits,omitempty"`
}

// skeletonSummary is the YAML document written by the build command
type skeletonSummary struct {
	ID         string         `yaml:"id"`
	Offset     [3]float64     `yaml:"offset"`
	Density    float64        `yaml:"density"`
	TotalMass  float64        `yaml:"total_mass"`
	Bounds     boundsSummary  `yaml:"bounds"`
	JointKinds map[string]int `yaml:"joint_kinds"`
	Bodies     []bodySummary  `yaml:"bodies"`
	Joints     []jointSummary `yaml:"joints"`
}

func newBuildCommand(a *app) *cobra.Command {
	var output string

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Assembles the skeleton and writes its bodies and joints as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger().Named("build")

			w := &world.World{}
			s, err := a.construct(w, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer file.Close()
				out = file
			}

			if err := writeYAML(out, summarize(s)); err != nil {
				return err
			}
			logger.Info("Skeleton written", zap.Stringer("id", s.ID), zap.String("output", output))
			return nil
		},
	}

	buildCmd.Flags().StringVarP(&output, "output", "o", "", "write the summary to a file instead of stdout")

	return buildCmd
}

// construct assembles the configured skeleton into engine
func (a *app) construct(engine ragdoll.Engine, logger *zap.Logger) (*ragdoll.Skeleton, error) {
	return ragdoll.Construct(engine, a.cfg.Skeleton.OffsetVec(), a.cfg.Skeleton.Density,
		ragdoll.WithProportions(a.cfg.Anatomy.Resolve()),
		ragdoll.WithLimits(a.cfg.Limits),
		ragdoll.WithLogger(logger))
}

func summarize(s *ragdoll.Skeleton) skeletonSummary {
	summary := skeletonSummary{
		ID:         s.ID.String(),
		Offset:     s.Offset,
		Density:    s.Density,
		TotalMass:  s.TotalMass(),
		Bounds:     summarizeBounds(s.Bounds()),
		JointKinds: make(map[string]int),
	}

	for kind, count := range s.Kinds() {
		summary.JointKinds[kind.String()] = count
	}
	for _, body := range s.Bodies {
		summary.Bodies = append(summary.Bodies, bodySummary{
			Name:     body.Name,
			Radius:   body.Radius,
			Length:   body.Length,
			Mass:     body.Mass,
			Position: body.Position,
		})
	}
	for _, joint := range s.Joints {
		js := jointSummary{
			Name:   joint.Name,
			Kind:   joint.Kind.String(),
			Parent: s.Bodies[joint.Body1].Name,
			Child:  s.Bodies[joint.Body2].Name,
			Anchor: joint.Anchor,
		}
		if ball := joint.Ball(); ball != nil {
			limits := ball.BallLimits
			js.Limits = &limits
		}
		summary.Joints = append(summary.Joints, js)
	}

	return summary
}

func summarizeBounds(bounds actor.AABB) boundsSummary {
	return boundsSummary{Min: bounds.Min, Max: bounds.Max}
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
