// Command analyze prints quick, human-readable heuristics about the physics
// presets in a directory: how many ticks the ball needs to cross the court,
// how much of the court a paddle covers, and whether a paddle can reach any
// point of its edge before the ball arrives.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/pong-arena/game/config"
	"github.com/wricardo/pong-arena/game/engine"
)

// Analysis is the set of heuristics derived from one preset on one court
type Analysis struct {
	// Ball travel between the two paddle faces
	CrossDistance float64
	CrossTicks    float64
	CrossSeconds  float64

	// Vertical distance the ball covers during one crossing
	Drift float64

	// Fraction of the court height a paddle covers
	Coverage float64

	// Ticks a paddle needs to move from one end of the court to the other
	SweepTicks float64

	// CrossTicks minus SweepTicks; negative means some returns are impossible
	ReactionTicks float64
}

// analyze evaluates settings on a width x height court
func analyze(s engine.Settings, width, height float64) Analysis {
	left := s.PaddleInset + s.PaddleWidth
	right := width - s.PaddleInset - s.PaddleWidth
	distance := math.Max(right-left-2*s.BallRadius, 0)

	a := Analysis{
		CrossDistance: distance,
		Coverage:      math.Min(s.PaddleHeight/height, 1),
		SweepTicks:    math.Max(height-s.PaddleHeight, 0) / s.PaddleSpeed,
	}
	if s.BallSpeedX > 0 {
		a.CrossTicks = distance / s.BallSpeedX
	}
	if s.TickRate > 0 {
		a.CrossSeconds = a.CrossTicks / float64(s.TickRate)
	}
	a.Drift = a.CrossTicks * s.BallSpeedY
	a.ReactionTicks = a.CrossTicks - a.SweepTicks
	return a
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Print physics heuristics for every preset",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "Preset directory"},
			&cli.FloatFlag{Name: "width", Value: 800, Usage: "Court width"},
			&cli.FloatFlag{Name: "height", Value: 600, Usage: "Court height"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(os.Stdout, cmd.String("dir"), cmd.Float("width"), cmd.Float("height"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, dir string, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("court must be positive, got %gx%g", width, height)
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}
	presets, err := manager.ListPresets()
	if err != nil {
		return err
	}

	for _, info := range presets {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.Filename)
		report(w, info, analyze(info.Settings, width, height), width, height)
	}
	return nil
}

func report(w io.Writer, info *config.PresetInfo, a Analysis, width, height float64) {
	s := info.Settings

	fmt.Fprintf(w, "Name: %s\n", info.Name)
	fmt.Fprintf(w, "Court: %.0f x %.0f at %d Hz\n", width, height, s.TickRate)
	fmt.Fprintf(w, "Crossing: %.0f px in %.1f ticks (%.2fs)\n", a.CrossDistance, a.CrossTicks, a.CrossSeconds)
	fmt.Fprintf(w, "Vertical drift per crossing: %.0f px\n", a.Drift)
	fmt.Fprintf(w, "Paddle coverage: %.0f%%\n", a.Coverage*100)
	fmt.Fprintf(w, "Paddle sweep: %.1f ticks\n", a.SweepTicks)

	if a.ReactionTicks < 0 {
		fmt.Fprintf(w, "⚠️  WARNING: paddle needs %.1f more ticks than a crossing takes to cover the court\n", -a.ReactionTicks)
	} else {
		fmt.Fprintf(w, "✅ Reaction budget: %.1f ticks\n", a.ReactionTicks)
	}

	if s.ScoreLimit == 0 {
		fmt.Fprintf(w, "⚠️  No score limit: matches only end when abandoned or terminated\n")
	}
	if s.BroadcastEvery > 1 {
		fmt.Fprintf(w, "Snapshots: %.0f per second\n", float64(s.TickRate)/float64(s.BroadcastEvery))
	}
}
