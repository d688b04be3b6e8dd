// Command coursegen generates a training course from a seed and prints it,
// optionally dry-running an agent over it. Useful for balancing terrain
// weights and scoring constants without the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shellworks/shelltrainer/internal/agent"
	"github.com/shellworks/shelltrainer/internal/course"
	"github.com/shellworks/shelltrainer/internal/terrain"
	"github.com/shellworks/shelltrainer/internal/training"
)

func main() {
	seed := flag.Int64("seed", 42, "Course generation seed")
	lengthName := flag.String("length", "short", "Length category: short, medium, long")
	tierName := flag.String("tier", "beginner", "Difficulty tier: beginner, intermediate, advanced, expert")
	dryRun := flag.Bool("run", false, "Dry-run a par agent over the course and print the score")
	stat := flag.Float64("stats", 0.5, "Stat value for every skill of the dry-run agent (0.0-1.0)")
	energy := flag.Float64("energy", 40, "Energy capacity of the dry-run agent")
	flag.Parse()

	length, ok := parseLength(*lengthName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown length category: %s\n", *lengthName)
		os.Exit(1)
	}
	tier, ok := parseTier(*tierName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown difficulty tier: %s\n", *tierName)
		os.Exit(1)
	}

	gen := course.NewGenerator(course.DefaultConfig())
	grid, err := gen.Generate(*seed, length, tier, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	printCourse(grid)

	if *dryRun {
		runAgent(grid, *seed, length, tier, *stat, *energy)
	}
}

// printCourse renders the course as text
func printCourse(grid *terrain.Grid) {
	fmt.Printf("Course seed=%d tier=%s cells=%d hazards=%d\n\n",
		grid.Seed, grid.Tier, grid.Length(), grid.HazardCount())

	var lane strings.Builder
	for _, cell := range grid.Cells {
		lane.WriteByte(cellGlyph(cell))
	}
	fmt.Printf("  [%s]\n\n", lane.String())

	for _, cell := range grid.Cells {
		marker := " "
		if cell.Hazard {
			marker = "!"
		}
		fmt.Printf("  %3d  %-8s  cost=%.2f %s\n", cell.Index, cell.Kind, cell.Cost, marker)
	}

	fmt.Println("\nDistribution:")
	counts := grid.KindCounts()
	for _, kind := range terrain.AllKinds() {
		fmt.Printf("  %-8s %3d (%.0f%%)\n", kind, counts[kind],
			100*float64(counts[kind])/float64(grid.Length()))
	}
}

// cellGlyph maps a cell to a single lane character
func cellGlyph(cell terrain.Cell) byte {
	switch cell.Kind {
	case terrain.KindWater:
		return '~'
	case terrain.KindRock:
		return '^'
	case terrain.KindObstacle:
		return '#'
	default:
		return '.'
	}
}

// runAgent executes the full pipeline with a uniform-stat agent
func runAgent(grid *terrain.Grid, seed int64, length course.LengthCategory, tier terrain.Tier, stat, energy float64) {
	session := training.NewSessionWithDefaults()
	report, err := session.Run(context.Background(), training.RunRequest{
		Seed:   seed,
		Length: length,
		Tier:   tier,
		Agent: &agent.Model{
			ID:    "coursegen",
			Name:  "Dry Run",
			Level: 1,
			Stats: agent.Stats{
				Speed:    stat,
				Strength: stat,
				Stamina:  stat,
				Swim:     stat,
				Climb:    stat,
			},
			EnergyCapacity: energy,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dry run failed: %v\n", err)
		os.Exit(1)
	}

	tl := report.Timeline
	res := report.Result
	fmt.Printf("\nDry run: state=%s cells=%d/%d time=%.1f energy_left=%.1f\n",
		tl.State, tl.CellsCompleted, grid.Length(), tl.TotalTime, tl.EnergyLeft)
	fmt.Printf("Score %.1f  XP %d  achievements: %s\n",
		res.Score, res.Experience, strings.Join(res.Achievements, ", "))
	for statName, delta := range res.StatDeltas {
		fmt.Printf("  delta %-8s +%.4f\n", statName, delta)
	}
}

func parseLength(s string) (course.LengthCategory, bool) {
	switch s {
	case "short":
		return course.LengthShort, true
	case "medium":
		return course.LengthMedium, true
	case "long":
		return course.LengthLong, true
	default:
		return 0, false
	}
}

func parseTier(s string) (terrain.Tier, bool) {
	for _, tier := range terrain.AllTiers() {
		if tier.String() == s {
			return tier, true
		}
	}
	return 0, false
}
