// Package course generates terrain courses from a seed and difficulty
// configuration, subject to distribution and traversability constraints.
package course

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/shellworks/shelltrainer/internal/terrain"
)

var (
	// ErrGeneration indicates no valid course was found within the retry bound
	ErrGeneration = errors.New("course: failed to generate valid course")

	// ErrBadWeights indicates a caller-supplied weight table that sums to zero
	// or contains a negative weight
	ErrBadWeights = errors.New("course: invalid terrain weights")
)

// LengthCategory selects the cell-count range for a course
type LengthCategory int

const (
	LengthShort LengthCategory = iota
	LengthMedium
	LengthLong
)

// String returns the string representation of a LengthCategory
func (l LengthCategory) String() string {
	switch l {
	case LengthShort:
		return "short"
	case LengthMedium:
		return "medium"
	case LengthLong:
		return "long"
	default:
		return "unknown"
	}
}

// cellRange returns the inclusive cell-count range for the category
func (l LengthCategory) cellRange() (min, max int) {
	switch l {
	case LengthMedium:
		return 20, 35
	case LengthLong:
		return 45, 70
	default:
		return 8, 14
	}
}

// Weights holds the relative draw weight for each terrain kind
type Weights struct {
	Grass    float64 `yaml:"grass"`
	Water    float64 `yaml:"water"`
	Rock     float64 `yaml:"rock"`
	Obstacle float64 `yaml:"obstacle"`
}

// For returns the weight for the given kind
func (w Weights) For(kind terrain.Kind) float64 {
	switch kind {
	case terrain.KindWater:
		return w.Water
	case terrain.KindRock:
		return w.Rock
	case terrain.KindObstacle:
		return w.Obstacle
	default:
		return w.Grass
	}
}

// total returns the sum of all weights
func (w Weights) total() float64 {
	return w.Grass + w.Water + w.Rock + w.Obstacle
}

// TierWeights returns the default terrain draw weights for a difficulty tier.
// Higher tiers shift weight from open ground toward rock and obstacles.
func TierWeights(tier terrain.Tier) Weights {
	switch tier {
	case terrain.TierIntermediate:
		return Weights{Grass: 0.45, Water: 0.22, Rock: 0.18, Obstacle: 0.15}
	case terrain.TierAdvanced:
		return Weights{Grass: 0.35, Water: 0.25, Rock: 0.20, Obstacle: 0.20}
	case terrain.TierExpert:
		return Weights{Grass: 0.30, Water: 0.25, Rock: 0.20, Obstacle: 0.25}
	default:
		return Weights{Grass: 0.55, Water: 0.20, Rock: 0.15, Obstacle: 0.10}
	}
}

// Config contains tunable generation parameters. Zero values fall back to
// the defaults from DefaultConfig.
type Config struct {
	// MaxConsecutiveObstacles bounds obstacle stretches so no course contains
	// an unwinnable wall of obstacles.
	MaxConsecutiveObstacles int `yaml:"max_consecutive_obstacles"`

	// MaxRetries bounds the deterministic regeneration loop.
	MaxRetries int `yaml:"max_retries"`

	// ToleranceBand is the additive band around each kind's target proportion.
	// A kind whose share of cells falls outside [weight-band, weight+band]
	// fails validation. Indexed by tier; missing tiers use BaseTolerance.
	BaseTolerance float64            `yaml:"base_tolerance"`
	TierTolerance map[string]float64 `yaml:"tier_tolerance"`

	// HazardDensity is the base probability that a non-grass cell is flagged
	// hazardous, before the tier multiplier is applied.
	HazardDensity float64 `yaml:"hazard_density"`
}

// DefaultConfig returns the generation defaults
func DefaultConfig() Config {
	return Config{
		MaxConsecutiveObstacles: 2,
		MaxRetries:              25,
		BaseTolerance:           0.25,
		TierTolerance: map[string]float64{
			terrain.TierAdvanced.String(): 0.20,
			terrain.TierExpert.String():   0.20,
		},
		HazardDensity: 0.05,
	}
}

// tolerance returns the tolerance band for a tier
func (c Config) tolerance(tier terrain.Tier) float64 {
	if band, ok := c.TierTolerance[tier.String()]; ok {
		return band
	}
	return c.BaseTolerance
}

// Generator produces terrain grids with constraint validation and
// deterministic retry
type Generator struct {
	cfg Config
}

// NewGenerator creates a generator with the given config
func NewGenerator(cfg Config) *Generator {
	if cfg.MaxConsecutiveObstacles <= 0 {
		cfg.MaxConsecutiveObstacles = DefaultConfig().MaxConsecutiveObstacles
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.BaseTolerance <= 0 {
		cfg.BaseTolerance = DefaultConfig().BaseTolerance
	}
	if cfg.HazardDensity <= 0 {
		cfg.HazardDensity = DefaultConfig().HazardDensity
	}
	return &Generator{cfg: cfg}
}

// Generate produces a course for the given seed, length category and tier.
// The same arguments always yield an identical grid. Passing a non-nil
// weights table overrides the tier's distribution and disables the
// distribution-band validation (the consecutive-obstacle and completability
// checks still apply).
func (g *Generator) Generate(seed int64, length LengthCategory, tier terrain.Tier, override *Weights) (*terrain.Grid, error) {
	weights := TierWeights(tier)
	validateDistribution := true
	if override != nil {
		if override.total() <= 0 || override.Grass < 0 || override.Water < 0 ||
			override.Rock < 0 || override.Obstacle < 0 {
			return nil, fmt.Errorf("%w: %+v", ErrBadWeights, *override)
		}
		weights = *override
		validateDistribution = false
	}

	var lastErr error
	for attempt := 0; attempt < g.cfg.MaxRetries; attempt++ {
		// Per-attempt sub-seed keeps every retry reproducible
		attemptSeed := seed + int64(attempt)*1000
		grid := g.build(attemptSeed, length, tier, weights)
		grid.Seed = seed

		if err := g.validate(grid, weights, validateDistribution); err != nil {
			lastErr = err
			continue
		}
		return grid, nil
	}

	return nil, fmt.Errorf("%w: seed %d after %d attempts: %v",
		ErrGeneration, seed, g.cfg.MaxRetries, lastErr)
}

// build produces one candidate grid from a fully derived seed
func (g *Generator) build(attemptSeed int64, length LengthCategory, tier terrain.Tier, weights Weights) *terrain.Grid {
	rng := rand.New(rand.NewSource(attemptSeed))

	minLen, maxLen := length.cellRange()
	cellCount := minLen + rng.Intn(maxLen-minLen+1)

	hazardChance := g.cfg.HazardDensity * tier.Multiplier()

	cells := make([]terrain.Cell, cellCount)
	for i := 0; i < cellCount; i++ {
		kind := drawKind(rng, weights)

		// Endpoints are always passable open ground so the course can
		// never start or end in a dead end.
		if (i == 0 || i == cellCount-1) && kind == terrain.KindObstacle {
			kind = terrain.KindGrass
		}

		hazard := kind != terrain.KindGrass && rng.Float64() < hazardChance

		// Small per-cell cost jitter keeps courses from being uniform
		// while staying fully seed-determined.
		cost := kind.BaseCost() * (0.9 + 0.2*rng.Float64())

		cells[i] = terrain.Cell{
			Index:  i,
			Kind:   kind,
			Cost:   cost,
			Hazard: hazard,
		}
	}

	return &terrain.Grid{Cells: cells, Tier: tier}
}

// drawKind draws a terrain kind from the weighted distribution
func drawKind(rng *rand.Rand, weights Weights) terrain.Kind {
	roll := rng.Float64() * weights.total()
	for _, kind := range terrain.AllKinds() {
		roll -= weights.For(kind)
		if roll < 0 {
			return kind
		}
	}
	return terrain.KindGrass
}

// validate enforces the post-generation constraints. A grid that fails any
// check is discarded and regenerated from a derived sub-seed.
func (g *Generator) validate(grid *terrain.Grid, weights Weights, checkDistribution bool) error {
	n := grid.Length()
	if n == 0 {
		return fmt.Errorf("generated empty course")
	}

	if grid.Cells[0].Kind == terrain.KindObstacle {
		return fmt.Errorf("course starts on an obstacle")
	}
	if grid.Cells[n-1].Kind == terrain.KindObstacle {
		return fmt.Errorf("course ends on an obstacle")
	}

	if run := grid.MaxConsecutive(terrain.KindObstacle); run > g.cfg.MaxConsecutiveObstacles {
		return fmt.Errorf("obstacle run of %d exceeds max %d", run, g.cfg.MaxConsecutiveObstacles)
	}

	if err := validateCompletable(grid); err != nil {
		return err
	}

	if checkDistribution {
		band := g.cfg.tolerance(grid.Tier)
		counts := grid.KindCounts()
		total := weights.total()
		for _, kind := range terrain.AllKinds() {
			target := weights.For(kind) / total
			got := float64(counts[kind]) / float64(n)
			floor := target - band
			if floor < 0 {
				floor = 0
			}
			ceiling := target + band
			if got < floor || got > ceiling {
				return fmt.Errorf("kind %s proportion %.2f outside [%.2f, %.2f]",
					kind, got, floor, ceiling)
			}
		}
	}

	return nil
}

// validateCompletable checks that a traversable path exists from the first
// cell to the last. For a linear course this reduces to every cell having a
// positive traversal cost; it is kept as a separate pass so a branching
// course layout can swap in a real reachability check.
func validateCompletable(grid *terrain.Grid) error {
	for _, c := range grid.Cells {
		if c.Cost <= 0 {
			return fmt.Errorf("cell %d has non-positive cost %v", c.Index, c.Cost)
		}
	}
	return nil
}
