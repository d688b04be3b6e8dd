// Package terrain defines the spatial representation of a training course:
// terrain kinds, individual cells, and the immutable grid a run is simulated on.
package terrain

import "errors"

// ErrEmptyCourse indicates a grid of length zero. Generator contracts make
// this unreachable in normal operation; hitting it means an internal
// invariant was violated upstream.
var ErrEmptyCourse = errors.New("terrain: empty course grid")

// Kind represents the category of a course cell
type Kind int

const (
	KindGrass    Kind = iota // Open ground - favors raw speed
	KindWater                // Requires swim skill
	KindRock                 // Requires climb skill
	KindObstacle             // Requires strength to clear
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindGrass:
		return "grass"
	case KindWater:
		return "water"
	case KindRock:
		return "rock"
	case KindObstacle:
		return "obstacle"
	default:
		return "unknown"
	}
}

// AllKinds returns every terrain kind in cell-index tie-break order
func AllKinds() []Kind {
	return []Kind{KindGrass, KindWater, KindRock, KindObstacle}
}

// BaseCost returns the base traversal cost multiplier for a kind.
// Open ground is cheapest; obstacles are the most expensive to clear.
func (k Kind) BaseCost() float64 {
	switch k {
	case KindGrass:
		return 1.0
	case KindWater:
		return 1.3
	case KindRock:
		return 1.5
	case KindObstacle:
		return 1.8
	default:
		return 1.0
	}
}

// Tier represents the difficulty tier of a course
type Tier int

const (
	TierBeginner Tier = iota
	TierIntermediate
	TierAdvanced
	TierExpert
)

// String returns the string representation of a Tier
func (t Tier) String() string {
	switch t {
	case TierBeginner:
		return "beginner"
	case TierIntermediate:
		return "intermediate"
	case TierAdvanced:
		return "advanced"
	case TierExpert:
		return "expert"
	default:
		return "unknown"
	}
}

// AllTiers returns every difficulty tier in ascending order
func AllTiers() []Tier {
	return []Tier{TierBeginner, TierIntermediate, TierAdvanced, TierExpert}
}

// Multiplier returns the tier's scaling factor applied to hazard density,
// reference times and experience rewards. Beginner is the 1.0 baseline.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierIntermediate:
		return 1.25
	case TierAdvanced:
		return 1.5
	case TierExpert:
		return 2.0
	default:
		return 1.0
	}
}

// Cell is a single cell of a course. Immutable once generated.
type Cell struct {
	Index  int     // 0-based position along the course axis
	Kind   Kind    // Terrain category
	Cost   float64 // Traversal cost multiplier, always > 0
	Hazard bool    // Hazardous cells drain extra energy during simulation
}

// Grid is the ordered sequence of cells making up one course.
// Created once by the course generator and never mutated afterwards.
type Grid struct {
	Cells []Cell
	Seed  int64 // Seed the course was generated from, for replay
	Tier  Tier
}

// Length returns the number of cells in the course
func (g *Grid) Length() int {
	return len(g.Cells)
}

// KindCounts tallies cells per terrain kind
func (g *Grid) KindCounts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, c := range g.Cells {
		counts[c.Kind]++
	}
	return counts
}

// HazardCount returns the number of hazardous cells
func (g *Grid) HazardCount() int {
	count := 0
	for _, c := range g.Cells {
		if c.Hazard {
			count++
		}
	}
	return count
}

// MaxConsecutive returns the longest run of consecutive cells of the given kind
func (g *Grid) MaxConsecutive(kind Kind) int {
	longest, current := 0, 0
	for _, c := range g.Cells {
		if c.Kind == kind {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}
