package course

import (
	"errors"
	"testing"

	"github.com/shellworks/shelltrainer/internal/terrain"
)

func TestGenerator_Deterministic(t *testing.T) {
	gen := NewGenerator(DefaultConfig())

	first, err := gen.Generate(42, LengthShort, terrain.TierBeginner, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := gen.Generate(42, LengthShort, terrain.TierBeginner, nil)
	if err != nil {
		t.Fatalf("Generate failed on second call: %v", err)
	}

	if first.Length() != second.Length() {
		t.Fatalf("lengths differ: %d vs %d", first.Length(), second.Length())
	}
	for i := range first.Cells {
		if first.Cells[i] != second.Cells[i] {
			t.Errorf("cell %d differs: %+v vs %+v", i, first.Cells[i], second.Cells[i])
		}
	}
}

func TestGenerator_DifferentSeedsDiffer(t *testing.T) {
	gen := NewGenerator(DefaultConfig())

	a, err := gen.Generate(1, LengthMedium, terrain.TierBeginner, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := gen.Generate(2, LengthMedium, terrain.TierBeginner, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if a.Length() == b.Length() {
		same := true
		for i := range a.Cells {
			if a.Cells[i] != b.Cells[i] {
				same = false
				break
			}
		}
		if same {
			t.Error("seeds 1 and 2 produced identical courses")
		}
	}
}

func TestGenerator_LengthRanges(t *testing.T) {
	gen := NewGenerator(DefaultConfig())

	tests := []struct {
		category LengthCategory
		min, max int
	}{
		{LengthShort, 8, 14},
		{LengthMedium, 20, 35},
		{LengthLong, 45, 70},
	}

	for _, tt := range tests {
		for seed := int64(0); seed < 30; seed++ {
			grid, err := gen.Generate(seed, tt.category, terrain.TierBeginner, nil)
			if err != nil {
				t.Fatalf("Generate(%d, %s) failed: %v", seed, tt.category, err)
			}
			if grid.Length() < tt.min || grid.Length() > tt.max {
				t.Errorf("seed %d %s course has %d cells, want %d-%d",
					seed, tt.category, grid.Length(), tt.min, tt.max)
			}
		}
	}
}

func TestGenerator_Constraints(t *testing.T) {
	gen := NewGenerator(DefaultConfig())
	maxObstacles := DefaultConfig().MaxConsecutiveObstacles

	for _, tier := range terrain.AllTiers() {
		for seed := int64(0); seed < 50; seed++ {
			grid, err := gen.Generate(seed, LengthMedium, tier, nil)
			if err != nil {
				t.Fatalf("Generate(%d, %s) failed: %v", seed, tier, err)
			}

			n := grid.Length()
			if grid.Cells[0].Kind == terrain.KindObstacle {
				t.Errorf("seed %d %s: course starts on an obstacle", seed, tier)
			}
			if grid.Cells[n-1].Kind == terrain.KindObstacle {
				t.Errorf("seed %d %s: course ends on an obstacle", seed, tier)
			}
			if run := grid.MaxConsecutive(terrain.KindObstacle); run > maxObstacles {
				t.Errorf("seed %d %s: obstacle run %d exceeds %d", seed, tier, run, maxObstacles)
			}

			for _, cell := range grid.Cells {
				if cell.Cost <= 0 {
					t.Errorf("seed %d %s: cell %d has non-positive cost %v", seed, tier, cell.Index, cell.Cost)
				}
				if cell.Hazard && cell.Kind == terrain.KindGrass {
					t.Errorf("seed %d %s: grass cell %d flagged hazardous", seed, tier, cell.Index)
				}
			}
		}
	}
}

func TestGenerator_DistributionWithinBand(t *testing.T) {
	cfg := DefaultConfig()
	gen := NewGenerator(cfg)

	for seed := int64(0); seed < 30; seed++ {
		grid, err := gen.Generate(seed, LengthLong, terrain.TierExpert, nil)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", seed, err)
		}

		weights := TierWeights(terrain.TierExpert)
		band := cfg.tolerance(terrain.TierExpert)
		counts := grid.KindCounts()
		for _, kind := range terrain.AllKinds() {
			target := weights.For(kind) / weights.total()
			got := float64(counts[kind]) / float64(grid.Length())
			if got > target+band {
				t.Errorf("seed %d: kind %s proportion %.2f above target %.2f + band %.2f",
					seed, kind, got, target, band)
			}
		}
	}
}

func TestGenerator_SeedPreservedAcrossRetries(t *testing.T) {
	gen := NewGenerator(DefaultConfig())

	for seed := int64(0); seed < 20; seed++ {
		grid, err := gen.Generate(seed, LengthShort, terrain.TierExpert, nil)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", seed, err)
		}
		// Replays look the course up by its original seed, not the retry sub-seed
		if grid.Seed != seed {
			t.Errorf("grid carries seed %d, want %d", grid.Seed, seed)
		}
		if grid.Tier != terrain.TierExpert {
			t.Errorf("grid carries tier %s, want expert", grid.Tier)
		}
	}
}

func TestGenerator_WeightOverride(t *testing.T) {
	gen := NewGenerator(DefaultConfig())

	override := &Weights{Grass: 1}
	grid, err := gen.Generate(42, LengthMedium, terrain.TierBeginner, override)
	if err != nil {
		t.Fatalf("Generate with override failed: %v", err)
	}

	// An all-grass table can only ever draw grass
	for _, cell := range grid.Cells {
		if cell.Kind != terrain.KindGrass {
			t.Errorf("cell %d is %s, want grass only", cell.Index, cell.Kind)
		}
	}
}

func TestGenerator_BadWeights(t *testing.T) {
	gen := NewGenerator(DefaultConfig())

	tests := []struct {
		name    string
		weights Weights
	}{
		{"all zero", Weights{}},
		{"negative", Weights{Grass: 0.5, Water: -0.2, Rock: 0.4, Obstacle: 0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gen.Generate(42, LengthShort, terrain.TierBeginner, &tt.weights)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrBadWeights) {
				t.Errorf("error %v does not wrap ErrBadWeights", err)
			}
		})
	}
}

func TestGenerator_ImpossibleConstraintsFail(t *testing.T) {
	// A zero tolerance band is unsatisfiable for real draws, so generation
	// must exhaust its retries and report ErrGeneration rather than loop.
	gen := NewGenerator(Config{
		MaxConsecutiveObstacles: 2,
		MaxRetries:              5,
		BaseTolerance:           0.0001,
		HazardDensity:           0.05,
	})

	_, err := gen.Generate(42, LengthShort, terrain.TierExpert, nil)
	if err == nil {
		t.Fatal("expected generation to fail, got nil error")
	}
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("error %v does not wrap ErrGeneration", err)
	}
}

func TestTierWeights_SumToOne(t *testing.T) {
	for _, tier := range terrain.AllTiers() {
		w := TierWeights(tier)
		total := w.total()
		if total < 0.999 || total > 1.001 {
			t.Errorf("tier %s weights sum to %v, want 1.0", tier, total)
		}
	}
}

func TestTierWeights_HarderTiersShiftFromGrass(t *testing.T) {
	tiers := terrain.AllTiers()
	for i := 1; i < len(tiers); i++ {
		prev := TierWeights(tiers[i-1])
		cur := TierWeights(tiers[i])
		if cur.Grass >= prev.Grass {
			t.Errorf("tier %s grass weight %v not below %s's %v",
				tiers[i], cur.Grass, tiers[i-1], prev.Grass)
		}
	}
}
