// Package scoring converts a finalized run timeline into a performance
// score, an experience award and stat-delta recommendations. It never
// mutates the agent model; applying deltas is the caller's job, which keeps
// dry-run previews cheap.
package scoring

import (
	"fmt"
	"math"

	"github.com/shellworks/shelltrainer/internal/agent"
	"github.com/shellworks/shelltrainer/internal/nav"
	"github.com/shellworks/shelltrainer/internal/sim"
	"github.com/shellworks/shelltrainer/internal/terrain"
)

// Achievement flags a run can trigger
const (
	AchievementCompleted      = "completed"
	AchievementNoRest         = "no_rest"
	AchievementHighEfficiency = "high_efficiency"
	AchievementAllMastery     = "all_mastery"
)

// Config carries the scoring constants. All of these are balance tunables,
// not contracts; they ship as explicit configuration so the pipeline stays
// pure and testable.
type Config struct {
	// BaseScale maps a par-equal run time to this many points.
	BaseScale float64 `yaml:"base_scale"`

	// MaxBaseScore caps the time-derived portion of the score.
	MaxBaseScore float64 `yaml:"max_base_score"`

	// EfficiencyWeight scales the energy-remaining bonus on completed runs.
	EfficiencyWeight float64 `yaml:"efficiency_weight"`

	// MasteryBonus is awarded per terrain kind paced above the tier threshold.
	MasteryBonus float64 `yaml:"mastery_bonus"`

	// MasteryThreshold is the minimum average pace per tier for mastery,
	// keyed by tier name. Missing tiers use BaseMasteryThreshold.
	BaseMasteryThreshold float64            `yaml:"base_mastery_threshold"`
	MasteryThreshold     map[string]float64 `yaml:"mastery_threshold"`

	// ScoreFloor and PartialScale shape scores for exhausted runs: floor
	// plus credit proportional to the fraction of the course completed.
	ScoreFloor   float64 `yaml:"score_floor"`
	PartialScale float64 `yaml:"partial_scale"`

	// XPScale converts score into experience before tier and level scaling.
	XPScale float64 `yaml:"xp_scale"`

	// DeltaPerCell is the stat delta earned per cell of a terrain kind
	// before the plateau curve is applied.
	DeltaPerCell float64 `yaml:"delta_per_cell"`

	// PlateauExponent shapes the diminishing-returns curve: deltas shrink
	// as (1 - skill)^exponent while the skill approaches its maximum.
	PlateauExponent float64 `yaml:"plateau_exponent"`

	// HighEfficiencyCut is the energy-remaining fraction above which a
	// completed run earns the high-efficiency achievement.
	HighEfficiencyCut float64 `yaml:"high_efficiency_cut"`
}

// DefaultConfig returns the scoring defaults
func DefaultConfig() Config {
	return Config{
		BaseScale:            50,
		MaxBaseScore:         85,
		EfficiencyWeight:     10,
		MasteryBonus:         5,
		BaseMasteryThreshold: 0.55,
		MasteryThreshold: map[string]float64{
			terrain.TierIntermediate.String(): 0.60,
			terrain.TierAdvanced.String():     0.65,
			terrain.TierExpert.String():       0.70,
		},
		ScoreFloor:        2,
		PartialScale:      30,
		XPScale:           1.0,
		DeltaPerCell:      0.002,
		PlateauExponent:   1.5,
		HighEfficiencyCut: 0.5,
	}
}

// masteryThreshold returns the pace threshold for a tier
func (c Config) masteryThreshold(tier terrain.Tier) float64 {
	if v, ok := c.MasteryThreshold[tier.String()]; ok {
		return v
	}
	return c.BaseMasteryThreshold
}

// Mastery tallies an agent's performance on one terrain kind across a run
type Mastery struct {
	Cells    int
	AvgPace  float64
	Mastered bool
}

// Result is the scored outcome of one run, handed to the caller for
// persistence and presentation. The engine itself persists nothing.
type Result struct {
	TotalTime         float64
	Completed         bool
	FractionCompleted float64
	Mastery           map[terrain.Kind]Mastery
	Score             float64
	Experience        int
	StatDeltas        map[string]float64
	Achievements      []string
}

// Engine scores finalized timelines. Stateless; safe for concurrent use.
type Engine struct {
	cfg     Config
	planner *nav.Planner
	sim     *sim.Simulator
}

// NewEngine creates a scoring engine. The planner and simulator are used to
// compute the synthetic par baseline with the exact pacing algorithm real
// runs use, so no stored reference tables are needed.
func NewEngine(cfg Config, planner *nav.Planner, simulator *sim.Simulator) *Engine {
	def := DefaultConfig()
	if cfg.BaseScale <= 0 {
		cfg.BaseScale = def.BaseScale
	}
	if cfg.MaxBaseScore <= 0 {
		cfg.MaxBaseScore = def.MaxBaseScore
	}
	if cfg.EfficiencyWeight <= 0 {
		cfg.EfficiencyWeight = def.EfficiencyWeight
	}
	if cfg.MasteryBonus <= 0 {
		cfg.MasteryBonus = def.MasteryBonus
	}
	if cfg.BaseMasteryThreshold <= 0 {
		cfg.BaseMasteryThreshold = def.BaseMasteryThreshold
	}
	if cfg.MasteryThreshold == nil {
		cfg.MasteryThreshold = def.MasteryThreshold
	}
	if cfg.ScoreFloor <= 0 {
		cfg.ScoreFloor = def.ScoreFloor
	}
	if cfg.PartialScale <= 0 {
		cfg.PartialScale = def.PartialScale
	}
	if cfg.XPScale <= 0 {
		cfg.XPScale = def.XPScale
	}
	if cfg.DeltaPerCell <= 0 {
		cfg.DeltaPerCell = def.DeltaPerCell
	}
	if cfg.PlateauExponent <= 0 {
		cfg.PlateauExponent = def.PlateauExponent
	}
	if cfg.HighEfficiencyCut <= 0 {
		cfg.HighEfficiencyCut = def.HighEfficiencyCut
	}
	return &Engine{cfg: cfg, planner: planner, sim: simulator}
}

// Score converts a finalized timeline into a run result
func (e *Engine) Score(tl *sim.Timeline, a *agent.Model, grid *terrain.Grid) (*Result, error) {
	if grid.Length() == 0 {
		return nil, fmt.Errorf("scoring: %w", terrain.ErrEmptyCourse)
	}

	res := &Result{
		TotalTime:         tl.TotalTime,
		Completed:         tl.Completed,
		FractionCompleted: tl.Fraction(grid.Length()),
		Mastery:           e.masteryTally(tl, grid.Tier),
		StatDeltas:        e.statDeltas(tl, a),
	}

	if tl.Completed {
		refTime, err := e.referenceTime(grid, a.EnergyCapacity)
		if err != nil {
			return nil, err
		}

		base := e.cfg.BaseScale * refTime / tl.TotalTime
		if base > e.cfg.MaxBaseScore {
			base = e.cfg.MaxBaseScore
		}

		efficiency := 0.0
		if tl.Capacity > 0 {
			efficiency = e.cfg.EfficiencyWeight * tl.EnergyLeft / tl.Capacity
		}

		masteryBonus := 0.0
		for _, m := range res.Mastery {
			if m.Mastered {
				masteryBonus += e.cfg.MasteryBonus
			}
		}

		res.Score = clampScore(base + efficiency + masteryBonus)
	} else {
		// Exhausted runs: floor plus partial credit. The partial scale is
		// deliberately below what any completed run of equal progress can
		// reach, so finishing always dominates.
		res.Score = clampScore(e.cfg.ScoreFloor + e.cfg.PartialScale*res.FractionCompleted)
	}

	res.Experience = int(math.Round(res.Score * e.cfg.XPScale * grid.Tier.Multiplier() * levelFactor(a.Level)))
	res.Achievements = e.achievements(tl, res)

	return res, nil
}

// referenceTime runs a synthetic par agent over the same course with the
// same planner and simulator and returns its total time. If even the par
// agent cannot finish, the plan's predicted total stands in.
func (e *Engine) referenceTime(grid *terrain.Grid, capacity float64) (float64, error) {
	par := agent.Par(capacity)
	plan, err := e.planner.Plan(grid, par)
	if err != nil {
		return 0, fmt.Errorf("scoring: par plan: %w", err)
	}
	tl, err := e.sim.Simulate(grid, plan)
	if err != nil {
		return 0, fmt.Errorf("scoring: par run: %w", err)
	}
	if tl.Completed {
		return tl.TotalTime, nil
	}
	return plan.PredictedTotalTime, nil
}

// masteryTally computes per-kind traversal counts and average pace.
// Recovery steps carry no pace and are excluded.
func (e *Engine) masteryTally(tl *sim.Timeline, tier terrain.Tier) map[terrain.Kind]Mastery {
	cells := make(map[terrain.Kind]int)
	paceSum := make(map[terrain.Kind]float64)
	for _, step := range tl.Steps {
		if step.Recovery {
			continue
		}
		cells[step.Kind]++
		paceSum[step.Kind] += step.Pace
	}

	threshold := e.cfg.masteryThreshold(tier)
	tally := make(map[terrain.Kind]Mastery, len(cells))
	for kind, n := range cells {
		avg := paceSum[kind] / float64(n)
		tally[kind] = Mastery{
			Cells:    n,
			AvgPace:  avg,
			Mastered: avg >= threshold,
		}
	}
	return tally
}

// statDeltas proposes a non-negative delta for each terrain kind's skill,
// proportional to cells traversed on that kind and damped by the plateau
// curve as the skill nears its maximum.
func (e *Engine) statDeltas(tl *sim.Timeline, a *agent.Model) map[string]float64 {
	cells := make(map[terrain.Kind]int)
	for _, step := range tl.Steps {
		if step.Recovery {
			continue
		}
		cells[step.Kind]++
	}

	deltas := make(map[string]float64, len(cells))
	for kind, n := range cells {
		skill := a.SkillFor(kind)
		headroom := 1 - skill
		if headroom < 0 {
			headroom = 0
		}
		delta := float64(n) * e.cfg.DeltaPerCell * math.Pow(headroom, e.cfg.PlateauExponent)
		deltas[agent.StatFor(kind)] = delta
	}
	return deltas
}

// achievements derives the milestone flags triggered by a run
func (e *Engine) achievements(tl *sim.Timeline, res *Result) []string {
	if !tl.Completed {
		return nil
	}

	flags := []string{AchievementCompleted}

	rested := false
	for _, step := range tl.Steps {
		if step.Recovery {
			rested = true
			break
		}
	}
	if !rested {
		flags = append(flags, AchievementNoRest)
	}

	if tl.Capacity > 0 && tl.EnergyLeft/tl.Capacity >= e.cfg.HighEfficiencyCut {
		flags = append(flags, AchievementHighEfficiency)
	}

	allMastered := len(res.Mastery) > 0
	for _, m := range res.Mastery {
		if !m.Mastered {
			allMastered = false
			break
		}
	}
	if allMastered {
		flags = append(flags, AchievementAllMastery)
	}

	return flags
}

// clampScore bounds a score to the 0-100 scale
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
