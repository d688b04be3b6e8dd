// Package sim advances a pacing plan step by step over a course, applying
// terrain effects to energy and recording a timeline of the run.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/shellworks/shelltrainer/internal/nav"
	"github.com/shellworks/shelltrainer/internal/terrain"
)

// State is the simulator's per-run state machine
type State int

const (
	StateRunning    State = iota
	StateRecovering       // Resting mid-course to refill energy
	StateExhausted        // Terminal: energy ran out before the last cell
	StateCompleted        // Terminal: last cell reached with energy left
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateRecovering:
		return "recovering"
	case StateExhausted:
		return "exhausted"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// StepRecord captures the state after one simulation step
type StepRecord struct {
	CellIndex       int
	TimeDelta       float64
	EnergyRemaining float64
	Pace            float64 // 0 for recovery steps
	Kind            terrain.Kind
	Recovery        bool // Set on steps where energy was regained by resting
}

// Timeline is the full record of one run. Built incrementally and finalized
// once the run reaches the last cell or aborts.
type Timeline struct {
	Steps          []StepRecord
	State          State
	Completed      bool
	CellsCompleted int
	TotalTime      float64
	EnergyLeft     float64
	Capacity       float64
}

// Config holds simulation tunables. With recovery enabled an agent that
// runs out of energy rests a bounded number of times and resumes at a
// threshold fraction of capacity; disabled (the default), exhaustion is
// terminal.
type Config struct {
	EnableRecovery    bool    `yaml:"enable_recovery"`
	RecoveryThreshold float64 `yaml:"recovery_threshold"` // Fraction of capacity restored by a rest
	RecoveryTime      float64 `yaml:"recovery_time"`      // Time cost of one rest
	MaxRecoveries     int     `yaml:"max_recoveries"`
	HazardDrain       float64 `yaml:"hazard_drain"` // Extra spend multiplier on hazard cells
}

// DefaultConfig returns the simulation defaults
func DefaultConfig() Config {
	return Config{
		EnableRecovery:    false,
		RecoveryThreshold: 0.5,
		RecoveryTime:      4.0,
		MaxRecoveries:     3,
		HazardDrain:       1.2,
	}
}

// Simulator advances plans over grids. Stateless between runs; safe for
// concurrent use.
type Simulator struct {
	cfg Config
}

// NewSimulator creates a simulator with the given config
func NewSimulator(cfg Config) *Simulator {
	if cfg.RecoveryThreshold <= 0 || cfg.RecoveryThreshold > 1 {
		cfg.RecoveryThreshold = DefaultConfig().RecoveryThreshold
	}
	if cfg.RecoveryTime <= 0 {
		cfg.RecoveryTime = DefaultConfig().RecoveryTime
	}
	if cfg.MaxRecoveries <= 0 {
		cfg.MaxRecoveries = DefaultConfig().MaxRecoveries
	}
	if cfg.HazardDrain <= 0 {
		cfg.HazardDrain = DefaultConfig().HazardDrain
	}
	return &Simulator{cfg: cfg}
}

// Simulate runs the plan over the grid and returns the finalized timeline.
// The run is strictly forward: no cell is revisited. Identical inputs always
// produce an identical timeline.
func (s *Simulator) Simulate(grid *terrain.Grid, plan *nav.Plan) (*Timeline, error) {
	if grid.Length() == 0 {
		return nil, fmt.Errorf("sim: %w", terrain.ErrEmptyCourse)
	}
	if len(plan.Steps) != grid.Length() {
		return nil, fmt.Errorf("sim: plan covers %d cells, grid has %d", len(plan.Steps), grid.Length())
	}

	tl := &Timeline{
		Steps:    make([]StepRecord, 0, grid.Length()),
		State:    StateRunning,
		Capacity: plan.Capacity,
	}
	energy := plan.Capacity
	recoveries := 0

	for i, cell := range grid.Cells {
		step := plan.Steps[i]
		spend := step.PredictedEnergy * varianceFor(grid.Seed, i, cell.Kind)
		if cell.Hazard {
			spend *= s.cfg.HazardDrain
		}

		for energy-spend < 0 {
			if !s.cfg.EnableRecovery || recoveries >= s.cfg.MaxRecoveries {
				// Out of energy mid-cell: the cell is not completed, the
				// timeline ends at the previous one.
				tl.State = StateExhausted
				tl.finalize(energy)
				return tl, nil
			}

			// Rest in place, then retry the cell at the planned pace.
			recoveries++
			restored := plan.Capacity * s.cfg.RecoveryThreshold
			if restored <= energy {
				// A rest that gains nothing would loop forever.
				tl.State = StateExhausted
				tl.finalize(energy)
				return tl, nil
			}
			energy = restored
			tl.TotalTime += s.cfg.RecoveryTime
			tl.Steps = append(tl.Steps, StepRecord{
				CellIndex:       i,
				TimeDelta:       s.cfg.RecoveryTime,
				EnergyRemaining: energy,
				Pace:            0,
				Kind:            cell.Kind,
				Recovery:        true,
			})
		}

		energy -= spend
		tl.TotalTime += step.PredictedTime
		tl.CellsCompleted++
		tl.Steps = append(tl.Steps, StepRecord{
			CellIndex:       i,
			TimeDelta:       step.PredictedTime,
			EnergyRemaining: energy,
			Pace:            step.Pace,
			Kind:            cell.Kind,
		})
	}

	tl.State = StateCompleted
	tl.Completed = true
	tl.finalize(energy)
	return tl, nil
}

// finalize seals the timeline
func (tl *Timeline) finalize(energy float64) {
	tl.EnergyLeft = energy
}

// Fraction returns the fraction of the course completed, given its length
func (tl *Timeline) Fraction(courseLength int) float64 {
	if courseLength == 0 {
		return 0
	}
	return float64(tl.CellsCompleted) / float64(courseLength)
}

// varianceAmplitude is the per-kind spread of the deterministic variance
// factor. Rougher terrain varies more.
func varianceAmplitude(kind terrain.Kind) float64 {
	switch kind {
	case terrain.KindWater:
		return 0.04
	case terrain.KindRock:
		return 0.05
	case terrain.KindObstacle:
		return 0.06
	default:
		return 0.02
	}
}

// varianceFor derives the energy-spend variance multiplier for a cell from
// the course seed and cell index. No wall-clock randomness: replays of the
// same course reproduce the exact same factors.
func varianceFor(seed int64, index int, kind terrain.Kind) float64 {
	rng := rand.New(rand.NewSource(seed + int64(index+1)*2654435761))
	amp := varianceAmplitude(kind)
	return 1 + amp*(2*rng.Float64()-1)
}
