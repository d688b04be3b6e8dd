// Package agent defines the competing entity's stat snapshot used as
// simulation input. The engine never mutates a Model; stat changes are
// returned as recommendations for the caller to apply.
package agent

import (
	"errors"
	"fmt"

	"github.com/shellworks/shelltrainer/internal/terrain"
)

// ErrInvalidAgent indicates a model with missing or out-of-range stat values
var ErrInvalidAgent = errors.New("agent: invalid agent model")

// Stat names used in stat-delta recommendations
const (
	StatSpeed    = "speed"
	StatStrength = "strength"
	StatStamina  = "stamina"
	StatSwim     = "swim"
	StatClimb    = "climb"
)

// Stats holds an agent's base stats on a normalized 0.0-1.0 scale
type Stats struct {
	Speed    float64 `yaml:"speed"`
	Strength float64 `yaml:"strength"`
	Stamina  float64 `yaml:"stamina"`
	Swim     float64 `yaml:"swim"`
	Climb    float64 `yaml:"climb"`
}

// Model is a read-only snapshot of a competing agent.
// Supplied by the caller's roster; never mutated by the engine.
type Model struct {
	ID             string
	Name           string
	Level          int
	Stats          Stats
	EnergyCapacity float64
}

// Validate checks that every stat is within [0, 1] and the energy capacity
// is non-negative. Must be called before planning begins.
func (m *Model) Validate() error {
	stats := map[string]float64{
		StatSpeed:    m.Stats.Speed,
		StatStrength: m.Stats.Strength,
		StatStamina:  m.Stats.Stamina,
		StatSwim:     m.Stats.Swim,
		StatClimb:    m.Stats.Climb,
	}
	for name, v := range stats {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: stat %s = %v, want 0.0-1.0", ErrInvalidAgent, name, v)
		}
	}
	if m.EnergyCapacity < 0 {
		return fmt.Errorf("%w: energy capacity = %v, want >= 0", ErrInvalidAgent, m.EnergyCapacity)
	}
	if m.Level < 0 {
		return fmt.Errorf("%w: level = %d, want >= 0", ErrInvalidAgent, m.Level)
	}
	return nil
}

// SkillFor returns the stat relevant to traversing the given terrain kind
func (m *Model) SkillFor(kind terrain.Kind) float64 {
	switch kind {
	case terrain.KindWater:
		return m.Stats.Swim
	case terrain.KindRock:
		return m.Stats.Climb
	case terrain.KindObstacle:
		return m.Stats.Strength
	default:
		return m.Stats.Speed
	}
}

// StatFor returns the stat name relevant to the given terrain kind.
// Used when proposing stat deltas after a run.
func StatFor(kind terrain.Kind) string {
	switch kind {
	case terrain.KindWater:
		return StatSwim
	case terrain.KindRock:
		return StatClimb
	case terrain.KindObstacle:
		return StatStrength
	default:
		return StatSpeed
	}
}

// Par returns a synthetic baseline agent with every stat at 0.5 and the
// given energy capacity. Scoring normalizes run times against a par agent
// run over the same course.
func Par(capacity float64) *Model {
	return &Model{
		ID:   "par",
		Name: "Par",
		Stats: Stats{
			Speed:    0.5,
			Strength: 0.5,
			Stamina:  0.5,
			Swim:     0.5,
			Climb:    0.5,
		},
		EnergyCapacity: capacity,
	}
}
