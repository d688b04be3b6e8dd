package agent

import (
	"errors"
	"testing"

	"github.com/shellworks/shelltrainer/internal/terrain"
)

func validModel() *Model {
	return &Model{
		ID:    "a1",
		Name:  "Sheldon",
		Level: 3,
		Stats: Stats{
			Speed:    0.6,
			Strength: 0.4,
			Stamina:  0.5,
			Swim:     0.7,
			Climb:    0.3,
		},
		EnergyCapacity: 40,
	}
}

func TestModel_Validate(t *testing.T) {
	if err := validModel().Validate(); err != nil {
		t.Errorf("valid model failed validation: %v", err)
	}
}

func TestModel_ValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
	}{
		{"speed above 1", func(m *Model) { m.Stats.Speed = 1.2 }},
		{"negative swim", func(m *Model) { m.Stats.Swim = -0.1 }},
		{"negative capacity", func(m *Model) { m.EnergyCapacity = -5 }},
		{"negative level", func(m *Model) { m.Level = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModel()
			tt.mutate(m)
			err := m.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidAgent) {
				t.Errorf("error %v does not wrap ErrInvalidAgent", err)
			}
		})
	}
}

func TestModel_SkillFor(t *testing.T) {
	m := validModel()

	tests := []struct {
		kind terrain.Kind
		want float64
	}{
		{terrain.KindGrass, m.Stats.Speed},
		{terrain.KindWater, m.Stats.Swim},
		{terrain.KindRock, m.Stats.Climb},
		{terrain.KindObstacle, m.Stats.Strength},
	}

	for _, tt := range tests {
		if got := m.SkillFor(tt.kind); got != tt.want {
			t.Errorf("SkillFor(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestStatFor(t *testing.T) {
	tests := []struct {
		kind terrain.Kind
		want string
	}{
		{terrain.KindGrass, StatSpeed},
		{terrain.KindWater, StatSwim},
		{terrain.KindRock, StatClimb},
		{terrain.KindObstacle, StatStrength},
	}

	for _, tt := range tests {
		if got := StatFor(tt.kind); got != tt.want {
			t.Errorf("StatFor(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPar(t *testing.T) {
	par := Par(50)

	if err := par.Validate(); err != nil {
		t.Fatalf("par agent failed validation: %v", err)
	}
	if par.EnergyCapacity != 50 {
		t.Errorf("par capacity = %v, want 50", par.EnergyCapacity)
	}

	// Every skill of the baseline agent sits at the midpoint
	for _, kind := range terrain.AllKinds() {
		if got := par.SkillFor(kind); got != 0.5 {
			t.Errorf("par skill for %s = %v, want 0.5", kind, got)
		}
	}
}
