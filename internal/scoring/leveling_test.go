package scoring

import "testing"

func TestXPForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 0},
		{1, 0},
		{2, 282},  // 100 * 2^1.5
		{4, 800},  // 100 * 4^1.5
		{9, 2700}, // 100 * 9^1.5
	}

	for _, tt := range tests {
		if got := XPForLevel(tt.level); got != tt.want {
			t.Errorf("XPForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestXPForLevel_CapsAtMax(t *testing.T) {
	if XPForLevel(MaxAgentLevel+10) != XPForLevel(MaxAgentLevel) {
		t.Error("requirements should stop growing past the level cap")
	}
}

func TestXPForLevel_Monotone(t *testing.T) {
	for level := 1; level < MaxAgentLevel; level++ {
		if XPForLevel(level+1) <= XPForLevel(level) {
			t.Errorf("XPForLevel(%d) = %d not above XPForLevel(%d) = %d",
				level+1, XPForLevel(level+1), level, XPForLevel(level))
		}
	}
}

func TestXPToNextLevel(t *testing.T) {
	if got := XPToNextLevel(1); got != 282 {
		t.Errorf("XPToNextLevel(1) = %d, want 282", got)
	}
	if got := XPToNextLevel(MaxAgentLevel); got != 0 {
		t.Errorf("XPToNextLevel at cap = %d, want 0", got)
	}
	// The per-level cost keeps rising across the whole curve
	for level := 1; level < MaxAgentLevel-1; level++ {
		if XPToNextLevel(level+1) <= XPToNextLevel(level) {
			t.Errorf("level-up cost fell from level %d to %d", level, level+1)
		}
	}
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{281, 1},
		{282, 2},
		{800, 4},
		{2700, 9},
	}

	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestLevelForXP_RoundTrip(t *testing.T) {
	for level := 1; level <= MaxAgentLevel; level++ {
		if got := LevelForXP(XPForLevel(level)); got != level {
			t.Errorf("LevelForXP(XPForLevel(%d)) = %d", level, got)
		}
	}
}

func TestLevelFactor(t *testing.T) {
	if got := levelFactor(1); got != 1.0 {
		t.Errorf("levelFactor(1) = %v, want 1.0", got)
	}
	if got := levelFactor(0); got != 1.0 {
		t.Errorf("levelFactor(0) = %v, want 1.0 clamp", got)
	}
	// Higher levels earn proportionally less per run
	prev := levelFactor(1)
	for level := 2; level < MaxAgentLevel; level++ {
		f := levelFactor(level)
		if f >= prev {
			t.Errorf("levelFactor(%d) = %v not below levelFactor(%d) = %v", level, f, level-1, prev)
		}
		prev = f
	}
}
