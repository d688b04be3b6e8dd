package scoring

import "math"

// Leveling constants
const (
	MaxAgentLevel = 50
)

// XPForLevel returns the total experience required to reach a given level.
// Uses polynomial curve: 100 * level^1.5
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxAgentLevel {
		level = MaxAgentLevel
	}
	return int(100 * math.Pow(float64(level), 1.5))
}

// XPToNextLevel returns experience needed from current level to the next
func XPToNextLevel(currentLevel int) int {
	if currentLevel >= MaxAgentLevel {
		return 0
	}
	if currentLevel < 1 {
		currentLevel = 1
	}
	return XPForLevel(currentLevel+1) - XPForLevel(currentLevel)
}

// LevelForXP returns the level an agent with the given total experience
// has reached
func LevelForXP(xp int) int {
	level := 1
	for level < MaxAgentLevel && XPForLevel(level+1) <= xp {
		level++
	}
	return level
}

// levelFactor is the dynamic experience scaling factor: runs award full
// experience at level 1 and progressively less as the level-up cost grows.
func levelFactor(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level >= MaxAgentLevel {
		level = MaxAgentLevel - 1
	}
	return float64(XPToNextLevel(1)) / float64(XPToNextLevel(level))
}
