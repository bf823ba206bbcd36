package engine

import "time"

// Mode is the closed set of quiz modes. Each mode fixes its question
// source and timer policy; no other mode-specific branching exists
// outside this file and question issuance.
type Mode int

const (
	ModeRandom Mode = iota
	ModeSpecific
	ModeWeakSpots
	ModeLightning
	ModeSniper
	ModeTraining
	ModeFindX
)

func (m Mode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModeSpecific:
		return "specific"
	case ModeWeakSpots:
		return "weak_spots"
	case ModeLightning:
		return "lightning"
	case ModeSniper:
		return "sniper"
	case ModeTraining:
		return "training"
	case ModeFindX:
		return "find_x"
	}
	return "unknown"
}

// Timed reports whether a timeout watcher is armed for questions in
// this mode. Sniper and training are deliberately unlimited.
func (m Mode) Timed() bool {
	return m != ModeSniper && m != ModeTraining
}

// standardLimits is the per-level answer window for standard
// arithmetic modes.
var standardLimits = map[int]time.Duration{
	1: 15 * time.Second,
	2: 20 * time.Second,
	3: 30 * time.Second,
}

// findXLimits is the per-level window for solve-for-x questions,
// wider than the standard table since a division step is involved.
var findXLimits = map[int]time.Duration{
	1: 20 * time.Second,
	2: 30 * time.Second,
	3: 45 * time.Second,
}

// lightningLimit is the fixed window for lightning mode.
const lightningLimit = 5 * time.Second

// TimeLimit returns the answer window for a question in the given
// mode and level, or 0 for untimed modes.
func TimeLimit(m Mode, level int) time.Duration {
	if !m.Timed() {
		return 0
	}
	switch m {
	case ModeLightning:
		return lightningLimit
	case ModeFindX:
		if d, ok := findXLimits[level]; ok {
			return d
		}
		return findXLimits[1]
	case ModeWeakSpots:
		// Weak-spot drills are level-1 material.
		return standardLimits[1]
	default:
		if d, ok := standardLimits[level]; ok {
			return d
		}
		return standardLimits[1]
	}
}
