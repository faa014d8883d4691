// Package report turns fetched guild profiles into ranked, human-readable
// output: difficulty-aware sorting and a monospace table renderer.
package report

import (
	"strconv"
	"strings"
)

// Difficulty levels in order of importance (higher = better).
type Difficulty int

const (
	LFR Difficulty = iota + 1
	Normal
	Heroic
	Mythic
)

// String returns the short difficulty label used in progression strings.
func (d Difficulty) String() string {
	switch d {
	case LFR:
		return "LFR"
	case Normal:
		return "N"
	case Heroic:
		return "H"
	case Mythic:
		return "M"
	default:
		return "?"
	}
}

// difficultyFromProgress reads the difficulty suffix of a progression string
// like "5/8 M". Unknown suffixes default to Normal.
func difficultyFromProgress(progress string) Difficulty {
	if strings.Contains(progress, "LFR") {
		return LFR
	}

	trimmed := strings.TrimSpace(progress)
	if trimmed == "" {
		return Normal
	}
	switch trimmed[len(trimmed)-1] {
	case 'M':
		return Mythic
	case 'H':
		return Heroic
	default:
		return Normal
	}
}

// ParseProgression extracts boss count and difficulty from a progression
// string in "X/Y D" format. Malformed input parses as zero bosses on Normal.
func ParseProgression(progress string) (bosses int, difficulty Difficulty) {
	head, _, _ := strings.Cut(progress, "/")
	bosses, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || bosses < 0 {
		bosses = 0
	}
	return bosses, difficultyFromProgress(progress)
}

// CompareProgression orders two progression strings: difficulty first
// (Mythic > Heroic > Normal > LFR), boss count within the same difficulty.
// Returns <0 if a is behind b, 0 if equal, >0 if a is ahead.
func CompareProgression(a, b string) int {
	bossesA, diffA := ParseProgression(a)
	bossesB, diffB := ParseProgression(b)

	if diffA != diffB {
		return int(diffA) - int(diffB)
	}
	return bossesA - bossesB
}
