package riskevents

import "riskproxy/internal/riskheader"

// Level is the risk classification submitted to the risk-events API.
type Level string

const (
	LevelHigh   Level = "HIGH"
	LevelMedium Level = "MEDIUM"
	LevelLow    Level = "LOW"
)

// Score thresholds, inclusive lower bounds.
const (
	HighThreshold   = 80
	MediumThreshold = 30
)

// Classify maps a descriptor's score to a Level. A missing or unparseable
// score is LOW.
func Classify(d riskheader.Descriptor) Level {
	score, ok := d.Score()
	if !ok {
		return LevelLow
	}
	return LevelForScore(score)
}

// LevelForScore maps a numeric score to a Level.
func LevelForScore(score float64) Level {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
