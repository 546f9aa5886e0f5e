// Package botpolicy scores and selects moves on behalf of one of five
// player archetypes: a small struct of weights threaded through a pure
// scoring function, with mistakes and noise gated by an explicit RNG
// rather than ambient randomness.
package botpolicy

import "fmt"

// Archetype names one of the five predefined skill tiers.
type Archetype int

const (
	Novice Archetype = iota
	Casual
	Average
	Expert
	Optimal
)

func (a Archetype) String() string {
	switch a {
	case Novice:
		return "novice"
	case Casual:
		return "casual"
	case Average:
		return "average"
	case Expert:
		return "expert"
	case Optimal:
		return "optimal"
	default:
		return fmt.Sprintf("archetype(%d)", int(a))
	}
}

// Profile is the parameter vector a bot scores and selects moves with.
// All fields except LookaheadDepth and Weight are in [0,1].
type Profile struct {
	Archetype          Archetype
	MistakeRate        float64
	LookaheadDepth     int
	GoalPriority       float64
	BlockingAwareness  float64
	ChainPreference    float64
	Patience           float64
	RiskTolerance      float64
	PatternRecognition float64
	Weight             float64
}

// IsDeterministic reports whether this profile's moves are a pure
// function of state, requiring no behavior-RNG draw. The threshold
// mirrors the attention-filter bypass: pattern recognition >= 0.99.
func (p Profile) IsDeterministic() bool {
	return p.PatternRecognition >= 0.99
}

// Profiles is the read-only table of the five predefined archetypes.
var Profiles = map[Archetype]Profile{
	Novice: {
		Archetype: Novice, MistakeRate: 0.40, LookaheadDepth: 0,
		GoalPriority: 0.30, BlockingAwareness: 0.20, ChainPreference: 0.10,
		Patience: 0.30, RiskTolerance: 0.30, PatternRecognition: 0.20, Weight: 0.5,
	},
	Casual: {
		Archetype: Casual, MistakeRate: 0.20, LookaheadDepth: 1,
		GoalPriority: 0.50, BlockingAwareness: 0.40, ChainPreference: 0.30,
		Patience: 0.40, RiskTolerance: 0.40, PatternRecognition: 0.40, Weight: 1.0,
	},
	Average: {
		Archetype: Average, MistakeRate: 0.10, LookaheadDepth: 2,
		GoalPriority: 0.70, BlockingAwareness: 0.70, ChainPreference: 0.60,
		Patience: 0.50, RiskTolerance: 0.50, PatternRecognition: 0.60, Weight: 1.5,
	},
	Expert: {
		Archetype: Expert, MistakeRate: 0.03, LookaheadDepth: 4,
		GoalPriority: 0.90, BlockingAwareness: 0.90, ChainPreference: 0.80,
		Patience: 0.70, RiskTolerance: 0.70, PatternRecognition: 0.80, Weight: 0.8,
	},
	Optimal: {
		Archetype: Optimal, MistakeRate: 0.00, LookaheadDepth: 8,
		GoalPriority: 1.00, BlockingAwareness: 1.00, ChainPreference: 1.00,
		Patience: 1.00, RiskTolerance: 1.00, PatternRecognition: 1.00, Weight: 0.3,
	},
}

// AllArchetypes lists every predefined archetype in ascending skill
// order.
func AllArchetypes() []Archetype {
	return []Archetype{Novice, Casual, Average, Expert, Optimal}
}

// DefaultTeam is the full five-archetype roster.
func DefaultTeam() []Archetype {
	return []Archetype{Novice, Casual, Average, Expert, Optimal}
}

// CasualTeam is a lighter roster biased toward the low-skill end, useful
// for levels aimed at a new-player audience where Expert/Optimal feedback
// is less informative.
func CasualTeam() []Archetype {
	return []Archetype{Novice, Casual, Average}
}

// HardcoreTeam is a roster biased toward the high-skill end.
func HardcoreTeam() []Archetype {
	return []Archetype{Average, Expert, Optimal}
}
