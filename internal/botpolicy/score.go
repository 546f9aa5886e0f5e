package botpolicy

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/tilebench/core/internal/boardmodel"
	"github.com/tilebench/core/internal/rules"
)

// tieEpsilon is the score gap within which two moves are treated as a
// near-tie for the top-group and lookahead steps of selection.
const tieEpsilon = 0.75

type scoredMove struct {
	move  rules.Move
	score float64
}

// SelectMove returns exactly one of moves: an optional mistake draw, an
// attention-filter pass, score-based sorting, a patience-gated top-group
// pick, and an optional lookahead tiebreak. moves must be non-empty. For
// a Profile with PatternRecognition>=0.99 (Optimal), no RNG draw is ever
// made, so the choice is a pure function of state.
func SelectMove(s *boardmodel.SimulationState, moves []rules.Move, p Profile, behaviorRNG *rand.Rand) rules.Move {
	if len(moves) == 0 {
		panic("botpolicy: SelectMove called with no legal moves")
	}

	if !p.IsDeterministic() && p.MistakeRate > 0 && behaviorRNG.Float64() < p.MistakeRate {
		return moves[behaviorRNG.IntN(len(moves))]
	}

	visible := attentionFilter(s, moves, p, behaviorRNG)

	scored := make([]scoredMove, len(visible))
	for i, mv := range visible {
		scored[i] = scoredMove{move: mv, score: scoreMove(s, mv, p, behaviorRNG)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	var pool []scoredMove
	if p.Patience < 0.5 {
		n := int(math.Ceil(float64(len(scored)) * p.Patience))
		if n < 1 {
			n = 1
		}
		pool = scored[:n]
	} else {
		pool = topTies(scored)
	}

	if p.LookaheadDepth > 0 && len(pool) > 1 {
		return lookaheadPick(moves, pool)
	}
	if p.Patience < 0.5 {
		return pool[behaviorRNG.IntN(len(pool))].move
	}
	return pool[0].move
}

// attentionFilter implements the "attention zone" bypass: Optimal
// (PatternRecognition>=0.99) sees every legal move. Other bots always see
// matching moves, and see non-matching moves at layer L with a
// probability that rises with pattern recognition and falls with depth
// below the level's top layer index, whether or not that layer still has
// unpicked tiles. Never filters down to zero moves.
func attentionFilter(s *boardmodel.SimulationState, moves []rules.Move, p Profile, behaviorRNG *rand.Rand) []rules.Move {
	if p.IsDeterministic() {
		return moves
	}
	topLayer := len(s.Level.Layers) - 1
	var visible []rules.Move
	for _, mv := range moves {
		if mv.WillMatch {
			visible = append(visible, mv)
			continue
		}
		depth := topLayer - mv.Primary.Layer
		prob := p.PatternRecognition - 0.15*float64(depth)
		prob = clamp01(prob)
		if behaviorRNG.Float64() < prob {
			visible = append(visible, mv)
		}
	}
	if len(visible) == 0 {
		return moves
	}
	return visible
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// scoreMove weighs a move by match completion, goal progress, layer
// depth, obstacle interaction, wide-match potential, dock pressure, and a
// skill-scaled noise term.
func scoreMove(s *boardmodel.SimulationState, mv rules.Move, p Profile, behaviorRNG *rand.Rand) float64 {
	score := 1.0

	if mv.WillMatch {
		if mv.DockSameTypeCount == 2 {
			score += 10
		} else {
			score += 3
		}
	}

	if progressesGoal(s, mv) {
		score += 2 * p.GoalPriority
	}

	score += 0.3 * float64(mv.Primary.Layer) * p.BlockingAwareness

	if isChainlike(mv) {
		score += 1.5 * p.ChainPreference
	}

	if mv.MatchCountHint > 3 {
		score += 0.5 * float64(mv.MatchCountHint-3) * p.PatternRecognition
	}

	if !p.IsDeterministic() {
		score += (1 - p.PatternRecognition) * behaviorRNG.Float64() * 2
	}

	if dockWouldRiskOverflow(s, mv) {
		score -= 3 * (1 - p.RiskTolerance)
	}

	return score
}

func progressesGoal(s *boardmodel.SimulationState, mv rules.Move) bool {
	v, ok := s.GoalsRemaining[mv.Type.String()]
	return ok && v > 0
}

func isChainlike(mv rules.Move) bool {
	switch mv.Effect {
	case boardmodel.EffectChain, boardmodel.EffectFrog, boardmodel.EffectLink:
		return true
	}
	return len(mv.Linked) > 0
}

// dockWouldRiskOverflow estimates whether applying mv, after its own
// immediate match (if any), would leave the dock over capacity.
func dockWouldRiskOverflow(s *boardmodel.SimulationState, mv rules.Move) bool {
	projected := len(s.Dock) + mv.TilesToAdd
	if mv.WillMatch {
		projected -= 3
	}
	return projected > s.Level.DockCapacity
}

// topTies returns the prefix of scored (already sorted descending) within
// tieEpsilon of the top score.
func topTies(scored []scoredMove) []scoredMove {
	if len(scored) == 0 {
		return scored
	}
	top := scored[0].score
	i := 0
	for i < len(scored) && top-scored[i].score <= tieEpsilon {
		i++
	}
	return scored[:i]
}

// lookaheadPick breaks a near-tie by a cheap one-ply heuristic: the
// number of other currently-legal moves sharing the candidate's tile
// type, a proxy for "accessible tiles of that type after the move"
// without mutating state to actually look ahead.
func lookaheadPick(allMoves []rules.Move, pool []scoredMove) rules.Move {
	typeCounts := map[boardmodel.TileType]int{}
	for _, mv := range allMoves {
		typeCounts[mv.Type]++
	}
	best := pool[0]
	bestCount := -1
	for _, sm := range pool {
		c := typeCounts[sm.move.Type]
		if c > bestCount {
			bestCount = c
			best = sm
		}
	}
	return best.move
}
