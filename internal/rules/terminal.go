package rules

import "github.com/tilebench/core/internal/boardmodel"

// CheckTerminal evaluates s against the termination rules and sets Cleared
// or Failed if reached. It is a no-op once either is already set: terminal
// state is monotonic. ApplyMove invokes it at the end of every move;
// callers invoke it once before the first move, to catch an unplayable
// opening position. A board cleared
// on the final allowed move counts as cleared, not exhausted.
func CheckTerminal(s *boardmodel.SimulationState) {
	if s.Cleared || s.Failed {
		return
	}
	if isCleared(s) {
		s.Cleared = true
		return
	}
	if s.MovesUsed >= s.Level.MaxMoves {
		s.Fail(boardmodel.FailExhausted)
		return
	}
	if len(LegalMoves(s)) == 0 {
		s.Fail(boardmodel.FailNoMoves)
	}
}

func isCleared(s *boardmodel.SimulationState) bool {
	for _, v := range s.GoalsRemaining {
		if v != 0 {
			return false
		}
	}
	if len(s.Dock) != 0 {
		return false
	}
	for _, layer := range s.Tiles {
		for _, ts := range layer {
			if !ts.Picked {
				return false
			}
		}
	}
	return true
}
