package searcher

import "zerosum/game"

// Hyperparameters for MCTS

const CSquared = 2.0 // Exploration constant

// Rewards estimate the chance of winning; a draw is worth half a win.
const (
	Win  = 1.0
	Draw = 0.5
	Loss = 0.0
)

// MaxCutoff bounds random rollouts for games that may never end.
const MaxCutoff = 200

// reward scores a terminal outcome from role's perspective.
func reward(outcome game.Outcome, role game.Role) float64 {
	switch outcome.Kind {
	case game.Win:
		if outcome.Role == role {
			return Win
		}
		return Loss
	case game.Forfeit:
		if outcome.Role == role {
			return Loss
		}
		return Win
	default:
		return Draw
	}
}
