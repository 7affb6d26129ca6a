package engine

import (
	"context"
	"errors"

	"zerosum/game"
	"zerosum/metrics"
	"zerosum/player"
)

// Status is the terminal state of a match.
type Status string

const (
	Won       Status = "won"
	Drawn     Status = "drawn"
	Forfeited Status = "forfeited"
	Aborted   Status = "aborted"
)

var (
	// ErrAttemptsExhausted means a player used every attempt of a round
	// without a valid move. Run turns it into a forfeit.
	ErrAttemptsExhausted = errors.New("player attempts exhausted")
	// ErrGameLogic wraps failures that end a match without an outcome: game
	// errors, player errors, panics and cancellation.
	ErrGameLogic = errors.New("game logic error")
)

type Engine interface {
	// Run plays g to a terminal state with one player bound to each role
	Run(ctx context.Context, g game.Game, players []PlayerConfig) (Result, error)
}

// PlayerConfig binds a player to a role. ID is the name recorded in logs.
type PlayerConfig struct {
	Role   game.Role
	ID     string
	Player player.Player
}

// RoundEntry records a single attempt.
type RoundEntry struct {
	Round   int
	Role    game.Role
	Player  string
	Move    game.Move
	Valid   bool
	Attempt int
	Reason  string
}

type Result struct {
	Status    Status
	Winner    game.Role // set for Won, and for Forfeited in two-role games
	Forfeiter game.Role
	// LimitDraw marks a draw caused by the round limit rather than the rules.
	LimitDraw bool
	Reason    string
	Final     game.State
	Rounds    int
	Log       []RoundEntry
	Metric    metrics.MatchMetric
}

// Score returns role's result in [0, 1]. Aborted matches have no score.
func (r Result) Score(role game.Role) (float64, bool) {
	switch r.Status {
	case Won:
		if r.Winner == role {
			return 1, true
		}
		return 0, true
	case Drawn:
		return 0.5, true
	case Forfeited:
		if r.Forfeiter == role {
			return 0, true
		}
		return 1, true
	default:
		return 0, false
	}
}
