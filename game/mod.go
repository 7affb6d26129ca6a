package game

import (
	"fmt"
	"strings"
)

// Role names a seat in a game, e.g. "white" or "teacher".
type Role string

// Move is the raw move a player proposes for its role. Only the Game decides
// whether it is valid.
type Move string

// State should be immutable - Apply always returns a new State.
type State interface {
	// String renders the state for operators and prompts.
	String() string
}

type OutcomeKind int

const (
	None OutcomeKind = iota
	Win
	Draw
	Forfeit
)

func (k OutcomeKind) String() string {
	switch k {
	case Win:
		return "win"
	case Draw:
		return "draw"
	case Forfeit:
		return "forfeit"
	default:
		return "none"
	}
}

// Outcome describes how a terminal state ended. Role is the winner for Win,
// the forfeiting role for Forfeit, and empty for Draw.
type Outcome struct {
	Kind   OutcomeKind
	Role   Role
	Reason string
}

// Game is the capability every game variant implements. Implementations must
// not mutate a State passed to them.
type Game interface {
	Name() string
	Roles() []Role
	InitialState() (State, error)
	// TurnOrder returns the roles in playing order; the first one is active.
	TurnOrder(State) []Role
	// Apply returns an *InvalidMoveError when the move breaks the format or
	// the rules. Any other error is treated as a fault in the game itself.
	Apply(State, Role, Move) (State, error)
	IsTerminal(State) (bool, Outcome)
}

// Lister is implemented by games that can enumerate legal moves.
type Lister interface {
	LegalMoves(State, Role) []Move
}

// Describer is implemented by games that can explain their rules and move
// format to a player.
type Describer interface {
	Describe(State, Role) string
}

// InvalidMoveError reports a move rejected for its format or content.
type InvalidMoveError struct {
	Role   Role
	Move   Move
	Reason string
}

func (e *InvalidMoveError) Error() string {
	if e.Move == "" {
		return fmt.Sprintf("invalid move for %s: %s", e.Role, e.Reason)
	}
	return fmt.Sprintf("invalid move %q for %s: %s", e.Move, e.Role, e.Reason)
}

// Invalid builds an *InvalidMoveError with a formatted reason.
func Invalid(role Role, move Move, format string, args ...any) error {
	return &InvalidMoveError{Role: role, Move: move, Reason: fmt.Sprintf(format, args...)}
}

// Other returns every role in roles except r.
func Other(roles []Role, r Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		if role != r {
			out = append(out, role)
		}
	}
	return out
}

// NormalizeMove trims whitespace and lowercases a move.
func NormalizeMove(m Move) Move {
	return Move(strings.ToLower(strings.TrimSpace(string(m))))
}
