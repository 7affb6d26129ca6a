// Package nim is a single-pile subtraction game: players alternately take
// between one and max_take objects, and whoever takes the last one wins.
package nim

import (
	"fmt"
	"strconv"
	"strings"

	"zerosum/game"
)

const (
	First  game.Role = "first"
	Second game.Role = "second"
)

type State struct {
	Pile    int
	MaxTake int
	Next    game.Role
	Last    game.Role // role that made the previous move
}

func (s State) String() string {
	return fmt.Sprintf("pile: %d (take 1-%d)\nto move: %s", s.Pile, s.MaxTake, s.Next)
}

type Game struct {
	pile    int
	maxTake int
}

// New builds a nim game from the "pile" (default 21) and "max_take"
// (default 3) arguments.
func New(args game.Args) (game.Game, error) {
	pile, err := args.Int("pile", 21)
	if err != nil {
		return nil, err
	}
	maxTake, err := args.Int("max_take", 3)
	if err != nil {
		return nil, err
	}
	if pile < 1 || maxTake < 1 {
		return nil, fmt.Errorf("pile and max_take must be positive, got %d and %d", pile, maxTake)
	}
	return &Game{pile: pile, maxTake: maxTake}, nil
}

func (g *Game) Name() string { return "nim" }

func (g *Game) Roles() []game.Role { return []game.Role{First, Second} }

func (g *Game) InitialState() (game.State, error) {
	return State{Pile: g.pile, MaxTake: g.maxTake, Next: First}, nil
}

func (g *Game) TurnOrder(s game.State) []game.Role {
	if s.(State).Next == Second {
		return []game.Role{Second, First}
	}
	return []game.Role{First, Second}
}

func (g *Game) Apply(s game.State, role game.Role, move game.Move) (game.State, error) {
	st, ok := s.(State)
	if !ok {
		return nil, fmt.Errorf("unexpected state type %T", s)
	}
	if role != st.Next {
		return nil, fmt.Errorf("role %s moved out of turn, expected %s", role, st.Next)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(move)))
	if err != nil {
		return nil, game.Invalid(role, move, "expected a whole number")
	}
	if n < 1 || n > st.MaxTake || n > st.Pile {
		return nil, game.Invalid(role, move, "must take between 1 and %d", min(st.MaxTake, st.Pile))
	}
	return State{Pile: st.Pile - n, MaxTake: st.MaxTake, Next: other(role), Last: role}, nil
}

func (g *Game) IsTerminal(s game.State) (bool, game.Outcome) {
	st := s.(State)
	if st.Pile == 0 {
		return true, game.Outcome{Kind: game.Win, Role: st.Last, Reason: "took the last object"}
	}
	return false, game.Outcome{}
}

func (g *Game) LegalMoves(s game.State, role game.Role) []game.Move {
	st := s.(State)
	if role != st.Next {
		return nil
	}
	moves := make([]game.Move, 0, st.MaxTake)
	for n := 1; n <= min(st.MaxTake, st.Pile); n++ {
		moves = append(moves, game.Move(strconv.Itoa(n)))
	}
	return moves
}

func (g *Game) Describe(s game.State, role game.Role) string {
	st := s.(State)
	return fmt.Sprintf("You play nim as %q. There is one pile of %d objects; on each turn a player takes "+
		"between 1 and %d of them. Whoever takes the last object wins. Answer with a single line of the form "+
		"`MOVE: <number>`.", role, st.Pile, st.MaxTake)
}

func other(r game.Role) game.Role {
	if r == First {
		return Second
	}
	return First
}
