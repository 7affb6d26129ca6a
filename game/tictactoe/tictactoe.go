// Package tictactoe is a three-in-a-row game for two roles, x and o.
package tictactoe

import (
	"fmt"
	"strings"

	"zerosum/game"
)

const (
	X game.Role = "x"
	O game.Role = "o"
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// State is a board snapshot. Cells hold "", "x" or "o", indexed row-major
// from a1 (top left) to c3 (bottom right).
type State struct {
	Cells [9]game.Role
	Next  game.Role
	Plies int
}

func (s State) String() string {
	var b strings.Builder
	b.WriteString("   a b c\n")
	for row := 0; row < 3; row++ {
		fmt.Fprintf(&b, "%d ", row+1)
		for col := 0; col < 3; col++ {
			c := s.Cells[row*3+col]
			if c == "" {
				b.WriteString(" .")
			} else {
				b.WriteString(" " + string(c))
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "to move: %s", s.Next)
	return b.String()
}

type Game struct{}

// New builds a tic-tac-toe game. It takes no arguments.
func New(game.Args) (game.Game, error) {
	return Game{}, nil
}

func (Game) Name() string { return "tictactoe" }

func (Game) Roles() []game.Role { return []game.Role{X, O} }

func (Game) InitialState() (game.State, error) {
	return State{Next: X}, nil
}

func (Game) TurnOrder(s game.State) []game.Role {
	st := s.(State)
	if st.Next == O {
		return []game.Role{O, X}
	}
	return []game.Role{X, O}
}

func (g Game) Apply(s game.State, role game.Role, move game.Move) (game.State, error) {
	st, ok := s.(State)
	if !ok {
		return nil, fmt.Errorf("unexpected state type %T", s)
	}
	if role != st.Next {
		return nil, fmt.Errorf("role %s moved out of turn, expected %s", role, st.Next)
	}
	idx, err := parseCell(move)
	if err != nil {
		return nil, game.Invalid(role, move, "%v", err)
	}
	if st.Cells[idx] != "" {
		return nil, game.Invalid(role, move, "cell is already taken by %s", st.Cells[idx])
	}
	next := st
	next.Cells[idx] = role
	next.Plies++
	next.Next = opponent(role)
	return next, nil
}

func (Game) IsTerminal(s game.State) (bool, game.Outcome) {
	st := s.(State)
	for _, l := range lines {
		c := st.Cells[l[0]]
		if c != "" && c == st.Cells[l[1]] && c == st.Cells[l[2]] {
			return true, game.Outcome{Kind: game.Win, Role: c, Reason: "three in a row"}
		}
	}
	if st.Plies == len(st.Cells) {
		return true, game.Outcome{Kind: game.Draw, Reason: "board full"}
	}
	return false, game.Outcome{}
}

func (Game) LegalMoves(s game.State, role game.Role) []game.Move {
	st := s.(State)
	if role != st.Next {
		return nil
	}
	var moves []game.Move
	for i, c := range st.Cells {
		if c == "" {
			moves = append(moves, cellName(i))
		}
	}
	return moves
}

func (g Game) Describe(s game.State, role game.Role) string {
	return fmt.Sprintf("You play tic-tac-toe as %q. Players alternate placing their mark on a 3x3 board; "+
		"three marks in a row, column or diagonal wins. Name an empty cell by column letter and row number, "+
		"e.g. b2. Legal moves now: %v. Answer with a single line of the form `MOVE: <cell>`.",
		role, g.LegalMoves(s, role))
}

func parseCell(m game.Move) (int, error) {
	v := string(game.NormalizeMove(m))
	if len(v) != 2 {
		return 0, fmt.Errorf("expected a cell like b2")
	}
	col := int(v[0] - 'a')
	row := int(v[1] - '1')
	if col < 0 || col > 2 || row < 0 || row > 2 {
		return 0, fmt.Errorf("cell %s is off the board", v)
	}
	return row*3 + col, nil
}

func cellName(idx int) game.Move {
	return game.Move(fmt.Sprintf("%c%d", 'a'+idx%3, idx/3+1))
}

func opponent(r game.Role) game.Role {
	if r == X {
		return O
	}
	return X
}
