package tictactoe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"zerosum/game"
)

func play(t *testing.T, g game.Game, moves ...string) game.State {
	t.Helper()
	state, err := g.InitialState()
	require.NoError(t, err)
	for _, m := range moves {
		role := g.TurnOrder(state)[0]
		state, err = g.Apply(state, role, game.Move(m))
		require.NoError(t, err, "move %s should be legal", m)
	}
	return state
}

func TestApply(t *testing.T) {
	g, _ := New(nil)

	t.Run("alternates turns", func(t *testing.T) {
		state := play(t, g, "b2")
		require.Equal(t, []game.Role{O, X}, g.TurnOrder(state))
		require.Equal(t, X, state.(State).Cells[4])
	})

	t.Run("rejects occupied cell as invalid move", func(t *testing.T) {
		state := play(t, g, "b2")
		_, err := g.Apply(state, O, "B2")
		var invalid *game.InvalidMoveError
		require.True(t, errors.As(err, &invalid), "Occupied cell should be an invalid move")
		require.Equal(t, O, invalid.Role)
	})

	t.Run("rejects malformed cell as invalid move", func(t *testing.T) {
		state := play(t, g)
		for _, m := range []string{"", "d1", "a4", "center"} {
			_, err := g.Apply(state, X, game.Move(m))
			var invalid *game.InvalidMoveError
			require.True(t, errors.As(err, &invalid), "Move %q should be invalid", m)
		}
	})

	t.Run("out of turn is a game fault", func(t *testing.T) {
		state := play(t, g)
		_, err := g.Apply(state, O, "a1")
		require.Error(t, err)
		var invalid *game.InvalidMoveError
		require.False(t, errors.As(err, &invalid))
	})

	t.Run("does not mutate the previous state", func(t *testing.T) {
		state := play(t, g, "a1")
		_, err := g.Apply(state, O, "c3")
		require.NoError(t, err)
		require.Equal(t, game.Role(""), state.(State).Cells[8])
	})
}

func TestIsTerminal(t *testing.T) {
	g, _ := New(nil)

	t.Run("row win", func(t *testing.T) {
		state := play(t, g, "a1", "a2", "b1", "b2", "c1")
		done, outcome := g.IsTerminal(state)
		require.True(t, done)
		require.Equal(t, game.Outcome{Kind: game.Win, Role: X, Reason: "three in a row"}, outcome)
	})

	t.Run("full board draw", func(t *testing.T) {
		state := play(t, g, "a1", "b1", "c1", "b2", "a2", "c2", "b3", "a3", "c3")
		done, outcome := g.IsTerminal(state)
		require.True(t, done)
		require.Equal(t, game.Draw, outcome.Kind)
	})

	t.Run("in progress", func(t *testing.T) {
		done, _ := g.IsTerminal(play(t, g, "a1"))
		require.False(t, done)
	})
}

func TestLegalMoves(t *testing.T) {
	g, _ := New(nil)
	state := play(t, g, "a1", "b2")
	moves := g.(game.Lister).LegalMoves(state, X)
	require.Len(t, moves, 7)
	require.NotContains(t, moves, game.Move("a1"))
	require.Empty(t, g.(game.Lister).LegalMoves(state, O), "Only the active role has legal moves")
}
