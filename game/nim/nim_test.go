package nim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"zerosum/game"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		g, err := New(nil)
		require.NoError(t, err)
		state, err := g.InitialState()
		require.NoError(t, err)
		require.Equal(t, State{Pile: 21, MaxTake: 3, Next: First}, state)
	})

	t.Run("rejects bad arguments", func(t *testing.T) {
		_, err := New(game.Args{"pile": "lots"})
		require.Error(t, err)
		_, err = New(game.Args{"max_take": "0"})
		require.Error(t, err)
	})
}

func TestPlay(t *testing.T) {
	g, err := New(game.Args{"pile": "4", "max_take": "3"})
	require.NoError(t, err)
	state, _ := g.InitialState()

	t.Run("rejects out of range take", func(t *testing.T) {
		for _, m := range []game.Move{"0", "4", "two"} {
			_, err := g.Apply(state, First, m)
			var invalid *game.InvalidMoveError
			require.True(t, errors.As(err, &invalid), "Move %q should be invalid", m)
		}
	})

	t.Run("last take wins", func(t *testing.T) {
		s, err := g.Apply(state, First, "1")
		require.NoError(t, err)
		done, _ := g.IsTerminal(s)
		require.False(t, done)

		s, err = g.Apply(s, Second, "3")
		require.NoError(t, err)
		done, outcome := g.IsTerminal(s)
		require.True(t, done)
		require.Equal(t, game.Win, outcome.Kind)
		require.Equal(t, Second, outcome.Role)
	})

	t.Run("legal moves shrink with the pile", func(t *testing.T) {
		s, _ := g.Apply(state, First, "3")
		require.Equal(t, []game.Move{"1"}, g.(game.Lister).LegalMoves(s, Second))
	})
}
