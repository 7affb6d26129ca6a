package player

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"zerosum/config"
	"zerosum/game"
	"zerosum/game/nim"
	"zerosum/game/tictactoe"
	"zerosum/searcher"
)

type opaqueGame struct{ game.Game }

func TestRandom(t *testing.T) {
	g, err := nim.New(game.Args{"pile": "2", "max_take": "3"})
	require.NoError(t, err)
	state, err := g.InitialState()
	require.NoError(t, err)

	p, err := NewRandom(g, 42)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		move, err := p.ProposeMove(context.Background(), state, nim.First, "")
		require.NoError(t, err)
		require.Contains(t, []game.Move{"1", "2"}, move, "Random should only pick legal moves")
	}

	t.Run("requires a lister", func(t *testing.T) {
		_, err := NewRandom(opaqueGame{g}, 1)
		require.Error(t, err)
	})

	t.Run("same seed same moves", func(t *testing.T) {
		ttt, _ := tictactoe.New(nil)
		s, _ := ttt.InitialState()
		a, _ := NewRandom(ttt, 9)
		b, _ := NewRandom(ttt, 9)
		for i := 0; i < 5; i++ {
			ma, _ := a.ProposeMove(context.Background(), s, tictactoe.X, "")
			mb, _ := b.ProposeMove(context.Background(), s, tictactoe.X, "")
			require.Equal(t, ma, mb)
		}
	})
}

func TestFactory(t *testing.T) {
	g, err := tictactoe.New(nil)
	require.NoError(t, err)
	f := &Factory{Seed: 1}

	t.Run("random baseline", func(t *testing.T) {
		p, err := f.New("random", g)
		require.NoError(t, err)
		require.IsType(t, &Random{}, p)
	})

	t.Run("mcts baseline with iterations", func(t *testing.T) {
		p, err := f.New("mcts:50", g)
		require.NoError(t, err)
		require.IsType(t, &searcher.MCTS{}, p)
	})

	t.Run("mcts rejects bad iterations", func(t *testing.T) {
		_, err := f.New("mcts:lots", g)
		require.Error(t, err)
	})

	t.Run("chat model needs a key", func(t *testing.T) {
		_, err := f.New("openai/gpt-4o-mini", g)
		require.ErrorContains(t, err, "API key missing")
	})

	t.Run("chat model with a key", func(t *testing.T) {
		keyed := &Factory{LLM: config.LLM{OpenAIKey: "sk-test"}}
		p, err := keyed.New("gpt-4o-mini", g)
		require.NoError(t, err)
		require.IsType(t, &LLM{}, p)
	})
}
