package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func(Args) (Game, error) { return nil, nil })

	t.Run("unknown game", func(t *testing.T) {
		_, err := r.Build("chess", nil)
		require.ErrorContains(t, err, `unknown game "chess"`)
	})

	t.Run("names are sorted", func(t *testing.T) {
		r.Register("alpha", func(Args) (Game, error) { return nil, nil })
		require.Equal(t, []string{"alpha", "stub"}, r.Names())
	})
}

func TestArgsInt(t *testing.T) {
	args := Args{"pile": "7", "bad": "x"}

	n, err := args.Int("pile", 1)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	n, err = args.Int("missing", 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = args.Int("bad", 0)
	require.Error(t, err)
}

func TestInvalidMoveError(t *testing.T) {
	err := Invalid("x", "z9", "cell %s is off the board", "z9")
	require.EqualError(t, err, `invalid move "z9" for x: cell z9 is off the board`)
}
