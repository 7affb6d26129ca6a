package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("counts concurrently", func(t *testing.T) {
		c := NewCollector()
		c.Start()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.AddRound()
				c.AddAttempt()
				c.AddAttempt()
				c.AddInvalidMove()
			}()
		}
		wg.Wait()

		m := c.Complete()
		require.Equal(t, 8, m.Rounds)
		require.Equal(t, 16, m.Attempts)
		require.Equal(t, 8, m.InvalidMoves)
		require.False(t, m.EndTime.Before(m.StartTime), "End time should not precede start time")
	})

	t.Run("dummy collector reports nothing", func(t *testing.T) {
		c := NewDummyCollector()
		c.Start()
		c.AddRound()
		require.Equal(t, MatchMetric{}, c.Complete())
	})
}
