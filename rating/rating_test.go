package rating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zerosum/engine"
	"zerosum/matchlog"
)

func win(id, winner, loser string) matchlog.Summary {
	return matchlog.Summary{
		MatchID:      id,
		Participants: map[string]string{"first": winner, "second": loser},
		Status:       engine.Won,
		Winner:       "first",
	}
}

func draw(id, a, b string, limit bool) matchlog.Summary {
	return matchlog.Summary{
		MatchID:      id,
		Participants: map[string]string{"first": a, "second": b},
		Status:       engine.Drawn,
		LimitDraw:    limit,
	}
}

func TestEstimateStandardFormula(t *testing.T) {
	t.Run("single win", func(t *testing.T) {
		ratings, err := Estimate([]matchlog.Summary{win("1", "A", "B")}, WithBootstrapRounds(1))
		require.NoError(t, err)

		require.InDelta(t, 1016, ratings["A"].Mean, 1e-9, "A expected 0.5 and scored 1 with K=32")
		require.InDelta(t, 984, ratings["B"].Mean, 1e-9)
		require.Equal(t, 1, ratings["A"].Matches)
	})

	t.Run("two wins", func(t *testing.T) {
		ratings, err := Estimate([]matchlog.Summary{win("1", "A", "B"), win("2", "A", "B")}, WithBootstrapRounds(5))
		require.NoError(t, err)

		second := 32 * (1 - Expected(1016, 984))
		require.InDelta(t, 1016+second, ratings["A"].Mean, 1e-9)
		require.InDelta(t, 984-second, ratings["B"].Mean, 1e-9)
		require.InDelta(t, 0, ratings["A"].Std, 1e-9, "Identical matches give the same rating in any order")
	})

	t.Run("draw between equals", func(t *testing.T) {
		ratings, err := Estimate([]matchlog.Summary{draw("1", "A", "B", false)}, WithBootstrapRounds(1))
		require.NoError(t, err)
		require.InDelta(t, 1000, ratings["A"].Mean, 1e-9)
	})

	t.Run("forfeit counts as a loss", func(t *testing.T) {
		s := matchlog.Summary{
			MatchID:      "1",
			Participants: map[string]string{"first": "A", "second": "B"},
			Status:       engine.Forfeited,
			Forfeiter:    "first",
			Winner:       "second",
		}
		ratings, err := Estimate([]matchlog.Summary{s}, WithBootstrapRounds(1))
		require.NoError(t, err)
		require.InDelta(t, 984, ratings["A"].Mean, 1e-9)
		require.InDelta(t, 1016, ratings["B"].Mean, 1e-9)
	})

	t.Run("custom K and baseline", func(t *testing.T) {
		ratings, err := Estimate([]matchlog.Summary{win("1", "A", "B")}, WithBootstrapRounds(1), WithK(10), WithBaseline(1500))
		require.NoError(t, err)
		require.InDelta(t, 1505, ratings["A"].Mean, 1e-9)
	})
}

func TestEstimateMultiplayer(t *testing.T) {
	s := matchlog.Summary{
		MatchID:      "1",
		Participants: map[string]string{"a": "A", "b": "B", "c": "C"},
		Status:       engine.Won,
		Winner:       "a",
	}
	ratings, err := Estimate([]matchlog.Summary{s}, WithBootstrapRounds(1))
	require.NoError(t, err)

	require.InDelta(t, 1032, ratings["A"].Mean, 1e-9, "The winner beats both losers")
	require.InDelta(t, 984, ratings["B"].Mean, 1e-9, "Losers draw with each other")
	require.InDelta(t, 984, ratings["C"].Mean, 1e-9)
}

func TestEstimateSkipsMatches(t *testing.T) {
	aborted := matchlog.Summary{MatchID: "x", Participants: map[string]string{"first": "A", "second": "C"}, Status: engine.Aborted}
	warm := win("w", "B", "A")
	warm.Warmup = true
	summaries := []matchlog.Summary{win("1", "A", "B"), aborted, warm, draw("2", "A", "B", true)}

	t.Run("aborted matches never count", func(t *testing.T) {
		ratings, err := Estimate(summaries, WithBootstrapRounds(3))
		require.NoError(t, err)
		require.NotContains(t, ratings, "C")
		require.Equal(t, 3, ratings["A"].Matches)
	})

	t.Run("without warm-up", func(t *testing.T) {
		ratings, err := Estimate(summaries, WithBootstrapRounds(3), WithoutWarmup())
		require.NoError(t, err)
		require.Equal(t, 2, ratings["A"].Matches)
	})

	t.Run("without limit draws", func(t *testing.T) {
		ratings, err := Estimate(summaries, WithBootstrapRounds(1), WithoutWarmup(), WithoutLimitDraws())
		require.NoError(t, err)
		require.Equal(t, 1, ratings["A"].Matches)
		require.InDelta(t, 1016, ratings["A"].Mean, 1e-9)
	})

	t.Run("half weight limit draws", func(t *testing.T) {
		full, err := Estimate([]matchlog.Summary{win("1", "A", "B"), draw("2", "A", "B", true)}, WithBootstrapRounds(20), WithSeed(2))
		require.NoError(t, err)
		half, err := Estimate([]matchlog.Summary{win("1", "A", "B"), draw("2", "A", "B", true)}, WithBootstrapRounds(20), WithSeed(2), WithLimitDrawWeight(0.5))
		require.NoError(t, err)
		require.NotEqual(t, full["A"].Mean, half["A"].Mean, "Limit draws should move ratings less")
	})
}

func TestEstimateErrors(t *testing.T) {
	cases := map[string]struct {
		summaries []matchlog.Summary
		options   []Option
	}{
		"zero bootstrap rounds": {summaries: []matchlog.Summary{win("1", "A", "B")}, options: []Option{WithBootstrapRounds(0)}},
		"single participant":    {summaries: []matchlog.Summary{{MatchID: "1", Participants: map[string]string{"first": "A"}, Status: engine.Won, Winner: "first"}}},
		"only aborted":          {summaries: []matchlog.Summary{{MatchID: "1", Participants: map[string]string{"first": "A", "second": "B"}, Status: engine.Aborted}}},
		"missing model":         {summaries: []matchlog.Summary{win("1", "A", "B")}, options: []Option{WithModels("A", "Z")}},
		"nothing":               {},
		"unknown status": {summaries: []matchlog.Summary{win("1", "A", "B"),
			{MatchID: "2", Participants: map[string]string{"first": "A", "second": "B"}, Status: "exploded"}}},
		"winner missing": {summaries: []matchlog.Summary{win("1", "A", "B"),
			{MatchID: "2", Participants: map[string]string{"first": "A", "second": "B"}, Status: engine.Won}}},
		"winner not a role": {summaries: []matchlog.Summary{
			{MatchID: "1", Participants: map[string]string{"first": "A", "second": "B"}, Status: engine.Won, Winner: "nobody"}}},
		"forfeiter not a role": {summaries: []matchlog.Summary{
			{MatchID: "1", Participants: map[string]string{"first": "A", "second": "B"}, Status: engine.Forfeited, Forfeiter: "third"}}},
		"empty model": {summaries: []matchlog.Summary{
			{MatchID: "1", Participants: map[string]string{"first": "A", "second": ""}, Status: engine.Drawn}}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			ratings, err := Estimate(c.summaries, c.options...)
			require.ErrorIs(t, err, ErrRatingInput)
			require.Nil(t, ratings, "No partial mapping on failure")
		})
	}
}

// orderDependent is a fixed multiset of results whose sequential Elo
// depends on replay order.
func orderDependent() []matchlog.Summary {
	var out []matchlog.Summary
	for i := 0; i < 6; i++ {
		out = append(out, win(fmt.Sprint("a", i), "A", "B"), win(fmt.Sprint("b", i), "B", "A"))
	}
	out = append(out, win("c", "A", "C"), win("d", "C", "B"))
	return out
}

func spread(t *testing.T, rounds int) float64 {
	t.Helper()
	var values []float64
	for seed := uint64(1); seed <= 30; seed++ {
		ratings, err := Estimate(orderDependent(), WithBootstrapRounds(rounds), WithSeed(seed))
		require.NoError(t, err)
		values = append(values, ratings["A"].Mean)
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return variance / float64(len(values))
}

func TestBootstrapReducesVariance(t *testing.T) {
	one := spread(t, 1)
	many := spread(t, 200)

	require.Greater(t, one, 0.0, "A single pass should depend on order")
	require.Less(t, many, one/10, "More passes should shrink order-induced variance")

	ratings, err := Estimate(orderDependent(), WithBootstrapRounds(50), WithSeed(1))
	require.NoError(t, err)
	require.Greater(t, ratings["A"].Std, 0.0)
}

func TestEstimateDeterministicWithSeed(t *testing.T) {
	a, err := Estimate(orderDependent(), WithBootstrapRounds(20), WithSeed(9))
	require.NoError(t, err)
	b, err := Estimate(orderDependent(), WithBootstrapRounds(20), WithSeed(9))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRanked(t *testing.T) {
	ratings := Ratings{
		"B": {Model: "B", Mean: 1010},
		"A": {Model: "A", Mean: 1010},
		"C": {Model: "C", Mean: 1100},
	}
	ranked := ratings.Ranked()
	require.Equal(t, []string{"C", "A", "B"}, []string{ranked[0].Model, ranked[1].Model, ranked[2].Model})
}

func TestFromDir(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		ratings, err := FromDir(t.TempDir())
		require.ErrorIs(t, err, ErrRatingInput)
		require.Nil(t, ratings)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := FromDir(filepath.Join(t.TempDir(), "gone"))
		require.ErrorIs(t, err, ErrRatingInput)
	})

	t.Run("malformed log", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "match_1.jsonl"), []byte("not json\n"), 0644))
		_, err := FromDir(dir)
		require.ErrorIs(t, err, ErrRatingInput)
	})

	t.Run("winner is not a participant", func(t *testing.T) {
		dir := t.TempDir()
		w, err := matchlog.NewWriter(dir)
		require.NoError(t, err)
		_, err = w.WriteMatch(matchlog.Match{Summary: win("1", "A", "B")})
		require.NoError(t, err)
		bad := win("2", "A", "B")
		bad.Winner = "nobody"
		_, err = w.WriteMatch(matchlog.Match{Summary: bad})
		require.NoError(t, err)

		ratings, err := FromDir(dir)
		require.ErrorIs(t, err, ErrRatingInput)
		require.ErrorContains(t, err, "nobody")
		require.Nil(t, ratings)
	})

	t.Run("round trip", func(t *testing.T) {
		dir := t.TempDir()
		w, err := matchlog.NewWriter(dir)
		require.NoError(t, err)
		_, err = w.WriteMatch(matchlog.Match{Summary: win("1", "M1", "M2")})
		require.NoError(t, err)
		_, err = w.WriteMatch(matchlog.Match{Summary: draw("2", "M1", "M2", false)})
		require.NoError(t, err)

		ratings, err := FromDir(dir, WithBootstrapRounds(10), WithModels("M1", "M2"))
		require.NoError(t, err)
		require.Len(t, ratings, 2)
		require.Greater(t, ratings["M1"].Mean, ratings["M2"].Mean)
		require.InDelta(t, 2000, ratings["M1"].Mean+ratings["M2"].Mean, 1e-9, "Elo is zero-sum")
		require.False(t, math.IsNaN(ratings["M1"].Std))
	})
}

type index struct {
	summaries []matchlog.Summary
	err       error
}

func (i index) Matches(context.Context) ([]matchlog.Summary, error) {
	return i.summaries, i.err
}

func TestFromIndex(t *testing.T) {
	ctx := context.Background()

	ratings, err := FromIndex(ctx, index{summaries: []matchlog.Summary{win("1", "A", "B")}}, WithBootstrapRounds(1))
	require.NoError(t, err)
	require.InDelta(t, 1016, ratings["A"].Mean, 1e-9)

	_, err = FromIndex(ctx, index{})
	require.ErrorIs(t, err, ErrRatingInput)

	failure := errors.New("database is locked")
	_, err = FromIndex(ctx, index{err: failure})
	require.ErrorIs(t, err, failure)
}
