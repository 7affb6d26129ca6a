package matchlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"zerosum/config"
	"zerosum/engine"
	"zerosum/metrics"
)

func sampleMatch(id string) Match {
	return Match{
		Rounds: []Round{
			{Round: 1, Role: "x", Model: "m1", Move: "zz", Valid: false, Attempt: 1, Reason: "cell is off the board"},
			{Round: 1, Role: "x", Model: "m1", Move: "b2", Valid: true, Attempt: 2},
			{Round: 2, Role: "o", Model: "m2", Move: "a1", Valid: true, Attempt: 1},
		},
		Summary: Summary{
			MatchID:      id,
			Game:         "tictactoe",
			Participants: map[string]string{"x": "m1", "o": "m2"},
			Status:       engine.Won,
			Winner:       "x",
			Reason:       "three in a row",
			Rounds:       2,
			Metric:       metrics.MatchMetric{Rounds: 2, Attempts: 3, InvalidMoves: 1},
			FinalState:   "board",
		},
	}
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	in := sampleMatch("abc")
	path, err := w.WriteMatch(in)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "matches", "match_abc.jsonl"), path)

	out, err := ReadFile(path)
	require.NoError(t, err)

	require.Len(t, out.Rounds, len(in.Rounds))
	for i := range in.Rounds {
		want := in.Rounds[i]
		want.Type = TypeRound
		require.Equal(t, want, out.Rounds[i], "Round order and fields should survive")
	}
	want := in.Summary
	want.Type = TypeSummary
	require.Equal(t, want, out.Summary)

	entries, err := os.ReadDir(filepath.Join(dir, "matches"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "No temporary files should be left behind")
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	for _, id := range []string{"b", "a", "c"} {
		_, err := w.WriteMatch(sampleMatch(id))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	matches, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "a", matches[0].Summary.MatchID)

	t.Run("missing directory", func(t *testing.T) {
		_, err := ReadDir(filepath.Join(dir, "nope"))
		require.Error(t, err)
	})
}

func TestReadFileMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        "{oops\n",
		"missing summary": `{"type":"round","round":1,"role":"x","model":"m1","move":"a1","valid":true,"attempt":1}` + "\n",
		"unknown type":    `{"type":"chat"}` + "\n",
		"trailing record": `{"type":"summary","match_id":"1"}` + "\n" + `{"type":"round"}` + "\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "match_1.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := ReadFile(path)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestSummaryScore(t *testing.T) {
	s := Summary{Participants: map[string]string{"x": "m1", "o": "m2"}, Status: engine.Forfeited, Forfeiter: "o", Winner: "x"}
	score, ok := s.Score("o")
	require.True(t, ok)
	require.Equal(t, 0.0, score)
	score, ok = s.Score("x")
	require.True(t, ok)
	require.Equal(t, 1.0, score)

	s.Status = engine.Aborted
	_, ok = s.Score("x")
	require.False(t, ok)

	require.Equal(t, []string{"o", "x"}, s.Roles())
}

func TestTally(t *testing.T) {
	wdl := map[string]WDL{}
	participants := map[string]string{"x": "m1", "o": "m2"}
	Tally(wdl, Summary{Participants: participants, Status: engine.Won, Winner: "x"})
	Tally(wdl, Summary{Participants: participants, Status: engine.Drawn, LimitDraw: true})
	Tally(wdl, Summary{Participants: participants, Status: engine.Forfeited, Forfeiter: "x", Winner: "o"})
	Tally(wdl, Summary{Participants: participants, Status: engine.Aborted})

	require.Equal(t, WDL{Wins: 1, Draws: 1, Losses: 1, Aborts: 1}, wdl["m1"])
	require.Equal(t, WDL{Wins: 1, Draws: 1, Losses: 1, Aborts: 1}, wdl["m2"])
	require.Equal(t, 4, wdl["m1"].Total())
}

func TestWriterMetadata(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteRoster([]config.ModelConfig{{Name: "m1", Model: "openai/m1"}, {Name: "m2", Model: "random"}}))
	raw, err := os.ReadFile(filepath.Join(dir, "roster.csv"))
	require.NoError(t, err)
	require.Equal(t, "name,model\nm1,openai/m1\nm2,random\n", string(raw))

	require.NoError(t, w.WriteWDL(map[string]WDL{"m1": {Wins: 2}}))
	raw, err = os.ReadFile(filepath.Join(dir, "wdl.json"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(raw), `"wins": 2`))

	require.NoError(t, w.WriteSetup(map[string]any{"game": "nim"}))
	_, err = os.Stat(filepath.Join(dir, "setup.json"))
	require.NoError(t, err)

	t.Run("roster write failure", func(t *testing.T) {
		if _, err := os.Stat("/dev/full"); err != nil {
			t.Skip("needs /dev/full")
		}
		dir := t.TempDir()
		w, err := NewWriter(dir)
		require.NoError(t, err)
		require.NoError(t, os.Symlink("/dev/full", filepath.Join(dir, "roster.csv")))

		err = w.WriteRoster([]config.ModelConfig{{Name: "m1", Model: "random"}})
		require.Error(t, err, "Buffered rows that fail to reach the file should be reported")
	})
}

func TestFromResult(t *testing.T) {
	res := engine.Result{
		Status:    engine.Drawn,
		LimitDraw: true,
		Rounds:    1,
		Log:       []engine.RoundEntry{{Round: 1, Role: "x", Player: "m1", Move: "a1", Valid: true, Attempt: 1}},
	}
	players := []engine.PlayerConfig{{Role: "x", ID: "m1"}, {Role: "o", ID: "m2"}}

	m := FromResult("id1", "tictactoe", players, res, true)
	require.Equal(t, map[string]string{"x": "m1", "o": "m2"}, m.Summary.Participants)
	require.True(t, m.Summary.LimitDraw)
	require.True(t, m.Summary.Warmup)
	require.Equal(t, engine.Drawn, m.Summary.Status)
	require.Equal(t, []Round{{Type: TypeRound, Round: 1, Role: "x", Model: "m1", Move: "a1", Valid: true, Attempt: 1}}, m.Rounds)
}
