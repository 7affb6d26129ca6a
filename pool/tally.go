package pool

import (
	"sort"
	"sync"

	"zerosum/engine"
	"zerosum/matchlog"
)

// AbortedMatch keeps a match that ended without an outcome visible in the
// report.
type AbortedMatch struct {
	MatchID      string            `json:"match_id"`
	Participants map[string]string `json:"participants"`
	Reason       string            `json:"reason"`
}

type Report struct {
	WDL     map[string]matchlog.WDL `json:"wdl"`
	Matches int                     `json:"matches"`
	Aborted []AbortedMatch          `json:"aborted,omitempty"`
}

// Tally accumulates match summaries. It is safe for concurrent use.
type Tally struct {
	mu      sync.Mutex
	wdl     map[string]matchlog.WDL
	matches int
	aborted []AbortedMatch
}

// NewTally starts every model at zero so models that never finish a match
// still appear in the report.
func NewTally(models []string) *Tally {
	wdl := make(map[string]matchlog.WDL, len(models))
	for _, m := range models {
		wdl[m] = matchlog.WDL{}
	}
	return &Tally{wdl: wdl}
}

func (t *Tally) Record(s matchlog.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	matchlog.Tally(t.wdl, s)
	t.matches++
	if s.Status == engine.Aborted {
		t.aborted = append(t.aborted, AbortedMatch{MatchID: s.MatchID, Participants: s.Participants, Reason: s.Reason})
	}
}

// Report returns a copy of the current counts. Aborted matches are ordered by
// id.
func (t *Tally) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	wdl := make(map[string]matchlog.WDL, len(t.wdl))
	for m, w := range t.wdl {
		wdl[m] = w
	}
	aborted := append([]AbortedMatch(nil), t.aborted...)
	sort.Slice(aborted, func(i, j int) bool { return aborted[i].MatchID < aborted[j].MatchID })
	return Report{WDL: wdl, Matches: t.matches, Aborted: aborted}
}
