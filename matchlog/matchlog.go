// Package matchlog persists matches as JSON lines: one record per attempt
// followed by a closing summary record.
package matchlog

import (
	"sort"

	"zerosum/engine"
	"zerosum/game"
	"zerosum/metrics"
)

const (
	TypeRound   = "round"
	TypeSummary = "summary"
)

type Round struct {
	Type    string `json:"type"`
	Round   int    `json:"round"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Move    string `json:"move"`
	Valid   bool   `json:"valid"`
	Attempt int    `json:"attempt"`
	Reason  string `json:"reason,omitempty"`
}

type Summary struct {
	Type         string              `json:"type"`
	MatchID      string              `json:"match_id"`
	Game         string              `json:"game"`
	Participants map[string]string   `json:"participants"` // role -> model
	Status       engine.Status       `json:"status"`
	Winner       string              `json:"winner,omitempty"`
	Forfeiter    string              `json:"forfeiter,omitempty"`
	LimitDraw    bool                `json:"limit_draw"`
	Warmup       bool                `json:"warmup"`
	Reason       string              `json:"reason,omitempty"`
	Rounds       int                 `json:"rounds"`
	Metric       metrics.MatchMetric `json:"metric"`
	FinalState   string              `json:"final_state,omitempty"`
}

type Match struct {
	Rounds  []Round
	Summary Summary
}

// Score returns role's result in [0, 1], or false for aborted matches.
func (s Summary) Score(role string) (float64, bool) {
	res := engine.Result{Status: s.Status, Winner: game.Role(s.Winner), Forfeiter: game.Role(s.Forfeiter)}
	return res.Score(game.Role(role))
}

// Roles returns the participating roles in sorted order.
func (s Summary) Roles() []string {
	roles := make([]string, 0, len(s.Participants))
	for role := range s.Participants {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// FromResult converts a finished match into its log form.
func FromResult(id string, gameName string, players []engine.PlayerConfig, res engine.Result, warmup bool) Match {
	participants := make(map[string]string, len(players))
	for _, pc := range players {
		participants[string(pc.Role)] = pc.ID
	}

	m := Match{
		Rounds: make([]Round, 0, len(res.Log)),
		Summary: Summary{
			Type:         TypeSummary,
			MatchID:      id,
			Game:         gameName,
			Participants: participants,
			Status:       res.Status,
			Winner:       string(res.Winner),
			Forfeiter:    string(res.Forfeiter),
			LimitDraw:    res.LimitDraw,
			Warmup:       warmup,
			Reason:       res.Reason,
			Rounds:       res.Rounds,
			Metric:       res.Metric,
		},
	}
	if res.Final != nil {
		m.Summary.FinalState = res.Final.String()
	}
	for _, e := range res.Log {
		m.Rounds = append(m.Rounds, Round{
			Type:    TypeRound,
			Round:   e.Round,
			Role:    string(e.Role),
			Model:   e.Player,
			Move:    string(e.Move),
			Valid:   e.Valid,
			Attempt: e.Attempt,
			Reason:  e.Reason,
		})
	}
	return m
}
