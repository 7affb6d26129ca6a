package metrics

import (
	"sync/atomic"
	"time"
)

// MatchMetric summarizes how one match was played.
type MatchMetric struct {
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration_ns"`
	Rounds       int           `json:"rounds"`
	Attempts     int           `json:"attempts"`
	InvalidMoves int           `json:"invalid_moves"`
}

type Collector interface {
	Start()
	AddRound()
	AddAttempt()
	AddInvalidMove()
	Complete() MatchMetric
}

type collector struct {
	startTime    time.Time
	rounds       atomic.Int32
	attempts     atomic.Int32
	invalidMoves atomic.Int32
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start() {
	m.startTime = time.Now()
}

func (m *collector) AddRound() {
	m.rounds.Add(1)
}

func (m *collector) AddAttempt() {
	m.attempts.Add(1)
}

func (m *collector) AddInvalidMove() {
	m.invalidMoves.Add(1)
}

func (m *collector) Complete() MatchMetric {
	end := time.Now()
	return MatchMetric{
		StartTime:    m.startTime,
		EndTime:      end,
		Duration:     end.Sub(m.startTime),
		Rounds:       int(m.rounds.Load()),
		Attempts:     int(m.attempts.Load()),
		InvalidMoves: int(m.invalidMoves.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start()                {}
func (m *dummyCollector) AddRound()             {}
func (m *dummyCollector) AddAttempt()           {}
func (m *dummyCollector) AddInvalidMove()       {}
func (m *dummyCollector) Complete() MatchMetric { return MatchMetric{} }
