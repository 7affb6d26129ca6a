package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"zerosum/config"
	"zerosum/game"
	"zerosum/metrics"
)

type Option func(r *Runner)

func WithMaxRounds(rounds int) Option {
	return func(r *Runner) {
		if rounds > 0 {
			r.maxRounds = rounds
		}
	}
}

func WithMaxPlayerAttempts(attempts int) Option {
	return func(r *Runner) {
		if attempts > 0 {
			r.maxPlayerAttempts = attempts
		}
	}
}

// WithMetrics sets the collector factory; one collector is created per Run.
func WithMetrics(newCollector func() metrics.Collector) Option {
	return func(r *Runner) {
		if newCollector != nil {
			r.newCollector = newCollector
		}
	}
}

// Runner plays matches. It holds no per-match state and is safe for
// concurrent use.
type Runner struct {
	maxRounds         int
	maxPlayerAttempts int
	newCollector      func() metrics.Collector
}

var _ Engine = (*Runner)(nil)

func New(options ...Option) *Runner {
	r := &Runner{ // Default values
		maxRounds:         config.MaxRounds,
		maxPlayerAttempts: config.MaxPlayerAttempts,
		newCollector:      metrics.NewCollector,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// match is the state of one Run.
type match struct {
	game      game.Game
	players   map[game.Role]PlayerConfig
	collector metrics.Collector
	result    Result
}

// Run drives g from its initial state until it is won, drawn or forfeited, or
// until the round limit declares a draw. Any other failure aborts the match:
// the returned Result carries the partial log and the error wraps ErrGameLogic.
func (r *Runner) Run(ctx context.Context, g game.Game, players []PlayerConfig) (res Result, err error) {
	m := &match{game: g, players: make(map[game.Role]PlayerConfig, len(players)), collector: r.newCollector()}
	m.collector.Start()

	defer func() {
		if p := recover(); p != nil {
			res, err = m.abort(fmt.Errorf("%w: panic: %v", ErrGameLogic, p))
		}
	}()

	for _, pc := range players {
		if _, dup := m.players[pc.Role]; dup {
			return m.abort(fmt.Errorf("%w: role %s bound twice", ErrGameLogic, pc.Role))
		}
		if pc.Player == nil {
			return m.abort(fmt.Errorf("%w: role %s has no player", ErrGameLogic, pc.Role))
		}
		m.players[pc.Role] = pc
	}
	for _, role := range g.Roles() {
		if _, ok := m.players[role]; !ok {
			return m.abort(fmt.Errorf("%w: role %s has no player", ErrGameLogic, role))
		}
	}

	state, err := g.InitialState()
	if err != nil {
		return m.abort(fmt.Errorf("%w: initial state: %w", ErrGameLogic, err))
	}
	m.result.Final = state

	for round := 1; ; round++ {
		if done, outcome := g.IsTerminal(state); done {
			return m.finish(outcome)
		}
		if round > r.maxRounds {
			m.result.Status = Drawn
			m.result.LimitDraw = true
			m.result.Reason = fmt.Sprintf("round limit %d reached", r.maxRounds)
			return m.complete(), nil
		}

		order := g.TurnOrder(state)
		if len(order) == 0 {
			return m.abort(fmt.Errorf("%w: round %d: no role to move", ErrGameLogic, round))
		}
		pc, ok := m.players[order[0]]
		if !ok {
			return m.abort(fmt.Errorf("%w: round %d: unknown role %s to move", ErrGameLogic, round, order[0]))
		}

		m.result.Rounds = round
		m.collector.AddRound()
		next, err := m.playRound(ctx, state, round, pc, r.maxPlayerAttempts)
		if errors.Is(err, ErrAttemptsExhausted) {
			m.result.Status = Forfeited
			m.result.Forfeiter = pc.Role
			m.result.Winner = soleOpponent(g.Roles(), pc.Role)
			m.result.Reason = fmt.Sprintf("%s made no valid move in %d attempts", pc.Role, r.maxPlayerAttempts)
			return m.complete(), nil
		}
		if err != nil {
			return m.abort(fmt.Errorf("%w: round %d: %w", ErrGameLogic, round, err))
		}

		state = next
		m.result.Final = state
	}
}

// playRound asks pc for a move until one is accepted. Every attempt is logged
// before the state advances.
func (m *match) playRound(ctx context.Context, state game.State, round int, pc PlayerConfig, attempts int) (game.State, error) {
	feedback := ""
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.collector.AddAttempt()

		move, err := pc.Player.ProposeMove(ctx, state, pc.Role, feedback)
		var next game.State
		if err == nil {
			next, err = m.game.Apply(state, pc.Role, move)
		}

		entry := RoundEntry{Round: round, Role: pc.Role, Player: pc.ID, Move: move, Attempt: attempt}
		var invalid *game.InvalidMoveError
		switch {
		case err == nil:
			entry.Valid = true
			m.result.Log = append(m.result.Log, entry)
			return next, nil
		case errors.As(err, &invalid):
			if entry.Move == "" {
				entry.Move = invalid.Move
			}
			entry.Reason = invalid.Error()
			m.result.Log = append(m.result.Log, entry)
			m.collector.AddInvalidMove()
			feedback = invalid.Error()
			log.Debug().Str("role", string(pc.Role)).Int("round", round).Int("attempt", attempt).
				Msgf("rejected move: %s", invalid.Reason)
		default:
			entry.Reason = err.Error()
			m.result.Log = append(m.result.Log, entry)
			return nil, err
		}
	}
	return nil, ErrAttemptsExhausted
}

func (m *match) finish(outcome game.Outcome) (Result, error) {
	switch outcome.Kind {
	case game.Win, game.Forfeit:
		if _, ok := m.players[outcome.Role]; !ok {
			return m.abort(fmt.Errorf("%w: %s outcome names unknown role %q", ErrGameLogic, outcome.Kind, outcome.Role))
		}
	case game.Draw:
	default:
		return m.abort(fmt.Errorf("%w: terminal state without an outcome", ErrGameLogic))
	}

	m.result.Reason = outcome.Reason
	switch outcome.Kind {
	case game.Win:
		m.result.Status = Won
		m.result.Winner = outcome.Role
	case game.Forfeit:
		m.result.Status = Forfeited
		m.result.Forfeiter = outcome.Role
		m.result.Winner = soleOpponent(m.game.Roles(), outcome.Role)
	default:
		m.result.Status = Drawn
	}
	return m.complete(), nil
}

func (m *match) abort(err error) (Result, error) {
	m.result.Status = Aborted
	m.result.Reason = err.Error()
	return m.complete(), err
}

func (m *match) complete() Result {
	m.result.Metric = m.collector.Complete()
	return m.result
}

func soleOpponent(roles []game.Role, role game.Role) game.Role {
	others := game.Other(roles, role)
	if len(others) == 1 {
		return others[0]
	}
	return ""
}
