// Package pool runs a batch of matches across a roster of models and keeps a
// running win/draw/loss tally.
package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"zerosum/config"
	"zerosum/engine"
	"zerosum/game"
	"zerosum/matchlog"
	"zerosum/player"
	"zerosum/utils"
)

var (
	ErrRosterConfig = errors.New("invalid roster")
	ErrPoolConfig   = errors.New("invalid pool configuration")
)

// NewPlayerFunc builds a fresh player for a model reference.
type NewPlayerFunc func(model string, g game.Game) (player.Player, error)

// Index receives every finished match summary, e.g. the SQLite store.
type Index interface {
	RecordMatch(ctx context.Context, s matchlog.Summary) error
}

type Config struct {
	NewGame   func() (game.Game, error)
	NewPlayer NewPlayerFunc
	Roster    []config.ModelConfig

	MaxMatches        int
	MaxRounds         int
	MaxPlayerAttempts int
	// BootstrapRounds is the number of leading matches flagged as warm-up.
	BootstrapRounds int
	OutputDir       string
	Concurrency     int
	// Seed drives pairing; zero picks a random seed.
	Seed  uint64
	Index Index
}

// setup is stored as setup.json next to the match logs.
type setup struct {
	Game              string                  `json:"game"`
	Roles             []game.Role             `json:"roles"`
	Roster            []config.ModelConfig    `json:"roster"`
	MaxMatches        int                     `json:"max_matches"`
	MaxRounds         int                     `json:"max_rounds"`
	MaxPlayerAttempts int                     `json:"max_player_attempts"`
	BootstrapRounds   int                     `json:"bootstrap_rounds"`
	Concurrency       int                     `json:"concurrency"`
	Seed              uint64                  `json:"seed"`
	StartTime         time.Time               `json:"start_time"`
	EndTime           time.Time               `json:"end_time"`
	WDL               map[string]matchlog.WDL `json:"wdl,omitempty"`
}

type Pool struct {
	cfg    Config
	game   string
	roles  []game.Role
	runner *engine.Runner
	writer *matchlog.Writer
}

// New validates cfg and prepares the output directory. Roster problems are
// reported with ErrRosterConfig before any match is played.
func New(cfg Config) (*Pool, error) {
	if cfg.NewGame == nil || cfg.NewPlayer == nil {
		return nil, fmt.Errorf("%w: game and player constructors are required", ErrPoolConfig)
	}
	if cfg.MaxMatches < 1 || cfg.MaxRounds < 1 || cfg.MaxPlayerAttempts < 1 {
		return nil, fmt.Errorf("%w: max_matches, max_rounds and max_player_attempts must be positive", ErrPoolConfig)
	}
	if cfg.BootstrapRounds < 0 || cfg.Concurrency < 0 {
		return nil, fmt.Errorf("%w: bootstrap_rounds and concurrency must not be negative", ErrPoolConfig)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = config.OutputDir
	}
	if cfg.Seed == 0 {
		seed, err := utils.NewSeed()
		if err != nil {
			return nil, err
		}
		cfg.Seed = seed
	}

	probe, err := cfg.NewGame()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolConfig, err)
	}
	roles := probe.Roles()
	if err := checkRoster(cfg, probe, roles); err != nil {
		return nil, err
	}

	writer, err := matchlog.NewWriter(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	return &Pool{
		cfg:   cfg,
		game:  probe.Name(),
		roles: roles,
		runner: engine.New(
			engine.WithMaxRounds(cfg.MaxRounds),
			engine.WithMaxPlayerAttempts(cfg.MaxPlayerAttempts),
		),
		writer: writer,
	}, nil
}

func checkRoster(cfg Config, probe game.Game, roles []game.Role) error {
	if len(roles) == 0 {
		return fmt.Errorf("%w: game %s has no roles", ErrPoolConfig, probe.Name())
	}
	if len(cfg.Roster) < len(roles) {
		return fmt.Errorf("%w: %d models for %d roles", ErrRosterConfig, len(cfg.Roster), len(roles))
	}
	seen := make(map[string]bool, len(cfg.Roster))
	for _, m := range cfg.Roster {
		name := strings.TrimSpace(m.Name)
		if name == "" || strings.TrimSpace(m.Model) == "" {
			return fmt.Errorf("%w: roster entries need a name and a model", ErrRosterConfig)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate model name %q", ErrRosterConfig, name)
		}
		seen[name] = true
		if _, err := cfg.NewPlayer(m.Model, probe); err != nil {
			return fmt.Errorf("%w: model %s: %w", ErrRosterConfig, name, err)
		}
	}
	return nil
}

// Run plays every scheduled match and returns the tally. Failed matches are
// recorded as aborted and never stop the run; the only error is the
// cancellation of ctx, returned together with the partial report.
func (p *Pool) Run(ctx context.Context) (Report, error) {
	start := time.Now().UTC()
	names := make([]string, len(p.cfg.Roster))
	for i, m := range p.cfg.Roster {
		names[i] = m.Name
	}
	tally := NewTally(names)

	if err := p.writer.WriteRoster(p.cfg.Roster); err != nil {
		log.Warn().Err(err).Msg("failed to store roster")
	}

	rng := rand.New(rand.NewSource(p.cfg.Seed))
	schedule := Schedule(len(p.cfg.Roster), len(p.roles), p.cfg.MaxMatches, rng)

	log.Info().Str("game", p.game).Int("models", len(names)).Uint64("seed", p.cfg.Seed).
		Msgf("starting pool of %d matches...", len(schedule))

	var eg errgroup.Group
	eg.SetLimit(p.cfg.Concurrency)
	for i, a := range schedule {
		eg.Go(func() error {
			s := p.play(ctx, i, a)
			tally.Record(s)
			log.Info().Str("match", s.MatchID).Str("status", string(s.Status)).
				Msgf("completed match %d of %d: %s", i+1, len(schedule), describe(s))
			return nil
		})
	}
	_ = eg.Wait()

	report := tally.Report()
	log.Info().Int("matches", report.Matches).Int("aborted", len(report.Aborted)).Msg("completed pool")

	err := p.writer.WriteSetup(setup{
		Game:              p.game,
		Roles:             p.roles,
		Roster:            p.cfg.Roster,
		MaxMatches:        p.cfg.MaxMatches,
		MaxRounds:         p.cfg.MaxRounds,
		MaxPlayerAttempts: p.cfg.MaxPlayerAttempts,
		BootstrapRounds:   p.cfg.BootstrapRounds,
		Concurrency:       p.cfg.Concurrency,
		Seed:              p.cfg.Seed,
		StartTime:         start,
		EndTime:           time.Now().UTC(),
		WDL:               report.WDL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to store setup")
	}
	if err := p.writer.WriteWDL(report.WDL); err != nil {
		log.Warn().Err(err).Msg("failed to store wdl")
	}

	return report, ctx.Err()
}

// play runs match i and persists it. It always returns a summary; anything
// that goes wrong, including a panic, becomes an aborted match.
func (p *Pool) play(ctx context.Context, i int, a Assignment) (s matchlog.Summary) {
	id := uuid.NewString()
	warmup := i < p.cfg.BootstrapRounds
	players := make([]engine.PlayerConfig, len(p.roles))
	for r, role := range p.roles {
		players[r] = engine.PlayerConfig{Role: role, ID: p.cfg.Roster[a[r]].Name}
	}
	logger := log.With().Str("match", id).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Msgf("match panicked: %v", r)
			s = p.persist(ctx, matchlog.FromResult(id, p.game, players,
				engine.Result{Status: engine.Aborted, Reason: fmt.Sprintf("panic: %v", r)}, warmup))
		}
	}()

	abort := func(err error) matchlog.Summary {
		logger.Error().Err(err).Msg("match aborted before play")
		res := engine.Result{Status: engine.Aborted, Reason: err.Error()}
		return p.persist(ctx, matchlog.FromResult(id, p.game, players, res, warmup))
	}

	g, err := p.cfg.NewGame()
	if err != nil {
		return abort(fmt.Errorf("%w: failed to build game: %w", engine.ErrGameLogic, err))
	}
	for r := range players {
		pl, err := p.cfg.NewPlayer(p.cfg.Roster[a[r]].Model, g)
		if err != nil {
			return abort(fmt.Errorf("%w: failed to build player %s: %w", engine.ErrGameLogic, players[r].ID, err))
		}
		players[r].Player = pl
	}

	logger.Debug().Msgf("starting match %d: %s", i+1, lineup(players))
	res, err := p.runner.Run(ctx, g, players)
	if err != nil {
		logger.Warn().Err(err).Msg("match aborted")
	}
	return p.persist(ctx, matchlog.FromResult(id, g.Name(), players, res, warmup))
}

func (p *Pool) persist(ctx context.Context, m matchlog.Match) matchlog.Summary {
	if _, err := p.writer.WriteMatch(m); err != nil {
		log.Error().Err(err).Str("match", m.Summary.MatchID).Msg("failed to store match log")
	}
	if p.cfg.Index != nil {
		// The index is written even after cancellation so it matches the logs.
		if err := p.cfg.Index.RecordMatch(context.WithoutCancel(ctx), m.Summary); err != nil {
			log.Warn().Err(err).Str("match", m.Summary.MatchID).Msg("failed to index match")
		}
	}
	return m.Summary
}

func lineup(players []engine.PlayerConfig) string {
	parts := make([]string, len(players))
	for i, pc := range players {
		parts[i] = fmt.Sprintf("%s=%s", pc.Role, pc.ID)
	}
	return strings.Join(parts, " ")
}

func describe(s matchlog.Summary) string {
	switch s.Status {
	case engine.Won:
		return fmt.Sprintf("%s won as %s", s.Participants[s.Winner], s.Winner)
	case engine.Forfeited:
		return fmt.Sprintf("%s forfeited as %s", s.Participants[s.Forfeiter], s.Forfeiter)
	case engine.Drawn:
		if s.LimitDraw {
			return "draw at the round limit"
		}
		return "draw"
	default:
		return "aborted: " + s.Reason
	}
}
