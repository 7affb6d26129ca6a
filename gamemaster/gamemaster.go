// Package gamemaster runs a single match with explicit role bindings and
// reports the outcome for an operator.
package gamemaster

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"zerosum/config"
	"zerosum/engine"
	"zerosum/game"
	"zerosum/game/nim"
	"zerosum/game/tictactoe"
	"zerosum/matchlog"
	"zerosum/player"
	"zerosum/utils"
)

// Games returns a registry with every built-in game.
func Games() *game.Registry {
	r := game.NewRegistry()
	r.Register("tictactoe", tictactoe.New)
	r.Register("nim", nim.New)
	return r
}

type NewPlayerFunc func(model string, g game.Game) (player.Player, error)

// GameMaster builds games and players and hands them to the engine.
type GameMaster struct {
	registry  *game.Registry
	newPlayer NewPlayerFunc
}

func NewGameMaster(registry *game.Registry, newPlayer NewPlayerFunc) *GameMaster {
	return &GameMaster{
		registry:  registry,
		newPlayer: newPlayer,
	}
}

type Options struct {
	Game              string
	Args              game.Args
	Players           []config.RoleModel
	MaxRounds         int
	MaxPlayerAttempts int
	OutputDir         string
}

// Outcome is what a single match leaves behind.
type Outcome struct {
	MatchID  string
	Result   engine.Result
	LogPath  string
	Rendered string
}

// RunGame plays one match. Binding problems are reported before play starts;
// an aborted match returns its outcome together with the abort error.
func (gm *GameMaster) RunGame(ctx context.Context, opts Options) (Outcome, error) {
	g, err := gm.registry.Build(opts.Game, opts.Args)
	if err != nil {
		return Outcome{}, err
	}

	players, err := gm.bind(g, opts.Players)
	if err != nil {
		return Outcome{}, err
	}

	writer, err := matchlog.NewWriter(opts.OutputDir)
	if err != nil {
		return Outcome{}, err
	}

	id := uuid.NewString()
	log.Info().Str("match", id).Str("game", g.Name()).Msgf("starting game with %s", lineup(players))

	runner := engine.New(
		engine.WithMaxRounds(opts.MaxRounds),
		engine.WithMaxPlayerAttempts(opts.MaxPlayerAttempts),
	)
	res, runErr := runner.Run(ctx, g, players)

	out := Outcome{MatchID: id, Result: res, Rendered: Render(g.Name(), players, res)}
	out.LogPath, err = writer.WriteMatch(matchlog.FromResult(id, g.Name(), players, res, false))
	if err != nil {
		log.Error().Err(err).Str("match", id).Msg("failed to store match log")
	}

	log.Info().Str("match", id).Str("status", string(res.Status)).Msgf("completed game\n%s", out.Rendered)
	if runErr != nil {
		return out, fmt.Errorf("match %s aborted: %w", id, runErr)
	}
	return out, nil
}

func (gm *GameMaster) bind(g game.Game, bindings []config.RoleModel) ([]engine.PlayerConfig, error) {
	byRole := make(map[game.Role]config.RoleModel, len(bindings))
	for _, b := range bindings {
		byRole[game.Role(b.Role)] = b
	}

	var players []engine.PlayerConfig
	for _, role := range g.Roles() {
		b, ok := byRole[role]
		if !ok {
			return nil, fmt.Errorf("no player for role %s of %s", role, g.Name())
		}
		delete(byRole, role)

		p, err := gm.newPlayer(b.Model, g)
		if err != nil {
			return nil, fmt.Errorf("failed to create player for %s: %w", role, err)
		}
		id := b.ID
		if id == "" {
			id = config.ShortName(b.Model)
		}
		players = append(players, engine.PlayerConfig{Role: role, ID: id, Player: p})
	}
	if len(byRole) > 0 {
		return nil, fmt.Errorf("game %s has no role %s", g.Name(), utils.SortedKeys(byRole)[0])
	}
	return players, nil
}

// Render is the operator view of a finished match.
func Render(gameName string, players []engine.PlayerConfig, res engine.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "game: %s (%s)\n", gameName, lineup(players))
	if res.Final != nil {
		b.WriteString(res.Final.String())
		b.WriteString("\n")
	}

	ids := make(map[game.Role]string, len(players))
	for _, pc := range players {
		ids[pc.Role] = pc.ID
	}
	switch res.Status {
	case engine.Won:
		fmt.Fprintf(&b, "result: %s (%s) won", res.Winner, ids[res.Winner])
	case engine.Forfeited:
		fmt.Fprintf(&b, "result: %s (%s) forfeited", res.Forfeiter, ids[res.Forfeiter])
	case engine.Drawn:
		if res.LimitDraw {
			b.WriteString("result: draw at the round limit")
		} else {
			b.WriteString("result: draw")
		}
	default:
		b.WriteString("result: aborted")
	}
	if res.Reason != "" {
		fmt.Fprintf(&b, " (%s)", res.Reason)
	}
	fmt.Fprintf(&b, " after %d rounds", res.Rounds)
	return b.String()
}

func lineup(players []engine.PlayerConfig) string {
	parts := make([]string, len(players))
	for i, pc := range players {
		parts[i] = fmt.Sprintf("%s=%s", pc.Role, pc.ID)
	}
	return strings.Join(parts, ", ")
}
