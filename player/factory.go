package player

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"zerosum/config"
	"zerosum/game"
	"zerosum/searcher"
)

const (
	RandomModel = "random"
	MCTSModel   = "mcts"
)

// Factory binds model references to players. "random" and "mcts[:iterations]"
// are local baselines; anything else is treated as a chat model.
type Factory struct {
	LLM  config.LLM
	Seed uint64

	built atomic.Uint64
}

// New returns a fresh player for model in game g.
func (f *Factory) New(model string, g game.Game) (Player, error) {
	seed := f.Seed + f.built.Add(1)
	name, arg, _ := strings.Cut(strings.TrimSpace(model), ":")
	switch strings.ToLower(name) {
	case RandomModel:
		return NewRandom(g, seed)
	case MCTSModel:
		opts := []searcher.Option{searcher.WithSeed(seed)}
		if arg != "" {
			iterations, err := strconv.Atoi(arg)
			if err != nil || iterations < 1 {
				return nil, fmt.Errorf("invalid mcts iterations %q", arg)
			}
			opts = append(opts, searcher.WithIterations(iterations))
		}
		return searcher.NewMCTS(g, opts...)
	default:
		return NewLLM(model, g, f.LLM)
	}
}
