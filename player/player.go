package player

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"

	"zerosum/game"
)

// Player proposes a move for role given the current state. feedback is empty
// on the first attempt of a round and describes the previous rejection
// otherwise. Format or content problems are reported as *game.InvalidMoveError;
// any other error is fatal to the match.
type Player interface {
	ProposeMove(ctx context.Context, state game.State, role game.Role, feedback string) (game.Move, error)
}

// Func adapts a function to the Player interface.
type Func func(ctx context.Context, state game.State, role game.Role, feedback string) (game.Move, error)

func (f Func) ProposeMove(ctx context.Context, state game.State, role game.Role, feedback string) (game.Move, error) {
	return f(ctx, state, role, feedback)
}

// Random plays a uniformly random legal move.
type Random struct {
	lister game.Lister
	mu     sync.Mutex
	rng    *rand.Rand
}

func NewRandom(g game.Game, seed uint64) (*Random, error) {
	lister, ok := g.(game.Lister)
	if !ok {
		return nil, fmt.Errorf("game %s cannot list legal moves", g.Name())
	}
	return &Random{lister: lister, rng: rand.New(rand.NewSource(seed))}, nil
}

func (p *Random) ProposeMove(ctx context.Context, state game.State, role game.Role, _ string) (game.Move, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	moves := p.lister.LegalMoves(state, role)
	if len(moves) == 0 {
		return "", fmt.Errorf("no legal moves for %s", role)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return moves[p.rng.Intn(len(moves))], nil
}
