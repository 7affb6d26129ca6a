package searcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"

	"zerosum/game"
)

const defaultIterations = 500

type Option func(m *MCTS)

// MCTS is a tree-parallel UCT searcher that plays any game able to list its
// legal moves. A fresh tree is built for every move.
type MCTS struct {
	game       game.Game
	lister     game.Lister
	goroutines int
	iterations int
	duration   time.Duration
	cutoff     int
	seed       uint64
	calls      atomic.Uint64
}

func WithGoroutines(goroutines int) Option {
	return func(m *MCTS) {
		if goroutines > 0 {
			m.goroutines = goroutines
		}
	}
}

func WithIterations(iterations int) Option {
	return func(m *MCTS) {
		if iterations > 0 {
			m.iterations = iterations
		}
	}
}

func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

func WithCutoff(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.cutoff = depth
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.seed = seed
	}
}

func NewMCTS(g game.Game, options ...Option) (*MCTS, error) {
	lister, ok := g.(game.Lister)
	if !ok {
		return nil, fmt.Errorf("game %s cannot list legal moves", g.Name())
	}
	m := &MCTS{ // Default values
		game:       g,
		lister:     lister,
		goroutines: 1,
		cutoff:     MaxCutoff,
	}
	for _, option := range options {
		option(m)
	}
	if m.iterations <= 0 && m.duration <= 0 {
		m.iterations = defaultIterations
	}
	return m, nil
}

// ProposeMove searches from state and returns the most visited move.
func (m *MCTS) ProposeMove(ctx context.Context, state game.State, role game.Role, _ string) (game.Move, error) {
	base := m.seed + m.calls.Add(1)*7919
	root := newNode(m, nil, "", "", state, rand.New(rand.NewSource(base)))
	if root.terminal {
		return "", errors.New("cannot search from a terminal state")
	}
	if root.toMove != role {
		return "", fmt.Errorf("asked to move for %s but %s is to move", role, root.toMove)
	}

	if m.iterations > 0 {
		m.iterate(ctx, root, base)
	} else {
		m.countdown(ctx, root, base)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	move, ok := root.bestMove()
	if !ok {
		return "", fmt.Errorf("no playable move for %s", role)
	}
	return move, nil
}

func (m *MCTS) iterate(ctx context.Context, root *node, base uint64) {
	task := make(chan struct{}, m.iterations)
	for i := 0; i < m.iterations; i++ {
		task <- struct{}{}
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()

			for range task {
				if ctx.Err() != nil {
					return
				}
				m.simulate(root, rng)
			}
		}(rand.New(rand.NewSource(base + uint64(i) + 1)))
	}

	wg.Wait()
}

func (m *MCTS) countdown(ctx context.Context, root *node, base uint64) {
	deadline := time.Now().Add(m.duration)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()

			for time.Now().Before(deadline) && ctx.Err() == nil {
				m.simulate(root, rng)
			}
		}(rand.New(rand.NewSource(base + uint64(i) + 1)))
	}

	wg.Wait()
}

func (m *MCTS) simulate(root *node, rng *rand.Rand) {
	leaf := selectThenExpand(m, root, rng)
	outcome := m.rollout(leaf, rng)
	backup(leaf, outcome)
}

func selectThenExpand(m *MCTS, root *node, rng *rand.Rand) *node {
	n := root
	for {
		child, expanded := n.selectOrExpand(m, rng)
		if child == n || expanded {
			return child
		}
		n = child
	}
}

// rollout plays random moves from leaf until the game ends or the cutoff is
// reached; unfinished rollouts count as draws.
func (m *MCTS) rollout(leaf *node, rng *rand.Rand) game.Outcome {
	state, terminal, outcome := leaf.snapshot()
	for depth := 0; !terminal && depth < m.cutoff; depth++ {
		order := m.game.TurnOrder(state)
		if len(order) == 0 {
			break
		}
		moves := m.lister.LegalMoves(state, order[0])
		if len(moves) == 0 {
			break
		}
		next, err := m.game.Apply(state, order[0], moves[rng.Intn(len(moves))])
		if err != nil {
			break
		}
		state = next
		terminal, outcome = m.game.IsTerminal(state)
	}
	if !terminal {
		return game.Outcome{Kind: game.Draw}
	}
	return outcome
}

func backup(leaf *node, outcome game.Outcome) {
	node := leaf
	for node != nil {
		node = node.backup(outcome)
	}
}
