package searcher

import (
	"sync"

	"golang.org/x/exp/rand"

	"zerosum/game"
)

// node is a decision node. Its statistics are kept from the perspective of
// mover, the role whose move led here. Locks are always taken parent before
// child.
type node struct {
	sync.Mutex
	parent   *node
	mover    game.Role
	move     game.Move
	state    game.State
	toMove   game.Role
	terminal bool
	outcome  game.Outcome
	untried  []game.Move
	children []*node
	rewards  float64
	visits   float64
}

func newNode(m *MCTS, parent *node, mover game.Role, move game.Move, state game.State, rng *rand.Rand) *node {
	n := &node{parent: parent, mover: mover, move: move, state: state}
	n.terminal, n.outcome = m.game.IsTerminal(state)
	if n.terminal {
		return n
	}
	order := m.game.TurnOrder(state)
	if len(order) == 0 {
		n.stalemate()
		return n
	}
	n.toMove = order[0]
	moves := m.lister.LegalMoves(state, n.toMove)
	n.untried = append([]game.Move(nil), moves...)
	rng.Shuffle(len(n.untried), func(i, j int) {
		n.untried[i], n.untried[j] = n.untried[j], n.untried[i]
	})
	if len(n.untried) == 0 {
		n.stalemate()
	}
	return n
}

func (n *node) stalemate() {
	n.terminal = true
	n.outcome = game.Outcome{Kind: game.Draw, Reason: "no legal moves"}
}

// selectOrExpand returns an unexplored child (expanded=true), the best
// explored child, or n itself when n is terminal. The returned child carries
// a virtual loss until backup.
func (n *node) selectOrExpand(m *MCTS, rng *rand.Rand) (child *node, expanded bool) {
	n.Lock()
	defer n.Unlock()

	if n.terminal {
		return n, false
	}

	for len(n.untried) > 0 {
		last := len(n.untried) - 1
		move := n.untried[last]
		n.untried = n.untried[:last]
		next, err := m.game.Apply(n.state, n.toMove, move)
		if err != nil { // Listed move rejected by the rules, drop it
			continue
		}
		child := newNode(m, n, n.toMove, move, next, rng)
		child.applyLoss()
		n.children = append(n.children, child)
		return child, true
	}

	if len(n.children) == 0 {
		n.stalemate()
		return n, false
	}

	best := n.pickChild()
	best.Lock()
	best.applyLoss()
	best.Unlock()
	return best, false
}

func (n *node) pickChild() *node {
	p := newPolicy(CSquared, max(n.visits, 1))
	var best *node
	bestScore := -1.0
	for _, child := range n.children {
		child.Lock()
		score := p.score(child.rewards, child.visits)
		child.Unlock()
		if best == nil || score > bestScore {
			best, bestScore = child, score
		}
	}
	return best
}

// applyLoss counts a pending visit with no reward so concurrent searchers
// spread out. Callers hold n's lock.
func (n *node) applyLoss() {
	n.rewards += Loss
	n.visits++
}

func (n *node) backup(outcome game.Outcome) *node {
	n.Lock()
	defer n.Unlock()

	if n.parent != nil { // Reverse the virtual loss
		n.rewards -= Loss
		n.visits--
	}
	n.visits++
	if n.mover != "" {
		n.rewards += reward(outcome, n.mover)
	}
	return n.parent
}

func (n *node) snapshot() (game.State, bool, game.Outcome) {
	n.Lock()
	defer n.Unlock()
	return n.state, n.terminal, n.outcome
}

// bestMove returns the most visited child's move.
func (n *node) bestMove() (game.Move, bool) {
	n.Lock()
	defer n.Unlock()

	var best *node
	for _, child := range n.children {
		if best == nil || child.visits > best.visits {
			best = child
		}
	}
	if best == nil {
		return "", false
	}
	return best.move, true
}
