package pool

import "golang.org/x/exp/rand"

// Assignment lists roster indices in the game's role order.
type Assignment []int

// Schedule returns matches assignments of k distinct models out of n.
//
// Every ordered assignment appears once per cycle. Cycles group the
// orientations of each model subset together, with subsets visited in a
// random order and orientations rotated by a random offset, so that short
// runs still see every model in every seat. Over any number of matches each
// ordered assignment occurs floor or ceil of matches/P times, where P is the
// number of ordered assignments.
func Schedule(n, k, matches int, rng *rand.Rand) []Assignment {
	if n < k || k < 1 || matches < 1 {
		return nil
	}

	subsets := combinations(n, k)
	rng.Shuffle(len(subsets), func(i, j int) {
		subsets[i], subsets[j] = subsets[j], subsets[i]
	})

	var cycle []Assignment
	for _, subset := range subsets {
		orientations := permutations(subset)
		offset := rng.Intn(len(orientations))
		for i := range orientations {
			cycle = append(cycle, orientations[(i+offset)%len(orientations)])
		}
	}

	out := make([]Assignment, matches)
	for i := range out {
		out[i] = cycle[i%len(cycle)]
	}
	return out
}

// combinations returns every k-subset of 0..n-1 in lexicographic order.
func combinations(n, k int) [][]int {
	var out [][]int
	subset := make([]int, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(subset) == k {
			out = append(out, append([]int(nil), subset...))
			return
		}
		for i := start; i <= n-(k-len(subset)); i++ {
			subset = append(subset, i)
			walk(i + 1)
			subset = subset[:len(subset)-1]
		}
	}
	walk(0)
	return out
}

// permutations returns every ordering of items.
func permutations(items []int) []Assignment {
	if len(items) <= 1 {
		return []Assignment{append(Assignment(nil), items...)}
	}
	var out []Assignment
	for i, head := range items {
		rest := make([]int, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, tail := range permutations(rest) {
			out = append(out, append(Assignment{head}, tail...))
		}
	}
	return out
}
