package searcher

import "math"

// policy scores children of a parent visited N times with UCT:
// q/n + sqrt(c^2*ln(N)/n).
type policy struct {
	c2LnN float64
}

func newPolicy(cSquared float64, N float64) policy {
	if N <= 0 {
		panic("N must be positive")
	}
	return policy{c2LnN: cSquared * math.Log(N)}
}

func (p policy) score(q float64, n float64) float64 {
	if n == 0 {
		panic("n cannot be 0")
	}
	return q/n + math.Sqrt(p.c2LnN/n)
}
