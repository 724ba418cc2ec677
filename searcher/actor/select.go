package actor

import (
	"math"

	"golang.org/x/exp/rand"

	"leapfrog/game"
	"leapfrog/searcher"
)

// findMax returns the most visited action; ties go to the lower action id.
func findMax(children []searcher.ChildStat) game.Action {
	if len(children) == 0 {
		panic("root has no children")
	}
	best := children[0]
	for _, c := range children[1:] {
		if c.Visits > best.Visits {
			best = c
		}
	}
	return best.Action
}

// sample draws an action with probability proportional to visits^(1/temperature).
func sample(children []searcher.ChildStat, temperature float64, rng *rand.Rand) game.Action {
	if len(children) == 0 {
		panic("root has no children")
	}

	exponent := 1.0 / temperature
	weights := make([]float64, len(children))
	sum := 0.0
	for i, c := range children {
		weights[i] = math.Pow(float64(c.Visits), exponent)
		sum += weights[i]
	}
	if sum == 0 {
		return findMax(children)
	}

	sampled := rng.Float64() * sum
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if sampled < cumulative {
			return children[i].Action
		}
	}
	return findMax(children) // Fallback in case of rounding errors
}
