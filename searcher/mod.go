package searcher

import (
	"math"

	"leapfrog/network"
)

// Hyperparameters for MCTS

const DefaultPuct = 1.5 // Exploration constant

const WIN = 1.0   // Reward for winning outcome
const LOSS = -WIN // Reward for loss outcome (negate from opponent perspective)

// Evaluator scores a batch of feature tensors. network.Network satisfies it.
type Evaluator interface {
	Evaluate(features [][]float32) ([]network.Output, error)
}

// puct = q + c * prior * sqrt(N) / (1 + n)
func puct(q, prior float64, n, parentN int, c float64) float64 {
	return q + c*prior*math.Sqrt(float64(parentN))/float64(1+n)
}
