package engine

import "leapfrog/experiments/metrics"

type Engine interface {
	// Run plays a game until it is terminal or a side resigns
	Run() (winner string, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
