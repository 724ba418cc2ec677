package experiments

import (
	"context"

	"leapfrog/config"
	"leapfrog/experiments/metrics"
)

var batchSizes = []int{1, 2, 4, 8, 16}

// RunThroughputExperiment measures search speed across leaf batch sizes.
// Both sides of a matchup use the same config for the same playing strength
// and similar game length.
func RunThroughputExperiment(ctx context.Context, cfg *config.Config, settings Settings) (string, error) {
	configs := make([]metrics.AgentConfig, 0, len(batchSizes))
	matchUps := [][]metrics.AgentConfig{}
	for i, batchSize := range batchSizes {
		agent := BaseAgent(cfg, i+1)
		agent.BatchSize = batchSize
		configs = append(configs, agent)
		matchUps = append(matchUps, []metrics.AgentConfig{agent, agent})
	}

	return runExperiment(ctx, "batch_size_to_throughput", cfg, settings, configs, matchUps)
}
