package experiments

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"leapfrog/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ActorNumSimulation = 4
	cfg.ActorMCTSThinkBatchSize = 2
	cfg.ActorSeed = 11
	return cfg
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunModelComparison(t *testing.T) {
	settings := Settings{OutputDir: t.TempDir(), NumGames: 2, Parallelism: 2}

	dir, err := RunModelComparison(context.Background(), testConfig(), settings, "")
	require.NoError(t, err)

	configs := readCSV(t, filepath.Join(dir, "agent_configs.csv"))
	require.Len(t, configs, 3)

	games := readCSV(t, filepath.Join(dir, "game_records.csv"))
	require.Len(t, games, 3)
	require.Equal(t, []string{"1", "0", "1"}, games[1][:3])
	require.Equal(t, []string{"2", "1", "0"}, games[2][:3], "starting sides alternate")

	moves := readCSV(t, filepath.Join(dir, "move_records.csv"))
	require.Greater(t, len(moves), 1)
	require.Equal(t, "game", moves[0][0])
}

func TestRunThroughputExperiment(t *testing.T) {
	settings := Settings{OutputDir: t.TempDir(), NumGames: 1, Parallelism: 3}

	dir, err := RunThroughputExperiment(context.Background(), testConfig(), settings)
	require.NoError(t, err)

	configs := readCSV(t, filepath.Join(dir, "agent_configs.csv"))
	require.Len(t, configs, len(batchSizes)+1)
	for i, batchSize := range []string{"1", "2", "4", "8", "16"} {
		require.Equal(t, batchSize, configs[i+1][2])
	}
	require.Len(t, readCSV(t, filepath.Join(dir, "game_records.csv")), len(batchSizes)+1)
}

func TestRunExperimentErrors(t *testing.T) {
	t.Run("a missing model fails the experiment", func(t *testing.T) {
		settings := Settings{OutputDir: t.TempDir(), NumGames: 1, Parallelism: 1}
		_, err := RunModelComparison(context.Background(), testConfig(), settings, filepath.Join(t.TempDir(), "missing.onnx"))
		require.ErrorContains(t, err, "failed to run game 1 of matchup 1")
	})

	t.Run("a cancelled context stops before any game", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		settings := Settings{OutputDir: t.TempDir(), NumGames: 2, Parallelism: 1}
		_, err := RunModelComparison(ctx, testConfig(), settings, "")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBaseAgent(t *testing.T) {
	cfg := testConfig()
	cfg.NNFileName = "model.onnx"
	agent := BaseAgent(cfg, 3)
	require.Equal(t, 3, agent.ID)
	require.Equal(t, 4, agent.Simulations)
	require.Equal(t, 2, agent.BatchSize)
	require.Equal(t, "model.onnx", agent.ModelFile)
}
