package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("counting concurrently", func(t *testing.T) {
		c := NewCollector()
		c.Start(4)
		c.SetTreeReset(true)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					c.AddSimulation()
				}
				c.AddBatch()
				c.AddTerminalLeaf()
			}()
		}
		wg.Wait()

		m := c.Complete()
		require.Equal(t, 4, m.BatchSize)
		require.Equal(t, 800, m.Simulations)
		require.Equal(t, 8, m.Batches)
		require.Equal(t, 8, m.TerminalLeaves)
		require.True(t, m.IsTreeReset)
	})

	t.Run("start clears previous counts", func(t *testing.T) {
		c := NewCollector()
		c.Start(1)
		c.AddSimulation()
		c.Start(1)
		require.Equal(t, 0, c.Complete().Simulations)
	})

	t.Run("dummy collector reports nothing", func(t *testing.T) {
		c := NewDummyCollector()
		c.Start(8)
		c.AddSimulation()
		require.Equal(t, SearchMetric{}, c.Complete())
	})
}

func TestWriter(t *testing.T) {
	root := t.TempDir()
	w, err := NewWriter(root, "arena")
	require.NoError(t, err)
	require.DirExists(t, w.Dir())

	require.NoError(t, w.WriteAgentConfigs([]AgentConfig{{ID: 1, Simulations: 50, BatchSize: 8, Puct: 1.5, SelectByCount: true}}))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteGameRecords([]GameRecord{{
		ID: 1, Agent1: 1, Agent2: 2,
		GameMetric: GameMetric{StartingPlayer: "B", Winner: "W", Score: -1.00001, StartTime: start, EndTime: start.Add(time.Second), Duration: time.Second, TotalMoves: 12},
	}}))
	require.NoError(t, w.WriteMoveRecords([]MoveRecord{{Game: 1, MoveMetric: MoveMetric{Step: 1, Player: "B", Move: "e3e1", SearchMetric: SearchMetric{Simulations: 50}}}}))

	rows := readCSV(t, filepath.Join(w.Dir(), "agent_configs.csv"))
	require.Equal(t, []string{"1", "50", "8", "1.5", "true", ""}, rows[1])

	rows = readCSV(t, filepath.Join(w.Dir(), "game_records.csv"))
	require.Len(t, rows, 2)
	require.Equal(t, "W", rows[1][4])
	require.Equal(t, "-1.000010", rows[1][5])
	require.Equal(t, "12", rows[1][10])

	rows = readCSV(t, filepath.Join(w.Dir(), "move_records.csv"))
	require.Equal(t, []string{"1", "1", "B", "e3e1", "0s", "50", "0", "0", "false"}, rows[1])
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
