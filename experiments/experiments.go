package experiments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"leapfrog/config"
	"leapfrog/engine"
	"leapfrog/experiments/metrics"
	"leapfrog/network"
	"leapfrog/searcher/actor"
)

const NumGames = 30 // Per match up

// Settings controls how an experiment is run and where its CSV files go.
type Settings struct {
	OutputDir   string
	NumGames    int
	Parallelism int
}

func DefaultSettings() Settings {
	return Settings{
		OutputDir:   "results",
		NumGames:    NumGames,
		Parallelism: 4,
	}
}

// BaseAgent describes the agent that cfg configures.
func BaseAgent(cfg *config.Config, id int) metrics.AgentConfig {
	return metrics.AgentConfig{
		ID:            id,
		Simulations:   cfg.ActorNumSimulation,
		BatchSize:     cfg.ActorMCTSThinkBatchSize,
		Puct:          cfg.ActorMCTSPuct,
		SelectByCount: cfg.ActorSelectActionByCount,
		ModelFile:     cfg.NNFileName,
	}
}

// RunModelComparison pairs the configured model against candidate. Starting
// sides alternate between games.
func RunModelComparison(ctx context.Context, cfg *config.Config, settings Settings, candidate string) (string, error) {
	baseline := BaseAgent(cfg, 0)
	challenger := BaseAgent(cfg, 1)
	challenger.ModelFile = candidate

	matchUps := [][]metrics.AgentConfig{{baseline, challenger}}
	return runExperiment(ctx, "model_comparison", cfg, settings, []metrics.AgentConfig{baseline, challenger}, matchUps)
}

type gameResult struct {
	agent1, agent2 int
	gameMetric     metrics.GameMetric
	moveMetrics    []metrics.MoveMetric
}

// runExperiment plays settings.NumGames per matchup, at most
// settings.Parallelism at a time, and returns the directory of the results.
func runExperiment(ctx context.Context, name string, cfg *config.Config, settings Settings, configs []metrics.AgentConfig, matchUps [][]metrics.AgentConfig) (string, error) {
	log.Info().Msgf("starting %s experiment...", name)

	results := make([]gameResult, len(matchUps)*settings.NumGames)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(settings.Parallelism, 1))

	for mi, matchup := range matchUps {
		log.Info().Msgf("starting matchup %d of %d between agent1=%+v and agent2=%+v...", mi+1, len(matchUps), matchup[0], matchup[1])

		for i := 0; i < settings.NumGames; i++ {
			index := mi*settings.NumGames + i
			config1, config2 := matchup[0], matchup[1]
			if i%2 == 1 {
				config1, config2 = config2, config1
			}

			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				winner, gameMetric, moveMetrics, err := runGame(cfg, config1, config2, uint64(index))
				if err != nil {
					return fmt.Errorf("failed to run game %d of matchup %d: %w", i+1, mi+1, err)
				}
				results[index] = gameResult{
					agent1:      config1.ID,
					agent2:      config2.ID,
					gameMetric:  gameMetric,
					moveMetrics: moveMetrics,
				}
				log.Info().Msgf("completed matchup %d of %d game %d with winner: %q", mi+1, len(matchUps), i+1, winner)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	log.Info().Msgf("completed %s experiment", name)

	gameRecords := make([]metrics.GameRecord, 0, len(results))
	moveRecords := []metrics.MoveRecord{}
	for i, result := range results {
		gameRecords = append(gameRecords, metrics.GameRecord{
			ID:         i + 1,
			Agent1:     result.agent1,
			Agent2:     result.agent2,
			GameMetric: result.gameMetric,
		})
		for _, mm := range result.moveMetrics {
			moveRecords = append(moveRecords, metrics.MoveRecord{
				Game:       i + 1,
				MoveMetric: mm,
			})
		}
	}

	return store(name, settings.OutputDir, configs, gameRecords, moveRecords)
}

func store(name, root string, configs []metrics.AgentConfig, gameRecords []metrics.GameRecord, moveRecords []metrics.MoveRecord) (string, error) {
	writer, err := metrics.NewWriter(root, name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}

	if err := writer.WriteAgentConfigs(configs); err != nil {
		return "", fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return "", fmt.Errorf("failed to write game records: %w", err)
	}
	log.Info().Msg("stored game records")

	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return "", fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msg("stored move records")

	return writer.Dir(), nil
}

// runGame executes a single game between two agents and returns the winner.
// Every game builds its own networks, so games share nothing.
func runGame(cfg *config.Config, config1, config2 metrics.AgentConfig, gameIndex uint64) (string, metrics.GameMetric, []metrics.MoveMetric, error) {
	actor1, close1, err := createActor(cfg, config1, gameIndex)
	if err != nil {
		return "", metrics.GameMetric{}, nil, err
	}
	defer close1()
	actor2, close2, err := createActor(cfg, config2, gameIndex)
	if err != nil {
		return "", metrics.GameMetric{}, nil, err
	}
	defer close2()

	return engine.NewLocalEngine(actor1, actor2).Run()
}

func createActor(base *config.Config, agent metrics.AgentConfig, gameIndex uint64) (*actor.Actor, func(), error) {
	cfg := base.Clone()
	cfg.ActorNumSimulation = agent.Simulations
	cfg.ActorMCTSThinkBatchSize = agent.BatchSize
	cfg.ActorMCTSPuct = agent.Puct
	cfg.ActorSelectActionByCount = agent.SelectByCount
	cfg.NNFileName = agent.ModelFile
	if cfg.ActorSeed != 0 {
		// Distinct but reproducible games
		cfg.ActorSeed += gameIndex*2 + uint64(agent.ID)
	}

	net, err := network.Create(cfg, network.BoardShape(cfg.EnvBoardSize))
	if err != nil {
		return nil, nil, err
	}
	closeNetwork := func() {
		if err := net.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close network")
		}
	}
	return actor.New(cfg, net), closeNetwork, nil
}
