package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"leapfrog/config"
	"leapfrog/console"
	"leapfrog/experiments"
)

func main() {
	confFile := flag.String("conf_file", "", "YAML configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	mode := flag.String("mode", "console", "console, arena or throughput")
	boardSize := flag.Int("board_size", 0, "Override env_board_size")
	modelFile := flag.String("nn_file_name", "", "Override nn_file_name")
	simulations := flag.Int("num_simulation", 0, "Override actor_num_simulation")
	candidate := flag.String("candidate", "", "Model played against nn_file_name in arena mode")
	numGames := flag.Int("games", experiments.NumGames, "Games per matchup in arena and throughput modes")
	parallel := flag.Int("parallel", experiments.DefaultSettings().Parallelism, "Games played at the same time")
	outDir := flag.String("out", experiments.DefaultSettings().OutputDir, "Directory of experiment results")
	flag.Parse()

	setupLogger(*logLevel)

	cfg, err := loadConfig(*confFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *boardSize > 0 {
		cfg.EnvBoardSize = *boardSize
	}
	if *modelFile != "" {
		cfg.NNFileName = *modelFile
	}
	if *simulations > 0 {
		cfg.ActorNumSimulation = *simulations
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	switch *mode {
	case "console":
		runConsole(cfg)
	case "arena", "throughput":
		settings := experiments.Settings{OutputDir: *outDir, NumGames: *numGames, Parallelism: *parallel}
		runExperiment(*mode, cfg, settings, *candidate)
	default:
		log.Fatal().Msgf("unknown mode %q", *mode)
	}
}

// setupLogger sends logs to stderr since stdout carries the protocol.
func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err != nil {
		log.Warn().Msgf("unknown log level %q, using info", level)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runConsole(cfg *config.Config) {
	c := console.New(cfg, os.Stdout)
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session")
		}
	}()

	if err := c.Run(os.Stdin); err != nil {
		log.Error().Err(err).Msg("console stopped")
	}
}

func runExperiment(mode string, cfg *config.Config, settings experiments.Settings, candidate string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var dir string
	var err error
	if mode == "arena" {
		dir, err = experiments.RunModelComparison(ctx, cfg, settings, candidate)
	} else {
		dir, err = experiments.RunThroughputExperiment(ctx, cfg, settings)
	}
	if err != nil {
		log.Error().Err(err).Msgf("%s experiment failed", mode)
		return
	}
	fmt.Println(dir)
}
