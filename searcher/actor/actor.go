package actor

import (
	"errors"
	"time"

	"golang.org/x/exp/rand"

	"leapfrog/config"
	"leapfrog/experiments/metrics"
	"leapfrog/game"
	"leapfrog/network"
	"leapfrog/searcher"
)

var ErrGameOver = errors.New("game is over")

// Actor plays one game: it owns the environment and a search tree over it.
type Actor struct {
	cfg           *config.Config
	env           *game.Env
	network       network.Network
	mcts          *searcher.MCTS
	rng           *rand.Rand
	resign        bool
	selectByCount bool
	metric        metrics.SearchMetric
}

// New returns an actor on a fresh board of cfg.EnvBoardSize. Extra options are
// applied after the ones derived from cfg.
func New(cfg *config.Config, net network.Network, options ...searcher.Option) *Actor {
	seed := cfg.ActorSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	a := &Actor{
		cfg:           cfg,
		env:           game.NewEnv(cfg.EnvBoardSize),
		network:       net,
		rng:           rand.New(rand.NewSource(seed)),
		selectByCount: cfg.ActorSelectActionByCount,
	}

	opts := []searcher.Option{
		searcher.WithSimulations(cfg.ActorNumSimulation),
		searcher.WithBatchSize(cfg.ActorMCTSThinkBatchSize),
		searcher.WithPUCT(cfg.ActorMCTSPuct),
		searcher.WithMetrics(),
	}
	if cfg.ActorUseRandomRotationFeatures {
		opts = append(opts, searcher.WithRotation(a.RandomRotation))
	}
	a.mcts = searcher.NewMCTS(net, append(opts, options...)...)
	return a
}

func (a *Actor) Reset() {
	a.env.Reset()
	a.mcts.Reset()
	a.resign = false
}

// Act applies protocol arguments [playerChar, moveText].
func (a *Actor) Act(args []string) bool {
	return a.ActAction(game.ParseAction(args, a.env.Size()))
}

func (a *Actor) ActAction(action game.Action) bool {
	if !a.env.Act(action) {
		return false
	}
	a.mcts.Advance(action)
	return true
}

func (a *Actor) IsEnvTerminal() bool {
	return a.env.IsTerminal()
}

// Think searches the current position and returns the chosen action. With
// commit the action is also played unless the actor resigns. allowResign lets
// a root value below the resign threshold end the game.
func (a *Actor) Think(commit, allowResign bool) (game.Action, error) {
	if a.env.IsTerminal() {
		return game.NewAction(game.InvalidActionID, a.env.Turn()), ErrGameOver
	}
	a.resign = false

	metric, err := a.mcts.Search(a.env)
	a.metric = metric
	if err != nil {
		return game.NewAction(game.InvalidActionID, a.env.Turn()), err
	}

	var action game.Action
	if a.selectByCount {
		action = findMax(a.mcts.Children())
	} else {
		action = sample(a.mcts.Children(), 1.0, a.rng)
	}

	if allowResign && a.mcts.RootValue() < a.cfg.ActorResignThreshold {
		a.resign = true
		return action, nil
	}
	if commit {
		a.ActAction(action)
	}
	return action, nil
}

func (a *Actor) IsResign() bool {
	return a.resign
}

// EvalScore scores the game from Player1's perspective, counting a
// resignation as a loss for the side to move.
func (a *Actor) EvalScore() float64 {
	return a.env.EvalScore(a.resign)
}

func (a *Actor) Env() *game.Env {
	return a.env
}

func (a *Actor) Network() network.Network {
	return a.network
}

func (a *Actor) SetNetwork(net network.Network) {
	a.network = net
	a.mcts.SetEvaluator(net)
}

// LastMetric returns the metrics of the most recent search.
func (a *Actor) LastMetric() metrics.SearchMetric {
	return a.metric
}

// RandomRotation draws one of the board symmetries uniformly.
func (a *Actor) RandomRotation() game.Rotation {
	return game.Rotation(a.rng.Intn(int(game.NumRotations)))
}
