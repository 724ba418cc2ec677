package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"leapfrog/experiments/metrics"
	"leapfrog/game"
	"leapfrog/searcher/actor"
)

// LocalEngine plays two actors against each other in process. Each actor keeps
// its own copy of the game; the engine holds the reference copy and mirrors
// every move to the waiting actor.
type LocalEngine struct {
	env    *game.Env
	actors [game.NumPlayer]*actor.Actor
}

var _ Engine = (*LocalEngine)(nil)

// NewLocalEngine seats first as Player1 and second as Player2.
func NewLocalEngine(first, second *actor.Actor) *LocalEngine {
	size := first.Env().Size()
	if second.Env().Size() != size {
		panic("actors play on different board sizes")
	}
	return &LocalEngine{
		env:    game.NewEnv(size),
		actors: [game.NumPlayer]*actor.Actor{first, second},
	}
}

// Run executes the entire game loop until a winner is found or the move cap
// of the environment ends the game.
func (e *LocalEngine) Run() (string, metrics.GameMetric, []metrics.MoveMetric, error) {
	e.env.Reset()
	for _, a := range e.actors {
		a.Reset()
	}

	gameMetric := metrics.GameMetric{
		StartingPlayer: e.env.Turn().String(),
		StartTime:      time.Now(),
	}
	var moveMetrics []metrics.MoveMetric

	log.Debug().Msgf("player %s is starting", gameMetric.StartingPlayer)

	score := 0.0
	for step := 1; !e.env.IsTerminal(); step++ {
		turn := e.env.Turn()
		mover, waiting := e.actor(turn), e.actor(turn.Next())

		action, err := mover.Think(true, true)
		if err != nil {
			return "", gameMetric, moveMetrics, fmt.Errorf("failed to think at step %d: %w", step, err)
		}
		moveMetric := metrics.MoveMetric{
			Step:         step,
			Player:       turn.String(),
			SearchMetric: mover.LastMetric(),
		}

		if mover.IsResign() {
			moveMetric.Move = "resign"
			moveMetrics = append(moveMetrics, moveMetric)
			gameMetric.Resigned = true
			score = mover.EvalScore()
			log.Debug().Msgf("player %s resigned at step %d", turn, step)
			break
		}

		moveMetric.Move = action.ConsoleString(e.env.Size())
		moveMetrics = append(moveMetrics, moveMetric)
		if !e.env.Act(action) {
			panic(fmt.Sprintf("unexpected illegal action %s", moveMetric.Move))
		}
		if !waiting.ActAction(action) {
			panic(fmt.Sprintf("actors disagree on action %s", moveMetric.Move))
		}
	}
	if !gameMetric.Resigned {
		score = e.env.EvalScore(false)
	}

	gameMetric.Score = score
	gameMetric.Winner = winner(score)
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = len(e.env.Actions())

	return gameMetric.Winner, gameMetric, moveMetrics, nil
}

// Env returns the reference copy of the game.
func (e *LocalEngine) Env() *game.Env {
	return e.env
}

func (e *LocalEngine) actor(p game.Player) *actor.Actor {
	switch p {
	case game.Player1:
		return e.actors[0]
	case game.Player2:
		return e.actors[1]
	}
	panic("unexpected player")
}

// winner maps a Player1-perspective score to the protocol character of the
// winning side, or "" for an undecided game.
func winner(score float64) string {
	switch {
	case score > 0:
		return game.Player1.String()
	case score < 0:
		return game.Player2.String()
	}
	return ""
}
