package searcher

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"leapfrog/game"
	"leapfrog/network"
)

/**
Tests batched PUCT search with virtual loss
- selection: max PUCT child, virtual loss on every selected child
- expansion: one child per legal action, priors normalized over legal actions
- evaluation: one evaluator call per batch, collisions end a batch early
- backup: reverse loss, rewards from the perspective of the player who moved
- tree reuse: Advance keeps the played child's subtree
*/

type fakeEvaluator struct {
	favourite int // action id that receives all the prior mass, -1 for uniform
	value     float32
	err       error
	batches   []int
}

func (f *fakeEvaluator) Evaluate(features [][]float32) ([]network.Output, error) {
	f.batches = append(f.batches, len(features))
	if f.err != nil {
		return nil, f.err
	}
	outputs := make([]network.Output, len(features))
	for i := range outputs {
		policy := make([]float32, game.NumDirections*64)
		for id := range policy {
			if f.favourite < 0 {
				policy[id] = 1
			}
		}
		if f.favourite >= 0 {
			policy[f.favourite] = 1
		}
		outputs[i] = network.Output{Policy: policy, Value: f.value}
	}
	return outputs, nil
}

func TestDecisionVirtualLoss(t *testing.T) {
	t.Run("backup reverses the virtual loss of a selected child", func(t *testing.T) {
		root := &decision{player: game.Player2}
		child := newDecision(root, game.NewAction(1, game.Player1), 1)
		root.children = []*decision{child}
		root.expanded = true

		child.ApplyLoss()
		require.Equal(t, LOSS, child.rewards, "Child should apply a temporary loss")
		require.Equal(t, 1, child.visits, "Child should apply a temporary loss")

		backup(child, game.Player2, -0.5)

		require.Equal(t, 0.5, child.rewards, "Child rewards should be negated for the opponent of the side to move")
		require.Equal(t, 1, child.visits)
		require.Equal(t, -0.5, root.rewards)
		require.Equal(t, 1, root.visits)
	})

	t.Run("abandoned selections leave no trace", func(t *testing.T) {
		root := &decision{player: game.Player2}
		child := newDecision(root, game.NewAction(1, game.Player1), 1)
		grandChild := newDecision(child, game.NewAction(2, game.Player2), 1)
		child.ApplyLoss()
		grandChild.ApplyLoss()

		grandChild.abandon()

		require.Equal(t, 0.0, child.rewards)
		require.Equal(t, 0, child.visits)
		require.Equal(t, 0, grandChild.visits)
	})

	t.Run("picking the child with the highest prior before any visit", func(t *testing.T) {
		root := &decision{}
		low := newDecision(root, game.NewAction(1, game.Player1), 0.2)
		high := newDecision(root, game.NewAction(2, game.Player1), 0.8)
		root.children = []*decision{low, high}

		require.Equal(t, high, root.pickChild(DefaultPuct))
	})

	t.Run("NaN rewards still select a child", func(t *testing.T) {
		root := &decision{}
		a := newDecision(root, game.NewAction(1, game.Player1), 0.5)
		b := newDecision(root, game.NewAction(2, game.Player1), 0.5)
		root.children = []*decision{a, b}
		for _, child := range root.children {
			child.rewards = math.NaN()
			child.visits = 1
		}

		require.Equal(t, a, root.pickChild(DefaultPuct))
	})

	t.Run("virtual loss steers the next selection elsewhere", func(t *testing.T) {
		root := &decision{}
		a := newDecision(root, game.NewAction(1, game.Player1), 0.5)
		b := newDecision(root, game.NewAction(2, game.Player1), 0.5)
		root.children = []*decision{a, b}

		first := root.pickChild(DefaultPuct)
		first.ApplyLoss()
		second := root.pickChild(DefaultPuct)

		require.NotEqual(t, first, second)
	})

	t.Run("expansion normalizes priors over legal actions", func(t *testing.T) {
		env := game.NewEnv(8)
		legal := env.LegalActions()
		policy := make([]float32, env.PolicySize())
		policy[legal[0].ID] = 3
		policy[legal[1].ID] = 1

		root := newRoot(env)
		root.expand(env, legal, policy, game.RotationNone)

		require.Len(t, root.children, len(legal))
		require.InDelta(t, 0.75, root.children[0].prior, 1e-9)
		require.InDelta(t, 0.25, root.children[1].prior, 1e-9)
		require.Equal(t, 0.0, root.children[2].prior)
		require.Panics(t, func() { root.expand(env, legal, policy, game.RotationNone) })
	})
}

func TestMCTSSearch(t *testing.T) {
	t.Run("visits add up to the simulation budget", func(t *testing.T) {
		env := game.NewEnv(8)
		evaluator := &fakeEvaluator{favourite: -1}
		m := NewMCTS(evaluator, WithSimulations(33), WithBatchSize(8), WithMetrics())

		metric, err := m.Search(env)

		require.NoError(t, err)
		require.Equal(t, 33, metric.Simulations)
		require.Equal(t, 33, m.RootVisits())
		require.True(t, metric.IsTreeReset)
		require.Equal(t, 1, evaluator.batches[0], "the first batch can only hold the root")
		total := 0
		for _, b := range evaluator.batches {
			require.LessOrEqual(t, b, 8)
			total += b
		}
		require.Equal(t, 33, total)
		require.Equal(t, len(evaluator.batches), metric.Batches)

		visits := 0
		legal := map[int]bool{}
		for _, a := range env.LegalActions() {
			legal[a.ID] = true
		}
		for _, c := range m.Children() {
			require.True(t, legal[c.Action.ID], "child %d should be a legal action", c.Action.ID)
			visits += c.Visits
		}
		require.Equal(t, 32, visits)
		require.Len(t, env.Actions(), 0, "search should not modify the environment")
	})

	t.Run("prior mass concentrates visits", func(t *testing.T) {
		env := game.NewEnv(8)
		favourite := env.LegalActions()[3].ID
		m := NewMCTS(&fakeEvaluator{favourite: favourite}, WithSimulations(40), WithBatchSize(4))

		_, err := m.Search(env)
		require.NoError(t, err)

		best := m.Children()[0]
		for _, c := range m.Children() {
			if c.Visits > best.Visits {
				best = c
			}
		}
		require.Equal(t, favourite, best.Action.ID)
	})

	t.Run("terminal leaves are scored without the evaluator", func(t *testing.T) {
		// Player1 on a1 and a2, Player2 on b1: both jumps leave Player2 without a move.
		env := game.NewEnvFromPosition(8, []int{0, 8}, []int{1}, game.Player1)
		require.Len(t, env.LegalActions(), 2)
		evaluator := &fakeEvaluator{favourite: -1}
		m := NewMCTS(evaluator, WithSimulations(16), WithBatchSize(4), WithMetrics())

		metric, err := m.Search(env)

		require.NoError(t, err)
		require.Equal(t, 15, metric.TerminalLeaves)
		require.Equal(t, 1, metric.Batches)
		for _, c := range m.Children() {
			require.Equal(t, WIN, c.Q, "both jumps win for Player1")
		}
		require.Greater(t, m.RootValue(), 0.9)
	})

	t.Run("evaluator errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMCTS(&fakeEvaluator{err: boom}, WithSimulations(4))
		_, err := m.Search(game.NewEnv(8))
		require.ErrorIs(t, err, boom)
	})

	t.Run("missing simulation budget", func(t *testing.T) {
		require.Panics(t, func() { NewMCTS(&fakeEvaluator{}) })
	})
}

func TestMCTSTreeReuse(t *testing.T) {
	env := game.NewEnv(8)
	m := NewMCTS(&fakeEvaluator{favourite: -1}, WithSimulations(64), WithBatchSize(8), WithMetrics())
	_, err := m.Search(env)
	require.NoError(t, err)

	best := m.Children()[0]
	for _, c := range m.Children() {
		if c.Visits > best.Visits {
			best = c
		}
	}
	require.True(t, env.Act(best.Action))
	m.Advance(best.Action)

	metric, err := m.Search(env)
	require.NoError(t, err)
	require.False(t, metric.IsTreeReset, "the played child's subtree should be reused")
	require.Equal(t, 64+best.Visits, m.RootVisits())

	t.Run("turn overrides drop the tree", func(t *testing.T) {
		env.SetTurn(env.Turn().Next())
		metric, err := m.Search(env)
		require.NoError(t, err)
		require.True(t, metric.IsTreeReset)
		require.Equal(t, 64, m.RootVisits())
	})

	t.Run("unknown actions drop the tree", func(t *testing.T) {
		m.Advance(game.NewAction(game.InvalidActionID, env.Turn()))
		require.Nil(t, m.Children())
		require.Equal(t, 0, m.RootVisits())
	})
}
