package searcher

import (
	"fmt"

	"leapfrog/experiments/metrics"
	"leapfrog/game"

	"github.com/rs/zerolog/log"
)

type Option func(mcts *MCTS)

// ChildStat summarizes one root child after a search.
type ChildStat struct {
	Action game.Action
	Prior  float64
	Visits int
	Q      float64 // mean reward for the side to move at the root
}

// MCTS is a PUCT search guided by an Evaluator. Leaves are evaluated in
// batches; virtual loss spreads the selections of one batch over the tree.
type MCTS struct {
	simulations int
	batchSize   int
	puct        float64
	rotate      func() game.Rotation
	evaluator   Evaluator
	root        *decision
	rootPly     int
	rootTurn    game.Player
	metrics     metrics.Collector
}

type leaf struct {
	node     *decision
	env      *game.Env
	rotation game.Rotation
}

func WithSimulations(simulations int) Option {
	return func(m *MCTS) {
		if simulations > 0 {
			m.simulations = simulations
		}
	}
}

func WithBatchSize(batchSize int) Option {
	return func(m *MCTS) {
		if batchSize > 0 {
			m.batchSize = batchSize
		}
	}
}

func WithPUCT(c float64) Option {
	return func(m *MCTS) {
		if c > 0 {
			m.puct = c
		}
	}
}

// WithRotation picks the symmetry each leaf is encoded with.
func WithRotation(rotate func() game.Rotation) Option {
	return func(m *MCTS) {
		if rotate != nil {
			m.rotate = rotate
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(evaluator Evaluator, options ...Option) *MCTS {
	m := &MCTS{ // Default values
		batchSize: 1,
		puct:      DefaultPuct,
		rotate:    func() game.Rotation { return game.RotationNone },
		evaluator: evaluator,
		metrics:   metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.simulations <= 0 {
		panic("Must specify search simulations")
	}
	return m
}

// SetEvaluator swaps the evaluator and drops the tree built with the old one.
func (m *MCTS) SetEvaluator(evaluator Evaluator) {
	m.evaluator = evaluator
	m.Reset()
}

func (m *MCTS) Reset() {
	m.root = nil
}

// Advance moves the root to the child reached by action so that the next
// search reuses its subtree. Unknown actions drop the tree.
func (m *MCTS) Advance(action game.Action) {
	if m.root == nil {
		return
	}
	child := m.root.child(action.ID)
	if child == nil || child.player != action.Player {
		m.root = nil
		return
	}
	child.parent = nil
	m.root = child
	m.rootPly++
	m.rootTurn = action.Player.Next()
}

// Search runs the configured number of simulations from env, which is not modified.
func (m *MCTS) Search(env *game.Env) (metrics.SearchMetric, error) {
	m.metrics.Start(m.batchSize)
	m.findRoot(env)

	done := 0
	for done < m.simulations {
		n, err := m.simulate(env, min(m.batchSize, m.simulations-done))
		if err != nil {
			return m.metrics.Complete(), err
		}
		done += n
	}
	return m.metrics.Complete(), nil
}

func (m *MCTS) findRoot(env *game.Env) {
	if m.root == nil || m.rootPly != len(env.Actions()) || m.rootTurn != env.Turn() {
		if m.root != nil {
			log.Debug().Msgf("dropping search tree at ply %d for ply %d", m.rootPly, len(env.Actions()))
		}
		m.root = newRoot(env)
		m.rootPly = len(env.Actions())
		m.rootTurn = env.Turn()
		m.metrics.SetTreeReset(true)
		return
	}
	m.metrics.SetTreeReset(false)
}

// simulate completes up to n simulations, evaluating the new leaves in one
// batch, and returns how many were completed.
func (m *MCTS) simulate(env *game.Env, n int) (int, error) {
	var batch []leaf
	completed := 0
	for len(batch)+completed < n {
		node, state := selectLeaf(m.root, env, m.puct)

		if node.pending { // Collision with a leaf already in this batch
			node.abandon()
			break
		}
		if node.terminal || state.IsTerminal() {
			node.terminal = true
			backup(node, state.Turn(), terminalValue(state))
			m.metrics.AddTerminalLeaf()
			m.metrics.AddSimulation()
			completed++
			continue
		}

		node.pending = true
		batch = append(batch, leaf{node: node, env: state, rotation: m.rotate()})
	}

	if len(batch) == 0 {
		return completed, nil
	}

	features := make([][]float32, len(batch))
	for i, l := range batch {
		features[i] = l.env.Features(l.rotation)
	}
	outputs, err := m.evaluator.Evaluate(features)
	if err != nil {
		for _, l := range batch {
			l.node.pending = false
			l.node.abandon()
		}
		return completed, fmt.Errorf("failed to evaluate leaves: %w", err)
	}
	if len(outputs) != len(batch) {
		panic(fmt.Sprintf("evaluator returned %d outputs for %d leaves", len(outputs), len(batch)))
	}
	m.metrics.AddBatch()

	for i, l := range batch {
		l.node.pending = false
		l.node.expand(l.env, l.env.LegalActions(), outputs[i].Policy, l.rotation)
		backup(l.node, l.env.Turn(), float64(outputs[i].Value))
		m.metrics.AddSimulation()
	}
	return completed + len(batch), nil
}

func selectLeaf(root *decision, env *game.Env, c float64) (*decision, *game.Env) {
	node := root
	state := env.Clone()
	for node.expanded && !node.terminal {
		child := node.pickChild(c)
		child.ApplyLoss()
		if !state.Act(child.action) {
			panic(fmt.Sprintf("tree holds illegal action %s", child.action.ConsoleString(state.Size())))
		}
		node = child
	}
	return node, state
}

func backup(newNode *decision, turn game.Player, value float64) {
	node := newNode
	for node != nil {
		node = node.Backup(turn, value)
	}
}

// terminalValue is the outcome of a finished game for the side to move.
func terminalValue(env *game.Env) float64 {
	score := env.EvalScore(false)
	value := 0.0
	switch {
	case score > 0:
		value = WIN
	case score < 0:
		value = LOSS
	}
	if env.Turn() == game.Player2 {
		value = -value
	}
	return value
}

// Children reports the root's children in legal action order.
func (m *MCTS) Children() []ChildStat {
	if m.root == nil {
		return nil
	}
	stats := make([]ChildStat, len(m.root.children))
	for i, c := range m.root.children {
		stats[i] = ChildStat{Action: c.action, Prior: c.prior, Visits: c.visits, Q: c.q()}
	}
	return stats
}

// RootValue is the mean reward of the root for its side to move.
func (m *MCTS) RootValue() float64 {
	if m.root == nil {
		return 0
	}
	return -m.root.q()
}

func (m *MCTS) RootVisits() int {
	if m.root == nil {
		return 0
	}
	return m.root.visits
}
