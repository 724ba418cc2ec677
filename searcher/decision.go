package searcher

import (
	"math"

	"leapfrog/game"
)

// decision is a tree node reached by action. rewards accumulate from the
// perspective of player, the side that played action.
type decision struct {
	parent   *decision
	action   game.Action
	player   game.Player
	prior    float64
	children []*decision
	expanded bool
	terminal bool
	pending  bool // queued for evaluation in the current batch
	rewards  float64
	visits   int
}

func newDecision(parent *decision, action game.Action, prior float64) *decision {
	return &decision{
		parent: parent,
		action: action,
		player: action.Player,
		prior:  prior,
	}
}

func newRoot(env *game.Env) *decision {
	return &decision{
		action: game.NewAction(game.InvalidActionID, env.Turn().Next()),
		player: env.Turn().Next(),
	}
}

// expand adds one child per legal action with priors read from policy through
// the rotation the features were encoded with.
func (d *decision) expand(env *game.Env, legal []game.Action, policy []float32, rotation game.Rotation) {
	if d.expanded {
		panic("node is already expanded")
	}

	priors := make([]float64, len(legal))
	sum := 0.0
	for i, a := range legal {
		priors[i] = float64(policy[env.RotateAction(a.ID, rotation)])
		sum += priors[i]
	}

	d.children = make([]*decision, len(legal))
	for i, a := range legal {
		prior := 1.0 / float64(len(legal))
		if sum > 0 {
			prior = priors[i] / sum
		}
		d.children[i] = newDecision(d, a, prior)
	}
	d.expanded = true
}

func (d *decision) pickChild(c float64) *decision {
	if len(d.children) == 0 {
		panic("node has no children")
	}

	parentN := 1
	for _, child := range d.children {
		parentN += child.visits
	}

	best := d.children[0] // NaN scores never compare greater
	maxScore := math.Inf(-1)
	for _, child := range d.children {
		if score := puct(child.q(), child.prior, child.visits, parentN, c); score > maxScore {
			maxScore = score
			best = child
		}
	}
	return best
}

func (d *decision) q() float64 {
	if d.visits == 0 {
		return 0
	}
	return d.rewards / float64(d.visits)
}

// ApplyLoss counts a pending simulation as a loss so that other selections in
// the same batch avoid this path.
func (d *decision) ApplyLoss() {
	d.rewards += LOSS
	d.visits++
}

func (d *decision) reverseLoss() {
	d.rewards -= LOSS
	d.visits--
}

// Backup records value, given from the perspective of turn, and returns the parent.
func (d *decision) Backup(turn game.Player, value float64) *decision {
	if d.parent != nil { // Non-root node
		d.reverseLoss()
	}

	if d.player == turn {
		d.rewards += value
	} else {
		d.rewards -= value
	}
	d.visits++

	return d.parent
}

// abandon reverts the virtual losses of a selection that reached a pending leaf.
func (d *decision) abandon() {
	for node := d; node.parent != nil; node = node.parent {
		node.reverseLoss()
	}
}

func (d *decision) child(actionID int) *decision {
	for _, c := range d.children {
		if c.action.ID == actionID {
			return c
		}
	}
	return nil
}
