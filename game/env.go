package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Starting layout on the 8×8 core as (row, col), rows counted from the bottom.
//
//	  A B C D E F G H
//	8 . . . . . . . . 8
//	7 . . . X O . . . 7
//	6 . . O O X X . . 6
//	5 . X O X O X O . 5
//	4 . O X O X O X . 4
//	3 . . X X O O . . 3
//	2 . . . O X . . . 2
//	1 . . . . . . . . 1
//	  A B C D E F G H
var (
	player1Start = [][2]int{
		{6, 4},
		{5, 2}, {5, 3},
		{4, 2}, {4, 4}, {4, 6},
		{3, 1}, {3, 3}, {3, 5},
		{2, 4}, {2, 5},
		{1, 3},
	}
	player2Start = [][2]int{
		{6, 3},
		{5, 4}, {5, 5},
		{4, 1}, {4, 3}, {4, 5},
		{3, 2}, {3, 4}, {3, 6},
		{2, 2}, {2, 3},
		{1, 4},
	}
)

// ValidBoardSize reports whether size can host the starting layout and be
// addressed by the column letters.
func ValidBoardSize(size int) bool {
	return size >= MinBoardSize && size <= MaxBoardSize
}

// Env is the leapfrog game engine: current board, move list, board history and turn.
// Pieces move only by jumping two squares over any piece onto an empty square;
// a jumped opponent piece is captured.
type Env struct {
	size    int
	turn    Player
	actions []Action
	board   Board
	history []Board
}

// NewEnv returns an environment in the starting position. It panics if size is not valid.
func NewEnv(size int) *Env {
	if !ValidBoardSize(size) {
		panic(fmt.Sprintf("unsupported board size %d", size))
	}
	e := &Env{size: size}
	e.Reset()
	return e
}

// NewEnvFromPosition returns an environment whose history starts at the given
// squares with turn to move. It panics on overlapping squares.
func NewEnvFromPosition(size int, player1, player2 []int, turn Player) *Env {
	e := NewEnv(size)
	e.board = NewBoard(e.area())
	for _, pos := range player1 {
		e.board.Get(Player1).Set(pos)
	}
	for _, pos := range player2 {
		if e.board.PlayerAt(pos) != PlayerNone {
			panic(fmt.Sprintf("square %d is occupied twice", pos))
		}
		e.board.Get(Player2).Set(pos)
	}
	e.SetTurn(turn)
	e.history = []Board{e.board.Clone()}
	return e
}

// Reset restores the starting layout with Player1 to move.
func (e *Env) Reset() {
	e.turn = Player1
	e.actions = nil
	e.board = NewBoard(e.area())

	// Larger boards keep the 8×8 arrangement centred.
	offset := (e.size - DefaultBoardSize) / 2
	for _, rc := range player1Start {
		e.board.Get(Player1).Set((rc[0]+offset)*e.size + rc[1] + offset)
	}
	for _, rc := range player2Start {
		e.board.Get(Player2).Set((rc[0]+offset)*e.size + rc[1] + offset)
	}

	e.history = []Board{e.board.Clone()}
}

func (e *Env) Size() int { return e.size }
func (e *Env) Turn() Player { return e.turn }
func (e *Env) Board() Board { return e.board }
func (e *Env) Actions() []Action { return e.actions }
func (e *Env) History() []Board { return e.history }
func (e *Env) PolicySize() int { return NumDirections * e.area() }
func (e *Env) NumInputChannels() int { return NumInputPlanes }

// NumActionFeatureChannels is the number of planes an action one-hot spans.
func (e *Env) NumActionFeatureChannels() int { return NumDirections }

// SetTurn forces the side to move. The console uses it to honour the
// player named in genmove.
func (e *Env) SetTurn(p Player) {
	if p != Player1 && p != Player2 {
		panic("unexpected player")
	}
	e.turn = p
}

// IsLegalAction checks turn, source ownership, destination bounds, a piece to
// jump over and an empty landing square. It never mutates the environment.
func (e *Env) IsLegalAction(a Action) bool {
	if a.Player != e.turn || !a.IsValid(e.size) {
		return false
	}
	from := a.FromPos(e.size)
	if e.board.PlayerAt(from) != a.Player {
		return false
	}
	dest := a.DestPos(e.size)
	if dest < 0 {
		return false
	}
	if e.board.PlayerAt((from+dest)/2) == PlayerNone {
		return false
	}
	return e.board.PlayerAt(dest) == PlayerNone
}

// Act applies a legal action and returns true; illegal actions leave the
// environment untouched and return false.
func (e *Env) Act(a Action) bool {
	if !e.IsLegalAction(a) {
		return false
	}

	from, dest := a.FromPos(e.size), a.DestPos(e.size)
	mid := (from + dest) / 2
	opponent := a.Player.Next()

	e.board.Get(a.Player).Reset(from)
	if e.board.Get(opponent).Test(mid) {
		e.board.Get(opponent).Reset(mid)
	}
	e.board.Get(a.Player).Set(dest)

	e.actions = append(e.actions, a)
	e.history = append(e.history, e.board.Clone())
	e.turn = opponent
	return true
}

// ActString parses protocol arguments [playerChar, moveText] and applies the action.
func (e *Env) ActString(args []string) bool {
	return e.Act(ParseAction(args, e.size))
}

// LegalActions lists the legal actions of the side to move in ascending id order.
func (e *Env) LegalActions() []Action {
	var actions []Action
	for id := 0; id < e.PolicySize(); id++ {
		a := NewAction(id, e.turn)
		if e.IsLegalAction(a) {
			actions = append(actions, a)
		}
	}
	return actions
}

func (e *Env) hasLegalAction() bool {
	for id := 0; id < e.PolicySize(); id++ {
		if e.IsLegalAction(NewAction(id, e.turn)) {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the side to move cannot jump or the game has
// exceeded 5*area plies.
func (e *Env) IsTerminal() bool {
	if len(e.actions) > 5*e.area() {
		return true
	}
	return !e.hasLegalAction()
}

// EvalScore returns +1+ScoreOffset when Player1 wins, -1-ScoreOffset when
// Player2 wins and 0 otherwise. On resignation the side to move loses,
// whatever the board says.
func (e *Env) EvalScore(isResign bool) float64 {
	result := e.eval()
	if isResign {
		result = e.turn.Next()
	}
	switch result {
	case Player1:
		return 1 + ScoreOffset
	case Player2:
		return -1 - ScoreOffset
	}
	return 0
}

// eval returns the winner of the current position: a side without a legal
// jump loses.
func (e *Env) eval() Player {
	if !e.hasLegalAction() {
		return e.turn.Next()
	}
	return PlayerNone
}

// Features encodes the position as NumInputPlanes planes of area floats:
// planes 0-15 hold own/opponent occupancy for the last 8 boards (newest first),
// planes 16 and 17 flag Player1 and Player2 to move.
func (e *Env) Features(rotation Rotation) []float32 {
	area := e.area()
	features := make([]float32, NumInputPlanes*area)
	past := min(NumHistory, len(e.history))
	last := len(e.history) - 1
	reversed := rotation.Reversed()

	for h := 0; h < past; h++ {
		b := e.history[last-h]
		own, opponent := b.Get(e.turn), b.Get(e.turn.Next())
		for pos := 0; pos < area; pos++ {
			rotated := e.RotatePosition(pos, reversed)
			if own.Test(rotated) {
				features[2*h*area+pos] = 1
			}
			if opponent.Test(rotated) {
				features[(2*h+1)*area+pos] = 1
			}
		}
	}

	var first, second float32
	if e.turn == Player1 {
		first = 1
	} else {
		second = 1
	}
	for pos := 0; pos < area; pos++ {
		features[2*NumHistory*area+pos] = first
		features[(2*NumHistory+1)*area+pos] = second
	}
	return features
}

// ActionFeatures is a one-hot vector over the action space at the rotated action id.
func (e *Env) ActionFeatures(a Action, rotation Rotation) []float32 {
	if !a.IsValid(e.size) {
		panic(fmt.Sprintf("action id %d out of range", a.ID))
	}
	features := make([]float32, e.PolicySize())
	features[e.RotateAction(a.ID, rotation)] = 1
	return features
}

// RotatePosition is the identity: the starting layout has no symmetry.
func (e *Env) RotatePosition(position int, rotation Rotation) int { return position }

// RotateAction is the identity: the starting layout has no symmetry.
func (e *Env) RotateAction(actionID int, rotation Rotation) int { return actionID }

// Clone returns an independent copy. Snapshots in the history are never
// mutated after being recorded, so they are shared.
func (e *Env) Clone() *Env {
	return &Env{
		size:    e.size,
		turn:    e.turn,
		actions: append([]Action(nil), e.actions...),
		board:   e.board.Clone(),
		history: append([]Board(nil), e.history...),
	}
}

func (e *Env) String() string {
	var sb strings.Builder
	coordinates := e.coordinateString()
	sb.WriteString(" " + coordinates + "\n")
	for row := e.size - 1; row >= 0; row-- {
		label := strconv.Itoa(row + 1)
		if row < 9 {
			label = " " + label
		}
		sb.WriteString(label + " ")
		for col := 0; col < e.size; col++ {
			switch e.board.PlayerAt(row*e.size + col) {
			case Player1:
				sb.WriteString(" O ")
			case Player2:
				sb.WriteString(" X ")
			default:
				sb.WriteString(" . ")
			}
		}
		sb.WriteString(label + "\n")
	}
	sb.WriteString(" " + coordinates + "\n")
	return sb.String()
}

func (e *Env) coordinateString() string {
	var sb strings.Builder
	sb.WriteString("  ")
	for col := 0; col < e.size; col++ {
		sb.WriteString(" " + strings.ToUpper(string(ColumnChar(col))) + " ")
	}
	sb.WriteString("   ")
	return sb.String()
}

func (e *Env) area() int {
	return e.size * e.size
}

var _ Symmetry = (*Env)(nil)
