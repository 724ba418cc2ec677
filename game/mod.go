package game

const (
	Name      = "leapfrog"
	NumPlayer = 2

	DefaultBoardSize = 8
	MinBoardSize     = 8
	MaxBoardSize     = 25 // 26 letters without the reserved 'i'

	NumDirections  = 8 // 4 orthogonal + 4 diagonal
	NumHistory     = 8 // plies encoded in the feature planes
	NumInputPlanes = 2*NumHistory + 2

	// Offset added to decisive scores so serialized values never look like
	// an exact draw.
	ScoreOffset = 0.00001
)

// Player identifies a side. Player1 moves first and is rendered as 'O' on the board.
type Player int

const (
	PlayerNone Player = iota
	Player1
	Player2
)

// Next returns the opponent of p. PlayerNone has no opponent.
func (p Player) Next() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return PlayerNone
}

// Char returns the protocol character for p.
func (p Player) Char() byte {
	switch p {
	case Player1:
		return 'B'
	case Player2:
		return 'W'
	}
	return 'N'
}

func (p Player) String() string {
	return string(p.Char())
}

// PlayerFromChar parses a protocol player character. Unknown characters map to PlayerNone.
func PlayerFromChar(c byte) Player {
	switch c {
	case 'B', 'b', '1':
		return Player1
	case 'W', 'w', '2':
		return Player2
	}
	return PlayerNone
}

func (p Player) index() int {
	switch p {
	case Player1:
		return 0
	case Player2:
		return 1
	}
	panic("unexpected player")
}
