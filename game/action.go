package game

import (
	"strconv"
	"strings"
)

// InvalidActionID marks a move text or coordinate pair that does not encode a jump.
const InvalidActionID = -1

// Direction deltas as (row, col), indexed by direction:
// north, northeast, east, southeast, south, southwest, west, northwest.
var directions = [NumDirections][2]int{
	{2, 0}, {2, 2}, {0, 2}, {-2, 2},
	{-2, 0}, {-2, -2}, {0, -2}, {2, -2},
}

// Action is a jump of player's piece, encoded as direction*area + fromSquare.
type Action struct {
	ID     int
	Player Player
}

func NewAction(id int, player Player) Action {
	return Action{ID: id, Player: player}
}

// FromPos returns the source square of the action.
func (a Action) FromPos(size int) int {
	return a.ID % (size * size)
}

// DestPos returns the destination square, or -1 if it falls off the board.
func (a Action) DestPos(size int) int {
	return destPos(a.ID, size)
}

// ConsoleString renders the action as a coordinate pair such as "c3a1".
func (a Action) ConsoleString(size int) string {
	return ActionIDToString(a.ID, size)
}

// IsValid reports whether the id lies inside the action space of a size×size board.
func (a Action) IsValid(size int) bool {
	return a.ID >= 0 && a.ID < NumDirections*size*size
}

func destPos(id, size int) int {
	area := size * size
	if id < 0 || id >= NumDirections*area {
		return -1
	}
	dir, pos := id/area, id%area
	row := pos/size + directions[dir][0]
	col := pos%size + directions[dir][1]
	if row < 0 || row >= size || col < 0 || col >= size {
		return -1
	}
	return row*size + col
}

// ActionIDFromCoordinates converts a source and destination square to an
// action id. Only two-square straight and diagonal jumps are encodable.
func ActionIDFromCoordinates(fromCol, fromRow, toCol, toRow, size int) int {
	dRow, dCol := toRow-fromRow, toCol-fromCol
	for dir, d := range directions {
		if d[0] == dRow && d[1] == dCol {
			return dir*size*size + fromRow*size + fromCol
		}
	}
	return InvalidActionID
}

// ActionIDToString renders an action id as "<col><row><col><row>", or "null"
// for ids that do not land on the board.
func ActionIDToString(id, size int) string {
	dest := destPos(id, size)
	if dest < 0 {
		return "null"
	}
	from := id % (size * size)
	var sb strings.Builder
	sb.WriteByte(ColumnChar(from % size))
	sb.WriteString(strconv.Itoa(from/size + 1))
	sb.WriteByte(ColumnChar(dest % size))
	sb.WriteString(strconv.Itoa(dest/size + 1))
	return sb.String()
}

// ParseAction parses protocol arguments [playerChar, moveText]. Malformed
// input yields InvalidActionID rather than an error; the caller decides how
// to report it.
func ParseAction(args []string, size int) Action {
	if len(args) < 2 || len(args[0]) != 1 {
		return Action{ID: InvalidActionID, Player: PlayerNone}
	}
	return Action{
		ID:     parseMoveText(args[1], size),
		Player: PlayerFromChar(args[0][0]),
	}
}

func parseMoveText(text string, size int) int {
	if len(text) < 4 {
		return InvalidActionID
	}
	// Index of the destination column, e.g. 3 for "a10b10" and 2 for "a2b2".
	destIdx := 1
	for destIdx < len(text) && isDigit(text[destIdx]) {
		destIdx++
	}
	if destIdx == 1 || destIdx >= len(text)-1 {
		return InvalidActionID
	}

	c1 := ColumnFromChar(text[0])
	r1 := parseRow(text[1:destIdx])
	c2 := ColumnFromChar(text[destIdx])
	r2 := parseRow(text[destIdx+1:])
	if c1 < 0 || r1 < 0 || c2 < 0 || r2 < 0 {
		return InvalidActionID
	}
	if c1 >= size || r1 >= size || c2 >= size || r2 >= size {
		return InvalidActionID
	}
	return ActionIDFromCoordinates(c1, r1, c2, r2, size)
}

// parseRow converts a 1-based decimal row to a 0-based index, -1 if malformed.
func parseRow(s string) int {
	if s == "" {
		return -1
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return -1
		}
	}
	row, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return row - 1
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// ColumnChar returns the lowercase column letter, skipping 'i'.
func ColumnChar(col int) byte {
	c := byte('a' + col)
	if c >= 'i' {
		c++
	}
	return c
}

// ColumnFromChar returns the 0-based column of a letter, or -1 for 'i' and non-letters.
func ColumnFromChar(c byte) int {
	if 'a' <= c && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' || c == 'I' {
		return -1
	}
	col := int(c - 'A')
	if c > 'I' {
		col--
	}
	return col
}
