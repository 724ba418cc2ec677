package game

import "github.com/bits-and-blooms/bitset"

// Bitboard is a fixed-width occupancy set with one bit per square,
// indexed by row*size+col.
type Bitboard struct {
	bits *bitset.BitSet
}

func NewBitboard(area int) Bitboard {
	return Bitboard{bits: bitset.New(uint(area))}
}

func (b Bitboard) Test(pos int) bool {
	return b.bits.Test(uint(pos))
}

func (b Bitboard) Set(pos int) {
	b.bits.Set(uint(pos))
}

func (b Bitboard) Reset(pos int) {
	b.bits.Clear(uint(pos))
}

func (b Bitboard) Count() int {
	return int(b.bits.Count())
}

func (b Bitboard) Clone() Bitboard {
	return Bitboard{bits: b.bits.Clone()}
}

// Board is a snapshot of both players' bitboards.
type Board struct {
	pair [NumPlayer]Bitboard
}

func NewBoard(area int) Board {
	return Board{pair: [NumPlayer]Bitboard{NewBitboard(area), NewBitboard(area)}}
}

// Get returns the bitboard of p.
func (b Board) Get(p Player) Bitboard {
	return b.pair[p.index()]
}

// PlayerAt returns the owner of the piece on pos, or PlayerNone if empty.
func (b Board) PlayerAt(pos int) Player {
	switch {
	case b.pair[0].Test(pos):
		return Player1
	case b.pair[1].Test(pos):
		return Player2
	}
	return PlayerNone
}

func (b Board) Clone() Board {
	return Board{pair: [NumPlayer]Bitboard{b.pair[0].Clone(), b.pair[1].Clone()}}
}
