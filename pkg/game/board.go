package game

// Symbols placed on the board. A cell holds Empty or one of the two symbols.
const (
	Empty    = -1
	Nought   = 0
	Cross    = 1
	NumCells = 9

	// MaxMarks is how many of a player's marks stay on the board; older
	// ones are removed as new ones are placed.
	MaxMarks = 3
)

// winLines are the 8 rows, columns and diagonals, checked in order.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Board is a 3x3 grid stored row-major.
type Board [NumCells]int

func NewBoard() Board {
	var b Board
	for i := range b {
		b[i] = Empty
	}
	return b
}

func IsValidIndex(index int) bool {
	return index >= 0 && index < NumCells
}

// CheckWinner returns the symbol owning the first complete line.
func (b Board) CheckWinner() (int, bool) {
	for _, line := range winLines {
		s := b[line[0]]
		if s != Empty && s == b[line[1]] && s == b[line[2]] {
			return s, true
		}
	}
	return Empty, false
}

// Count returns how many cells hold symbol.
func (b Board) Count(symbol int) int {
	n := 0
	for _, s := range b {
		if s == symbol {
			n++
		}
	}
	return n
}
