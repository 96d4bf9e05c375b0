package entity

const (
	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// SubBoard is one of the nine inner 3x3 grids. Cells hold a player mark
// or EmptyCell.
type SubBoard [9]string

// Board is the meta board: a 3x3 grid of sub-boards addressed 0..8.
type Board [9]SubBoard

// CheckLines evaluates a 3x3 grid of marks: it returns the winning mark if
// one player holds three in a row, PlayerTie if every field is taken with no
// winner, and EmptyCell while the grid is still open. The same routine works
// on sub-board cells and on the abstracted meta grid, where a drawn sub-board
// is represented by PlayerTie and therefore never completes a line.
func CheckLines(grid [9]string) string {
	for _, combo := range WinCombos {
		a, b, c := grid[combo[0]], grid[combo[1]], grid[combo[2]]
		if (a == PlayerX || a == PlayerO) && a == b && b == c {
			return a
		}
	}

	for _, field := range grid {
		if field == EmptyCell {
			return EmptyCell
		}
	}

	return PlayerTie
}

// Status reports the sub-board outcome: the winner's mark, PlayerTie for a
// full board without a winner, or EmptyCell while moves remain.
func (that *SubBoard) Status() string {
	return CheckLines([9]string(*that))
}

// IsOpen reports whether the sub-board still accepts moves.
func (that *SubBoard) IsOpen() bool {
	return that.Status() == EmptyCell
}

// Abstract collapses each sub-board to its status mark, producing the 3x3
// grid the meta-level win check runs over.
func (that *Board) Abstract() [9]string {
	var grid [9]string
	for i := range that {
		grid[i] = that[i].Status()
	}
	return grid
}

// Status reports the overall match outcome using the same three-in-a-row
// rule one level up.
func (that *Board) Status() string {
	return CheckLines(that.Abstract())
}
