package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckLines(t *testing.T) {
	t.Run("Returns PlayerX for a winning row", func(t *testing.T) {
		// Given: X holds the top row
		grid := [9]string{
			PlayerX, PlayerX, PlayerX,
			EmptyCell, PlayerO, EmptyCell,
			PlayerO, EmptyCell, EmptyCell,
		}

		// When: checking the grid
		result := CheckLines(grid)

		// Then: X is the winner
		assert.Equal(t, PlayerX, result)
	})

	t.Run("Returns PlayerO for a winning column", func(t *testing.T) {
		// Given: O holds the middle column
		grid := [9]string{
			PlayerX, PlayerO, EmptyCell,
			PlayerX, PlayerO, EmptyCell,
			EmptyCell, PlayerO, PlayerX,
		}

		// When: checking the grid
		result := CheckLines(grid)

		// Then: O is the winner
		assert.Equal(t, PlayerO, result)
	})

	t.Run("Returns EmptyCell while the grid is open", func(t *testing.T) {
		// Given: a grid with moves remaining and no winner
		grid := [9]string{
			PlayerX, EmptyCell, EmptyCell,
			EmptyCell, PlayerO, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}

		// When: checking the grid
		result := CheckLines(grid)

		// Then: the grid is still open
		assert.Equal(t, EmptyCell, result)
	})

	t.Run("Returns PlayerTie for a full grid without a winner", func(t *testing.T) {
		// Given: a full grid with no three-in-a-row
		grid := [9]string{
			PlayerX, PlayerO, PlayerX,
			PlayerX, PlayerO, PlayerO,
			PlayerO, PlayerX, PlayerX,
		}

		// When: checking the grid
		result := CheckLines(grid)

		// Then: the grid is drawn
		assert.Equal(t, PlayerTie, result)
	})

	t.Run("A line through drawn markers never wins", func(t *testing.T) {
		// Given: a meta-level grid where the tie marker fills a row
		grid := [9]string{
			PlayerTie, PlayerTie, PlayerTie,
			PlayerX, EmptyCell, EmptyCell,
			EmptyCell, EmptyCell, PlayerO,
		}

		// When: checking the grid
		result := CheckLines(grid)

		// Then: nobody wins through drawn sub-boards
		assert.Equal(t, EmptyCell, result)
	})
}

func TestSubBoard_Status(t *testing.T) {
	t.Run("Fresh sub-board is open", func(t *testing.T) {
		var sub SubBoard

		assert.Equal(t, EmptyCell, sub.Status())
		assert.True(t, sub.IsOpen())
	})

	t.Run("Won sub-board reports its winner and closes", func(t *testing.T) {
		sub := SubBoard{
			PlayerO, EmptyCell, PlayerX,
			EmptyCell, PlayerO, PlayerX,
			EmptyCell, EmptyCell, PlayerO,
		}

		assert.Equal(t, PlayerO, sub.Status())
		assert.False(t, sub.IsOpen())
	})

	t.Run("Full sub-board without a winner is drawn and closes", func(t *testing.T) {
		sub := SubBoard{
			PlayerX, PlayerO, PlayerX,
			PlayerX, PlayerO, PlayerO,
			PlayerO, PlayerX, PlayerX,
		}

		assert.Equal(t, PlayerTie, sub.Status())
		assert.False(t, sub.IsOpen())
	})
}

func TestBoard_Status(t *testing.T) {
	wonBy := func(mark string) SubBoard {
		return SubBoard{
			mark, mark, mark,
			EmptyCell, EmptyCell, EmptyCell,
			EmptyCell, EmptyCell, EmptyCell,
		}
	}

	drawn := SubBoard{
		PlayerX, PlayerO, PlayerX,
		PlayerX, PlayerO, PlayerO,
		PlayerO, PlayerX, PlayerX,
	}

	t.Run("Open board while no meta line is complete", func(t *testing.T) {
		var board Board
		board[0] = wonBy(PlayerX)
		board[4] = wonBy(PlayerO)

		assert.Equal(t, EmptyCell, board.Status())
	})

	t.Run("Three won sub-boards in a diagonal win the match", func(t *testing.T) {
		var board Board
		board[0] = wonBy(PlayerX)
		board[4] = wonBy(PlayerX)
		board[8] = wonBy(PlayerX)

		assert.Equal(t, PlayerX, board.Status())
	})

	t.Run("Drawn sub-board blocks a meta line", func(t *testing.T) {
		var board Board
		board[0] = wonBy(PlayerO)
		board[4] = drawn
		board[8] = wonBy(PlayerO)

		assert.Equal(t, EmptyCell, board.Status())
	})

	t.Run("All sub-boards closed without a meta line draws the match", func(t *testing.T) {
		var board Board
		for i := range board {
			board[i] = drawn
		}

		assert.Equal(t, PlayerTie, board.Status())
	})
}
