package game

import (
	"fmt"
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(k Kind) Option {
	return WithPicker(func() Kind { return k })
}

// fillRow fills row r with red except the listed columns.
func fillRow(g *Game, r int, except ...int) {
	skip := map[int]bool{}
	for _, c := range except {
		skip[c] = true
	}
	for c := 0; c < Cols; c++ {
		if !skip[c] {
			g.board[r][c] = ColorRed
		}
	}
}

func TestNewGame(t *testing.T) {
	for k := KindI; k < kindCount; k++ {
		t.Run(k.String(), func(t *testing.T) {
			g := New(always(k))
			row, col := g.Anchor()
			assert.Equal(t, 0, row)
			assert.Equal(t, Cols/2-ShapeOf(k).Width()/2, col)
			assert.Equal(t, ShapeOf(k), g.ActiveShape())
			assert.Equal(t, ColorOf(k), g.ActiveColor())
			assert.Equal(t, ShapeOf(k), g.NextShape())
			assert.Equal(t, 0, g.Score())
			assert.False(t, g.IsGameOver())
			assert.Len(t, g.ID, 16)
			for _, line := range g.Board() {
				for _, c := range line {
					assert.Equal(t, ColorEmpty, c)
				}
			}
		})
	}
}

func TestMovesStayInBounds(t *testing.T) {
	rng := mrand.New(mrand.NewSource(7))
	for seed := int64(0); seed < 20; seed++ {
		g := New(WithRand(mrand.New(mrand.NewSource(seed))))
		g.board[5][0] = ColorBlue
		g.board[5][9] = ColorBlue
		for i := 0; i < 200 && !g.IsGameOver(); i++ {
			switch rng.Intn(3) {
			case 0:
				g.MoveLeft()
			case 1:
				g.MoveRight()
			default:
				g.Rotate()
			}
			row, col := g.Anchor()
			shape := g.ActiveShape()
			require.GreaterOrEqual(t, col, 0)
			require.LessOrEqual(t, col, Cols-shape.Width())
			require.True(t, g.fits(shape, row, col), "active piece overlaps frozen cells")
		}
	}
}

func TestMoveLeftRightWalls(t *testing.T) {
	g := New(always(KindO))
	moves := 0
	for g.MoveLeft() {
		moves++
	}
	_, col := g.Anchor()
	assert.Equal(t, 0, col)
	assert.Equal(t, 4, moves)

	for g.MoveRight() {
	}
	_, col = g.Anchor()
	assert.Equal(t, Cols-2, col)
}

func TestMoveBlockedByFrozenCell(t *testing.T) {
	g := New(always(KindO))
	g.board[0][3] = ColorCyan
	assert.False(t, g.MoveLeft())
	_, col := g.Anchor()
	assert.Equal(t, 4, col)
}

func TestDropToFloorAndClearOneLine(t *testing.T) {
	g := New(always(KindI))
	fillRow(g, Rows-1, 3, 4, 5, 6)

	for i := 0; i < Rows-1; i++ {
		require.True(t, g.MoveDown(), "down move %d", i+1)
	}
	row, _ := g.Anchor()
	assert.Equal(t, Rows-1, row)

	assert.False(t, g.MoveDown())
	assert.Equal(t, 100, g.Score())
	assert.Equal(t, 1, g.Lines())
	for c := 0; c < Cols; c++ {
		assert.Equal(t, ColorEmpty, g.board[Rows-1][c])
	}
	row, col := g.Anchor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 3, col)
}

func TestScoringByLinesCleared(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 100, 2: 200, 3: 400, 4: 800} {
		t.Run(fmt.Sprintf("%d lines", n), func(t *testing.T) {
			g := New(always(KindI))
			for r := Rows - n; r < Rows; r++ {
				fillRow(g, r, Cols-1)
			}
			require.True(t, g.Rotate())
			for g.MoveRight() {
			}
			_, col := g.Anchor()
			require.Equal(t, Cols-1, col)

			for g.MoveDown() {
			}
			assert.Equal(t, want, g.Score())
			assert.Equal(t, n, g.Lines())

			// rows above the cleared block shifted down by exactly n
			stub := 4 - n
			for r := Rows - stub; r < Rows; r++ {
				assert.Equal(t, ColorCyan, g.board[r][Cols-1], "row %d", r)
				assert.Equal(t, ColorEmpty, g.board[r][0], "row %d", r)
			}
		})
	}
}

func TestClearLinesRescansSameRow(t *testing.T) {
	g := New(always(KindO))
	fillRow(g, Rows-1)
	g.board[Rows-2][2] = ColorBlue
	fillRow(g, Rows-3)
	g.board[Rows-4][7] = ColorGreen

	assert.Equal(t, 2, g.clearLines())
	assert.Equal(t, ColorBlue, g.board[Rows-1][2])
	assert.Equal(t, ColorGreen, g.board[Rows-2][7])
	assert.False(t, g.rowFull(Rows-1))
	assert.False(t, g.rowFull(Rows-2))
	for c := 0; c < Cols; c++ {
		assert.Equal(t, ColorEmpty, g.board[0][c])
	}
}

func TestScoreIsMonotonic(t *testing.T) {
	g := New(WithRand(mrand.New(mrand.NewSource(42))))
	rng := mrand.New(mrand.NewSource(3))
	last := 0
	for i := 0; i < 2000 && !g.IsGameOver(); i++ {
		switch rng.Intn(4) {
		case 0:
			g.MoveLeft()
		case 1:
			g.MoveRight()
		case 2:
			g.Rotate()
		default:
			g.MoveDown()
		}
		require.GreaterOrEqual(t, g.Score(), last)
		last = g.Score()
	}
}

func TestRotate(t *testing.T) {
	t.Run("transposes clockwise", func(t *testing.T) {
		g := New(always(KindL))
		require.True(t, g.Rotate())
		assert.Equal(t, Shape{{1, 1, 1}, {1, 0, 0}}, g.ActiveShape())
	})

	t.Run("four rotations restore the shape", func(t *testing.T) {
		g := New(always(KindT))
		g.MoveDown()
		for i := 0; i < 4; i++ {
			require.True(t, g.Rotate())
		}
		assert.Equal(t, ShapeOf(KindT), g.ActiveShape())
	})

	t.Run("rejected on collision", func(t *testing.T) {
		g := New(always(KindI))
		g.board[1][3] = ColorRed
		before := g.ActiveShape()
		assert.False(t, g.Rotate())
		assert.Equal(t, before, g.ActiveShape())
	})

	t.Run("rejected out of bounds", func(t *testing.T) {
		g := New(always(KindI))
		for i := 0; i < Rows-1; i++ {
			g.MoveDown()
		}
		before := g.ActiveShape()
		assert.False(t, g.Rotate())
		assert.Equal(t, before, g.ActiveShape())
	})
}

func TestGameOver(t *testing.T) {
	g := New(always(KindO))
	g.board[2][4] = ColorRed

	assert.False(t, g.MoveDown())
	assert.True(t, g.IsGameOver())

	board := g.Board()
	row, col := g.Anchor()
	shape := g.ActiveShape()
	assert.False(t, g.MoveLeft())
	assert.False(t, g.MoveRight())
	assert.False(t, g.MoveDown())
	assert.False(t, g.Rotate())
	assert.Equal(t, board, g.Board())
	r2, c2 := g.Anchor()
	assert.Equal(t, row, r2)
	assert.Equal(t, col, c2)
	assert.Equal(t, shape, g.ActiveShape())
}

func TestSnapshotIsACopy(t *testing.T) {
	g := New(always(KindO))
	snap := g.Snapshot()
	snap.Board[Rows-1][0] = ColorRed
	snap.Active.Shape[0][0] = 0
	assert.Equal(t, ColorEmpty, g.Board()[Rows-1][0])
	assert.Equal(t, ShapeOf(KindO), g.ActiveShape())
	assert.Equal(t, ColorGreen, snap.Cell(1, 5))
	assert.Equal(t, ColorEmpty, snap.Cell(0, 0))
}
