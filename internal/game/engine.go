// internal/game/engine.go
//
// Core engine for a single falling-block game.
// Responsibilities:
//   - Create new games with a fixed 20x10 board and a random first/next piece.
//   - Move, rotate and drop the active piece under the placement rule
//     (fully in bounds, no overlap with frozen cells).
//   - Freeze pieces, clear full rows, score, spawn, and detect game over.
//
// Notes:
//   - A Game is not safe for concurrent use; the bridge owns it on its loop.
//   - Every mutator is a no-op once the game is over.
package game

import (
	"crypto/rand"
	"encoding/hex"
	mrand "math/rand"
	"time"
)

// Game holds the state of a single session's game.
type Game struct {
	ID string

	board    [Rows][Cols]Color
	shape    Shape
	color    Color
	row, col int
	next     Kind
	score    int
	lines    int
	over     bool
	pick     func() Kind
}

// Option configures a Game at construction.
type Option func(*Game)

// WithRand draws pieces uniformly from r.
func WithRand(r *mrand.Rand) Option {
	return func(g *Game) {
		g.pick = func() Kind { return Kind(r.Intn(int(kindCount))) }
	}
}

// WithPicker replaces the piece source, e.g. with a fixed sequence in tests.
func WithPicker(pick func() Kind) Option {
	return func(g *Game) { g.pick = pick }
}

// New constructs a new game: empty board, score 0, the first piece spawned at
// the top center and the next piece already chosen.
func New(opts ...Option) *Game {
	g := &Game{ID: randomID()}
	WithRand(mrand.New(mrand.NewSource(time.Now().UnixNano())))(g)
	for _, opt := range opts {
		opt(g)
	}
	g.next = g.pick()
	g.spawn()
	return g
}

// MoveLeft shifts the active piece one column left if the placement is valid.
func (g *Game) MoveLeft() bool { return g.shift(0, -1) }

// MoveRight shifts the active piece one column right if the placement is valid.
func (g *Game) MoveRight() bool { return g.shift(0, 1) }

// MoveDown shifts the active piece one row down. When it cannot move, the piece
// is frozen, full rows are cleared and scored, the next piece is spawned, and
// false is returned.
func (g *Game) MoveDown() bool {
	if g.over {
		return false
	}
	if g.shift(1, 0) {
		return true
	}
	g.freeze()
	g.score += lineScore(g.clearLines())
	g.spawn()
	return false
}

// Rotate replaces the active shape with its clockwise rotation when that fits
// at the current anchor. No wall kick is attempted.
func (g *Game) Rotate() bool {
	if g.over {
		return false
	}
	rotated := g.shape.Rotate()
	if !g.fits(rotated, g.row, g.col) {
		return false
	}
	g.shape = rotated
	return true
}

// Board returns a copy of the frozen cells.
func (g *Game) Board() [][]Color {
	out := make([][]Color, Rows)
	for r := range out {
		out[r] = append([]Color(nil), g.board[r][:]...)
	}
	return out
}

func (g *Game) ActiveShape() Shape { return g.shape.Clone() }
func (g *Game) ActiveColor() Color { return g.color }
func (g *Game) Anchor() (int, int) { return g.row, g.col }
func (g *Game) Score() int { return g.score }
func (g *Game) Lines() int { return g.lines }
func (g *Game) IsGameOver() bool { return g.over }
func (g *Game) NextShape() Shape { return ShapeOf(g.next) }
func (g *Game) NextColor() Color { return ColorOf(g.next) }

// Snapshot returns a deep copy of the full state for rendering.
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		GameID:   g.ID,
		Board:    g.Board(),
		Active:   Piece{Shape: g.ActiveShape(), Color: g.color, Row: g.row, Col: g.col},
		Next:     Piece{Shape: g.NextShape(), Color: g.NextColor()},
		Score:    g.score,
		Lines:    g.lines,
		GameOver: g.over,
	}
}

// spawn promotes the pending piece to active at the top center and chooses a
// fresh pending piece. The game ends if the new piece does not fit.
func (g *Game) spawn() {
	k := g.next
	g.shape = ShapeOf(k)
	g.color = ColorOf(k)
	g.row = 0
	g.col = Cols/2 - g.shape.Width()/2
	if !g.fits(g.shape, g.row, g.col) {
		g.over = true
	}
	g.next = g.pick()
}

func (g *Game) shift(dr, dc int) bool {
	if g.over {
		return false
	}
	if !g.fits(g.shape, g.row+dr, g.col+dc) {
		return false
	}
	g.row += dr
	g.col += dc
	return true
}

// fits reports whether every set cell of shape at (row, col) is on the board
// and over an empty cell.
func (g *Game) fits(shape Shape, row, col int) bool {
	for i, line := range shape {
		for j, v := range line {
			if v == 0 {
				continue
			}
			r, c := row+i, col+j
			if r < 0 || r >= Rows || c < 0 || c >= Cols || g.board[r][c] != ColorEmpty {
				return false
			}
		}
	}
	return true
}

func (g *Game) freeze() {
	for i, line := range g.shape {
		for j, v := range line {
			if v == 1 {
				g.board[g.row+i][g.col+j] = g.color
			}
		}
	}
}

// clearLines removes full rows bottom-to-top and returns how many were removed.
// After a removal the same index holds the row from above and is checked again.
func (g *Game) clearLines() int {
	cleared := 0
	for r := Rows - 1; r >= 0; {
		if !g.rowFull(r) {
			r--
			continue
		}
		cleared++
		for k := r; k > 0; k-- {
			g.board[k] = g.board[k-1]
		}
		g.board[0] = [Cols]Color{}
	}
	g.lines += cleared
	return cleared
}

func (g *Game) rowFull(r int) bool {
	for _, c := range g.board[r] {
		if c == ColorEmpty {
			return false
		}
	}
	return true
}

// lineScore awards 100 × 2^(n−1) for n ≥ 1 rows cleared at once.
func lineScore(n int) int {
	if n <= 0 {
		return 0
	}
	return 100 << (n - 1)
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
