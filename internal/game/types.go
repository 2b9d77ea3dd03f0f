// internal/game/types.go
//
// Core type definitions for the falling-block engine.
// Defines:
//   - Color: opaque cell value (ColorEmpty for an empty cell).
//   - Kind/Shape: the seven canonical tetrominoes and their bitmasks.
//   - Piece/Snapshot: read-only views handed to renderers and the HTTP surface.

package game

const (
	Rows = 20
	Cols = 10
)

// Color is the value stored in a board cell. Zero means empty.
type Color int

const (
	ColorEmpty Color = iota
	ColorCyan
	ColorBlue
	ColorYellow
	ColorGreen
	ColorRed
	ColorMagenta
	ColorOrange
)

var colorNames = [...]string{"empty", "cyan", "blue", "yellow", "green", "red", "magenta", "orange"}

func (c Color) String() string {
	if c < 0 || int(c) >= len(colorNames) {
		return "unknown"
	}
	return colorNames[c]
}

// Shape is a rows × cols bitmask of 0/1 cells. Shapes are never mutated in place.
type Shape [][]uint8

// Width returns the number of columns of the shape.
func (s Shape) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Height returns the number of rows of the shape.
func (s Shape) Height() int { return len(s) }

// Rotate returns the 90° clockwise rotation of s: an H×W shape becomes W×H
// with rotated[j][H-1-i] = s[i][j].
func (s Shape) Rotate() Shape {
	h, w := s.Height(), s.Width()
	out := make(Shape, w)
	for j := range out {
		out[j] = make([]uint8, h)
	}
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			out[j][h-1-i] = s[i][j]
		}
	}
	return out
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	for i, row := range s {
		out[i] = append([]uint8(nil), row...)
	}
	return out
}

// Kind indexes the piece catalog.
type Kind int

const (
	KindI Kind = iota
	KindL
	KindJ
	KindO
	KindS
	KindZ
	KindT
	kindCount
)

var kindNames = [...]string{"I", "L", "J", "O", "S", "Z", "T"}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "?"
	}
	return kindNames[k]
}

// catalog binds each kind to its spawn shape and color.
var catalog = [kindCount]struct {
	shape Shape
	color Color
}{
	KindI: {Shape{{1, 1, 1, 1}}, ColorCyan},
	KindL: {Shape{{1, 0}, {1, 0}, {1, 1}}, ColorBlue},
	KindJ: {Shape{{0, 1}, {0, 1}, {1, 1}}, ColorYellow},
	KindO: {Shape{{1, 1}, {1, 1}}, ColorGreen},
	KindS: {Shape{{0, 1, 1}, {1, 1, 0}}, ColorRed},
	KindZ: {Shape{{1, 1, 0}, {0, 1, 1}}, ColorMagenta},
	KindT: {Shape{{1, 1, 1}, {0, 1, 0}}, ColorOrange},
}

// ShapeOf returns a copy of the spawn shape for k.
func ShapeOf(k Kind) Shape { return catalog[k].shape.Clone() }

// ColorOf returns the color bound to k.
func ColorOf(k Kind) Color { return catalog[k].color }

// Piece describes a placed (active) or pending (next) piece.
type Piece struct {
	Shape Shape `json:"shape"`
	Color Color `json:"color"`
	Row   int   `json:"row"`
	Col   int   `json:"col"`
}

// Snapshot is a deep copy of the game state for rendering.
// Holding one never aliases the engine's board.
type Snapshot struct {
	GameID   string    `json:"gameId"`
	Board    [][]Color `json:"board"`
	Active   Piece     `json:"active"`
	Next     Piece     `json:"next"`
	Score    int       `json:"score"`
	Lines    int       `json:"lines"`
	GameOver bool      `json:"gameOver"`
}

// Cell reports the color drawn at (row, col): the active piece overlays the board.
func (s Snapshot) Cell(row, col int) Color {
	r, c := row-s.Active.Row, col-s.Active.Col
	if !s.GameOver && r >= 0 && r < s.Active.Shape.Height() && c >= 0 && c < s.Active.Shape.Width() && s.Active.Shape[r][c] == 1 {
		return s.Active.Color
	}
	return s.Board[row][col]
}
