package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/gesturetris/internal/game"
)

const cellText = "  "

var (
	borderColor = lipgloss.Color("15")
	textColor   = lipgloss.Color("250")
	accentColor = lipgloss.Color("226")
	warnColor   = lipgloss.Color("196")

	// Indexed by game.Color; ColorEmpty has no fill.
	pieceColors = [...]lipgloss.Color{"", "51", "21", "226", "46", "196", "93", "208"}
)

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(accentColor).Bold(true)
}

func helpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(textColor).Faint(true)
}

func warningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(warnColor)
}

func cellStyle(c game.Color) lipgloss.Style {
	if c <= game.ColorEmpty || int(c) >= len(pieceColors) {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Background(pieceColors[c])
}

func viewWaiting(m Model) string {
	var b strings.Builder
	b.WriteString(titleStyle().Render("GESTURETRIS"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Advertising as %q\n", m.deviceName))
	b.WriteString("Waiting for a controller to connect...\n")
	if m.radioErr != nil {
		b.WriteString("\n")
		b.WriteString(warningStyle().Render(m.status + ": " + m.radioErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle().Render("Q to quit"))
	return b.String()
}

func viewGame(m Model) string {
	board := renderBoard(m.snap)
	info := renderInfo(m)
	return lipgloss.JoinHorizontal(lipgloss.Top, board, "  ", info)
}

// renderBoard draws the composed board (active piece over frozen cells).
func renderBoard(s game.Snapshot) string {
	border := lipgloss.NewStyle().Foreground(borderColor)
	edge := border.Render("+" + strings.Repeat("-", game.Cols*len(cellText)) + "+")
	var b strings.Builder
	b.WriteString(edge)
	b.WriteString("\n")
	for row := 0; row < game.Rows; row++ {
		b.WriteString(border.Render("|"))
		for col := 0; col < game.Cols; col++ {
			b.WriteString(cellStyle(s.Cell(row, col)).Render(cellText))
		}
		b.WriteString(border.Render("|"))
		b.WriteString("\n")
	}
	b.WriteString(edge)
	return b.String()
}

// renderMiniPiece draws a shape at its own size.
func renderMiniPiece(p game.Piece) string {
	lines := make([]string, 0, p.Shape.Height())
	for _, row := range p.Shape {
		var b strings.Builder
		for _, bit := range row {
			if bit == 1 {
				b.WriteString(cellStyle(p.Color).Render(cellText))
			} else {
				b.WriteString(cellText)
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func renderInfo(m Model) string {
	state := "playing"
	switch {
	case m.snap.GameOver:
		state = "game over"
	case m.paused:
		state = "paused"
	}
	lines := []string{
		titleStyle().Render("Next"),
		renderMiniPiece(m.snap.Next),
		"",
		fmt.Sprintf("Score:   %d", m.snap.Score),
		fmt.Sprintf("Lines:   %d", m.snap.Lines),
		fmt.Sprintf("Counter: %d", m.counter),
		fmt.Sprintf("Peers:   %d", len(m.peers)),
		fmt.Sprintf("State:   %s", state),
	}
	if m.gesture != "" {
		lines = append(lines, fmt.Sprintf("Gesture: %s", m.gesture))
	}
	if m.snap.GameOver {
		lines = append(lines, "", warningStyle().Render(fmt.Sprintf("Final score %d. Reconnect to play again.", m.lastScore)))
	}
	if m.status != "" {
		lines = append(lines, "", helpStyle().Render(m.status))
	}
	lines = append(lines, helpStyle().Render("Q to quit"))
	return strings.Join(lines, "\n")
}

// center places content in the middle of a w×h terminal, or returns it as is
// before the first size message.
func center(w, h int, content string) string {
	if w <= 0 || h <= 0 {
		return content
	}
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, content)
}
