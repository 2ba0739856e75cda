package scene

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Cell is one character of a rasterized scene.
type Cell struct {
	Rune  rune
	Color Color
}

// Grid is a scene rasterized to a character matrix.
type Grid struct {
	Cols, Rows int
	Cells      [][]Cell
}

// At returns the cell at column c, row r.
func (g Grid) At(c, r int) Cell {
	return g.Cells[r][c]
}

// Find returns the first cell position holding ch, or false.
func (g Grid) Find(ch rune) (col, row int, ok bool) {
	for r, line := range g.Cells {
		for c, cell := range line {
			if cell.Rune == ch {
				return c, r, true
			}
		}
	}
	return 0, 0, false
}

// Runes for each primitive kind.
const (
	RuneEmpty   = ' '
	RuneWall    = '·'
	RuneTable   = '█'
	RuneRobot   = 'o'
	RunePayload = '●'
)

// Rasterize samples the scene at the center of each cell of a cols x rows
// grid. Later primitives overwrite earlier ones; labels are drawn last.
func Rasterize(s Scene, cols, rows int) Grid {
	g := Grid{Cols: cols, Rows: rows, Cells: make([][]Cell, rows)}
	for r := range g.Cells {
		g.Cells[r] = make([]Cell, cols)
		for c := range g.Cells[r] {
			g.Cells[r][c] = Cell{Rune: RuneEmpty}
		}
	}
	if cols == 0 || rows == 0 {
		return g
	}

	w := s.Bound.Max[0] - s.Bound.Min[0]
	h := s.Bound.Max[1] - s.Bound.Min[1]
	cw, ch := w/float64(cols), h/float64(rows)
	// Half the cell diagonal: how close a cell center must be to an outline.
	tol := math.Hypot(cw, ch) / 2

	world := func(c, r int) orb.Point {
		return orb.Point{
			s.Bound.Min[0] + (float64(c)+0.5)*cw,
			s.Bound.Min[1] + (float64(r)+0.5)*ch,
		}
	}

	for _, p := range s.Primitives {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				pt := world(c, r)
				if glyph, ok := hit(p, pt, c, r, cols, rows, tol); ok {
					g.Cells[r][c] = Cell{Rune: glyph, Color: p.Color}
				}
			}
		}
	}

	for _, p := range s.Primitives {
		if p.Label == "" {
			continue
		}
		c := int((p.LabelAt[0] - s.Bound.Min[0]) / cw)
		r := int((p.LabelAt[1] - s.Bound.Min[1]) / ch)
		if r < 0 || r >= rows {
			continue
		}
		for i, lr := range p.Label {
			if c+i < 0 || c+i >= cols {
				continue
			}
			g.Cells[r][c+i] = Cell{Rune: lr, Color: p.LabelColor}
		}
	}

	return g
}

func hit(p Primitive, pt orb.Point, c, r, cols, rows int, tol float64) (rune, bool) {
	switch p.Kind {
	case KindBoundary:
		if c == 0 || r == 0 || c == cols-1 || r == rows-1 {
			return RuneWall, true
		}
	case KindTable:
		if planar.RingContains(p.Ring, pt) {
			return RuneTable, true
		}
	case KindRobot:
		if math.Abs(planar.Distance(p.Center, pt)-p.Radius) <= tol {
			return RuneRobot, true
		}
	case KindPayload:
		if planar.Distance(p.Center, pt) <= math.Max(p.Radius, tol) {
			return RunePayload, true
		}
	}
	return 0, false
}

// Style returns the terminal style for a scene color.
func Style(c Color) lipgloss.Style {
	switch c {
	case ColorRoom:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("25"))
	case ColorTable:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	case ColorRobot:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	case ColorPayload:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	case ColorLabel:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("33"))
	}
	return lipgloss.NewStyle()
}

// String renders the grid with terminal colors, one line per row.
func (g Grid) String() string {
	var sb strings.Builder
	for r, line := range g.Cells {
		if r > 0 {
			sb.WriteByte('\n')
		}
		// Group runs of equal color into one styled span.
		start := 0
		for c := 1; c <= len(line); c++ {
			if c < len(line) && line[c].Color == line[start].Color {
				continue
			}
			var run strings.Builder
			for _, cell := range line[start:c] {
				run.WriteRune(cell.Rune)
			}
			if line[start].Color == "" {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(Style(line[start].Color).Render(run.String()))
			}
			start = c
		}
	}
	return sb.String()
}

// Plain renders the grid without colors.
func (g Grid) Plain() string {
	lines := make([]string, len(g.Cells))
	for r, line := range g.Cells {
		var sb strings.Builder
		for _, cell := range line {
			sb.WriteRune(cell.Rune)
		}
		lines[r] = sb.String()
	}
	return strings.Join(lines, "\n")
}
