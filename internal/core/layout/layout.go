// Package layout computes deterministic fan-out positions for new children.
package layout

import "math"

type Point struct {
	X, Y float64
}

// FanOut places children in one column right of the parent.
type FanOut struct {
	Gap     float64 `toml:"gap"`
	Spacing float64 `toml:"spacing"`
}

// Grid places children row by row in a fixed number of columns.
type Grid struct {
	Gap        float64 `toml:"gap"`
	ColSpacing float64 `toml:"col_spacing"`
	RowSpacing float64 `toml:"row_spacing"`
	Columns    int     `toml:"columns"`
}

// Column returns count points vertically centred on the parent's y.
func (f FanOut) Column(parent Point, count int) []Point {
	if count <= 0 {
		return nil
	}
	startY := parent.Y - (float64(count-1)*f.Spacing)/2
	out := make([]Point, count)
	for i := range out {
		out[i] = Point{X: parent.X + f.Gap, Y: startY + float64(i)*f.Spacing}
	}
	return out
}

func (g Grid) Place(parent Point, count int) []Point {
	if count <= 0 {
		return nil
	}
	cols := g.Columns
	if cols <= 0 {
		cols = 1
	}
	rows := int(math.Ceil(float64(count) / float64(cols)))
	startY := parent.Y - (float64(rows-1)*g.RowSpacing)/2
	out := make([]Point, count)
	for i := range out {
		row, col := i/cols, i%cols
		out[i] = Point{
			X: parent.X + g.Gap + float64(col)*g.ColSpacing,
			Y: startY + float64(row)*g.RowSpacing,
		}
	}
	return out
}
