package model

import "github.com/sheikhrachel/lifegrid/rules"

// Snapshot is a read-only copy of a Grid, safe to hand to renderers on other goroutines
type Snapshot struct {
	Rows       int
	Cols       int
	Generation int
	LiveCells  int
	Rules      rules.Rules
	Cells      [][]bool
}

// Snapshot copies the current state
func (g *Grid) Snapshot() Snapshot {
	cells := newCells(g.rows, g.cols)
	live := 0
	for row := range g.rows {
		copy(cells[row], g.cells[row])
		for _, alive := range cells[row] {
			if alive {
				live++
			}
		}
	}
	return Snapshot{
		Rows:       g.rows,
		Cols:       g.cols,
		Generation: g.generation,
		LiveCells:  live,
		Rules:      g.rules,
		Cells:      cells,
	}
}

// Alive returns the state of a cell. Cells outside the snapshot read as dead.
func (s Snapshot) Alive(row, col int) bool {
	if row < 0 || row >= s.Rows || col < 0 || col >= s.Cols {
		return false
	}
	return s.Cells[row][col]
}

// Density returns the live fraction of the board in percent
func (s Snapshot) Density() float64 {
	if s.Rows == 0 || s.Cols == 0 {
		return 0
	}
	return float64(s.LiveCells) / float64(s.Rows*s.Cols) * 100
}
