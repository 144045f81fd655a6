package model

import (
	"crypto/md5"
	"fmt"
)

const (
	historySize = 5 // digests kept for cycle detection
	cycleWindow = 3 // a repeat of any of the last cycleWindow states is stagnation
)

// Hash returns an MD5 digest of the cell states
func (g *Grid) Hash() string {
	h := md5.New()
	for row := range g.rows {
		for col := range g.cols {
			if g.cells[row][col] {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// UpdateHistory records the current state. Call once per generation before stepping.
func (g *Grid) UpdateHistory() {
	g.history = append(g.history, g.Hash())
	if len(g.history) > historySize {
		g.history = g.history[1:]
	}
}

// IsStagnant reports whether the current state repeats one of the last few recorded states,
// i.e. the board is static or cycling with a short period.
func (g *Grid) IsStagnant() bool {
	if len(g.history) < cycleWindow {
		return false
	}

	current := g.Hash()
	for i := 1; i <= cycleWindow; i++ {
		if g.history[len(g.history)-i] == current {
			return true
		}
	}
	return false
}
