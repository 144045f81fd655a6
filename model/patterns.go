package model

var glider = [][]bool{
	{false, true, false},
	{false, false, true},
	{true, true, true},
}

// AddGlider places a glider with its top-left corner at (row, col).
// Cells falling outside the grid are dropped.
func (g *Grid) AddGlider(row, col int) {
	for dr, line := range glider {
		for dc, alive := range line {
			g.place(row+dr, col+dc, alive)
		}
	}
}

// AddBlinker places a horizontal 3-cell blinker starting at (row, col)
func (g *Grid) AddBlinker(row, col int) {
	for dc := range 3 {
		g.place(row, col+dc, true)
	}
}

// SeedPatterns clears the grid, drops a few gliders and blinkers when there is
// room, then sprinkles random life at density. Generation restarts at 0.
func (g *Grid) SeedPatterns(density float64) error {
	if err := checkDensity("SeedPatterns", density); err != nil {
		return err
	}
	g.Clear()

	if g.rows >= 10 && g.cols >= 10 {
		g.AddGlider(5, 5)
		if g.rows >= 15 && g.cols >= 20 {
			g.AddGlider(5, g.cols-8)
		}

		g.AddBlinker(g.rows/4, g.cols/4)
		if g.cols >= 30 {
			g.AddBlinker(3*g.rows/4, 3*g.cols/4)
		}
	}

	for row := range g.rows {
		for col := range g.cols {
			if g.rng.Float64() < density {
				g.cells[row][col] = true
			}
		}
	}
	g.activeBounds.valid = false
	return nil
}

func (g *Grid) place(row, col int, alive bool) {
	if g.inBounds(row, col) {
		g.cells[row][col] = alive
		g.activeBounds.valid = false
	}
}
