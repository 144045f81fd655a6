package model

import (
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sheikhrachel/lifegrid/rules"
)

// StepStrategy selects how Step walks the grid. All strategies produce the same generation.
type StepStrategy int

const (
	// StepSequential evaluates every cell on the calling goroutine
	StepSequential StepStrategy = iota
	// StepParallel splits rows into bands evaluated concurrently
	StepParallel
	// StepBounded evaluates only the live region plus a one-cell margin
	StepBounded
)

func (s StepStrategy) String() string {
	switch s {
	case StepParallel:
		return "parallel"
	case StepBounded:
		return "bounded"
	default:
		return "sequential"
	}
}

// Grid is a fixed-size board of live/dead cells plus the rules that evolve it.
// A Grid is not safe for concurrent use; serialize all calls behind a single writer.
type Grid struct {
	rows       int
	cols       int
	cells      [][]bool
	rules      rules.Rules
	generation int

	strategy StepStrategy
	pool     *GridPool
	rng      *rand.Rand
	history  []string // Store recent grid states for cycle detection

	// Cached bounding box of live cells, used by StepBounded
	activeBounds struct {
		minRow, maxRow, minCol, maxCol int
		valid                          bool
	}
}

// Option configures a Grid at construction
type Option func(*Grid)

// WithRules sets the initial rule parameters
func WithRules(r rules.Rules) Option {
	return func(g *Grid) { g.rules = r }
}

// WithStrategy picks the stepping strategy
func WithStrategy(s StepStrategy) Option {
	return func(g *Grid) { g.strategy = s }
}

// WithPool recycles next-generation buffers through pool
func WithPool(pool *GridPool) Option {
	return func(g *Grid) { g.pool = pool }
}

// WithSeed makes Randomize and InjectRandomLife deterministic
func WithSeed(seed uint64) Option {
	return func(g *Grid) { g.rng = rand.New(rand.NewPCG(seed, 0)) }
}

// NewGrid creates an all-dead grid at generation 0. Rules default to Conway's.
func NewGrid(rows, cols int, opts ...Option) (*Grid, error) {
	if err := checkDimensions("NewGrid", rows, cols); err != nil {
		return nil, err
	}
	g := &Grid{
		rows:  rows,
		cols:  cols,
		rules: rules.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.rules.Validate(); err != nil {
		return nil, errors.Wrap(err, "[NewGrid]")
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	g.cells = g.alloc(rows, cols)
	return g, nil
}

// Rows returns the number of rows
func (g *Grid) Rows() int {
	return g.rows
}

// Cols returns the number of columns
func (g *Grid) Cols() int {
	return g.cols
}

// Generation returns the number of steps since the last clear, randomize or resize
func (g *Grid) Generation() int {
	return g.generation
}

// Rules returns the current rule parameters
func (g *Grid) Rules() rules.Rules {
	return g.rules
}

// Strategy returns the stepping strategy
func (g *Grid) Strategy() StepStrategy {
	return g.strategy
}

// SetRules replaces the rule parameters. Invalid rules leave the current ones in place.
func (g *Grid) SetRules(r rules.Rules) error {
	if err := r.Validate(); err != nil {
		return errors.Wrap(err, "[SetRules]")
	}
	g.rules = r
	return nil
}

// Alive returns the state of a cell. Cells outside the grid read as dead.
func (g *Grid) Alive(row, col int) bool {
	if !g.inBounds(row, col) {
		return false
	}
	return g.cells[row][col]
}

// Set sets a single cell without touching the generation counter
func (g *Grid) Set(row, col int, alive bool) error {
	if !g.inBounds(row, col) {
		return g.outOfBounds("Set", row, col)
	}
	g.cells[row][col] = alive
	g.activeBounds.valid = false
	return nil
}

// ToggleCell flips a single cell without touching the generation counter
func (g *Grid) ToggleCell(row, col int) error {
	if !g.inBounds(row, col) {
		return g.outOfBounds("ToggleCell", row, col)
	}
	g.cells[row][col] = !g.cells[row][col]
	g.activeBounds.valid = false
	return nil
}

// NeighborSum counts the live cells among the up-to-8 cells adjacent to (row, col).
// Cells past the edge do not count; the board does not wrap.
func (g *Grid) NeighborSum(row, col int) (int, error) {
	if !g.inBounds(row, col) {
		return 0, g.outOfBounds("NeighborSum", row, col)
	}
	return g.neighbors(row, col), nil
}

// Step advances one generation. The next generation is computed in full from
// the current cells into a separate buffer and then swapped in.
func (g *Grid) Step() {
	next := g.alloc(g.rows, g.cols)

	switch {
	case g.strategy == StepBounded && !g.rules.Spontaneous():
		g.stepBounded(next)
	case g.strategy == StepParallel:
		g.stepParallel(next)
	default:
		g.stepRows(next, 0, g.rows)
	}

	prev := g.cells
	g.cells = next
	g.generation++
	g.activeBounds.valid = false
	if g.pool != nil {
		g.pool.Put(prev)
	}
}

// Randomize sets each cell live with probability density and resets the generation.
// density must be in (0, 1].
func (g *Grid) Randomize(density float64) error {
	if err := checkDensity("Randomize", density); err != nil {
		return err
	}
	for row := range g.rows {
		for col := range g.cols {
			g.cells[row][col] = g.rng.Float64() < density
		}
	}
	g.reset()
	return nil
}

// Clear kills every cell and resets the generation
func (g *Grid) Clear() {
	for row := range g.rows {
		for col := range g.cols {
			g.cells[row][col] = false
		}
	}
	g.reset()
}

// Resize replaces the board with an all-dead one of the new dimensions.
// Prior content is dropped, not cropped.
func (g *Grid) Resize(rows, cols int) error {
	if err := checkDimensions("Resize", rows, cols); err != nil {
		return err
	}
	g.cells = g.alloc(rows, cols)
	g.rows = rows
	g.cols = cols
	g.reset()
	return nil
}

// LiveCellCount returns the number of live cells
func (g *Grid) LiveCellCount() (count int) {
	for row := range g.rows {
		for col := range g.cols {
			if g.cells[row][col] {
				count++
			}
		}
	}
	return
}

// InjectRandomLife sets up to count random cells live, used to break stagnation
func (g *Grid) InjectRandomLife(count int) {
	for range count {
		g.cells[g.rng.IntN(g.rows)][g.rng.IntN(g.cols)] = true
	}
	g.activeBounds.valid = false
}

func (g *Grid) reset() {
	g.generation = 0
	g.history = nil
	g.activeBounds.valid = false
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

func (g *Grid) outOfBounds(method string, row, col int) error {
	return errors.Wrapf(ErrOutOfBounds, "[%s] (%d,%d) outside %dx%d grid", method, row, col, g.rows, g.cols)
}

func (g *Grid) alloc(rows, cols int) [][]bool {
	if g.pool != nil {
		return g.pool.Get(rows, cols)
	}
	return newCells(rows, cols)
}

// neighbors counts live cells around (row, col), clipped at the edges
func (g *Grid) neighbors(row, col int) int {
	count := 0

	minRow := max(0, row-1)
	maxRow := min(g.rows-1, row+1)
	minCol := max(0, col-1)
	maxCol := min(g.cols-1, col+1)

	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			if r == row && c == col {
				continue
			}
			if g.cells[r][c] {
				count++
			}
		}
	}

	return count
}

// stepRows writes rows [start, end) of the next generation into next
func (g *Grid) stepRows(next [][]bool, start, end int) {
	for row := start; row < end; row++ {
		for col := range g.cols {
			next[row][col] = g.rules.Next(g.cells[row][col], g.neighbors(row, col))
		}
	}
}

// stepParallel evaluates row bands concurrently, one band per CPU
func (g *Grid) stepParallel(next [][]bool) {
	var (
		eg            errgroup.Group
		numWorkers    = runtime.NumCPU()
		rowsPerWorker = (g.rows + numWorkers - 1) / numWorkers // Ceiling division
	)

	for i := range numWorkers {
		var (
			startRow = i * rowsPerWorker
			endRow   = min(startRow+rowsPerWorker, g.rows)
		)
		if startRow >= g.rows {
			break
		}

		eg.Go(func() error {
			g.stepRows(next, startRow, endRow)
			return nil
		})
	}

	// workers never fail; Wait is only a join
	_ = eg.Wait()
}

// stepBounded evaluates the live bounding box plus a one-cell margin.
// next must be all dead on entry. Only valid when dead cells with no
// live neighbors stay dead.
func (g *Grid) stepBounded(next [][]bool) {
	if !g.activeBounds.valid {
		g.calculateActiveBounds()
	}
	// No live cells, so next stays all dead
	if !g.activeBounds.valid {
		return
	}

	minRow := max(0, g.activeBounds.minRow-1)
	maxRow := min(g.rows-1, g.activeBounds.maxRow+1)
	minCol := max(0, g.activeBounds.minCol-1)
	maxCol := min(g.cols-1, g.activeBounds.maxCol+1)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			next[row][col] = g.rules.Next(g.cells[row][col], g.neighbors(row, col))
		}
	}
}

// calculateActiveBounds calculates the bounding box of living cells
func (g *Grid) calculateActiveBounds() {
	g.activeBounds.valid = false

	for row := range g.rows {
		for col := range g.cols {
			if !g.cells[row][col] {
				continue
			}
			if !g.activeBounds.valid {
				g.activeBounds.minRow, g.activeBounds.maxRow = row, row
				g.activeBounds.minCol, g.activeBounds.maxCol = col, col
				g.activeBounds.valid = true
				continue
			}
			g.activeBounds.minRow = min(g.activeBounds.minRow, row)
			g.activeBounds.maxRow = max(g.activeBounds.maxRow, row)
			g.activeBounds.minCol = min(g.activeBounds.minCol, col)
			g.activeBounds.maxCol = max(g.activeBounds.maxCol, col)
		}
	}
}

// BoundingBoxSize returns the area of the box enclosing all live cells
func (g *Grid) BoundingBoxSize() int {
	if !g.activeBounds.valid {
		g.calculateActiveBounds()
	}
	if !g.activeBounds.valid {
		return 0
	}
	return (g.activeBounds.maxRow - g.activeBounds.minRow + 1) *
		(g.activeBounds.maxCol - g.activeBounds.minCol + 1)
}
