package model

import "sync"

// GridPool recycles cell buffers between generations
type GridPool struct {
	pool sync.Pool
}

func NewGridPool() *GridPool {
	return &GridPool{
		pool: sync.Pool{
			New: func() interface{} {
				return new([][]bool)
			},
		},
	}
}

// Get returns an all-dead buffer of the given dimensions, reusing a pooled one when it fits
func (p *GridPool) Get(rows, cols int) [][]bool {
	b := p.pool.Get().(*[][]bool)
	cells := *b
	if len(cells) != rows || len(cells[0]) != cols {
		return newCells(rows, cols)
	}
	for i := range cells {
		for j := range cells[i] {
			cells[i][j] = false
		}
	}
	return cells
}

// Put hands a buffer back to the pool. The caller must not touch it afterwards.
func (p *GridPool) Put(cells [][]bool) {
	if len(cells) == 0 {
		return
	}
	p.pool.Put(&cells)
}

// newCells allocates a rows x cols buffer backed by one contiguous slice
func newCells(rows, cols int) [][]bool {
	backing := make([]bool, rows*cols)
	cells := make([][]bool, rows)
	for i := range cells {
		start := i * cols
		cells[i] = backing[start : start+cols : start+cols]
	}
	return cells
}
