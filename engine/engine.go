package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/sheikhrachel/lifegrid/model"
	"github.com/sheikhrachel/lifegrid/rules"
)

var (
	// ErrAlreadyRunning is returned when a run or manual step is already in progress
	ErrAlreadyRunning = errors.New("engine already running")
	// ErrInvalidDelay is returned for a negative tick delay
	ErrInvalidDelay = errors.New("invalid tick delay")
)

// Options controls the tick loop
type Options struct {
	Delay               time.Duration // pause between ticks
	MaxGenerations      int           // stop after this many ticks in total; 0 means no limit
	AutoRestart         bool          // reseed on extinction or prolonged stagnation
	StagnationThreshold int           // stagnant ticks before an auto restart
	InjectionCount      int           // random cells injected on stagnant ticks 2 up to StagnationThreshold-1
	Density             float64       // seeding density for restarts
}

// Tick describes one completed generation
type Tick struct {
	model.Snapshot
	Elapsed       time.Duration // time spent computing the step
	BoundingBox   int           // area of the box enclosing all live cells
	Stagnant      bool
	Restarted     bool
	RestartReason string
	Finished      bool // MaxGenerations reached; the run loop returns after this tick
}

// Observer receives every tick in generation order. Observers run on the
// stepping goroutine and may call back into the Engine, except Step.
type Observer func(Tick)

// Engine drives a Grid, serializing ticks and control-surface mutations behind one lock
type Engine struct {
	mu            sync.Mutex // guards everything below
	grid          *model.Grid
	opts          Options
	ticks         int
	stagnantCount int
	observers     []Observer

	runMu       sync.Mutex
	busy        bool
	cancel      context.CancelFunc
	stopPending bool // Stop arrived while no loop was registered
}

// New wraps grid. The Engine owns grid from here on; touch it only through the Engine.
func New(grid *model.Grid, opts Options) (*Engine, error) {
	if opts.Delay < 0 {
		return nil, errors.Wrapf(ErrInvalidDelay, "[New] delay=%v", opts.Delay)
	}
	if opts.AutoRestart {
		if opts.Density <= 0 || opts.Density > 1 {
			return nil, errors.Wrapf(model.ErrInvalidDensity, "[New] restart density=%v", opts.Density)
		}
	}
	return &Engine{grid: grid, opts: opts}, nil
}

// Observe registers an observer. Register observers before calling Run.
func (e *Engine) Observe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Run ticks until ctx is cancelled, Stop is called, or MaxGenerations is reached.
// Cancellation is checked between ticks, never during one. The grid keeps its
// last state, so calling Run again resumes where it left off.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.runMu.Lock()
	if e.busy {
		e.runMu.Unlock()
		return errors.Wrap(ErrAlreadyRunning, "[Run]")
	}
	e.busy = true
	e.cancel = cancel
	if e.stopPending {
		e.stopPending = false
		cancel()
	}
	e.runMu.Unlock()

	defer func() {
		e.runMu.Lock()
		e.busy = false
		e.cancel = nil
		e.runMu.Unlock()
	}()

	for {
		if ctx.Err() != nil || e.finished() {
			return nil
		}

		t := e.tick()
		e.notify(t)
		if t.Finished {
			return nil
		}

		timer := time.NewTimer(e.Delay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop asks a running loop to return after its current tick. It does not wait.
// A Stop that arrives before Run has started is held, and the next Run returns
// without ticking.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		e.cancel()
		return
	}
	e.stopPending = true
}

// Running reports whether Run is active
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.cancel != nil
}

// Step advances a single generation while the loop is stopped
func (e *Engine) Step() (Tick, error) {
	e.runMu.Lock()
	if e.busy {
		e.runMu.Unlock()
		return Tick{}, errors.Wrap(ErrAlreadyRunning, "[Step]")
	}
	e.busy = true
	e.runMu.Unlock()

	defer func() {
		e.runMu.Lock()
		e.busy = false
		e.runMu.Unlock()
	}()

	t := e.tick()
	e.notify(t)
	return t, nil
}

// Snapshot copies the current grid state
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Snapshot()
}

// Generations returns the number of ticks since the engine was created, across restarts
func (e *Engine) Generations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// Update runs fn with exclusive access to the grid, between ticks
func (e *Engine) Update(fn func(g *model.Grid) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.grid)
}

// Toggle flips one cell
func (e *Engine) Toggle(row, col int) error {
	return e.Update(func(g *model.Grid) error {
		return g.ToggleCell(row, col)
	})
}

// Randomize reseeds the grid at density
func (e *Engine) Randomize(density float64) error {
	return e.Update(func(g *model.Grid) error {
		if err := g.Randomize(density); err != nil {
			return err
		}
		e.stagnantCount = 0
		return nil
	})
}

// Clear kills every cell
func (e *Engine) Clear() {
	_ = e.Update(func(g *model.Grid) error {
		g.Clear()
		e.stagnantCount = 0
		return nil
	})
}

// Resize replaces the grid with an empty one of the new dimensions
func (e *Engine) Resize(rows, cols int) error {
	return e.Update(func(g *model.Grid) error {
		if err := g.Resize(rows, cols); err != nil {
			return err
		}
		e.stagnantCount = 0
		return nil
	})
}

// SetRules changes the rule parameters, effective from the next tick
func (e *Engine) SetRules(r rules.Rules) error {
	return e.Update(func(g *model.Grid) error {
		return g.SetRules(r)
	})
}

// Delay returns the pause between ticks
func (e *Engine) Delay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.Delay
}

// SetDelay changes the pause between ticks, effective after the current one
func (e *Engine) SetDelay(d time.Duration) error {
	if d < 0 {
		return errors.Wrapf(ErrInvalidDelay, "[SetDelay] delay=%v", d)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Delay = d
	return nil
}

// SetDensity changes the density used for auto restarts
func (e *Engine) SetDensity(density float64) error {
	if density <= 0 || density > 1 {
		return errors.Wrapf(model.ErrInvalidDensity, "[SetDensity] density=%v", density)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Density = density
	return nil
}

// tick computes one generation and applies the restart policy
func (e *Engine) tick() Tick {
	e.mu.Lock()
	defer e.mu.Unlock()

	track := e.tracksStagnation()

	start := time.Now()
	if track {
		e.grid.UpdateHistory()
	}
	e.grid.Step()
	e.ticks++

	t := Tick{Elapsed: time.Since(start)}
	if track {
		t.Stagnant = e.grid.IsStagnant()
	}
	if t.Stagnant {
		e.stagnantCount++
	} else {
		e.stagnantCount = 0
	}

	if reason := e.restartReason(); reason != "" && e.opts.AutoRestart {
		// Density was validated in New/SetDensity
		_ = e.grid.SeedPatterns(e.opts.Density)
		e.stagnantCount = 0
		t.Restarted = true
		t.RestartReason = reason
	} else if e.stagnantCount >= 2 && e.opts.InjectionCount > 0 &&
		e.stagnantCount < e.opts.StagnationThreshold {
		e.grid.InjectRandomLife(e.opts.InjectionCount)
	}

	t.Finished = e.opts.MaxGenerations > 0 && e.ticks >= e.opts.MaxGenerations
	t.BoundingBox = e.grid.BoundingBoxSize()
	t.Snapshot = e.grid.Snapshot()
	return t
}

// tracksStagnation reports whether any policy reads the state history.
// Hashing the grid twice a tick is skipped otherwise.
func (e *Engine) tracksStagnation() bool {
	return e.opts.AutoRestart || e.opts.InjectionCount > 0
}

func (e *Engine) finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.MaxGenerations > 0 && e.ticks >= e.opts.MaxGenerations
}

func (e *Engine) restartReason() string {
	if e.grid.LiveCellCount() == 0 {
		return "extinction"
	}
	if e.opts.StagnationThreshold > 0 && e.stagnantCount >= e.opts.StagnationThreshold {
		return "stagnation detected"
	}
	return ""
}

func (e *Engine) notify(t Tick) {
	e.mu.Lock()
	observers := e.observers
	e.mu.Unlock()

	for _, o := range observers {
		o(t)
	}
}
