package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/sheikhrachel/lifegrid/model"
	"github.com/sheikhrachel/lifegrid/rules"
)

func newBlinkerEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	g, err := model.NewGrid(5, 5, model.WithSeed(1))
	if err != nil {
		t.Fatal(err)
	}
	g.AddBlinker(2, 1)
	e, err := New(g, opts)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNewValidation(t *testing.T) {
	g, err := model.NewGrid(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(g, Options{Delay: -time.Second}); !errors.Is(err, ErrInvalidDelay) {
		t.Fatalf("err = %v, want ErrInvalidDelay", err)
	}
	if _, err := New(g, Options{AutoRestart: true}); !errors.Is(err, model.ErrInvalidDensity) {
		t.Fatalf("err = %v, want ErrInvalidDensity", err)
	}
}

func TestRunMaxGenerations(t *testing.T) {
	e := newBlinkerEngine(t, Options{MaxGenerations: 6})

	var gens []int
	e.Observe(func(tk Tick) { gens = append(gens, tk.Generation) })

	if err := e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(gens) != 6 {
		t.Fatalf("observed %d ticks, want 6", len(gens))
	}
	for i, g := range gens {
		if g != i+1 {
			t.Fatalf("tick %d saw generation %d; generations must be strictly ordered", i, g)
		}
	}
	if e.Running() {
		t.Fatal("engine still running after finishing")
	}

	// Nothing left to do once the limit is reached
	if err := e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.Generations() != 6 {
		t.Fatalf("generations = %d, want 6", e.Generations())
	}
}

func TestStopAndResume(t *testing.T) {
	e := newBlinkerEngine(t, Options{Delay: time.Millisecond})

	var (
		mu   sync.Mutex
		last int
	)
	e.Observe(func(tk Tick) {
		mu.Lock()
		defer mu.Unlock()
		if tk.Generation != last+1 {
			t.Errorf("generation jumped from %d to %d", last, tk.Generation)
		}
		last = tk.Generation
		if tk.Generation == 3 {
			e.Stop()
		}
	})

	if err := e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	stopped := e.Snapshot()
	if stopped.Generation != 3 {
		t.Fatalf("stopped at generation %d, want 3", stopped.Generation)
	}

	// Resuming continues from the retained state
	ctx, cancel := context.WithCancel(context.Background())
	e.Observe(func(tk Tick) {
		if tk.Generation == 5 {
			cancel()
		}
	})
	if err := e.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := e.Snapshot().Generation; got != 5 {
		t.Fatalf("resumed run stopped at generation %d, want 5", got)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	e := newBlinkerEngine(t, Options{Delay: time.Millisecond})

	started := make(chan struct{})
	var once sync.Once
	e.Observe(func(Tick) { once.Do(func() { close(started) }) })

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-started

	if err := e.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run err = %v, want ErrAlreadyRunning", err)
	}
	if _, err := e.Step(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Step err = %v, want ErrAlreadyRunning", err)
	}

	e.Stop()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestMutationsSerializedWithTicks(t *testing.T) {
	e := newBlinkerEngine(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	e.Observe(func(tk Tick) {
		if tk.Generation >= 200 {
			cancel()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	for i := 0; i < 100; i++ {
		if err := e.Toggle(i%5, (i/5)%5); err != nil {
			t.Fatal(err)
		}
		if err := e.SetRules(rules.Default()); err != nil {
			t.Fatal(err)
		}
		s := e.Snapshot()
		if len(s.Cells) != s.Rows {
			t.Fatal("torn snapshot")
		}
	}

	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestStep(t *testing.T) {
	e := newBlinkerEngine(t, Options{})
	tk, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if tk.Generation != 1 || tk.LiveCells != 3 {
		t.Fatalf("tick gen=%d live=%d", tk.Generation, tk.LiveCells)
	}
	if !tk.Alive(1, 2) || !tk.Alive(3, 2) || tk.Alive(2, 1) {
		t.Fatal("blinker did not rotate")
	}
}

func TestAutoRestartOnExtinction(t *testing.T) {
	g, err := model.NewGrid(12, 12, model.WithSeed(3))
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Set(0, 0, true); err != nil {
		t.Fatal(err)
	}
	e, err := New(g, Options{AutoRestart: true, Density: 0.3, StagnationThreshold: 5})
	if err != nil {
		t.Fatal(err)
	}

	tk, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if !tk.Restarted || tk.RestartReason != "extinction" {
		t.Fatalf("restarted=%v reason=%q", tk.Restarted, tk.RestartReason)
	}
	if tk.Generation != 0 || tk.LiveCells == 0 {
		t.Fatalf("after restart gen=%d live=%d", tk.Generation, tk.LiveCells)
	}
}

func TestAutoRestartOnStagnation(t *testing.T) {
	g, err := model.NewGrid(6, 6, model.WithSeed(4))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}} {
		if err := g.Set(c[0], c[1], true); err != nil {
			t.Fatal(err)
		}
	}
	e, err := New(g, Options{AutoRestart: true, Density: 0.2, StagnationThreshold: 2})
	if err != nil {
		t.Fatal(err)
	}

	var reasons []string
	e.Observe(func(tk Tick) {
		if tk.Restarted {
			reasons = append(reasons, tk.RestartReason)
		}
	})
	for range 5 {
		if _, err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if len(reasons) == 0 || reasons[0] != "stagnation detected" {
		t.Fatalf("restart reasons = %v", reasons)
	}
}

func TestNoRestartWithoutAutoRestart(t *testing.T) {
	e := newBlinkerEngine(t, Options{})
	if err := e.Update(func(g *model.Grid) error {
		g.Clear()
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	tk, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if tk.Restarted || tk.LiveCells != 0 {
		t.Fatal("empty board was reseeded without auto restart")
	}
}

func TestControlValidation(t *testing.T) {
	e := newBlinkerEngine(t, Options{})
	before := e.Snapshot()

	if err := e.Toggle(-1, 0); !errors.Is(err, model.ErrOutOfBounds) {
		t.Fatalf("Toggle err = %v", err)
	}
	if err := e.Randomize(1.5); !errors.Is(err, model.ErrInvalidDensity) {
		t.Fatalf("Randomize err = %v", err)
	}
	if err := e.Resize(0, 3); !errors.Is(err, model.ErrInvalidDimensions) {
		t.Fatalf("Resize err = %v", err)
	}
	if err := e.SetRules(rules.Rules{SurvivalMin: 5, SurvivalMax: 1}); !errors.Is(err, model.ErrInvalidRuleParameters) {
		t.Fatalf("SetRules err = %v", err)
	}
	if err := e.SetDelay(-1); !errors.Is(err, ErrInvalidDelay) {
		t.Fatalf("SetDelay err = %v", err)
	}
	if err := e.SetDensity(0); !errors.Is(err, model.ErrInvalidDensity) {
		t.Fatalf("SetDensity err = %v", err)
	}

	after := e.Snapshot()
	if after.LiveCells != before.LiveCells || after.Rows != before.Rows || after.Rules != before.Rules {
		t.Fatal("rejected control input mutated the grid")
	}
}

func TestResizeAndClear(t *testing.T) {
	e := newBlinkerEngine(t, Options{})
	if _, err := e.Step(); err != nil {
		t.Fatal(err)
	}
	if err := e.Resize(8, 9); err != nil {
		t.Fatal(err)
	}
	s := e.Snapshot()
	if s.Rows != 8 || s.Cols != 9 || s.Generation != 0 || s.LiveCells != 0 {
		t.Fatalf("after resize %+v", s)
	}
	if err := e.Randomize(1); err != nil {
		t.Fatal(err)
	}
	e.Clear()
	if e.Snapshot().LiveCells != 0 {
		t.Fatal("clear left live cells")
	}
	if err := e.SetDelay(5 * time.Millisecond); err != nil || e.Delay() != 5*time.Millisecond {
		t.Fatalf("SetDelay: %v, delay=%v", err, e.Delay())
	}
}

// newBlockEngine starts from a 2x2 block, a still life that stagnates from the third tick
func newBlockEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	g, err := model.NewGrid(6, 6, model.WithSeed(8))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}} {
		if err := g.Set(c[0], c[1], true); err != nil {
			t.Fatal(err)
		}
	}
	e, err := New(g, opts)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNoInjectionWithoutThreshold(t *testing.T) {
	e := newBlockEngine(t, Options{InjectionCount: 3})
	for i := range 12 {
		tk, err := e.Step()
		if err != nil {
			t.Fatal(err)
		}
		if tk.LiveCells != 4 {
			t.Fatalf("tick %d: live = %d, block must stay untouched", i+1, tk.LiveCells)
		}
	}
}

func TestInjectionBelowThreshold(t *testing.T) {
	e := newBlockEngine(t, Options{InjectionCount: 20, StagnationThreshold: 10})

	// Ticks 3 and 4 are stagnant; the second stagnant tick injects
	for i := range 3 {
		tk, err := e.Step()
		if err != nil {
			t.Fatal(err)
		}
		if tk.LiveCells != 4 {
			t.Fatalf("tick %d: live = %d before injection was due", i+1, tk.LiveCells)
		}
	}
	tk, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if !tk.Stagnant || tk.LiveCells == 4 {
		t.Fatalf("tick 4: stagnant=%v live=%d, want injected cells", tk.Stagnant, tk.LiveCells)
	}
	if tk.Restarted {
		t.Fatal("injection below the threshold must not restart")
	}
}

func TestRestartAtThreshold(t *testing.T) {
	e := newBlockEngine(t, Options{AutoRestart: true, Density: 0.2, StagnationThreshold: 2, InjectionCount: 3})
	for i := range 3 {
		tk, err := e.Step()
		if err != nil {
			t.Fatal(err)
		}
		if tk.Restarted || tk.LiveCells != 4 {
			t.Fatalf("tick %d: restarted=%v live=%d", i+1, tk.Restarted, tk.LiveCells)
		}
	}
	tk, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if !tk.Restarted || tk.RestartReason != "stagnation detected" || tk.Generation != 0 {
		t.Fatalf("tick 4: restarted=%v reason=%q gen=%d", tk.Restarted, tk.RestartReason, tk.Generation)
	}
}

func TestStagnationNotTrackedWhenUnused(t *testing.T) {
	e := newBlockEngine(t, Options{})
	for range 5 {
		tk, err := e.Step()
		if err != nil {
			t.Fatal(err)
		}
		if tk.Stagnant {
			t.Fatal("stagnation reported with no restart or injection policy")
		}
	}
	if err := e.Update(func(g *model.Grid) error {
		if g.IsStagnant() {
			t.Fatal("grid recorded history with no policy reading it")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestStopBeforeRunStarts(t *testing.T) {
	e := newBlinkerEngine(t, Options{Delay: time.Millisecond})
	e.Stop()

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		e.Stop()
		t.Fatal("Stop issued before Run was lost")
	}
	if got := e.Generations(); got != 0 {
		t.Fatalf("ticked %d times after an early Stop", got)
	}

	// The held stop is consumed; the next run ticks normally
	ctx, cancel := context.WithCancel(context.Background())
	e.Observe(func(tk Tick) {
		if tk.Generation == 2 {
			cancel()
		}
	})
	if err := e.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := e.Generations(); got != 2 {
		t.Fatalf("generations = %d, want 2", got)
	}
}

func TestTickBoundingBox(t *testing.T) {
	e := newBlinkerEngine(t, Options{})
	tk, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	// vertical blinker: 3 rows x 1 col
	if tk.BoundingBox != 3 {
		t.Fatalf("bounding box = %d, want 3", tk.BoundingBox)
	}
}
