package main

import (
	"fmt"
	"io"
	"time"

	"github.com/logrusorgru/aurora"

	"github.com/sheikhrachel/lifegrid/engine"
	"github.com/sheikhrachel/lifegrid/model"
	"github.com/sheikhrachel/lifegrid/utils"
)

// game ties the engine to the terminal
type game struct {
	config   utils.Config
	engine   *engine.Engine
	renderer *model.TerminalRenderer
	stats    *utils.Stats
	out      io.Writer
	au       aurora.Aurora

	lastFrame      time.Time
	lastRestartGen int
}

// initializeGame sets up the initial game state
func initializeGame(config utils.Config, out io.Writer, color bool) (*game, error) {
	eng, err := newEngine(config)
	if err != nil {
		return nil, err
	}

	g := &game{
		config:    config,
		engine:    eng,
		renderer:  model.NewTerminalRenderer(out, color),
		stats:     utils.NewStats(),
		out:       out,
		au:        aurora.NewAurora(color),
		lastFrame: time.Now(),
	}
	eng.Observe(g.onTick)
	return g, nil
}

// displayGameInfo shows the initial game information
func (g *game) displayGameInfo() {
	s := g.engine.Snapshot()
	fmt.Fprintf(g.out, "Features: Memory Pool: %v, Strategy: %s, Auto restart: %v\n",
		g.config.UseMemoryPool, g.config.Strategy(), g.config.AutoRestart)
	fmt.Fprintf(g.out, "Grid: %dx%d | Rules: %s | Initial living cells: %d\n",
		s.Rows, s.Cols, s.Rules, s.LiveCells)
	fmt.Fprintln(g.out, "Press Ctrl+C to exit gracefully")
	fmt.Fprintln(g.out)
}

// onTick redraws the board after every generation
func (g *game) onTick(t engine.Tick) {
	now := time.Now()
	g.stats.Update(g.engine.Generations(), t.LiveCells, now.Sub(g.lastFrame))
	g.stats.BoundingBoxSize = t.BoundingBox
	g.lastFrame = now

	g.renderer.Clear()
	g.displayGameStatus(t)
	if err := g.renderer.Display(t.Snapshot); err != nil {
		fmt.Fprintln(g.out, g.au.Red("Error rendering grid:"), err)
	}

	if t.Restarted {
		g.stats.Restarts++
		g.lastRestartGen = g.stats.TotalGenerations
		fmt.Fprintf(g.out, "%s Restarted due to %s. New living cells: %d\n",
			g.au.Cyan("↻"), t.RestartReason, t.LiveCells)
	}
	if t.Finished {
		fmt.Fprintf(g.out, "\nReached maximum generations limit (%d)\n", g.config.MaxGenerations)
	}
}

// displayGameStatus shows the current game status
func (g *game) displayGameStatus(t engine.Tick) {
	status := g.au.Green("Active")
	switch {
	case t.LiveCells == 0:
		status = g.au.Red("Extinct")
	case t.Stagnant:
		status = g.au.Yellow("Stagnant")
	}

	// Show bounding box info for bounded grids
	boundingInfo := ""
	if g.config.Strategy() == model.StepBounded {
		boundingInfo = fmt.Sprintf(" | Bounding box: %d cells", g.stats.BoundingBoxSize)
	}

	fmt.Fprintf(g.out, "Gen: %d | Living: %d | Density: %.1f%% | Status: %s | Rules: %s%s\n",
		t.Generation, t.LiveCells, t.Density(), status, t.Rules, boundingInfo)
	fmt.Fprintf(g.out, "Performance: %.1f gen/sec | Step: %v | Avg Pop: %.1f | Runtime: %.1fs\n",
		g.stats.GenerationsPerSecond, t.Elapsed, g.stats.AveragePopulation, g.stats.Runtime().Seconds())

	// Show time since last restart
	if g.stats.TotalGenerations > g.lastRestartGen && g.stats.Restarts > 0 {
		fmt.Fprintf(g.out, "Generations since restart: %d\n", g.stats.TotalGenerations-g.lastRestartGen)
	}
	fmt.Fprintln(g.out)
}

// displayFinalStats prints the summary once the loop has stopped
func (g *game) displayFinalStats() {
	fmt.Fprintf(g.out, "Final stats: %d generations in %.1f seconds, %d restarts\n",
		g.engine.Generations(), g.stats.Runtime().Seconds(), g.stats.Restarts)
	fmt.Fprintf(g.out, "Average: %.1f gen/sec, %.1f avg population\n",
		g.stats.GenerationsPerSecond, g.stats.AveragePopulation)
}
