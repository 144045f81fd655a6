package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/integrii/flaggy"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sheikhrachel/lifegrid/engine"
	"github.com/sheikhrachel/lifegrid/model"
	"github.com/sheikhrachel/lifegrid/utils"
)

const defaultConfigFile = "config.json"

// flagValues holds command line overrides. Zero values (or -1 for the delay,
// rule thresholds and generation limit) mean "not set" and leave the config
// file value alone.
type flagValues struct {
	configFile     string
	rows           int
	cols           int
	delay          time.Duration
	density        float64
	survivalMin    int
	survivalMax    int
	birthThreshold int
	maxGenerations int
	seed           int
	sequential     bool
	noPool         bool
	noBounded      bool
	noRestart      bool
	noColor        bool
}

func parseFlags() flagValues {
	fv := flagValues{
		configFile:     defaultConfigFile,
		delay:          -1,
		survivalMin:    -1,
		survivalMax:    -1,
		birthThreshold: -1,
		maxGenerations: -1,
	}

	flaggy.SetName("lifegrid")
	flaggy.SetDescription("Conway's Game of Life with adjustable rules, in the terminal")
	flaggy.DefaultParser.ShowHelpOnUnexpected = true

	flaggy.String(&fv.configFile, "c", "config", "JSON configuration file")
	flaggy.Int(&fv.rows, "r", "rows", "Number of grid rows")
	flaggy.Int(&fv.cols, "w", "cols", "Number of grid columns")
	flaggy.Duration(&fv.delay, "i", "interval", "Delay between generations, for example 150ms")
	flaggy.Float64(&fv.density, "d", "density", "Probability of a cell starting live, in (0,1]")
	flaggy.Int(&fv.survivalMin, "", "survival-min", "Fewest live neighbors a live cell survives with")
	flaggy.Int(&fv.survivalMax, "", "survival-max", "Most live neighbors a live cell survives with")
	flaggy.Int(&fv.birthThreshold, "b", "birth", "Exact live neighbor count that brings a dead cell to life")
	flaggy.Int(&fv.maxGenerations, "m", "max-generations", "Stop after this many generations, 0 for no limit")
	flaggy.Int(&fv.seed, "s", "seed", "Random seed, 0 seeds from the clock")
	flaggy.Bool(&fv.sequential, "", "sequential", "Step on a single goroutine")
	flaggy.Bool(&fv.noPool, "", "no-pool", "Allocate a fresh buffer every generation")
	flaggy.Bool(&fv.noBounded, "", "no-bounded", "Evaluate the whole grid instead of the live region")
	flaggy.Bool(&fv.noRestart, "", "no-restart", "Do not reseed on extinction or stagnation")
	flaggy.Bool(&fv.noColor, "", "no-color", "Disable colored output")

	flaggy.Parse()
	return fv
}

// resolveConfig loads the config file, falling back to defaults when the
// default file is absent, then applies flag overrides
func resolveConfig(fv flagValues) (utils.Config, error) {
	config, err := utils.LoadConfig(fv.configFile)
	if err != nil {
		if fv.configFile != defaultConfigFile || !errors.Is(err, os.ErrNotExist) {
			return config, err
		}
		fmt.Println("Using default configuration (config.json not found)")
		config = utils.DefaultConfig()
	}

	if fv.rows > 0 {
		config.Rows = fv.rows
	}
	if fv.cols > 0 {
		config.Cols = fv.cols
	}
	if fv.delay >= 0 {
		config.Delay = fv.delay
	}
	if fv.density != 0 {
		config.Density = fv.density
	}
	if fv.survivalMin >= 0 {
		config.SurvivalMin = fv.survivalMin
	}
	if fv.survivalMax >= 0 {
		config.SurvivalMax = fv.survivalMax
	}
	if fv.birthThreshold >= 0 {
		config.BirthThreshold = fv.birthThreshold
	}
	if fv.maxGenerations >= 0 {
		config.MaxGenerations = fv.maxGenerations
	}
	if fv.seed < 0 {
		return config, errors.Errorf("[resolveConfig] negative seed %d", fv.seed)
	}
	if fv.seed != 0 {
		config.Seed = uint64(fv.seed)
	}
	if fv.sequential {
		config.UseParallel = false
	}
	if fv.noPool {
		config.UseMemoryPool = false
	}
	if fv.noBounded {
		config.UseBoundedGrid = false
	}
	if fv.noRestart {
		config.AutoRestart = false
	}

	return config, config.Validate()
}

func main() {
	fv := parseFlags()
	au := aurora.NewAurora(!fv.noColor)

	config, err := resolveConfig(fv)
	if err != nil {
		fmt.Fprintln(os.Stderr, au.Red("Invalid configuration:"), err)
		os.Exit(2)
	}

	if err := run(config, !fv.noColor); err != nil {
		fmt.Fprintln(os.Stderr, au.Red("Error:"), err)
		os.Exit(1)
	}
}

func run(config utils.Config, color bool) error {
	g, err := initializeGame(config, os.Stdout, color)
	if err != nil {
		return err
	}
	g.displayGameInfo()

	// Handle Ctrl+C gracefully
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()
	eg, ctx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		defer cancel()
		return g.engine.Run(ctx)
	})
	eg.Go(func() error {
		<-ctx.Done()
		if sigCtx.Err() != nil {
			fmt.Fprintln(g.out, g.au.Yellow("\nShutting down gracefully..."))
		}
		g.engine.Stop()
		return nil
	})

	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "[run]")
	}
	g.displayFinalStats()
	return nil
}

// newEngine builds the grid and engine described by config
func newEngine(config utils.Config) (*engine.Engine, error) {
	grid, err := model.NewGrid(config.Rows, config.Cols, config.GridOptions()...)
	if err != nil {
		return nil, err
	}
	if err := grid.SeedPatterns(config.Density); err != nil {
		return nil, err
	}

	return engine.New(grid, engine.Options{
		Delay:               config.Delay,
		MaxGenerations:      config.MaxGenerations,
		AutoRestart:         config.AutoRestart,
		StagnationThreshold: config.StagnationThreshold,
		InjectionCount:      config.InjectionCount,
		Density:             config.Density,
	})
}
