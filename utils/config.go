package utils

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/sheikhrachel/lifegrid/model"
	"github.com/sheikhrachel/lifegrid/rules"
)

// Config holds the configuration for the game
type Config struct {
	Rows                int           `json:"rows"`
	Cols                int           `json:"cols"`
	Delay               time.Duration `json:"delay"` // nanoseconds in JSON, e.g. 150000000 for 150ms
	Density             float64       `json:"density"`
	SurvivalMin         int           `json:"survival_min"`
	SurvivalMax         int           `json:"survival_max"`
	BirthThreshold      int           `json:"birth_threshold"`
	MaxGenerations      int           `json:"max_generations"`
	AutoRestart         bool          `json:"auto_restart"`
	StagnationThreshold int           `json:"stagnation_threshold"`
	InjectionCount      int           `json:"injection_count"`
	UseParallel         bool          `json:"use_parallel"`
	UseMemoryPool       bool          `json:"use_memory_pool"`
	UseBoundedGrid      bool          `json:"use_bounded_grid"`
	Seed                uint64        `json:"seed"` // 0 seeds from the clock
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	r := rules.Default()
	return Config{
		Rows:                30,
		Cols:                60,
		Delay:               150 * time.Millisecond,
		Density:             0.15,
		SurvivalMin:         r.SurvivalMin,
		SurvivalMax:         r.SurvivalMax,
		BirthThreshold:      r.BirthThreshold,
		MaxGenerations:      1000,
		AutoRestart:         true,
		StagnationThreshold: 5,
		InjectionCount:      3,
		UseParallel:         true,
		UseMemoryPool:       true,
		UseBoundedGrid:      true, // Enable active region optimization
	}
}

// LoadConfig loads configuration from JSON file, starting from the defaults
func LoadConfig(filename string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, errors.Wrapf(err, "[LoadConfig] failed to read file: %+v", filename)
	}

	if err = json.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "[LoadConfig] failed to unmarshal data from file: %+v", filename)
	}

	return config, nil
}

// Rules returns the rule parameters
func (c Config) Rules() rules.Rules {
	return rules.Rules{
		SurvivalMin:    c.SurvivalMin,
		SurvivalMax:    c.SurvivalMax,
		BirthThreshold: c.BirthThreshold,
	}
}

// Strategy picks the stepping strategy. Bounded wins over parallel.
func (c Config) Strategy() model.StepStrategy {
	switch {
	case c.UseBoundedGrid:
		return model.StepBounded
	case c.UseParallel:
		return model.StepParallel
	default:
		return model.StepSequential
	}
}

// Validate rejects values the grid or engine would refuse
func (c Config) Validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return errors.Wrapf(model.ErrInvalidDimensions, "[Validate] rows=%d cols=%d", c.Rows, c.Cols)
	}
	if !(c.Density > 0 && c.Density <= 1) {
		return errors.Wrapf(model.ErrInvalidDensity, "[Validate] density=%v", c.Density)
	}
	if c.Delay < 0 {
		return errors.Errorf("[Validate] negative delay %v", c.Delay)
	}
	if c.MaxGenerations < 0 || c.StagnationThreshold < 0 || c.InjectionCount < 0 {
		return errors.Errorf("[Validate] negative limit: max_generations=%d stagnation_threshold=%d injection_count=%d",
			c.MaxGenerations, c.StagnationThreshold, c.InjectionCount)
	}
	if err := c.Rules().Validate(); err != nil {
		return errors.Wrap(err, "[Validate]")
	}
	return nil
}

// GridOptions translates the config into grid construction options
func (c Config) GridOptions() []model.Option {
	opts := []model.Option{
		model.WithRules(c.Rules()),
		model.WithStrategy(c.Strategy()),
	}
	if c.UseMemoryPool {
		opts = append(opts, model.WithPool(model.NewGridPool()))
	}
	if c.Seed != 0 {
		opts = append(opts, model.WithSeed(c.Seed))
	}
	return opts
}
