package rules

import (
	"fmt"

	"github.com/pkg/errors"
)

// MaxNeighbors is the size of a cell's Moore neighborhood.
const MaxNeighbors = 8

// ErrInvalidRuleParameters is returned for a negative threshold or an inverted survival range.
var ErrInvalidRuleParameters = errors.New("invalid rule parameters")

/*
Rules holds the neighbor-count thresholds of a life-like automaton.

A live cell survives when SurvivalMin <= neighbors <= SurvivalMax.
A dead cell is born when neighbors == BirthThreshold.

Thresholds above MaxNeighbors are accepted but can never be met.
*/
type Rules struct {
	SurvivalMin    int `json:"survival_min"`
	SurvivalMax    int `json:"survival_max"`
	BirthThreshold int `json:"birth_threshold"`
}

// Default returns Conway's rules: survive on 2 or 3, born on 3
func Default() Rules {
	return Rules{SurvivalMin: 2, SurvivalMax: 3, BirthThreshold: 3}
}

// Validate checks the thresholds
func (r Rules) Validate() error {
	if r.SurvivalMin < 0 || r.SurvivalMax < 0 || r.BirthThreshold < 0 {
		return errors.Wrapf(ErrInvalidRuleParameters,
			"[Validate] negative threshold: %+v", r)
	}
	if r.SurvivalMin > r.SurvivalMax {
		return errors.Wrapf(ErrInvalidRuleParameters,
			"[Validate] survival_min %d > survival_max %d", r.SurvivalMin, r.SurvivalMax)
	}
	return nil
}

// Next returns the state of a cell in the next generation
func (r Rules) Next(alive bool, neighbors int) bool {
	if alive {
		return neighbors >= r.SurvivalMin && neighbors <= r.SurvivalMax
	}
	return neighbors == r.BirthThreshold
}

// Spontaneous reports whether a dead cell with no live neighbors is born.
// Bounded stepping is only valid when this is false.
func (r Rules) Spontaneous() bool {
	return r.BirthThreshold == 0
}

// String formats the rules in survival/birth notation, e.g. "S2-3/B3"
func (r Rules) String() string {
	return fmt.Sprintf("S%d-%d/B%d", r.SurvivalMin, r.SurvivalMax, r.BirthThreshold)
}
