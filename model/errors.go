package model

import (
	"github.com/pkg/errors"

	"github.com/sheikhrachel/lifegrid/rules"
)

// Error kinds returned by Grid operations. Match with errors.Is.
var (
	ErrInvalidDimensions     = errors.New("invalid dimensions")
	ErrInvalidDensity        = errors.New("invalid density")
	ErrOutOfBounds           = errors.New("cell out of bounds")
	ErrInvalidRuleParameters = rules.ErrInvalidRuleParameters
)

func checkDimensions(method string, rows, cols int) error {
	if rows < 1 || cols < 1 {
		return errors.Wrapf(ErrInvalidDimensions, "[%s] rows=%d cols=%d", method, rows, cols)
	}
	return nil
}

func checkDensity(method string, density float64) error {
	// NaN fails both comparisons
	if !(density > 0 && density <= 1) {
		return errors.Wrapf(ErrInvalidDensity, "[%s] density=%v not in (0,1]", method, density)
	}
	return nil
}
