// Package sweep walks the critical line, detects zeros of zeta with a
// hysteresis state machine, keeps a fading trail of recent samples and an
// append-only discovery log, and drives all of it from a fixed-period
// scheduler.
package sweep

import (
	"errors"
	"fmt"
	"time"

	"zetawatch/pkg/zeta"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("sweep: invalid configuration")

// Config holds the tunables of a sweep. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Step is how far the sweep parameter advances per tick.
	Step float64 `yaml:"step"`
	// Period is the wall-clock time between ticks.
	Period time.Duration `yaml:"period"`

	// ApproachThreshold: magnitude below this is shown as Approaching.
	ApproachThreshold float64 `yaml:"approach_threshold"`
	// ZeroThreshold: magnitude below this is a candidate zero. Must be
	// strictly smaller than ApproachThreshold.
	ZeroThreshold float64 `yaml:"zero_threshold"`
	// MinSeparation is the parameter distance required after a confirmed
	// zero before another may be confirmed.
	MinSeparation float64 `yaml:"min_separation"`
	// FadeWindow is how long, in parameter units, the found notice stays up.
	FadeWindow float64 `yaml:"fade_window"`
	// Tolerance for matching a zero against the reference set.
	Tolerance float64 `yaml:"tolerance"`

	// TrailCapacity bounds the rolling sample window.
	TrailCapacity int `yaml:"trail_capacity"`

	// Method and Digits select the evaluator.
	Method zeta.Method `yaml:"method"`
	Digits int         `yaml:"digits"`
}

// DefaultConfig returns the reference cadence: 0.2 every 100ms, thresholds
// 0.3 / 0.05, separation 2, fade 1, tolerance 0.01, 50 trail samples.
func DefaultConfig() Config {
	return Config{
		Step:              0.2,
		Period:            100 * time.Millisecond,
		ApproachThreshold: 0.3,
		ZeroThreshold:     0.05,
		MinSeparation:     2.0,
		FadeWindow:        1.0,
		Tolerance:         0.01,
		TrailCapacity:     50,
		Method:            zeta.MethodEulerMaclaurin,
		Digits:            zeta.DefaultDigits,
	}
}

// Validate fails fast on settings that would make the detector misbehave.
func (c Config) Validate() error {
	switch {
	case c.Step <= 0:
		return fmt.Errorf("%w: step must be positive, got %g", ErrInvalidConfig, c.Step)
	case c.Period <= 0:
		return fmt.Errorf("%w: period must be positive, got %s", ErrInvalidConfig, c.Period)
	case c.ZeroThreshold <= 0:
		return fmt.Errorf("%w: zero threshold must be positive, got %g", ErrInvalidConfig, c.ZeroThreshold)
	case c.ZeroThreshold >= c.ApproachThreshold:
		return fmt.Errorf("%w: zero threshold %g must be below approach threshold %g",
			ErrInvalidConfig, c.ZeroThreshold, c.ApproachThreshold)
	case c.MinSeparation <= 0:
		return fmt.Errorf("%w: min separation must be positive, got %g", ErrInvalidConfig, c.MinSeparation)
	case c.FadeWindow < 0:
		return fmt.Errorf("%w: fade window must not be negative, got %g", ErrInvalidConfig, c.FadeWindow)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	case c.TrailCapacity < 1:
		return fmt.Errorf("%w: trail capacity must be at least 1, got %d", ErrInvalidConfig, c.TrailCapacity)
	}
	if err := zeta.CheckDigits(c.Digits); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Evaluator builds the evaluator named by the config.
func (c Config) Evaluator() (zeta.Evaluator, error) {
	e, err := zeta.New(c.Method, c.Digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return e, nil
}
