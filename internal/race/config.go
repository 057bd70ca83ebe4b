package race

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lowaak/aero-race/internal/pacing"
)

// ErrInvalidConfig is wrapped by every configuration validation failure
var ErrInvalidConfig = errors.New("invalid race config")

// Defaults taken from the reference ergometer setup
const (
	DefaultStartCountdown = 3
	DefaultDoneDuration   = 3 * time.Second
	DefaultSplitInterval  = 50.0 // meters
	DefaultLanes          = 4
)

// Config holds the fixed parameters of a race session
type Config struct {
	GearRatio      float64         // Fan revolutions per crank revolution
	MaxCadence     float64         // Crank rpm above which strokes are treated as noise
	StartCountdown int             // Strokes before the clock starts
	DoneDuration   time.Duration   // Idle time after which a rep finishes
	SplitInterval  float64         // Meters between recorded splits
	Lanes          int             // Total lanes including the live lane
	GhostSpeeds    GhostAssignment // Initial pacer speeds by lane
}

// DefaultConfig returns the stock ergometer setup: four lanes
// with pacers at 100m/45s, 6:00/mile and 8:00/mile.
func DefaultConfig() Config {
	return Config{
		GearRatio:      pacing.DefaultGearRatio,
		MaxCadence:     pacing.DefaultMaxCadence,
		StartCountdown: DefaultStartCountdown,
		DoneDuration:   DefaultDoneDuration,
		SplitInterval:  DefaultSplitInterval,
		Lanes:          DefaultLanes,
		GhostSpeeds:    DefaultGhostAssignment(),
	}
}

// Validate checks every invariant the session relies on. The returned error
// wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if _, err := pacing.NewModel(c.GearRatio, c.MaxCadence); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.StartCountdown < 1 {
		return fmt.Errorf("%w: start countdown must be at least 1, got %d", ErrInvalidConfig, c.StartCountdown)
	}
	if c.DoneDuration <= 0 {
		return fmt.Errorf("%w: done duration must be positive, got %v", ErrInvalidConfig, c.DoneDuration)
	}
	if !(c.SplitInterval > 0) || math.IsInf(c.SplitInterval, 0) {
		return fmt.Errorf("%w: split interval must be positive, got %v", ErrInvalidConfig, c.SplitInterval)
	}
	if c.Lanes < 2 {
		return fmt.Errorf("%w: need at least 2 lanes, got %d", ErrInvalidConfig, c.Lanes)
	}
	if err := c.GhostSpeeds.validate(c.Lanes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
