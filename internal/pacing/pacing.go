// Package pacing converts pedal stroke timing into running speed and distance.
//
// The curve fits map fan cadence to mechanical power, power to running speed,
// and running speed back to a display cadence for the computer-paced lanes.
// All functions are pure.
package pacing

import (
	"fmt"
	"math"
)

// Calibration constants of the curve fits
const (
	// powerScale divides watts before the speed polynomial is applied
	powerScale = 1.14174581282

	// metersPerMileMinute converts a mile pace in minutes to meters per second
	metersPerMileMinute = 26.8224
)

// Defaults for the ergometer this model was calibrated against
const (
	DefaultGearRatio  = 2116.0 / 225.0
	DefaultMaxCadence = 200.0
)

// Realistic operating domain of the live rider, in crank rpm. Inside this range
// a faster cadence never yields less distance per stroke interval.
const (
	RealisticCadenceMin = 20.0
	RealisticCadenceMax = 130.0
)

// PowerFromCadence returns mechanical power in watts for a cadence in rpm.
// Non-positive and NaN cadences produce no power.
func PowerFromCadence(rpm float64) float64 {
	if !(rpm > 0) || math.IsInf(rpm, 0) {
		return 0
	}
	return 0.0006*rpm*rpm*rpm + 0.005*rpm*rpm + 0.2583*rpm + 6
}

// SpeedFromPower returns running speed in m/s for a power in watts.
// The polynomial is strictly increasing for non-negative input; anything else
// (negative, NaN, infinite) is clamped to 0.
func SpeedFromPower(watts float64) float64 {
	if !(watts > 0) || math.IsInf(watts, 0) {
		return 0
	}
	w := watts / powerScale
	mps := 0.015711509930705227*w -
		0.000006408078187192426*w*w +
		9.01993744920797e-10*w*w*w
	return finiteNonNegative(mps)
}

// CadenceFromSpeed approximates the inverse of the pacing curve. It only
// drives the animation of ghost lanes.
func CadenceFromSpeed(mps float64) float64 {
	if !(mps > 0) || math.IsInf(mps, 0) {
		return 0
	}
	rpm := -26.6886*math.Pow(mps, 2.0361e-16) + 65.1635*math.Pow(mps, 0.304912)
	return finiteNonNegative(rpm)
}

// MilePaceToSpeed converts a pace in minutes per mile to m/s.
func MilePaceToSpeed(minutesPerMile float64) float64 {
	if !(minutesPerMile > 0) {
		return 0
	}
	return metersPerMileMinute / minutesPerMile
}

// CadenceForInterval returns the crank cadence implied by the time between two
// pedal events.
func CadenceForInterval(deltaSeconds, gearRatio float64) float64 {
	if !(deltaSeconds > 0) || !(gearRatio > 0) {
		return 0
	}
	return 60 / deltaSeconds / gearRatio
}

// DistanceForStrokeInterval is the distance in meters covered between two
// pedal events deltaSeconds apart.
func DistanceForStrokeInterval(deltaSeconds, gearRatio float64) float64 {
	rpm := CadenceForInterval(deltaSeconds, gearRatio)
	if rpm == 0 {
		return 0
	}
	mps := SpeedFromPower(PowerFromCadence(rpm))
	return finiteNonNegative(mps * deltaSeconds)
}

// MinValidInterval is the shortest pedal interval accepted before an event is
// treated as sensor noise.
func MinValidInterval(maxCadence, gearRatio float64) float64 {
	return 60 / (maxCadence * gearRatio)
}

func finiteNonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Model binds the pacing curves to one ergometer.
type Model struct {
	GearRatio  float64
	MaxCadence float64
}

// NewModel validates the gear ratio and cadence ceiling.
func NewModel(gearRatio, maxCadence float64) (Model, error) {
	if !(gearRatio > 0) || math.IsInf(gearRatio, 0) {
		return Model{}, fmt.Errorf("gear ratio must be positive, got %v", gearRatio)
	}
	if !(maxCadence > 0) || math.IsInf(maxCadence, 0) {
		return Model{}, fmt.Errorf("max cadence must be positive, got %v", maxCadence)
	}
	return Model{GearRatio: gearRatio, MaxCadence: maxCadence}, nil
}

// MinInterval is the debounce threshold in seconds.
func (m Model) MinInterval() float64 {
	return MinValidInterval(m.MaxCadence, m.GearRatio)
}

// Accepts reports whether a pedal interval is long enough to be a real stroke.
func (m Model) Accepts(deltaSeconds float64) bool {
	return deltaSeconds >= m.MinInterval()
}

// Distance is DistanceForStrokeInterval for this model's gear ratio.
func (m Model) Distance(deltaSeconds float64) float64 {
	return DistanceForStrokeInterval(deltaSeconds, m.GearRatio)
}

// RevolutionsPerStroke is how far the runner's stride cycle advances for one
// pedal event.
func (m Model) RevolutionsPerStroke() float64 {
	return 1 / m.GearRatio
}
