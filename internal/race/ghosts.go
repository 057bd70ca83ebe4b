package race

import (
	"fmt"
	"math"
	"sort"

	"github.com/lowaak/aero-race/internal/pacing"
)

// GhostAssignment maps a ghost lane to its pacer speed in m/s. A lane without
// an entry has no pacer.
type GhostAssignment map[int]float64

// DefaultGhostAssignment returns the stock pacers for lanes 1 to 3
func DefaultGhostAssignment() GhostAssignment {
	return GhostAssignment{
		1: 100.0 / 45.0,
		2: pacing.MilePaceToSpeed(6),
		3: pacing.MilePaceToSpeed(8),
	}
}

// NextGhostLane returns the ghost lane replaced when rep number repCount
// (zero based) finishes. Lane 0 is never returned.
func NextGhostLane(repCount, laneCount int) int {
	ghosts := laneCount - 1
	if ghosts < 1 {
		return 0
	}
	if repCount < 0 {
		repCount = 0
	}
	return repCount%ghosts + 1
}

// Clone returns an independent copy
func (g GhostAssignment) Clone() GhostAssignment {
	out := make(GhostAssignment, len(g))
	for lane, speed := range g {
		out[lane] = speed
	}
	return out
}

// Speed returns the pacer speed of a lane
func (g GhostAssignment) Speed(lane int) (float64, bool) {
	speed, ok := g[lane]
	return speed, ok
}

// Lanes returns the assigned lanes in ascending order
func (g GhostAssignment) Lanes() []int {
	lanes := make([]int, 0, len(g))
	for lane := range g {
		lanes = append(lanes, lane)
	}
	sort.Ints(lanes)
	return lanes
}

func (g GhostAssignment) validate(laneCount int) error {
	for lane, speed := range g {
		if lane < 1 || lane >= laneCount {
			return fmt.Errorf("ghost lane %d outside 1..%d", lane, laneCount-1)
		}
		if !(speed > 0) || math.IsInf(speed, 0) {
			return fmt.Errorf("ghost lane %d speed must be positive and finite, got %v", lane, speed)
		}
	}
	return nil
}
