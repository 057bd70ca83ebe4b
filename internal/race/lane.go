package race

import (
	"math"

	"github.com/lowaak/aero-race/internal/pacing"
)

// Lane is the integrated state of one runner
type Lane struct {
	Position    float64   // Meters traveled this rep
	Revolutions float64   // Stride cycles; the fractional part selects the animation frame
	Animation   Animation // Category chosen by the last update
}

func newLane() Lane {
	return Lane{Animation: AnimationStill}
}

// Stroke advances the lane for one accepted pedal event deltaSeconds after the
// previous one.
func (l *Lane) Stroke(deltaSeconds float64, model pacing.Model) {
	l.Revolutions += model.RevolutionsPerStroke()
	l.Position += model.Distance(deltaSeconds)
	l.Animation = AnimationFor(60 / deltaSeconds)
}

// Glide moves a paced lane to speed*gameTime. Position is derived from elapsed
// race time rather than accumulated, so it never drifts.
func (l *Lane) Glide(speed, gameTime, tickDelta float64) {
	rpm := pacing.CadenceFromSpeed(speed)
	if tickDelta > 0 {
		l.Revolutions += rpm * tickDelta / 60
	}
	l.Position = speed * gameTime
	l.Animation = AnimationFor(rpm)
}

// FrameIndex is the frame of the current animation strip to display
func (l Lane) FrameIndex() int {
	count := l.Animation.FrameCount()
	frac := math.Mod(l.Revolutions, 1)
	if frac < 0 || math.IsNaN(frac) {
		return 0
	}
	idx := int(math.Floor(frac * float64(count)))
	if idx >= count {
		idx = count - 1
	}
	return idx
}

// Reset puts the runner back on the start line
func (l *Lane) Reset() {
	*l = newLane()
}
