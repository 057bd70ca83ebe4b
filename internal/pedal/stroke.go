// Package pedal turns sensor input into timestamped pedal strokes.
//
// One stroke is one fan revolution event, the unit the race model is
// calibrated in.
package pedal

import (
	"context"
	"time"
)

// Stroke is a single pedal event
type Stroke struct {
	At time.Time
}

// Source produces strokes until ctx is done or the source fails for good.
// Sends on out must respect ctx.
type Source interface {
	Run(ctx context.Context, out chan<- Stroke) error
}

func emit(ctx context.Context, out chan<- Stroke, at time.Time) bool {
	select {
	case out <- Stroke{At: at}:
		return true
	case <-ctx.Done():
		return false
	}
}
