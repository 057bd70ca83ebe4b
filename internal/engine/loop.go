// Package engine runs a race session on a single goroutine, serializing
// pedal strokes and frame ticks.
package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/lowaak/aero-race/internal/events"
	"github.com/lowaak/aero-race/internal/pedal"
	"github.com/lowaak/aero-race/internal/race"
)

const (
	DefaultTickRate = 60 // Hz
	strokeQueueSize = 64
)

// Loop owns a race.Session. Nothing else may touch the session while Run is
// active.
type Loop struct {
	session      *race.Session
	clock        clockwork.Clock
	tickInterval time.Duration
	logger       zerolog.Logger

	epoch   time.Time
	strokes chan pedal.Stroke
	frames  *events.Feed[race.Frame]

	lastTick float64
}

// NewLoop creates a loop ticking every tickInterval. Absolute stroke times are
// measured from the moment of creation.
func NewLoop(session *race.Session, clock clockwork.Clock, tickInterval time.Duration, logger zerolog.Logger) *Loop {
	if session == nil {
		panic("Loop: session cannot be nil")
	}
	if clock == nil {
		panic("Loop: clock cannot be nil")
	}
	if tickInterval <= 0 {
		tickInterval = time.Second / DefaultTickRate
	}
	return &Loop{
		session:      session,
		clock:        clock,
		tickInterval: tickInterval,
		logger:       logger.With().Str("component", "Loop").Logger(),
		epoch:        clock.Now(),
		strokes:      make(chan pedal.Stroke, strokeQueueSize),
		frames:       events.NewFeed[race.Frame](true),
	}
}

// Strokes is where pedal sources deliver their events
func (l *Loop) Strokes() chan<- pedal.Stroke {
	return l.strokes
}

// Frames is notified on the loop goroutine after every stroke and tick.
// Listeners must not block.
func (l *Loop) Frames() *events.Feed[race.Frame] {
	return l.frames
}

// Run processes strokes and ticks until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.tickInterval)
	defer ticker.Stop()

	now := l.absolute(l.clock.Now())
	l.lastTick = now
	l.publish(now)
	l.logger.Info().Dur("tick", l.tickInterval).Msg("race loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("race loop exiting")
			return nil

		case stroke := <-l.strokes:
			l.handleStroke(stroke)

		case <-ticker.Chan():
			l.handleTick(l.absolute(l.clock.Now()))
		}
	}
}

func (l *Loop) absolute(t time.Time) float64 {
	return t.Sub(l.epoch).Seconds()
}

func (l *Loop) handleStroke(stroke pedal.Stroke) {
	now := l.absolute(stroke.At)
	outcome := l.session.OnPedal(now)
	switch outcome {
	case race.PedalCountdown:
		l.logger.Info().Int("remaining", l.session.Countdown()).Msg("countdown")
	case race.PedalStarted:
		l.logger.Info().Int("rep", l.session.RepCount()+1).Msg("rep started")
	case race.PedalDebounced:
		l.logger.Debug().Float64("at", now).Msg("stroke debounced")
	case race.PedalIgnored:
		l.logger.Debug().Float64("at", now).Msg("stroke ignored")
	}
	l.publish(now)
}

func (l *Loop) handleTick(now float64) {
	dt := now - l.lastTick
	l.lastTick = now

	gameTime := l.session.GameTime(now)
	if result := l.session.OnTick(gameTime, dt); result != nil {
		evt := l.logger.Info().
			Int("rep", result.Rep).
			Float64("distance", result.Distance).
			Int("splits", len(result.Splits))
		if result.GhostLane > 0 {
			evt = evt.Int("ghost_lane", result.GhostLane).Float64("pace", result.Pace)
		}
		evt.Msg("rep finished")
	}
	l.publish(now)
}

func (l *Loop) publish(now float64) {
	l.frames.Notify(l.session.Frame(l.session.GameTime(now)))
}
