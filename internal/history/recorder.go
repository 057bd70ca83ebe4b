package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/lowaak/aero-race/internal/events"
	"github.com/lowaak/aero-race/internal/go_func_utils"
	"github.com/lowaak/aero-race/internal/race"
)

const (
	recorderQueueSize = 32
	appendTimeout     = 5 * time.Second
)

// Recorder fans finished reps out to sinks on its own goroutine so a slow or
// failing sink never stalls the race loop
type Recorder struct {
	logger zerolog.Logger
	clock  clockwork.Clock
	sinks  []Sink

	mu     sync.Mutex
	closed bool
	queue  chan RepRecord
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error

	// Recorded is notified after every sink has seen a rep
	Recorded *events.Feed[RepRecord]
}

func NewRecorder(logger zerolog.Logger, clock clockwork.Clock, sinks ...Sink) *Recorder {
	r := &Recorder{
		logger:   logger.With().Str("component", "Recorder").Logger(),
		clock:    clock,
		sinks:    sinks,
		queue:    make(chan RepRecord, recorderQueueSize),
		done:     make(chan struct{}),
		Recorded: events.NewFeed[RepRecord](true),
	}
	go_func_utils.SafeGo(r.logger, r.run)
	return r
}

// RecordRep never blocks; if the queue is full the rep is dropped and logged
func (r *Recorder) RecordRep(result race.RepResult) {
	rec, err := NewRepRecord(result, r.clock.Now())
	if err != nil {
		r.logger.Error().Err(err).Int("rep", result.Rep).Msg("dropping rep")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn().Int("rep", rec.Rep).Msg("recorder closed, dropping rep")
		return
	}
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn().Int("rep", rec.Rep).Msg("recorder queue full, dropping rep")
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		for _, sink := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
			if err := sink.Append(ctx, rec); err != nil {
				r.logger.Error().Err(err).Str("id", rec.ID).Int("rep", rec.Rep).Msg("append failed")
			}
			cancel()
		}
		r.logger.Info().
			Str("id", rec.ID).
			Int("rep", rec.Rep).
			Float64("distance", rec.Distance).
			Float64("pace", rec.Pace).
			Int("ghost_lane", rec.GhostLane).
			Msg("rep recorded")
		r.Recorded.Notify(rec)
	}
}

// Close drains queued reps then closes every sink
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()

		<-r.done

		var errs []error
		for _, sink := range r.sinks {
			if err := sink.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
