// Package race holds the rep state machine: start countdown, live and ghost
// lane integration, split tracking and ghost promotion.
//
// A Session is not safe for concurrent use; the engine loop owns it.
package race

import (
	"fmt"
	"math"

	"github.com/lowaak/aero-race/internal/pacing"
)

// PedalOutcome tells the caller what a pedal event did to the session
type PedalOutcome int

const (
	PedalCountdown PedalOutcome = iota // Consumed by the start countdown
	PedalStarted                       // Last countdown stroke; the clock started
	PedalAccepted                      // Advanced the live lane
	PedalDebounced                     // Interval too short, dropped as noise
	PedalIgnored                       // Session not accepting strokes
)

func (o PedalOutcome) String() string {
	switch o {
	case PedalCountdown:
		return "countdown"
	case PedalStarted:
		return "started"
	case PedalAccepted:
		return "accepted"
	case PedalDebounced:
		return "debounced"
	case PedalIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// RepResult describes a finished rep
type RepResult struct {
	Rep       int             // One based number of the finished rep
	RepCount  int             // Completed reps including this one
	Distance  float64         // Live lane position at the finish
	Elapsed   float64         // Game time of the last accepted stroke
	Splits    []Split         // Splits in crossing order
	Pace      float64         // Average m/s at the last split, 0 without splits
	GhostLane int             // Lane that received the pace, 0 when none did
	Ghosts    GhostAssignment // Pacers after promotion
}

// LastSplit returns the final split of the rep
func (r RepResult) LastSplit() (Split, bool) {
	if len(r.Splits) == 0 {
		return Split{}, false
	}
	return r.Splits[len(r.Splits)-1], true
}

// RepRecorder is told about every finished rep
type RepRecorder interface {
	RecordRep(result RepResult)
}

// Session is one rider's sequence of reps against up to Lanes-1 pacers
type Session struct {
	cfg      Config
	model    pacing.Model
	recorder RepRecorder

	state     SessionState
	countdown int
	repCount  int

	raceStartTime         float64
	lastPedalGameTime     float64
	lastPedalAbsoluteTime float64

	lanes  []Lane
	splits *SplitTracker
	ghosts GhostAssignment
}

// NewSession validates cfg and returns a session awaiting its first
// countdown stroke. recorder may be nil.
func NewSession(cfg Config, recorder RepRecorder) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := pacing.NewModel(cfg.GearRatio, cfg.MaxCadence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s := &Session{
		cfg:      cfg,
		model:    model,
		recorder: recorder,
		lanes:    make([]Lane, cfg.Lanes),
		splits:   NewSplitTracker(cfg.SplitInterval),
		ghosts:   cfg.GhostSpeeds.Clone(),
	}
	s.reset()
	return s, nil
}

// OnPedal handles one pedal event at absolute time now, in seconds on the
// caller's monotonic clock.
func (s *Session) OnPedal(now float64) PedalOutcome {
	switch s.state {
	case StateAwaitingStart:
		s.countdown--
		if s.countdown > 0 {
			return PedalCountdown
		}
		s.countdown = 0
		s.state = StateRunning
		s.raceStartTime = now
		// The first running stroke is timed from the starting stroke
		s.lastPedalAbsoluteTime = now
		s.lastPedalGameTime = 0
		return PedalStarted

	case StateRunning:
		delta := now - s.lastPedalAbsoluteTime
		if !s.model.Accepts(delta) {
			return PedalDebounced
		}
		gameTime := now - s.raceStartTime
		live := &s.lanes[LiveLane]
		live.Stroke(delta, s.model)
		s.lastPedalGameTime = gameTime
		s.lastPedalAbsoluteTime = now
		s.splits.Record(live.Position, gameTime)
		return PedalAccepted

	default:
		return PedalIgnored
	}
}

// OnTick advances the session to gameTime, dt seconds after the previous
// tick. It returns the result when this tick finished the rep; the session is
// then already reset for the next one.
func (s *Session) OnTick(gameTime, dt float64) *RepResult {
	if s.state != StateRunning {
		return nil
	}

	idle := gameTime - s.lastPedalGameTime
	if idle >= s.cfg.DoneDuration.Seconds() && s.lanes[LiveLane].Position > 0 {
		s.state = StateFinished
		result := s.finishRep()
		s.reset()
		return &result
	}

	for _, lane := range s.ghosts.Lanes() {
		if lane >= len(s.lanes) {
			continue
		}
		s.lanes[lane].Glide(s.ghosts[lane], gameTime, dt)
	}
	return nil
}

// GameTime converts absolute seconds to seconds since the race start. It is 0
// unless a rep is running.
func (s *Session) GameTime(now float64) float64 {
	if s.state != StateRunning {
		return 0
	}
	return math.Max(0, now-s.raceStartTime)
}

// Restore replaces the rep counter and ghost pacers, typically with state
// saved by an earlier run. Only allowed before the clock starts.
func (s *Session) Restore(repCount int, ghosts GhostAssignment) error {
	if s.state != StateAwaitingStart {
		return fmt.Errorf("cannot restore a session in state %s", s.state)
	}
	if repCount < 0 {
		return fmt.Errorf("%w: negative rep count %d", ErrInvalidConfig, repCount)
	}
	if err := ghosts.validate(s.cfg.Lanes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.repCount = repCount
	s.ghosts = ghosts.Clone()
	return nil
}

func (s *Session) finishRep() RepResult {
	result := RepResult{
		Rep:      s.repCount + 1,
		Distance: s.lanes[LiveLane].Position,
		Elapsed:  s.lastPedalGameTime,
		Splits:   s.splits.Splits(),
	}

	if last, ok := s.splits.Last(); ok && last.Elapsed > 0 {
		// Rotation uses the count before this rep is added
		lane := NextGhostLane(s.repCount, s.cfg.Lanes)
		result.Pace = last.Pace()
		result.GhostLane = lane
		s.ghosts[lane] = result.Pace
	}

	s.repCount++
	result.RepCount = s.repCount
	result.Ghosts = s.ghosts.Clone()

	if s.recorder != nil {
		s.recorder.RecordRep(result)
	}
	return result
}

func (s *Session) reset() {
	for i := range s.lanes {
		s.lanes[i].Reset()
	}
	s.splits.Reset()
	s.countdown = s.cfg.StartCountdown
	s.raceStartTime = 0
	s.lastPedalGameTime = 0
	s.state = StateAwaitingStart
}

// State returns the current phase
func (s *Session) State() SessionState { return s.state }

// Countdown returns the start strokes still required
func (s *Session) Countdown() int { return s.countdown }

// RepCount returns the number of finished reps
func (s *Session) RepCount() int { return s.repCount }

// Config returns the session's configuration
func (s *Session) Config() Config { return s.cfg }

// Ghosts returns a copy of the current pacer assignment
func (s *Session) Ghosts() GhostAssignment { return s.ghosts.Clone() }

// Lane returns a snapshot of one lane
func (s *Session) Lane(i int) Lane { return s.lanes[i] }

// Splits returns the splits of the current rep
func (s *Session) Splits() []Split { return s.splits.Splits() }
