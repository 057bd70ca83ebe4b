package race

// LaneFrame is the render state of one lane
type LaneFrame struct {
	Lane       int
	Live       bool
	Paced      bool    // A ghost speed is assigned
	Speed      float64 // Pacer speed in m/s, 0 for the live lane
	Position   float64
	Animation  Animation
	FrameIndex int
}

// Frame is an immutable snapshot of a session for renderers
type Frame struct {
	State     SessionState
	Countdown int
	RepCount  int
	GameTime  float64
	Lanes     []LaneFrame
	Splits    []Split
	NextSplit float64
}

// LastSplit returns the most recent split of the running rep
func (f Frame) LastSplit() (Split, bool) {
	if len(f.Splits) == 0 {
		return Split{}, false
	}
	return f.Splits[len(f.Splits)-1], true
}

// Live returns the live lane
func (f Frame) Live() LaneFrame {
	return f.Lanes[LiveLane]
}

// Frame snapshots the session at gameTime
func (s *Session) Frame(gameTime float64) Frame {
	f := Frame{
		State:     s.state,
		Countdown: s.countdown,
		RepCount:  s.repCount,
		Lanes:     make([]LaneFrame, len(s.lanes)),
		Splits:    s.splits.Splits(),
		NextSplit: s.splits.NextThreshold(),
	}
	if s.state == StateRunning {
		f.GameTime = gameTime
	}
	for i, lane := range s.lanes {
		lf := LaneFrame{
			Lane:       i,
			Live:       i == LiveLane,
			Position:   lane.Position,
			Animation:  lane.Animation,
			FrameIndex: lane.FrameIndex(),
		}
		if speed, ok := s.ghosts[i]; ok && i != LiveLane {
			lf.Paced = true
			lf.Speed = speed
		}
		f.Lanes[i] = lf
	}
	return f
}
