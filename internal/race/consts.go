package race

// SessionState is the phase of the current rep
type SessionState int

const (
	StateAwaitingStart SessionState = iota // Counting down start strokes
	StateRunning                           // Clock running, strokes move the live lane
	StateFinished                          // Idle timeout hit; only observable inside the finishing tick
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting_start"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Animation is the sprite animation category of a lane
type Animation string

const (
	AnimationStill  Animation = "still"
	AnimationJog    Animation = "jog"
	AnimationSprint Animation = "sprint"
)

// Frame counts of each animation strip
var animationFrameCounts = map[Animation]int{
	AnimationStill:  1,
	AnimationJog:    6,
	AnimationSprint: 8,
}

// FrameCount returns the number of frames in the animation strip
func (a Animation) FrameCount() int {
	if n, ok := animationFrameCounts[a]; ok {
		return n
	}
	return 1
}

// sprintCadence is the cadence above which runners sprint instead of jog
const sprintCadence = 45

// AnimationFor picks the animation category for a cadence in rpm
func AnimationFor(rpm float64) Animation {
	if rpm > sprintCadence {
		return AnimationSprint
	}
	return AnimationJog
}

// LiveLane is the lane driven by the rider's pedal strokes
const LiveLane = 0
