package race

// Split is the elapsed time at which the live runner crossed a distance mark
type Split struct {
	Distance float64 // Meters, a multiple of the split interval
	Elapsed  float64 // Race seconds
}

// Pace is the average speed in m/s up to this split
func (s Split) Pace() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return s.Distance / s.Elapsed
}

// SplitTracker records a split every time the live runner crosses another
// interval mark
type SplitTracker struct {
	interval float64
	splits   []Split
}

// NewSplitTracker creates a tracker with marks every interval meters
func NewSplitTracker(interval float64) *SplitTracker {
	if !(interval > 0) {
		panic("SplitTracker: interval must be positive")
	}
	return &SplitTracker{interval: interval}
}

// NextThreshold is the distance of the next mark to cross
func (t *SplitTracker) NextThreshold() float64 {
	return float64(len(t.splits)+1) * t.interval
}

// Record appends a split for every mark at or below position and returns how
// many were added. Marks are computed from their index so they stay exact
// multiples of the interval.
func (t *SplitTracker) Record(position, elapsed float64) int {
	added := 0
	for position >= t.NextThreshold() {
		t.splits = append(t.splits, Split{Distance: t.NextThreshold(), Elapsed: elapsed})
		added++
	}
	return added
}

// Splits returns a copy of the recorded splits in crossing order
func (t *SplitTracker) Splits() []Split {
	out := make([]Split, len(t.splits))
	copy(out, t.splits)
	return out
}

// Last returns the most recent split
func (t *SplitTracker) Last() (Split, bool) {
	if len(t.splits) == 0 {
		return Split{}, false
	}
	return t.splits[len(t.splits)-1], true
}

// Len is the number of recorded splits
func (t *SplitTracker) Len() int {
	return len(t.splits)
}

// Reset clears all splits; the next mark is one interval again
func (t *SplitTracker) Reset() {
	t.splits = nil
}
