// Package timefmt formats elapsed race time for display.
package timefmt

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as "s.cs" under a minute and "m:ss.cs" above.
// Centiseconds are truncated, never rounded up. Negative and non-finite input
// renders as zero.
func FormatTime(seconds float64) string {
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	// the epsilon absorbs binary representation error (3.07 is 3.0699999...)
	centis := int64(math.Floor(seconds*100 + 1e-6))
	minutes := centis / 6000
	secs := (centis % 6000) / 100
	cs := centis % 100
	if minutes > 0 {
		return fmt.Sprintf("%d:%02d.%02d", minutes, secs, cs)
	}
	return fmt.Sprintf("%d.%02d", secs, cs)
}

// paceDistance is the reference distance of FormatPace, in meters
const paceDistance = 500

// FormatPace renders a speed in m/s as the time needed for 500m, or "-" when
// the speed is not positive.
func FormatPace(mps float64) string {
	if !(mps > 0) || math.IsInf(mps, 0) {
		return "-"
	}
	return FormatTime(paceDistance/mps) + "/500m"
}
