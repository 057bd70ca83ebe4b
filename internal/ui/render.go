package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/lowaak/aero-race/internal/history"
	"github.com/lowaak/aero-race/internal/race"
	"github.com/lowaak/aero-race/internal/timefmt"
)

const (
	// ViewWidth is how many meters of track are visible
	ViewWidth = 18.7

	// cameraFollow is the fraction of the gap to the live runner the camera
	// closes each frame
	cameraFollow = 0.1

	// gridSpacing is the distance between track markers, in meters
	gridSpacing = 10.0
)

// Sprite frames by animation. Strip lengths match race.Animation.FrameCount.
var sprites = map[race.Animation][]rune{
	race.AnimationStill:  []rune("o"),
	race.AnimationJog:    []rune("/|\\|/|"),
	race.AnimationSprint: []rune("/-\\|/-\\|"),
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Camera pans smoothly after the live runner
type Camera struct {
	X float64
}

// Follow moves the camera part of the way toward target
func (c *Camera) Follow(target float64) {
	c.X = lerp(c.X, target, cameraFollow)
}

// Left is the track position at the left edge of the view
func (c Camera) Left() float64 {
	return c.X - ViewWidth/2
}

func sprite(lane race.LaneFrame) rune {
	strip, ok := sprites[lane.Animation]
	if !ok || len(strip) == 0 {
		return 'o'
	}
	return strip[lane.FrameIndex%len(strip)]
}

// trackRow draws one lane across columns cells, with left the track position
// of the first cell
func trackRow(lane race.LaneFrame, left float64, columns int) []rune {
	if columns < 2 {
		return nil
	}
	row := make([]rune, columns)
	step := ViewWidth / float64(columns-1)
	for c := range row {
		// a cell shows a marker when one falls within half a step of it
		meters := left + float64(c)*step
		if math.Floor((meters+step/2)/gridSpacing) != math.Floor((meters-step/2)/gridSpacing) {
			row[c] = ':'
		} else {
			row[c] = '_'
		}
	}

	col := int(math.Round((lane.Position - left) / step))
	if col >= 0 && col < columns {
		row[col] = sprite(lane)
	}
	return row
}

// RenderTrack draws every lane, the live lane highlighted
func RenderTrack(frame race.Frame, camera Camera, columns int) string {
	var b strings.Builder
	for _, lane := range frame.Lanes {
		color := "gray"
		switch {
		case lane.Live:
			color = "yellow"
		case lane.Paced:
			color = "aqua"
		}
		fmt.Fprintf(&b, "[%s]%d %s[-]\n", color, lane.Lane, string(trackRow(lane, camera.Left(), columns)))
	}
	return b.String()
}

// RenderStats formats the race clock, distance and splits panel
func RenderStats(frame race.Frame, lastRep *history.RepRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  [gray]Rep:[white]       %d\n", frame.RepCount+1)

	switch frame.State {
	case race.StateAwaitingStart:
		fmt.Fprintf(&b, "  [yellow]Pedal %d more to start[white]\n\n", frame.Countdown)
	case race.StateRunning:
		b.WriteString("  [green]Running[white]\n\n")
	default:
		b.WriteString("  [gray]Finished[white]\n\n")
	}

	live := frame.Live()
	fmt.Fprintf(&b, "  [gray]Time:[white]      %s\n", timefmt.FormatTime(frame.GameTime))
	fmt.Fprintf(&b, "  [gray]Distance:[white]  %.1f m\n", live.Position)
	fmt.Fprintf(&b, "  [gray]Next mark:[white] %.0f m\n\n", frame.NextSplit)

	if split, ok := frame.LastSplit(); ok {
		fmt.Fprintf(&b, "  [gray]Split:[white]     %.0f m in %s (%s)\n", split.Distance, timefmt.FormatTime(split.Elapsed), timefmt.FormatPace(split.Pace()))
	} else {
		b.WriteString("  [gray]Split:[white]     -\n")
	}

	if lastRep != nil {
		if split, ok := lastRep.LastSplit(); ok {
			fmt.Fprintf(&b, "  [gray]Last rep:[white]  %.0f m in %s\n", split.Distance, timefmt.FormatTime(split.Elapsed))
		}
	}
	return b.String()
}

// RenderGhosts lists the pacer of every paced lane
func RenderGhosts(frame race.Frame) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, lane := range frame.Lanes {
		if !lane.Paced {
			continue
		}
		fmt.Fprintf(&b, "  [aqua]Lane %d[white]  %.2f m/s  %s\n", lane.Lane, lane.Speed, timefmt.FormatPace(lane.Speed))
	}
	return b.String()
}
