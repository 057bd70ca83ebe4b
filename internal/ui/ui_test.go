package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/aero-race/internal/events"
	"github.com/lowaak/aero-race/internal/history"
	"github.com/lowaak/aero-race/internal/pedal"
	"github.com/lowaak/aero-race/internal/race"
)

func testFrame() race.Frame {
	return race.Frame{
		State:     race.StateRunning,
		RepCount:  1,
		GameTime:  12.345,
		NextSplit: 100,
		Splits:    []race.Split{{Distance: 50, Elapsed: 10}},
		Lanes: []race.LaneFrame{
			{Lane: 0, Live: true, Position: 52.5, Animation: race.AnimationSprint, FrameIndex: 2},
			{Lane: 1, Paced: true, Speed: 5, Position: 61.7, Animation: race.AnimationSprint},
			{Lane: 2, Paced: true, Speed: 4, Position: 49.4, Animation: race.AnimationJog, FrameIndex: 1},
			{Lane: 3, Position: 0, Animation: race.AnimationStill},
		},
	}
}

func TestCamera_Follow(t *testing.T) {
	var camera Camera
	camera.Follow(10)
	assert.InDelta(t, 1.0, camera.X, 1e-12)
	camera.Follow(10)
	assert.InDelta(t, 1.9, camera.X, 1e-12)
	assert.InDelta(t, 1.9-ViewWidth/2, camera.Left(), 1e-12)
}

func TestTrackRow_PlacesRunner(t *testing.T) {
	lane := race.LaneFrame{Position: 0, Animation: race.AnimationJog, FrameIndex: 1}
	row := trackRow(lane, -ViewWidth/2, 21)
	require.Len(t, row, 21)
	assert.Equal(t, '|', row[10])

	// The start line is a grid marker
	lane.Position = 100
	row = trackRow(lane, -ViewWidth/2, 21)
	assert.Equal(t, ':', row[10])
	assert.Equal(t, 1, strings.Count(string(row), ":"))
	assert.NotContains(t, string(row), "|")
}

func TestTrackRow_Degenerate(t *testing.T) {
	assert.Nil(t, trackRow(race.LaneFrame{}, 0, 1))
}

func TestSprite(t *testing.T) {
	assert.Equal(t, 'o', sprite(race.LaneFrame{Animation: race.AnimationStill}))
	assert.Equal(t, '\\', sprite(race.LaneFrame{Animation: race.AnimationSprint, FrameIndex: 2}))
	assert.Equal(t, 'o', sprite(race.LaneFrame{Animation: "unknown"}))
	for _, animation := range []race.Animation{race.AnimationStill, race.AnimationJog, race.AnimationSprint} {
		assert.Len(t, sprites[animation], animation.FrameCount(), animation)
	}
}

func TestRenderTrack(t *testing.T) {
	out := RenderTrack(testFrame(), Camera{X: 52.5}, 30)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "[yellow]0 "))
	assert.True(t, strings.HasPrefix(lines[1], "[aqua]1 "))
	assert.True(t, strings.HasPrefix(lines[3], "[gray]3 "))
}

func TestRenderStats(t *testing.T) {
	out := RenderStats(testFrame(), nil)
	assert.Contains(t, out, "Rep:[white]       2")
	assert.Contains(t, out, "Running")
	assert.Contains(t, out, "12.34")
	assert.Contains(t, out, "52.5 m")
	assert.Contains(t, out, "50 m in 10.00 (1:40.00/500m)")
	assert.NotContains(t, out, "Last rep")

	frame := testFrame()
	frame.State = race.StateAwaitingStart
	frame.Countdown = 2
	frame.GameTime = 0
	frame.Splits = nil
	rec := history.RepRecord{Splits: []history.SplitRecord{{Distance: 150, Elapsed: 31.5}}}
	out = RenderStats(frame, &rec)
	assert.Contains(t, out, "Pedal 2 more to start")
	assert.Contains(t, out, "Split:[white]     -")
	assert.Contains(t, out, "Last rep:[white]  150 m in 31.50")
}

func TestRenderGhosts(t *testing.T) {
	out := RenderGhosts(testFrame())
	assert.Contains(t, out, "Lane 1[white]  5.00 m/s  1:40.00/500m")
	assert.Contains(t, out, "Lane 2[white]  4.00 m/s  2:05.00/500m")
	assert.NotContains(t, out, "Lane 3")
}

func TestRaceView_SpaceSendsStroke(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC))
	strokes := make(chan pedal.Stroke, 1)
	view := NewRaceView(NewRaceViewArg{
		Logger:  zerolog.Nop(),
		App:     tview.NewApplication(),
		Clock:   clock,
		Strokes: strokes,
		Frames:  events.NewFeed[race.Frame](true),
	})

	assert.Nil(t, view.handleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	require.Len(t, strokes, 1)
	assert.Equal(t, clock.Now(), (<-strokes).At)

	// A full queue drops the stroke instead of blocking the UI
	strokes <- pedal.Stroke{}
	assert.Nil(t, view.handleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.Len(t, strokes, 1)

	// Other keys pass through
	event := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)
	assert.Same(t, event, view.handleKey(event))
}

func TestNewRaceView_PanicsWithoutDeps(t *testing.T) {
	assert.Panics(t, func() {
		NewRaceView(NewRaceViewArg{App: tview.NewApplication()})
	})
}
