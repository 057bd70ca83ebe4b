// Package ui renders a race session in the terminal.
package ui

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"github.com/lowaak/aero-race/internal/events"
	"github.com/lowaak/aero-race/internal/go_func_utils"
	"github.com/lowaak/aero-race/internal/history"
	"github.com/lowaak/aero-race/internal/pedal"
	"github.com/lowaak/aero-race/internal/race"
)

const (
	maxLogLines  = 500
	lineQueueLen = 64
)

// RaceView shows the lanes, the race clock and splits, the pacers and a log
// pane. Space injects a pedal stroke; Esc or q quits.
type RaceView struct {
	logger  zerolog.Logger
	app     *tview.Application
	clock   clockwork.Clock
	strokes chan<- pedal.Stroke
	frames  *events.Feed[race.Frame]
	lines   *events.Feed[string]
	reps    *events.Feed[history.RepRecord]

	trackView  *tview.TextView
	statsView  *tview.TextView
	ghostsView *tview.TextView
	logView    *tview.TextView
	root       *tview.Flex

	// Only touched on the tview goroutine
	camera  Camera
	lastRep *history.RepRecord

	waitGroup sync.WaitGroup
}

// NewRaceViewArg holds the arguments for creating a new RaceView
type NewRaceViewArg struct {
	Logger  zerolog.Logger
	App     *tview.Application
	Clock   clockwork.Clock
	Strokes chan<- pedal.Stroke             // Keyboard strokes are sent here
	Frames  *events.Feed[race.Frame]        // Session frames to render
	Lines   *events.Feed[string]            // Optional log lines for the log pane
	Reps    *events.Feed[history.RepRecord] // Optional recorded reps
}

// NewRaceView builds the widgets. Nothing is drawn until Run.
func NewRaceView(args NewRaceViewArg) *RaceView {
	if args.App == nil {
		panic("RaceView: app cannot be nil")
	}
	if args.Clock == nil {
		panic("RaceView: clock cannot be nil")
	}
	if args.Strokes == nil {
		panic("RaceView: strokes cannot be nil")
	}
	if args.Frames == nil {
		panic("RaceView: frames cannot be nil")
	}

	v := &RaceView{
		logger:  args.Logger.With().Str("component", "RaceView").Logger(),
		app:     args.App,
		clock:   args.Clock,
		strokes: args.Strokes,
		frames:  args.Frames,
		lines:   args.Lines,
		reps:    args.Reps,
	}

	v.trackView = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	v.trackView.SetBorder(true).SetTitle(" Track ")

	v.statsView = tview.NewTextView().SetDynamicColors(true)
	v.statsView.SetBorder(true).SetTitle(" Race ")

	v.ghostsView = tview.NewTextView().SetDynamicColors(true)
	v.ghostsView.SetBorder(true).SetTitle(" Pacers ")

	// No SetChangedFunc redraw here: it can hang once the app has stopped
	v.logView = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetMaxLines(maxLogLines)
	v.logView.SetBorder(true).SetTitle(" Logs ")

	instructions := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]Space[white] Pedal  |  [yellow]Esc[white]/[yellow]q[white] Quit")

	panels := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(v.statsView, 0, 1, false).
		AddItem(v.ghostsView, 0, 1, false)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructions, 1, 0, false).
		AddItem(v.trackView, 0, 1, true).
		AddItem(panels, 0, 1, false)

	// Race on the left, logs on the right
	v.root = tview.NewFlex().
		AddItem(left, 0, 2, true).
		AddItem(v.logView, 0, 1, false)

	v.app.SetInputCapture(v.handleKey)
	return v
}

func (v *RaceView) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyEscape,
		event.Key() == tcell.KeyRune && (event.Rune() == 'q' || event.Rune() == 'Q'):
		v.app.Stop()
		return nil
	case event.Key() == tcell.KeyRune && event.Rune() == ' ':
		select {
		case v.strokes <- pedal.Stroke{At: v.clock.Now()}:
		default:
			v.logger.Warn().Msg("stroke queue full, dropping keyboard stroke")
		}
		return nil
	}
	return event
}

// Run draws the view until the user quits or ctx is done
func (v *RaceView) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		v.waitGroup.Wait()
	}()

	v.listen(ctx)

	stop := context.AfterFunc(ctx, v.app.Stop)
	defer stop()

	v.app.SetRoot(v.root, true)
	if err := v.app.Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

func (v *RaceView) listen(ctx context.Context) {
	frameChan := make(chan race.Frame, 1)
	unregister := v.frames.Listen(frameChan)
	v.waitGroup.Add(1)
	go_func_utils.SafeGo(v.logger, func() {
		defer v.waitGroup.Done()
		defer unregister()
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-frameChan:
				v.app.QueueUpdateDraw(func() { v.render(frame) })
			}
		}
	})

	if v.lines != nil {
		lineChan := make(chan string, lineQueueLen)
		unregister := v.lines.Listen(lineChan)
		v.waitGroup.Add(1)
		go_func_utils.SafeGo(v.logger, func() {
			defer v.waitGroup.Done()
			defer unregister()
			for {
				select {
				case <-ctx.Done():
					return
				case line := <-lineChan:
					v.app.QueueUpdateDraw(func() {
						fmt.Fprintln(v.logView, line)
						v.logView.ScrollToEnd()
					})
				}
			}
		})
	}

	if v.reps != nil {
		repChan := make(chan history.RepRecord, 1)
		unregister := v.reps.Listen(repChan)
		v.waitGroup.Add(1)
		go_func_utils.SafeGo(v.logger, func() {
			defer v.waitGroup.Done()
			defer unregister()
			for {
				select {
				case <-ctx.Done():
					return
				case rec := <-repChan:
					v.app.QueueUpdate(func() { v.lastRep = &rec })
				}
			}
		})
	}
}

// render runs on the tview goroutine
func (v *RaceView) render(frame race.Frame) {
	if len(frame.Lanes) == 0 {
		return
	}
	v.camera.Follow(frame.Live().Position)

	_, _, width, _ := v.trackView.GetInnerRect()
	// lane label takes two cells
	v.trackView.SetText(RenderTrack(frame, v.camera, width-2))
	v.statsView.SetText(RenderStats(frame, v.lastRep))
	v.ghostsView.SetText(RenderGhosts(frame))
}
