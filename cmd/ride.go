package main

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/aero-race/internal/config"
	"github.com/lowaak/aero-race/internal/engine"
	"github.com/lowaak/aero-race/internal/events"
	"github.com/lowaak/aero-race/internal/go_func_utils"
	"github.com/lowaak/aero-race/internal/history"
	"github.com/lowaak/aero-race/internal/logging"
	"github.com/lowaak/aero-race/internal/pedal"
	"github.com/lowaak/aero-race/internal/race"
	"github.com/lowaak/aero-race/internal/ui"
)

func newRideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ride",
		Short: "Race the pacers (default command)",
		RunE:  runRideCmd,
	}
	addRideFlags(cmd)
	return cmd
}

func addRideFlags(cmd *cobra.Command) {
	cmd.Flags().String("pedal-source", "", "pedal source: websocket, ble or keyboard")
	cmd.Flags().String("websocket-url", "", "pedal bridge websocket url")
	cmd.Flags().String("ble-address", "", "only connect to the cadence sensor with this address")
	cmd.Flags().Int("lanes", 0, "lanes including your own")
	cmd.Flags().Bool("restore-ghosts", false, "continue the pacer rotation saved by the previous ride")
}

func runRideCmd(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	raceCfg, err := config.RaceConfig(v)
	if err != nil {
		return err
	}
	tickInterval, err := config.TickInterval(v)
	if err != nil {
		return err
	}
	pedalSettings, err := config.Pedal(v)
	if err != nil {
		return err
	}
	logSettings, err := config.Log(v)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to the file and the log pane
	lines := events.NewFeed[string](false)
	logger, closeLog := logging.New(logSettings, lines)
	defer func() {
		_ = closeLog()
	}()
	clock := clockwork.NewRealClock()

	historySettings := config.HistorySettings(v)
	sinks, err := history.OpenSinks(historySettings, logger)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	recorder := history.NewRecorder(logger, clock, sinks...)
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing history")
		}
	}()

	session, err := race.NewSession(raceCfg, recorder)
	if err != nil {
		return err
	}
	if v.GetBool(config.KeyRestoreGhosts) {
		restoreGhosts(session, historySettings.GhostStatePath, logger)
	}

	loop := engine.NewLoop(session, clock, tickInterval, logger)
	source := newPedalSource(pedalSettings, raceCfg.GearRatio, clock, logger)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go_func_utils.SafeGo(logger, func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("race loop stopped")
		}
	})
	if source != nil {
		wg.Add(1)
		go_func_utils.SafeGo(logger, func() {
			defer wg.Done()
			if err := source.Run(ctx, loop.Strokes()); err != nil {
				logger.Error().Err(err).Str("source", pedalSettings.Source).Msg("pedal source stopped")
			}
		})
	}

	logger.Info().
		Str("source", pedalSettings.Source).
		Int("lanes", raceCfg.Lanes).
		Int("rep_count", session.RepCount()).
		Msg("ride started")

	view := ui.NewRaceView(ui.NewRaceViewArg{
		Logger:  logger,
		App:     tview.NewApplication(),
		Clock:   clock,
		Strokes: loop.Strokes(),
		Frames:  loop.Frames(),
		Lines:   lines,
		Reps:    recorder.Recorded,
	})
	err = view.Run(ctx)

	cancel()
	wg.Wait()
	return err
}

func restoreGhosts(session *race.Session, path string, logger zerolog.Logger) {
	if path == "" {
		return
	}
	state, ok := history.LoadGhostState(path, logger)
	if !ok {
		return
	}
	if err := session.Restore(state.RepCount, state.Ghosts); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("ignoring saved ghost state")
		return
	}
	logger.Info().Int("rep_count", state.RepCount).Msg("restored ghost state")
}

// newPedalSource returns nil for the keyboard source, whose strokes come
// from the race view
func newPedalSource(settings config.PedalSettings, gearRatio float64, clock clockwork.Clock, logger zerolog.Logger) pedal.Source {
	switch settings.Source {
	case config.SourceWebSocket:
		return pedal.NewWebSocketSource(settings.WebSocketURL, settings.ReconnectDelay, clock, logger)
	case config.SourceBLE:
		return pedal.NewBLESource(bluetooth.DefaultAdapter, settings.BLEAddress, settings.BLEScanTimeout, gearRatio, clock, logger)
	default:
		return nil
	}
}
