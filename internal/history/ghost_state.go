package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lowaak/aero-race/internal/race"
)

// GhostState is what a later run needs to keep racing the same ghosts
type GhostState struct {
	RepCount int                  `json:"rep_count"`
	Ghosts   race.GhostAssignment `json:"ghosts"`
}

// GhostStateFile saves the ghost state after every rep, completed or not.
// Failures are logged and otherwise ignored.
type GhostStateFile struct {
	filePath string
	logger   zerolog.Logger
}

func NewGhostStateFile(filePath string, logger zerolog.Logger) *GhostStateFile {
	return &GhostStateFile{
		filePath: filePath,
		logger:   logger.With().Str("component", "GhostStateFile").Logger(),
	}
}

func (g *GhostStateFile) Append(_ context.Context, rec RepRecord) error {
	g.save(GhostState{RepCount: rec.RepCount, Ghosts: race.GhostAssignment(rec.Ghosts).Clone()})
	return nil
}

func (g *GhostStateFile) Close() error {
	return nil
}

func (g *GhostStateFile) save(state GhostState) {
	if err := os.MkdirAll(filepath.Dir(g.filePath), 0755); err != nil {
		g.logger.Error().Err(err).Msg("save mkdir failed")
		return
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		g.logger.Error().Err(err).Msg("save marshal failed")
		return
	}
	if err := os.WriteFile(g.filePath, raw, 0644); err != nil {
		g.logger.Error().Err(err).Str("path", g.filePath).Msg("save failed")
		return
	}
	g.logger.Debug().Str("path", g.filePath).Int("rep_count", state.RepCount).Msg("saved")
}

// LoadGhostState reads a saved state. ok is false when there is no usable file.
func LoadGhostState(filePath string, logger zerolog.Logger) (state GhostState, ok bool) {
	logger = logger.With().Str("component", "GhostStateFile").Logger()
	raw, err := os.ReadFile(filePath)
	if err != nil {
		logger.Info().Str("path", filePath).Msg("load: no existing file")
		return GhostState{}, false
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		logger.Warn().Err(err).Str("path", filePath).Msg("load: failed to parse")
		return GhostState{}, false
	}
	if state.Ghosts == nil {
		state.Ghosts = race.GhostAssignment{}
	}
	logger.Info().Str("path", filePath).Int("rep_count", state.RepCount).Msg("loaded")
	return state, true
}
