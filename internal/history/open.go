package history

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Backend names accepted in Settings.Backends
const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Settings locate every history backend
type Settings struct {
	TextLogPath    string
	SQLitePath     string
	BadgerDir      string
	GhostStatePath string
	Backends       []string
}

// OpenSinks opens the configured backends plus the ghost state file. On error
// every sink opened so far is closed again.
func OpenSinks(settings Settings, logger zerolog.Logger) ([]Sink, error) {
	var sinks []Sink
	fail := func(err error) ([]Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	for _, backend := range settings.Backends {
		switch backend {
		case BackendText:
			sinks = append(sinks, NewTextLog(settings.TextLogPath))
		case BackendSQLite:
			store, err := OpenSQLite(settings.SQLitePath)
			if err != nil {
				return fail(fmt.Errorf("open sqlite %s: %w", settings.SQLitePath, err))
			}
			sinks = append(sinks, store)
		case BackendBadger:
			store, err := OpenBadger(settings.BadgerDir)
			if err != nil {
				return fail(fmt.Errorf("open badger %s: %w", settings.BadgerDir, err))
			}
			sinks = append(sinks, store)
		default:
			return fail(fmt.Errorf("unknown history backend %q", backend))
		}
	}
	if settings.GhostStatePath != "" {
		sinks = append(sinks, NewGhostStateFile(settings.GhostStatePath, logger))
	}
	return sinks, nil
}

// ErrNoLister is returned when no queryable backend is configured
var ErrNoLister = errors.New("no queryable history backend configured")

// OpenLister opens the first queryable backend in Backends order
func OpenLister(settings Settings) (Lister, func() error, error) {
	for _, backend := range settings.Backends {
		switch backend {
		case BackendSQLite:
			store, err := OpenSQLite(settings.SQLitePath)
			if err != nil {
				return nil, nil, err
			}
			return store, store.Close, nil
		case BackendBadger:
			store, err := OpenBadger(settings.BadgerDir)
			if err != nil {
				return nil, nil, err
			}
			return store, store.Close, nil
		}
	}
	return nil, nil, ErrNoLister
}
