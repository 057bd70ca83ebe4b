// Package history persists finished reps: a plain text log, SQLite and
// Badger stores, and the ghost state carried across restarts.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/lowaak/aero-race/internal/race"
)

// SplitRecord is a persisted race.Split
type SplitRecord struct {
	Distance float64 `json:"distance" msgpack:"distance"`
	Elapsed  float64 `json:"elapsed" msgpack:"elapsed"`
}

// RepRecord is the persisted form of a finished rep
type RepRecord struct {
	ID         string          `json:"id" msgpack:"id"`
	Rep        int             `json:"rep" msgpack:"rep"`
	RepCount   int             `json:"rep_count" msgpack:"rep_count"`
	Distance   float64         `json:"distance" msgpack:"distance"`
	Elapsed    float64         `json:"elapsed" msgpack:"elapsed"`
	Pace       float64         `json:"pace" msgpack:"pace"`
	GhostLane  int             `json:"ghost_lane" msgpack:"ghost_lane"`
	Splits     []SplitRecord   `json:"splits" msgpack:"splits"`
	Ghosts     map[int]float64 `json:"ghosts" msgpack:"ghosts"`
	FinishedAt time.Time       `json:"finished_at" msgpack:"finished_at"`
}

// NewRepRecord converts a rep result. IDs are k-sortable by finishedAt.
func NewRepRecord(result race.RepResult, finishedAt time.Time) (RepRecord, error) {
	id, err := ksuid.NewRandomWithTime(finishedAt)
	if err != nil {
		return RepRecord{}, fmt.Errorf("failed to generate rep id: %w", err)
	}
	rec := RepRecord{
		ID:         id.String(),
		Rep:        result.Rep,
		RepCount:   result.RepCount,
		Distance:   result.Distance,
		Elapsed:    result.Elapsed,
		Pace:       result.Pace,
		GhostLane:  result.GhostLane,
		Splits:     make([]SplitRecord, 0, len(result.Splits)),
		Ghosts:     map[int]float64(result.Ghosts.Clone()),
		FinishedAt: finishedAt.UTC(),
	}
	for _, s := range result.Splits {
		rec.Splits = append(rec.Splits, SplitRecord{Distance: s.Distance, Elapsed: s.Elapsed})
	}
	return rec, nil
}

// LastSplit returns the final split, which is what gets logged for a rep
func (r RepRecord) LastSplit() (SplitRecord, bool) {
	if len(r.Splits) == 0 {
		return SplitRecord{}, false
	}
	return r.Splits[len(r.Splits)-1], true
}

// Completed reports whether the rider crossed at least one split mark. Reps
// that stop short of the first mark are not logged.
func (r RepRecord) Completed() bool {
	return len(r.Splits) > 0
}

// Sink receives every finished rep
type Sink interface {
	Append(ctx context.Context, rec RepRecord) error
	Close() error
}

// Lister reads back logged reps, newest first. limit <= 0 returns all.
type Lister interface {
	List(ctx context.Context, limit int) ([]RepRecord, error)
}
