package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/aero-race/internal/race"
)

var finishedAt = time.Date(2024, 5, 1, 18, 3, 11, 0, time.UTC)

func completedResult(rep int) race.RepResult {
	return race.RepResult{
		Rep:       rep,
		RepCount:  rep,
		Distance:  1263.4,
		Elapsed:   246.3,
		Splits:    []race.Split{{Distance: 1200, Elapsed: 233.5}, {Distance: 1250, Elapsed: 245.12}},
		Pace:      1250 / 245.12,
		GhostLane: 1,
		Ghosts:    race.GhostAssignment{1: 1250 / 245.12, 2: 4.4704},
	}
}

func newRecord(t *testing.T, rep int, at time.Time) RepRecord {
	t.Helper()
	rec, err := NewRepRecord(completedResult(rep), at)
	require.NoError(t, err)
	return rec
}

func TestNewRepRecord(t *testing.T) {
	rec := newRecord(t, 3, finishedAt)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 3, rec.Rep)
	assert.Equal(t, []SplitRecord{{1200, 233.5}, {1250, 245.12}}, rec.Splits)
	assert.Equal(t, map[int]float64{1: 1250 / 245.12, 2: 4.4704}, rec.Ghosts)
	assert.True(t, rec.Completed())

	later := newRecord(t, 4, finishedAt.Add(time.Minute))
	assert.Greater(t, later.ID, rec.ID)

	empty, err := NewRepRecord(race.RepResult{Rep: 1, RepCount: 1}, finishedAt)
	require.NoError(t, err)
	assert.False(t, empty.Completed())
}

func TestFormatLine(t *testing.T) {
	rec := newRecord(t, 1, finishedAt)
	assert.Equal(t, "1,250m: 4:05.12 (2024-05-01T18:03:11.000Z)", FormatLine(rec))
}

func TestTextLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reps.log")
	log := NewTextLog(path)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, newRecord(t, 1, finishedAt)))
	incomplete, err := NewRepRecord(race.RepResult{Rep: 2, RepCount: 2}, finishedAt)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, incomplete))
	require.NoError(t, log.Append(ctx, newRecord(t, 3, finishedAt.Add(time.Hour))))
	require.NoError(t, log.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, []string{
		"1,250m: 4:05.12 (2024-05-01T18:03:11.000Z)",
		"1,250m: 4:05.12 (2024-05-01T19:03:11.000Z)",
	}, lines)
}

func TestTextLog_AppendFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be
	path := filepath.Join(dir, "reps.log")
	require.NoError(t, os.Mkdir(path, 0755))

	err := NewTextLog(path).Append(context.Background(), newRecord(t, 1, finishedAt))
	assert.Error(t, err)
}

func assertSameRecord(t *testing.T, want, got RepRecord) {
	t.Helper()
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt), "finished_at %v != %v", want.FinishedAt, got.FinishedAt)
	want.FinishedAt, got.FinishedAt = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func testListerStore(t *testing.T, store interface {
	Sink
	Lister
}) {
	ctx := context.Background()
	first := newRecord(t, 1, finishedAt)
	second := newRecord(t, 2, finishedAt.Add(5*time.Minute))
	third := newRecord(t, 3, finishedAt.Add(10*time.Minute))
	incomplete, err := NewRepRecord(race.RepResult{Rep: 4, RepCount: 4}, finishedAt.Add(15*time.Minute))
	require.NoError(t, err)

	for _, rec := range []RepRecord{first, second, third, incomplete} {
		require.NoError(t, store.Append(ctx, rec))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assertSameRecord(t, third, all[0])
	assertSameRecord(t, second, all[1])
	assertSameRecord(t, first, all[2])

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, third.ID, limited[0].ID)
	assert.Equal(t, second.ID, limited[1].ID)
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "reps.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	testListerStore(t, store)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "reps.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	rec := newRecord(t, 1, finishedAt)
	require.NoError(t, store.Append(ctx, rec))
	assert.Error(t, store.Append(ctx, rec))

	// The failed transaction left nothing behind
	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Splits, 2)
}

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadger("")
	require.NoError(t, err)
	defer store.Close()

	testListerStore(t, store)
}

func TestGhostStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ghosts.json")
	logger := zerolog.Nop()

	_, ok := LoadGhostState(path, logger)
	assert.False(t, ok)

	sink := NewGhostStateFile(path, logger)
	require.NoError(t, sink.Append(context.Background(), newRecord(t, 7, finishedAt)))

	// Reps without splits still move the rotation forward
	incomplete, err := NewRepRecord(race.RepResult{
		Rep: 8, RepCount: 8, Ghosts: race.GhostAssignment{1: 2, 3: 3.5},
	}, finishedAt)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), incomplete))

	state, ok := LoadGhostState(path, logger)
	require.True(t, ok)
	assert.Equal(t, 8, state.RepCount)
	assert.Equal(t, race.GhostAssignment{1: 2, 3: 3.5}, state.Ghosts)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, ok = LoadGhostState(path, logger)
	assert.False(t, ok)
}

type memorySink struct {
	mu      sync.Mutex
	records []RepRecord
	err     error
	closed  bool
}

func (m *memorySink) Append(_ context.Context, rec RepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *memorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.err
}

func (m *memorySink) snapshot() []RepRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RepRecord(nil), m.records...)
}

func TestRecorder(t *testing.T) {
	clock := clockwork.NewFakeClockAt(finishedAt)
	failing := &memorySink{err: errors.New("disk full")}
	healthy := &memorySink{}
	recorder := NewRecorder(zerolog.Nop(), clock, failing, healthy)

	recorded := make(chan RepRecord, 4)
	recorder.Recorded.Listen(recorded)

	recorder.RecordRep(completedResult(1))
	recorder.RecordRep(race.RepResult{Rep: 2, RepCount: 2})

	select {
	case rec := <-recorded:
		assert.Equal(t, 1, rec.Rep)
		assert.True(t, rec.FinishedAt.Equal(finishedAt))
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for recorded rep")
	}

	err := recorder.Close()
	assert.ErrorContains(t, err, "disk full")

	// A failing sink does not stop the others
	assert.Len(t, failing.snapshot(), 2)
	got := healthy.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rep)
	assert.Equal(t, 2, got[1].Rep)
	assert.True(t, healthy.closed)

	// Closed recorders drop silently, and closing twice is fine
	recorder.RecordRep(completedResult(3))
	assert.Equal(t, err, recorder.Close())
	assert.Len(t, healthy.snapshot(), 2)
}

func TestReport(t *testing.T) {
	assert.Equal(t, "No reps logged yet.\n", Report(nil))

	recs := []RepRecord{newRecord(t, 2, finishedAt), newRecord(t, 1, finishedAt)}
	recs[1].GhostLane = 0
	recs[1].Pace = 0
	out := Report(recs)

	assert.Contains(t, out, "2 reps")
	assert.Contains(t, out, "1,250m")
	assert.Contains(t, out, "4:05.12")
	assert.Contains(t, out, "lane 1")
	assert.Contains(t, out, "1:38.04/500m")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
}

func TestFormatTableAlignsColumns(t *testing.T) {
	lines := formatTable(
		[]string{"Rep", "Distance"},
		[][]string{{"1", "50m"}, {"12", "1,250m"}},
		map[int]bool{0: true, 1: true},
	)
	assert.Equal(t, []string{
		"Rep  Distance",
		"  1       50m",
		" 12    1,250m",
	}, lines)
}

func TestOpenSinks(t *testing.T) {
	dir := t.TempDir()
	settings := Settings{
		TextLogPath:    filepath.Join(dir, "reps.log"),
		SQLitePath:     filepath.Join(dir, "reps.sqlite"),
		GhostStatePath: filepath.Join(dir, "ghosts.json"),
		Backends:       []string{BackendText, BackendSQLite},
	}
	sinks, err := OpenSinks(settings, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, sinks, 3)
	for _, s := range sinks {
		require.NoError(t, s.Close())
	}

	settings.Backends = []string{BackendText, "carrier-pigeon"}
	_, err = OpenSinks(settings, zerolog.Nop())
	assert.ErrorContains(t, err, "carrier-pigeon")

	lister, closeFn, err := OpenLister(Settings{SQLitePath: settings.SQLitePath, Backends: []string{BackendText, BackendSQLite}})
	require.NoError(t, err)
	require.NotNil(t, lister)
	require.NoError(t, closeFn())

	_, _, err = OpenLister(Settings{Backends: []string{BackendText}})
	assert.ErrorIs(t, err, ErrNoLister)
}
