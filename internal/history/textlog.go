package history

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/lowaak/aero-race/internal/timefmt"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// TextLog appends one human readable line per completed rep
type TextLog struct {
	mu   sync.Mutex
	path string
}

func NewTextLog(path string) *TextLog {
	return &TextLog{path: path}
}

// FormatLine renders a rep as "1,250m: 4:05.12 (2024-05-01T18:03:11.000Z)"
func FormatLine(rec RepRecord) string {
	split, _ := rec.LastSplit()
	return fmt.Sprintf("%sm: %s (%s)",
		humanize.Comma(int64(math.Round(split.Distance))),
		timefmt.FormatTime(split.Elapsed),
		rec.FinishedAt.UTC().Format(isoMillis))
}

func (l *TextLog) Append(_ context.Context, rec RepRecord) error {
	if !rec.Completed() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("text log mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("text log open %s: %w", l.path, err)
	}
	if _, err := fmt.Fprintln(f, FormatLine(rec)); err != nil {
		f.Close()
		return fmt.Errorf("text log write %s: %w", l.path, err)
	}
	return f.Close()
}

func (l *TextLog) Close() error {
	return nil
}
