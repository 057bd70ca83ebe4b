package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/lowaak/aero-race/internal/timefmt"
)

var (
	reportTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	reportHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Report renders reps as an aligned table
func Report(records []RepRecord) string {
	if len(records) == 0 {
		return "No reps logged yet.\n"
	}

	headers := []string{"Rep", "Finished", "Distance", "Time", "Pace", "Ghost"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		split, _ := rec.LastSplit()
		ghost := "-"
		if rec.GhostLane > 0 {
			ghost = fmt.Sprintf("lane %d", rec.GhostLane)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.Rep),
			humanize.Time(rec.FinishedAt),
			humanize.Comma(int64(split.Distance)) + "m",
			timefmt.FormatTime(split.Elapsed),
			timefmt.FormatPace(rec.Pace),
			ghost,
		})
	}

	lines := formatTable(headers, rows, map[int]bool{0: true, 2: true, 3: true, 4: true})
	var b strings.Builder
	b.WriteString(reportTitleStyle.Render(fmt.Sprintf("%d reps", len(records))))
	b.WriteString("\n")
	for i, line := range lines {
		if i == 0 {
			line = reportHeaderStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, formatRow(headers, widths, rightAlignCols))
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		if rightAlignCols[i] {
			b.WriteString(runewidth.FillLeft(cell, widths[i]))
		} else {
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
	}
	return strings.TrimRight(b.String(), " ")
}
