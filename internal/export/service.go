package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/guidify/internal/activity"
	"github.com/joseph-ayodele/guidify/internal/common"
)

// ActivityLoader reads a user's activity record.
type ActivityLoader interface {
	LoadActivity(ctx context.Context, userID string) (activity.Record, error)
}

// Service produces XLSX bytes for activity exports.
type Service struct {
	store  ActivityLoader
	logger *slog.Logger
}

func NewService(store ActivityLoader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportHeatmapXLSX returns the user's heatmap as a workbook.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> every recorded day.
func (s *Service) ExportHeatmapXLSX(ctx context.Context, userID string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	rec, err := s.store.LoadActivity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	rec = activity.Migrate(rec)

	fromKey, toKey := window(from, to, time.Now())
	filtered := activity.Heatmap{}
	for d, c := range rec.Heatmap {
		if (fromKey == "" || d >= fromKey) && (toKey == "" || d <= toKey) {
			filtered[d] = c
		}
	}
	rec.Heatmap = filtered

	b, err := HeatmapXLSX(rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.heatmap.ok",
		"user_id", userID,
		"rows", len(filtered),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// window turns an optional date range into inclusive heatmap keys.
func window(from, to *time.Time, now time.Time) (string, string) {
	var fromKey, toKey string
	if from != nil {
		fromKey = from.UTC().Format(activity.DateLayout)
	}
	if to != nil {
		toKey = to.UTC().Format(activity.DateLayout)
	}
	if fromKey != "" && toKey == "" {
		toKey = now.UTC().Format(activity.DateLayout)
	}
	return fromKey, toKey
}

// HeatmapXLSX writes a record as two sheets: the day-by-day counts and a
// summary of the streak.
func HeatmapXLSX(rec activity.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Activity"
	if err := useSheet(f, sheet); err != nil {
		return nil, err
	}
	writeRow(f, sheet, 1, "Date", "Count")

	row := 2
	total := 0
	for _, d := range rec.Heatmap.Dates() {
		writeRow(f, sheet, row, d, rec.Heatmap[d])
		total += rec.Heatmap[d]
		row++
	}
	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 10)

	const summary = "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, err
	}
	last := ""
	if rec.LastEventDate != nil {
		last = rec.LastEventDate.UTC().Format(activity.DateLayout)
	}
	writeRow(f, summary, 1, "Login Streak", rec.Streak)
	writeRow(f, summary, 2, "Last Login", last)
	writeRow(f, summary, 3, "Active Days", len(rec.Heatmap))
	writeRow(f, summary, 4, "Total Activity", total)
	_ = f.SetColWidth(summary, "A", "A", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// ProfileRow is one processed document in a batch summary.
type ProfileRow struct {
	Path       string
	Format     string
	Provenance string
	Marks      *int
	CGPA       *float64
	Skills     []string
	Err        error
}

// ProfilesXLSX writes a batch extraction summary, one document per row.
func ProfilesXLSX(rows []ProfileRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Documents"
	if err := useSheet(f, sheet); err != nil {
		return nil, err
	}
	writeRow(f, sheet, 1, "File", "Format", "Provenance", "Marks", "CGPA", "Skills", "Error")

	for i, r := range rows {
		var marks, cgpa any = "", ""
		if r.Marks != nil {
			marks = *r.Marks
		}
		if r.CGPA != nil {
			cgpa = *r.CGPA
		}
		errText := ""
		if r.Err != nil {
			errText = truncate(common.Message(r.Err), 140)
		}
		writeRow(f, sheet, i+2, r.Path, r.Format, r.Provenance, marks, cgpa, strings.Join(r.Skills, ", "), errText)
	}

	_ = f.SetColWidth(sheet, "A", "A", 60) // path
	_ = f.SetColWidth(sheet, "B", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 48) // skills
	_ = f.SetColWidth(sheet, "G", "G", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// useSheet renames the default sheet so the workbook opens on name.
func useSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return err
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
