package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/guidify/internal/activity"
	"github.com/joseph-ayodele/guidify/internal/common"
)

type loaderFunc func(ctx context.Context, userID string) (activity.Record, error)

func (f loaderFunc) LoadActivity(ctx context.Context, userID string) (activity.Record, error) {
	return f(ctx, userID)
}

func rows(t *testing.T, b []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	out, err := f.GetRows(sheet)
	require.NoError(t, err)
	return out
}

func sampleRecord() activity.Record {
	last := time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)
	return activity.Record{
		Streak:        3,
		LastEventDate: &last,
		Heatmap:       activity.Heatmap{"2025-01-03": 6, "2025-01-01": 1, "2025-01-02": 1},
	}
}

func TestHeatmapXLSX(t *testing.T) {
	b, err := HeatmapXLSX(sampleRecord())
	require.NoError(t, err)

	got := rows(t, b, "Activity")
	assert.Equal(t, [][]string{
		{"Date", "Count"},
		{"2025-01-01", "1"},
		{"2025-01-02", "1"},
		{"2025-01-03", "6"},
	}, got)

	summary := rows(t, b, "Summary")
	assert.Equal(t, []string{"Login Streak", "3"}, summary[0])
	assert.Equal(t, []string{"Last Login", "2025-01-03"}, summary[1])
	assert.Equal(t, []string{"Total Activity", "8"}, summary[3])
}

func TestHeatmapXLSX_EmptyRecord(t *testing.T) {
	b, err := HeatmapXLSX(activity.Record{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Date", "Count"}}, rows(t, b, "Activity"))
}

func TestExportHeatmapXLSX_Window(t *testing.T) {
	svc := NewService(loaderFunc(func(context.Context, string) (activity.Record, error) {
		return sampleRecord(), nil
	}), nil)

	from := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC)
	b, err := svc.ExportHeatmapXLSX(context.Background(), "u1", &from, &to)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Date", "Count"}, {"2025-01-02", "1"}}, rows(t, b, "Activity"))

	b, err = svc.ExportHeatmapXLSX(context.Background(), "u1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows(t, b, "Activity"), 4)
}

func TestWindow_FromOnlyEndsToday(t *testing.T) {
	from := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	f, to := window(&from, nil, now)
	assert.Equal(t, "2025-01-02", f)
	assert.Equal(t, "2025-02-01", to)

	f, to = window(nil, nil, now)
	assert.Empty(t, f)
	assert.Empty(t, to)
}

func TestExportHeatmapXLSX_StoreError(t *testing.T) {
	svc := NewService(loaderFunc(func(context.Context, string) (activity.Record, error) {
		return activity.Record{}, errors.New("db down")
	}), nil)
	_, err := svc.ExportHeatmapXLSX(context.Background(), "u1", nil, nil)
	assert.ErrorContains(t, err, "db down")
}

func TestProfilesXLSX(t *testing.T) {
	marks := 87
	cgpa := 8.4
	b, err := ProfilesXLSX([]ProfileRow{
		{Path: "/in/marksheet.pdf", Format: "PDF", Provenance: "native", Marks: &marks},
		{Path: "/in/resume.docx", Format: "DOCX", Provenance: "native", CGPA: &cgpa, Skills: []string{"Go", "SQL"}},
		{Path: "/in/notes.xyz", Err: common.NewAppError("UNSUPPORTED", "unsupported file format", common.ErrUnsupportedFormat)},
	})
	require.NoError(t, err)

	got := rows(t, b, "Documents")
	require.Len(t, got, 4)
	assert.Equal(t, []string{"File", "Format", "Provenance", "Marks", "CGPA", "Skills", "Error"}, got[0])
	assert.Equal(t, "87", got[1][3])
	assert.Equal(t, "8.4", got[2][4])
	assert.Equal(t, "Go, SQL", got[2][5])
	assert.Equal(t, "unsupported file format", got[3][6])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
