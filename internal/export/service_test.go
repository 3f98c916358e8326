package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/repository"
)

type historyMemory struct {
	repository.TacticMemory
	successes []entity.SuccessRecord
	failures  []entity.FailureRecord
}

func (h historyMemory) History(context.Context, string) ([]entity.SuccessRecord, []entity.FailureRecord, error) {
	return h.successes, h.failures, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openWorkbook(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportHistoryXLSX(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mem := historyMemory{
		successes: []entity.SuccessRecord{{ID: 1, Family: "fam", Tactic: "t1", Score: 87.5, CreatedAt: at}},
		failures: []entity.FailureRecord{
			{ID: 1, Family: "fam", Tactic: "t0", Errors: []string{"[CASE a] ID 1: expected 'x' vs actual 'y' (equals)", "second"}, CreatedAt: at},
		},
	}

	b, err := NewService(mem, quietLogger()).ExportHistoryXLSX(t.Context(), "fam")
	require.NoError(t, err)

	f := openWorkbook(t, b)
	assert.Equal(t, []string{SheetSuccesses, SheetFailures}, f.GetSheetList())

	rows, err := f.GetRows(SheetSuccesses)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ID", "Recorded At", "Score", "Tactic"}, rows[0])
	assert.Equal(t, []string{"1", "2026-03-01T10:00:00Z", "87.5", "t1"}, rows[1])

	rows, err = f.GetRows(SheetFailures)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "t0", rows[1][2])
	assert.Equal(t, "[CASE a] ID 1: expected 'x' vs actual 'y' (equals)\nsecond", rows[1][3])
}

func TestExportBatchXLSX(t *testing.T) {
	res := entity.BatchResult{
		Family:       "fam",
		BestAvgScore: 75,
		LastAvgScore: 50,
		Attempts:     2,
		BatchQueue: []entity.CaseMeta{
			{CaseID: "fam_1", DocumentPath: "/docs/fam_1.png", Pages: 1, FieldCount: 4, Score: 100},
			{CaseID: "fam_2", DocumentPath: "/docs/fam_2.png", Pages: 1, FieldCount: 4, Score: 0},
		},
		Rules: entity.Rules{"10": "equals", "2": "date_match"},
	}

	b, err := NewService(nil, quietLogger()).ExportBatchXLSX(res)
	require.NoError(t, err)

	f := openWorkbook(t, b)
	rows, err := f.GetRows(SheetBatch)
	require.NoError(t, err)
	assert.Equal(t, []string{"fam_1", "/docs/fam_1.png", "1", "4", "100"}, rows[1])
	assert.Equal(t, "Best average", rows[4][0])
	assert.Equal(t, "75", rows[4][4])

	rows, err = f.GetRows(SheetRules)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Field", "Rule"}, {"2", "date_match"}, {"10", "equals"}}, rows)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
