package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/repository"
)

const (
	SheetSuccesses = "Successes"
	SheetFailures  = "Failures"
	SheetBatch     = "Batch"
	SheetRules     = "Rules"
)

// Service produces XLSX workbooks from tactic memory and run results.
type Service struct {
	memory repository.TacticMemory
	logger *slog.Logger
}

func NewService(memory repository.TacticMemory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{memory: memory, logger: logger}
}

// ExportHistoryXLSX returns a workbook with the success and failure history of
// family, oldest first.
func (s *Service) ExportHistoryXLSX(ctx context.Context, family string) ([]byte, error) {
	start := time.Now()
	successes, failures, err := s.memory.History(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sw, err := newSheet(f, SheetSuccesses, []string{"ID", "Recorded At", "Score", "Tactic"})
	if err != nil {
		return nil, err
	}
	for _, r := range successes {
		sw.row(r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Score, truncate(r.Tactic, 32000))
	}
	sw.widths(map[string]float64{"A": 8, "B": 22, "C": 10, "D": 100})

	fw, err := newSheet(f, SheetFailures, []string{"ID", "Recorded At", "Tactic", "Errors"})
	if err != nil {
		return nil, err
	}
	for _, r := range failures {
		fw.row(r.ID, r.CreatedAt.UTC().Format(time.RFC3339), truncate(r.Tactic, 32000), truncate(strings.Join(r.Errors, "\n"), 32000))
	}
	fw.widths(map[string]float64{"A": 8, "B": 22, "C": 80, "D": 80})

	if err := activate(f, SheetSuccesses); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.history.ok",
		"family", family,
		"successes", len(successes),
		"failures", len(failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportBatchXLSX returns a workbook describing one run: per-case scores and
// the rules in force when it ended.
func (s *Service) ExportBatchXLSX(res entity.BatchResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	bw, err := newSheet(f, SheetBatch, []string{"Case", "Document", "Pages", "Fields", "Score"})
	if err != nil {
		return nil, err
	}
	for _, c := range res.BatchQueue {
		bw.row(c.CaseID, c.DocumentPath, c.Pages, c.FieldCount, c.Score)
	}
	bw.row()
	bw.row("Best average", "", "", "", res.BestAvgScore)
	bw.row("Last average", "", "", "", res.LastAvgScore)
	bw.row("Attempts", "", "", "", res.Attempts)
	bw.widths(map[string]float64{"A": 24, "B": 60, "C": 8, "D": 8, "E": 10})

	rw, err := newSheet(f, SheetRules, []string{"Field", "Rule"})
	if err != nil {
		return nil, err
	}
	ids := make(entity.Expected, len(res.Rules))
	for id := range res.Rules {
		ids[id] = entity.FieldValue{}
	}
	for _, id := range ids.FieldIDs() {
		rw.row(id, res.Rules[id])
	}
	rw.widths(map[string]float64{"A": 12, "B": 24})

	if err := activate(f, SheetBatch); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.batch.ok", "family", res.Family, "run_id", res.RunID, "rows", len(res.BatchQueue))
	return buf.Bytes(), nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
}

func newSheet(f *excelize.File, name string, headers []string) (*sheetWriter, error) {
	if index, _ := f.GetSheetIndex(name); index == -1 {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	w := &sheetWriter{f: f, sheet: name, next: 1}
	hs := make([]any, len(headers))
	for i, h := range headers {
		hs[i] = h
	}
	w.row(hs...)
	return w, nil
}

func (w *sheetWriter) row(values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, w.next)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
	w.next++
}

func (w *sheetWriter) widths(cols map[string]float64) {
	for col, width := range cols {
		_ = w.f.SetColWidth(w.sheet, col, col, width)
	}
}

// activate drops the default sheet excelize starts with and selects sheet.
func activate(f *excelize.File, sheet string) error {
	if i, _ := f.GetSheetIndex("Sheet1"); i != -1 && sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

// truncate keeps cells under the XLSX cell length limit.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
