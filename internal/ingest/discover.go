package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joseph-ayodele/tactic-tuner/constants"
)

// Candidate is a ground-truth file paired with its document.
type Candidate struct {
	CaseID       string
	DocumentPath string
	TruthPath    string
	Format       string // constants.IMAGE or constants.PDF
}

// Skipped is a ground-truth file of the family that cannot join the batch.
type Skipped struct {
	CaseID string
	Path   string
	Reason string
}

// DirStats summarizes a discovery scan.
type DirStats struct {
	Scanned     uint32
	Matched     uint32
	Paired      uint32
	Unpaired    uint32
	Unsupported uint32
}

// Discover scans dir (not recursively) for expected_<case>.txt files whose
// case id contains family and pairs each with a <case>.<ext> document.
// Candidates come back ordered by case id.
func Discover(dir, family string) ([]Candidate, []Skipped, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(dir) == "" {
		return nil, nil, stats, errors.New("docs dir is required")
	}
	if strings.TrimSpace(family) == "" {
		return nil, nil, stats, errors.New("family is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, stats, fmt.Errorf("read docs dir: %w", err)
	}

	// documents by case id, in directory order
	docs := map[string][]string{}
	var truths []string
	for _, e := range entries {
		stats.Scanned++
		name := e.Name()
		if e.IsDir() || IsHidden(name) {
			continue
		}
		if _, ok := CaseIDFromTruth(name); ok {
			truths = append(truths, name)
			continue
		}
		ext := filepath.Ext(name)
		if AllowedExt(ext) {
			id := strings.TrimSuffix(name, ext)
			docs[id] = append(docs[id], name)
		}
	}

	var (
		out     []Candidate
		skipped []Skipped
	)
	for _, name := range truths {
		id, _ := CaseIDFromTruth(name)
		if !BelongsTo(id, family) {
			continue
		}
		stats.Matched++
		truthPath := filepath.Join(dir, name)

		doc, format := pickDocument(docs[id])
		switch format {
		case constants.IMAGE:
			stats.Paired++
			out = append(out, Candidate{
				CaseID:       id,
				DocumentPath: filepath.Join(dir, doc),
				TruthPath:    truthPath,
				Format:       format,
			})
		case constants.PDF:
			stats.Unsupported++
			skipped = append(skipped, Skipped{CaseID: id, Path: filepath.Join(dir, doc), Reason: "pdf documents are not rasterized; provide a page image"})
		default:
			stats.Unpaired++
			skipped = append(skipped, Skipped{CaseID: id, Path: truthPath, Reason: "no matching document"})
		}
	}

	slices.SortFunc(out, func(a, b Candidate) int { return strings.Compare(a.CaseID, b.CaseID) })
	slices.SortFunc(skipped, func(a, b Skipped) int { return strings.Compare(a.CaseID, b.CaseID) })
	return out, skipped, stats, nil
}

// pickDocument prefers an image over a pdf, then the lexically first name.
func pickDocument(names []string) (string, string) {
	names = slices.Sorted(slices.Values(names))
	pdf := ""
	for _, n := range names {
		switch constants.MapExtToFormat(filepath.Ext(n)) {
		case constants.IMAGE:
			return n, constants.IMAGE
		case constants.PDF:
			if pdf == "" {
				pdf = n
			}
		}
	}
	if pdf != "" {
		return pdf, constants.PDF
	}
	return "", ""
}
