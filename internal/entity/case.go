package entity

// Case is one document of a family batch together with its ground truth.
type Case struct {
	ID           string   `json:"case_id"`
	DocumentPath string   `json:"doc_path"`
	TruthPath    string   `json:"truth_path,omitempty"`
	Pages        []string `json:"images"` // page image paths sent to the oracle, in order
	RawTruth     string   `json:"raw_truth,omitempty"`
	Expected     Expected `json:"expected_data"`
	Rules        Rules    `json:"rules,omitempty"`
}

// Meta strips the case down to what callers such as a UI display.
func (c Case) Meta() CaseMeta {
	return CaseMeta{
		CaseID:       c.ID,
		DocumentPath: c.DocumentPath,
		Pages:        len(c.Pages),
		FieldCount:   len(c.Expected),
	}
}

// CaseMeta describes one batch document in a BatchResult.
type CaseMeta struct {
	CaseID       string  `json:"case_id"`
	DocumentPath string  `json:"doc_path"`
	Pages        int     `json:"pages"`
	FieldCount   int     `json:"field_count"`
	Score        float64 `json:"score"`
}
