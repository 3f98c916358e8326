package entity

// DocumentScore is the validation outcome of one document in one attempt.
type DocumentScore struct {
	DocumentID string     `json:"document_id"`
	Score      float64    `json:"score"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// BatchResult is the fixed record a family run produces once it terminates.
type BatchResult struct {
	RunID          string     `json:"run_id"`
	Family         string     `json:"family"`
	BestAvgScore   float64    `json:"best_avg_score"`
	BestTactic     *string    `json:"best_tactic"` // nil when no attempt produced a tactic
	OriginalPrompt string     `json:"original_prompt"`
	Attempts       int        `json:"attempts"`
	LastAvgScore   float64    `json:"last_avg_score"`
	Final          bool       `json:"is_final"`
	BatchQueue     []CaseMeta `json:"batch_queue"`
	Rules          Rules      `json:"rules,omitempty"`
	ArtifactPath   string     `json:"artifact_path,omitempty"`
	ArtifactError  string     `json:"artifact_error,omitempty"`
}
