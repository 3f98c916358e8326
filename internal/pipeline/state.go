package pipeline

import (
	"maps"
	"slices"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// Round is the outcome of one extract-validate pass.
type Round struct {
	Attempt int     `json:"attempt"`
	Score   float64 `json:"score"`
	Tactic  string  `json:"tactic"`
}

// State is one snapshot of an optimization run. Stages never mutate the
// snapshot they receive; they return a new one. Cases are shared read-only.
type State struct {
	RunID            string
	Family           string
	Cases            []entity.Case
	BaseInstructions string
	Guide            string

	Tactic     string
	Rules      entity.Rules
	Attempts   int
	AvgScore   float64
	BestScore  float64
	BestTactic string

	Extractions map[string]entity.Extraction
	Mismatches  []entity.Mismatch
	Scores      []entity.DocumentScore
	Rounds      []Round

	Final bool
	Phase constants.State

	ArtifactPath    string
	ArtifactErr     string
	MemoryErrors    int
	OptimizerErrors int
}

// NewState builds the initial snapshot of a run. tactic may be empty (cold
// start) or a tactic resumed from a master artifact or from memory.
func NewState(runID, family string, cases []entity.Case, baseInstructions, tactic string, rules entity.Rules) State {
	return State{
		RunID:            runID,
		Family:           family,
		Cases:            cases,
		BaseInstructions: baseInstructions,
		Tactic:           tactic,
		Rules:            rules.Clone(),
		Extractions:      map[string]entity.Extraction{},
		Phase:            constants.StateExtract,
	}
}

// Clone returns a deep copy of everything a stage may replace.
func (s State) Clone() State {
	out := s
	out.Cases = slices.Clone(s.Cases)
	out.Rules = s.Rules.Clone()
	out.Extractions = make(map[string]entity.Extraction, len(s.Extractions))
	for id, ex := range s.Extractions {
		out.Extractions[id] = maps.Clone(ex)
	}
	out.Mismatches = slices.Clone(s.Mismatches)
	out.Scores = slices.Clone(s.Scores)
	out.Rounds = slices.Clone(s.Rounds)
	return out
}

// FieldIDs is the sorted union of expected field ids across the batch.
func (s State) FieldIDs() []string {
	all := entity.Expected{}
	for _, c := range s.Cases {
		for id := range c.Expected {
			all[id] = entity.FieldValue{}
		}
	}
	return all.FieldIDs()
}

// Result projects the snapshot onto the record a run reports.
func (s State) Result() entity.BatchResult {
	var best *string
	if s.BestTactic != "" {
		t := s.BestTactic
		best = &t
	}

	perDoc := make(map[string]float64, len(s.Scores))
	for _, ds := range s.Scores {
		perDoc[ds.DocumentID] = ds.Score
	}
	queue := make([]entity.CaseMeta, 0, len(s.Cases))
	for _, c := range s.Cases {
		meta := c.Meta()
		meta.Score = perDoc[c.ID]
		queue = append(queue, meta)
	}

	return entity.BatchResult{
		RunID:          s.RunID,
		Family:         s.Family,
		BestAvgScore:   s.BestScore,
		BestTactic:     best,
		OriginalPrompt: s.BaseInstructions,
		Attempts:       s.Attempts,
		LastAvgScore:   s.AvgScore,
		Final:          s.Final,
		BatchQueue:     queue,
		Rules:          s.Rules.Clone(),
		ArtifactPath:   s.ArtifactPath,
		ArtifactError:  s.ArtifactErr,
	}
}
