package llm

import (
	"context"
	"encoding/base64"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// Image is one page of a case document, sent inline to vision models.
type Image struct {
	Path     string
	MimeType string
	Data     []byte
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Request is a provider-neutral single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Images      []Image
	JSON        bool // ask the provider for a JSON object response when it supports it
	Temperature float32
}

// Completer is the one capability every provider adapter implements.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

type OracleRequest struct {
	CaseID           string
	Tactic           string
	BaseInstructions string
	Images           []Image
	FieldIDs         []string
}

// OracleResult is the outcome of one extraction call. Fields is empty, never
// nil, when Err is set or the response held no usable JSON object.
type OracleResult struct {
	Fields entity.Extraction
	Raw    string
	Err    error
}

func (r OracleResult) Ok() bool { return r.Err == nil }

// Oracle extracts field values from the images of one case.
type Oracle interface {
	Extract(ctx context.Context, req OracleRequest) OracleResult
}

type OptimizerRequest struct {
	Family           string
	BaseInstructions string
	CurrentTactic    string
	FieldTags        []string
	Mismatches       []string
	RecentFailures   []string
	Rules            entity.Rules
	Guide            string
}

// OptimizerResult carries a proposed tactic and field rule changes.
type OptimizerResult struct {
	Tactic      string
	RuleUpdates map[string]string
	Err         error
}

func (r OptimizerResult) Ok() bool { return r.Err == nil && r.Tactic != "" }

// Optimizer proposes a corrective tactic from the last round's mismatches.
type Optimizer interface {
	Optimize(ctx context.Context, req OptimizerRequest) OptimizerResult
}

// Architect turns unstructured ground-truth text into expected values and rules.
type Architect interface {
	Structure(ctx context.Context, caseID, raw string) (entity.Expected, entity.Rules, error)
}
