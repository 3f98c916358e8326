package tuning

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tactic-tuner/internal/artifact"
	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/ingest"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
	"github.com/joseph-ayodele/tactic-tuner/internal/pipeline"
	"github.com/joseph-ayodele/tactic-tuner/internal/repository"
)

// oracle answers every field correctly once the tactic mentions "ANCHOR",
// and only the first field otherwise.
type oracle struct {
	mu      sync.Mutex
	tactics []string
}

func (o *oracle) Extract(_ context.Context, req llm.OracleRequest) llm.OracleResult {
	o.mu.Lock()
	o.tactics = append(o.tactics, req.Tactic)
	o.mu.Unlock()

	out := entity.Extraction{"1": {Value: "ACME SA"}, "2": {Value: "?"}}
	if strings.Contains(req.Tactic, "ANCHOR") {
		out["2"] = entity.FieldValue{Value: "2024-03-15"}
	}
	return llm.OracleResult{Fields: out}
}

func (o *oracle) first() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tactics[0]
}

type env struct {
	dir       string
	prompts   string
	oracle    *oracle
	memory    repository.TacticMemory
	artifacts *artifact.Store
	seeds     int
	svc       *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &env{dir: t.TempDir(), prompts: t.TempDir(), oracle: &oracle{}}

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "tuner.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, logger) })
	require.NoError(t, repository.Migrate(t.Context(), db.Driver, logger))
	e.memory = repository.NewTacticMemory(db.Driver, logger)
	e.artifacts = artifact.NewStore(e.prompts, logger)

	optimizer := llm.NewOptimizer(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return `{"tactic": "ANCHOR on the date label; never copy 2024-03-15"}`, nil
	}), logger)
	seeder := llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		e.seeds++
		return "Extract {{1:name}} and {{2:name}}. Example: ACME SA.", nil
	})

	machine := pipeline.NewMachine(pipeline.Config{CallTimeout: time.Second}, pipeline.Deps{
		Oracle:    e.oracle,
		Optimizer: optimizer,
		Memory:    e.memory,
		Artifacts: e.artifacts,
	}, logger)
	e.svc = NewService(e.dir, Deps{
		Loader:    ingest.NewLoader(nil, logger),
		Artifacts: e.artifacts,
		Memory:    e.memory,
		Machine:   machine,
		Seeder:    seeder,
	}, logger)
	return e
}

func (e *env) addCase(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, id+".png"), []byte("\x89PNG"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "expected_"+id+".txt"),
		[]byte(`{"1": "ACME SA", "2": {"value": "2024-03-15"}}`), 0o644))
}

func TestRunFamily_ColdStartSeedsAndConverges(t *testing.T) {
	e := newEnv(t)
	e.addCase(t, "fam_01")
	e.addCase(t, "fam_02")

	res, err := e.svc.RunFamily(t.Context(), "fam")
	require.NoError(t, err)

	assert.Equal(t, 1, e.seeds)
	assert.Equal(t, "", e.oracle.first())
	assert.Equal(t, 2, res.Attempts)
	assert.True(t, res.Final)
	assert.InDelta(t, 100.0, res.BestAvgScore, 1e-9)
	require.NotNil(t, res.BestTactic)
	assert.Equal(t, "ANCHOR on the date label; never copy {{VALUE_FOR_2}}", *res.BestTactic)
	assert.Equal(t, "Extract {{1:name}} and {{2:name}}. Example: [VALUE_MASKED].", res.OriginalPrompt)
	assert.Len(t, res.BatchQueue, 2)

	m, ok, err := e.artifacts.Load("fam")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *res.BestTactic, m.Tactic)
	assert.Equal(t, res.OriginalPrompt, m.BaseInstructions)

	successes, failures, err := e.memory.History(t.Context(), "fam")
	require.NoError(t, err)
	require.Len(t, successes, 1)
	assert.InDelta(t, 100.0, successes[0].Score, 1e-9)
	require.Len(t, failures, 1)
	assert.Equal(t, "", failures[0].Tactic)
}

func TestRunFamily_ResumesFromArtifact(t *testing.T) {
	e := newEnv(t)
	e.addCase(t, "fam_01")
	_, err := e.artifacts.Save("fam", "ANCHOR stored", "base")
	require.NoError(t, err)

	res, err := e.svc.RunFamily(t.Context(), "fam")
	require.NoError(t, err)

	assert.Zero(t, e.seeds)
	assert.Equal(t, "ANCHOR stored", e.oracle.first())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "base", res.OriginalPrompt)
}

func TestPrepare_ResumesFromMemory(t *testing.T) {
	e := newEnv(t)
	e.addCase(t, "fam_01")
	_, err := e.artifacts.SaveSeed("fam", "base only")
	require.NoError(t, err)
	require.NoError(t, e.memory.RecordSuccess(t.Context(), "fam", "remembered", 80))

	p, err := e.svc.Prepare(t.Context(), "fam")
	require.NoError(t, err)
	assert.Equal(t, "remembered", p.State.Tactic)
	assert.Equal(t, "base only", p.State.BaseInstructions)
	assert.Equal(t, llm.DefaultGuide, p.State.Guide)
	assert.NotEmpty(t, p.RunID)
}

func TestPrepare_Errors(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Prepare(t.Context(), "  ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = e.svc.Prepare(t.Context(), "fam")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestScore_SinglePassWithoutPersistence(t *testing.T) {
	e := newEnv(t)
	e.addCase(t, "fam_01")
	_, err := e.artifacts.Save("fam", "plain tactic", "base")
	require.NoError(t, err)

	res, mismatches, err := e.svc.Score(t.Context(), "fam")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.False(t, res.Final)
	assert.InDelta(t, 50.0, res.LastAvgScore, 1e-9)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "2", mismatches[0].FieldID)

	successes, failures, err := e.svc.History(t.Context(), "fam")
	require.NoError(t, err)
	assert.Empty(t, successes)
	assert.Empty(t, failures)
}
