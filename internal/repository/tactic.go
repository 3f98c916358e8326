package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

const (
	successTable = "success_tactics"
	failureTable = "failed_tactics"
)

// TacticMemory is the append-only, cross-run history of tactics per family.
type TacticMemory interface {
	// BestTactic returns the highest-scoring recorded tactic; ties go to the most recent.
	BestTactic(ctx context.Context, family string) (string, bool, error)
	// RecentFailures returns failed tactics, most recent first. limit <= 0 uses the default.
	RecentFailures(ctx context.Context, family string, limit int) ([]string, error)
	RecordSuccess(ctx context.Context, family, tactic string, score float64) error
	RecordFailure(ctx context.Context, family, tactic string, errs []string) error
	History(ctx context.Context, family string) ([]entity.SuccessRecord, []entity.FailureRecord, error)
	Families(ctx context.Context) ([]string, error)
}

type tacticRepo struct {
	drv *entsql.Driver
	log *slog.Logger
	now func() time.Time
}

func NewTacticMemory(drv *entsql.Driver, log *slog.Logger) TacticMemory {
	if log == nil {
		log = slog.Default()
	}
	return &tacticRepo{drv: drv, log: log, now: time.Now}
}

// Migrate creates the history tables and their indexes if they do not exist.
func Migrate(ctx context.Context, drv *entsql.Driver, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	d := drv.Dialect()
	idCol := func() *entsql.ColumnBuilder {
		if d == dialect.Postgres {
			return entsql.Column("id").Type("bigserial").Attr("PRIMARY KEY")
		}
		return entsql.Column("id").Type("integer").Attr("PRIMARY KEY AUTOINCREMENT")
	}
	scoreType := "real"
	if d == dialect.Postgres {
		scoreType = "double precision"
	}

	stmts := []string{}
	q, _ := entsql.Dialect(d).CreateTable(successTable).IfNotExists().Columns(
		idCol(),
		entsql.Column("family").Type("text").Attr("NOT NULL"),
		entsql.Column("tactic").Type("text").Attr("NOT NULL"),
		entsql.Column("score").Type(scoreType).Attr("NOT NULL"),
		entsql.Column("created_at").Type("text").Attr("NOT NULL"),
	).Query()
	stmts = append(stmts, q)
	q, _ = entsql.Dialect(d).CreateTable(failureTable).IfNotExists().Columns(
		idCol(),
		entsql.Column("family").Type("text").Attr("NOT NULL"),
		entsql.Column("tactic").Type("text").Attr("NOT NULL"),
		entsql.Column("errors").Type("text").Attr("NOT NULL"),
		entsql.Column("created_at").Type("text").Attr("NOT NULL"),
	).Query()
	stmts = append(stmts, q,
		"CREATE INDEX IF NOT EXISTS idx_success_family_score ON "+successTable+" (family, score)",
		"CREATE INDEX IF NOT EXISTS idx_failed_family ON "+failureTable+" (family)",
	)

	for _, stmt := range stmts {
		if _, err := drv.ExecContext(ctx, stmt); err != nil {
			log.Error("memory.migrate failed", "err", err)
			return common.DatabaseError("migrate tactic memory", err)
		}
	}
	log.Debug("memory.migrate ok", "dialect", d)
	return nil
}

func (r *tacticRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *tacticRepo) BestTactic(ctx context.Context, family string) (string, bool, error) {
	b := r.builder()
	t := b.Table(successTable)
	query, args := b.Select(t.C("tactic")).
		From(t).
		Where(entsql.EQ(t.C("family"), family)).
		OrderBy(entsql.Desc(t.C("score")), entsql.Desc(t.C("id"))).
		Limit(1).
		Query()

	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("memory.best_tactic failed", "family", family, "err", err)
		return "", false, common.DatabaseError("query best tactic", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, rows.Err()
	}
	var tactic string
	if err := rows.Scan(&tactic); err != nil {
		return "", false, common.DatabaseError("scan best tactic", err)
	}
	return tactic, true, nil
}

func (r *tacticRepo) RecentFailures(ctx context.Context, family string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = constants.RecentFailureLimit
	}
	b := r.builder()
	t := b.Table(failureTable)
	query, args := b.Select(t.C("tactic")).
		From(t).
		Where(entsql.EQ(t.C("family"), family)).
		OrderBy(entsql.Desc(t.C("id"))).
		Limit(limit).
		Query()

	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("memory.recent_failures failed", "family", family, "err", err)
		return nil, common.DatabaseError("query recent failures", err)
	}
	defer rows.Close()

	var tactics []string
	for rows.Next() {
		var tactic string
		if err := rows.Scan(&tactic); err != nil {
			return nil, common.DatabaseError("scan failure", err)
		}
		tactics = append(tactics, tactic)
	}
	return tactics, rows.Err()
}

func (r *tacticRepo) RecordSuccess(ctx context.Context, family, tactic string, score float64) error {
	query, args := r.builder().Insert(successTable).
		Columns("family", "tactic", "score", "created_at").
		Values(family, tactic, score, formatTime(r.now())).
		Query()
	if _, err := r.drv.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("memory.record_success failed", "family", family, "err", err)
		return common.DatabaseError("insert success tactic", err)
	}
	r.log.Info("memory.record_success", "family", family, "score", score)
	return nil
}

func (r *tacticRepo) RecordFailure(ctx context.Context, family, tactic string, errs []string) error {
	if errs == nil {
		errs = []string{}
	}
	payload, err := json.Marshal(errs)
	if err != nil {
		return common.DatabaseError("encode failure sample", err)
	}
	query, args := r.builder().Insert(failureTable).
		Columns("family", "tactic", "errors", "created_at").
		Values(family, tactic, string(payload), formatTime(r.now())).
		Query()
	if _, err := r.drv.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("memory.record_failure failed", "family", family, "err", err)
		return common.DatabaseError("insert failed tactic", err)
	}
	r.log.Info("memory.record_failure", "family", family, "errors", len(errs))
	return nil
}

// History returns both tables for family in insertion order.
func (r *tacticRepo) History(ctx context.Context, family string) ([]entity.SuccessRecord, []entity.FailureRecord, error) {
	b := r.builder()
	st := b.Table(successTable)
	query, args := b.Select(st.C("id"), st.C("tactic"), st.C("score"), st.C("created_at")).
		From(st).
		Where(entsql.EQ(st.C("family"), family)).
		OrderBy(st.C("id")).
		Query()
	rows, err := r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, common.DatabaseError("query success history", err)
	}
	var successes []entity.SuccessRecord
	for rows.Next() {
		rec := entity.SuccessRecord{Family: family}
		var created string
		if err := rows.Scan(&rec.ID, &rec.Tactic, &rec.Score, &created); err != nil {
			rows.Close()
			return nil, nil, common.DatabaseError("scan success history", err)
		}
		rec.CreatedAt = parseTime(created)
		successes = append(successes, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, common.DatabaseError("read success history", err)
	}

	b = r.builder()
	ft := b.Table(failureTable)
	query, args = b.Select(ft.C("id"), ft.C("tactic"), ft.C("errors"), ft.C("created_at")).
		From(ft).
		Where(entsql.EQ(ft.C("family"), family)).
		OrderBy(ft.C("id")).
		Query()
	rows, err = r.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, common.DatabaseError("query failure history", err)
	}
	defer rows.Close()
	var failures []entity.FailureRecord
	for rows.Next() {
		rec := entity.FailureRecord{Family: family}
		var payload, created string
		if err := rows.Scan(&rec.ID, &rec.Tactic, &payload, &created); err != nil {
			return nil, nil, common.DatabaseError("scan failure history", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Errors); err != nil {
			r.log.Warn("memory.history bad errors payload", "id", rec.ID, "err", err)
			rec.Errors = []string{payload}
		}
		rec.CreatedAt = parseTime(created)
		failures = append(failures, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, common.DatabaseError("read failure history", err)
	}
	return successes, failures, nil
}

// Families lists every family with at least one recorded row, sorted.
func (r *tacticRepo) Families(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for _, table := range []string{successTable, failureTable} {
		b := r.builder()
		t := b.Table(table)
		query, args := b.Select(t.C("family")).Distinct().From(t).Query()
		rows, err := r.drv.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, common.DatabaseError("query families", err)
		}
		for rows.Next() {
			var family string
			if err := rows.Scan(&family); err != nil {
				rows.Close()
				return nil, common.DatabaseError("scan family", err)
			}
			seen[family] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, common.DatabaseError("read families", err)
		}
	}
	families := make([]string, 0, len(seen))
	for f := range seen {
		families = append(families, f)
	}
	slices.Sort(families)
	return families, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
