package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"earntracker/internal/core"
	"earntracker/internal/period"
)

const timestampLayout = "2006-01-02 15:04:05"

var snapshotColumns = []string{
	"user_id", "year", "quarter", "total_income", "total_tax", "stale", "computed_at", "version",
}

// UpsertSnapshot stores a computed quarter summary. The stale flag is
// cleared only when s.Version still matches the row, so a change made while
// the summary was being computed keeps the quarter queued.
func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, s core.QuarterSnapshot) error {
	computedAt := s.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}
	stmt := sq.Insert("quarter_snapshots").
		Columns("user_id", "year", "quarter", "total_income", "total_tax", "stale", "computed_at", "version").
		Values(s.UserID, s.Year, s.Quarter, s.TotalIncome.String(), s.TotalTax.String(), false, computedAt.UTC().Format(timestampLayout), s.Version).
		Suffix(`ON CONFLICT (user_id, year, quarter) DO UPDATE SET
			total_income = excluded.total_income,
			total_tax = excluded.total_tax,
			stale = CASE WHEN quarter_snapshots.version = excluded.version THEN 0 ELSE quarter_snapshots.stale END,
			computed_at = excluded.computed_at`)
	if _, err := execSQL(ctx, r.db, stmt); err != nil {
		return fmt.Errorf("upsert snapshot %d-Q%d: %w", s.Year, s.Quarter, mapConstraint(err))
	}
	return nil
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, userID int64, p period.Period) (core.QuarterSnapshot, error) {
	s, err := getOne[core.QuarterSnapshot](ctx, r.db, sq.Select(snapshotColumns...).
		From("quarter_snapshots").
		Where(sq.Eq{"user_id": userID, "year": p.Year, "quarter": p.Quarter}))
	if err != nil {
		return core.QuarterSnapshot{}, fmt.Errorf("get snapshot %s: %w", p, err)
	}
	return s, nil
}

// ListSnapshots returns the user's snapshots of one year in quarter order.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, userID int64, year int) ([]core.QuarterSnapshot, error) {
	out, err := selectAll[core.QuarterSnapshot](ctx, r.db, sq.Select(snapshotColumns...).
		From("quarter_snapshots").
		Where(sq.Eq{"user_id": userID, "year": year}).
		OrderBy("quarter"))
	if err != nil {
		return nil, fmt.Errorf("list snapshots %d: %w", year, err)
	}
	return out, nil
}

// ListStaleSnapshots returns up to limit snapshots waiting for a refresh,
// oldest quarter first.
func (r *SQLiteRepository) ListStaleSnapshots(ctx context.Context, limit int) ([]core.QuarterSnapshot, error) {
	q := sq.Select(snapshotColumns...).
		From("quarter_snapshots").
		Where(sq.Eq{"stale": true}).
		OrderBy("year", "quarter", "user_id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	out, err := selectAll[core.QuarterSnapshot](ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("list stale snapshots: %w", err)
	}
	return out, nil
}
