package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"earntracker/internal/core"
	"earntracker/internal/period"
)

var taxRuleColumns = []string{
	"id", "user_id", "name", "kind", "value", "active", "year", "quarter", "created_at", "updated_at",
}

// RuleFilter narrows ListTaxRules. Nil fields match everything.
type RuleFilter struct {
	Year    *int
	Quarter *int
}

func (r *SQLiteRepository) CreateTaxRule(ctx context.Context, rule core.TaxRule) (core.TaxRule, error) {
	id, err := insertID(ctx, r.db, sq.Insert("tax_rules").
		Columns("user_id", "name", "kind", "value", "active", "year", "quarter").
		Values(rule.UserID, rule.Name, string(rule.Kind), rule.Value.String(), rule.Active, rule.Year, rule.Quarter))
	if err != nil {
		return core.TaxRule{}, fmt.Errorf("create tax rule: %w", err)
	}
	return r.GetTaxRule(ctx, rule.UserID, id)
}

func (r *SQLiteRepository) GetTaxRule(ctx context.Context, userID, id int64) (core.TaxRule, error) {
	rule, err := getOne[core.TaxRule](ctx, r.db, sq.Select(taxRuleColumns...).From("tax_rules").Where(owned(userID, id)))
	if err != nil {
		return core.TaxRule{}, fmt.Errorf("get tax rule %d: %w", id, err)
	}
	return rule, nil
}

func (r *SQLiteRepository) UpdateTaxRule(ctx context.Context, userID, id int64, p core.TaxRulePatch) (core.TaxRule, error) {
	set := map[string]any{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Kind != nil {
		set["kind"] = string(*p.Kind)
	}
	if p.Value != nil {
		set["value"] = p.Value.String()
	}
	if p.Active != nil {
		set["active"] = *p.Active
	}
	if p.Year != nil {
		set["year"] = *p.Year
	}
	if p.Quarter != nil {
		set["quarter"] = *p.Quarter
	}

	if err := execOne(ctx, r.db, sq.Update("tax_rules").SetMap(touch(set)).Where(owned(userID, id))); err != nil {
		return core.TaxRule{}, fmt.Errorf("update tax rule %d: %w", id, err)
	}
	return r.GetTaxRule(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteTaxRule(ctx context.Context, userID, id int64) error {
	if err := execOne(ctx, r.db, sq.Delete("tax_rules").Where(owned(userID, id))); err != nil {
		return fmt.Errorf("delete tax rule %d: %w", id, err)
	}
	return nil
}

// ListTaxRules returns the user's rules, newest period first.
func (r *SQLiteRepository) ListTaxRules(ctx context.Context, userID int64, f RuleFilter) ([]core.TaxRule, error) {
	q := sq.Select(taxRuleColumns...).From("tax_rules").Where(sq.Eq{"user_id": userID})
	if f.Year != nil {
		q = q.Where(sq.Eq{"year": *f.Year})
	}
	if f.Quarter != nil {
		q = q.Where(sq.Eq{"quarter": *f.Quarter})
	}
	out, err := selectAll[core.TaxRule](ctx, r.db, q.OrderBy("year DESC", "quarter DESC", "id"))
	if err != nil {
		return nil, fmt.Errorf("list tax rules: %w", err)
	}
	return out, nil
}

// FetchActiveTaxRules returns the active rules of exactly one quarter in
// creation order.
func (r *SQLiteRepository) FetchActiveTaxRules(ctx context.Context, userID int64, p period.Period) ([]core.TaxRule, error) {
	return r.fetchTaxRules(ctx, r.db, userID, p, true)
}

// FetchAllTaxRules returns active and inactive rules of one quarter.
func (r *SQLiteRepository) FetchAllTaxRules(ctx context.Context, userID int64, p period.Period) ([]core.TaxRule, error) {
	return r.fetchTaxRules(ctx, r.db, userID, p, false)
}

func (r *SQLiteRepository) fetchTaxRules(ctx context.Context, q sqlx.QueryerContext, userID int64, p period.Period, activeOnly bool) ([]core.TaxRule, error) {
	where := sq.Eq{"user_id": userID, "year": p.Year, "quarter": p.Quarter}
	if activeOnly {
		where["active"] = true
	}
	out, err := selectAll[core.TaxRule](ctx, q, sq.Select(taxRuleColumns...).From("tax_rules").Where(where).OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("fetch tax rules %s: %w", p, err)
	}
	return out, nil
}

// ReplaceTaxRules deletes every rule of the target quarter and inserts the
// given snapshots in one transaction. It returns the number of rules
// inserted. On failure the target quarter is left untouched.
func (r *SQLiteRepository) ReplaceTaxRules(ctx context.Context, userID int64, target period.Period, rules []core.TaxRuleSnapshot) (int, error) {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		return replaceTaxRules(ctx, tx, userID, target, rules)
	})
	if err != nil {
		return 0, fmt.Errorf("replace tax rules: %w", err)
	}
	return len(rules), nil
}

// CopyTaxRules replaces the rules of target with copies of every rule of
// source. The source is read inside the same transaction, before target is
// cleared, so source == target keeps its rules.
func (r *SQLiteRepository) CopyTaxRules(ctx context.Context, userID int64, source, target period.Period) (int, error) {
	var count int
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		rules, err := r.fetchTaxRules(ctx, tx, userID, source, false)
		if err != nil {
			return err
		}
		snaps := make([]core.TaxRuleSnapshot, len(rules))
		for i, rule := range rules {
			snaps[i] = rule.Snapshot()
		}
		count = len(snaps)
		return replaceTaxRules(ctx, tx, userID, target, snaps)
	})
	if err != nil {
		return 0, fmt.Errorf("copy tax rules %s to %s: %w", source, target, err)
	}
	return count, nil
}

func replaceTaxRules(ctx context.Context, tx *sqlx.Tx, userID int64, target period.Period, rules []core.TaxRuleSnapshot) error {
	del := sq.Delete("tax_rules").Where(sq.Eq{"user_id": userID, "year": target.Year, "quarter": target.Quarter})
	if _, err := execSQL(ctx, tx, del); err != nil {
		return fmt.Errorf("clear %s: %w", target, err)
	}
	if len(rules) == 0 {
		return nil
	}

	ins := sq.Insert("tax_rules").Columns("user_id", "name", "kind", "value", "active", "year", "quarter")
	for _, rule := range rules {
		ins = ins.Values(userID, rule.Name, string(rule.Kind), rule.Value.String(), rule.Active, target.Year, target.Quarter)
	}
	if _, err := execSQL(ctx, tx, ins); err != nil {
		return fmt.Errorf("insert %d rules into %s: %w", len(rules), target, err)
	}
	return nil
}
