package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"earntracker/internal/core"
)

var incomeColumns = []string{
	"id", "user_id", "amount", "currency", "exchange_rate",
	"COALESCE(description, '') AS description", "date", "created_at", "updated_at",
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, e core.IncomeEntry) (core.IncomeEntry, error) {
	id, err := insertID(ctx, r.db, sq.Insert("incomes").
		Columns("user_id", "amount", "currency", "exchange_rate", "description", "date").
		Values(e.UserID, e.Amount.String(), e.Currency, e.ExchangeRate.String(), nullable(e.Description), e.Date.String()))
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("create income: %w", err)
	}
	return r.GetIncome(ctx, e.UserID, id)
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, userID, id int64) (core.IncomeEntry, error) {
	e, err := getOne[core.IncomeEntry](ctx, r.db, sq.Select(incomeColumns...).From("incomes").Where(owned(userID, id)))
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("get income %d: %w", id, err)
	}
	return e, nil
}

// UpdateIncome writes only the fields present in p.
func (r *SQLiteRepository) UpdateIncome(ctx context.Context, userID, id int64, p core.IncomePatch) (core.IncomeEntry, error) {
	set := map[string]any{}
	if p.Amount != nil {
		set["amount"] = p.Amount.String()
	}
	if p.Currency != nil {
		set["currency"] = core.NormalizeCurrency(*p.Currency)
	}
	if p.ExchangeRate != nil {
		set["exchange_rate"] = p.ExchangeRate.String()
	}
	if p.Description != nil {
		set["description"] = nullable(*p.Description)
	}
	if p.Date != nil {
		set["date"] = p.Date.String()
	}

	if err := execOne(ctx, r.db, sq.Update("incomes").SetMap(touch(set)).Where(owned(userID, id))); err != nil {
		return core.IncomeEntry{}, fmt.Errorf("update income %d: %w", id, err)
	}
	return r.GetIncome(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id int64) error {
	if err := execOne(ctx, r.db, sq.Delete("incomes").Where(owned(userID, id))); err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	return nil
}

// ListIncomes returns every income of the user, newest first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID int64) ([]core.IncomeEntry, error) {
	out, err := selectAll[core.IncomeEntry](ctx, r.db, sq.Select(incomeColumns...).
		From("incomes").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("date DESC", "id DESC"))
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return out, nil
}

// FetchIncome returns the user's incomes dated within [start, end], both
// inclusive, oldest first. ISO dates compare correctly as strings.
func (r *SQLiteRepository) FetchIncome(ctx context.Context, userID int64, start, end core.Date) ([]core.IncomeEntry, error) {
	out, err := selectAll[core.IncomeEntry](ctx, r.db, sq.Select(incomeColumns...).
		From("incomes").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"date": start.String()}).
		Where(sq.LtOrEq{"date": end.String()}).
		OrderBy("date", "id"))
	if err != nil {
		return nil, fmt.Errorf("fetch income %s..%s: %w", start, end, err)
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
