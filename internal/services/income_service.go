package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/rates"
)

// MonthTotal is the normalized income of one calendar month.
type MonthTotal struct {
	Month int             `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// IncomeService manages income entries and keeps their exchange rates
// filled in.
type IncomeService struct {
	store        IncomeStore
	rates        rates.Source
	baseCurrency string
	notifier     notifier
}

// NewIncomeService wires the service. rates may be nil, in which case an
// entry in a foreign currency must carry its own exchange rate.
func NewIncomeService(store IncomeStore, src rates.Source, baseCurrency string, pub Publisher) *IncomeService {
	return &IncomeService{
		store:        store,
		rates:        src,
		baseCurrency: core.NormalizeCurrency(baseCurrency),
		notifier:     notifier{pub: pub},
	}
}

// Create stores a new entry. A zero exchange rate means "look it up": the
// base currency gets 1, anything else the rate source's quote for the date.
func (s *IncomeService) Create(ctx context.Context, e core.IncomeEntry) (core.IncomeEntry, error) {
	e.Currency = core.NormalizeCurrency(e.Currency)
	if e.Currency == "" {
		e.Currency = s.baseCurrency
	}
	if err := validateBeforeLookup(e); err != nil {
		return core.IncomeEntry{}, err
	}
	rate, err := s.resolveRate(ctx, e.Currency, e.ExchangeRate, e.Date)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	e.ExchangeRate = rate

	if err := e.Validate(); err != nil {
		return core.IncomeEntry{}, err
	}

	created, err := s.store.CreateIncome(ctx, e)
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("save income: %w", err)
	}

	slog.InfoContext(ctx, "Income recorded",
		"user_id", created.UserID, "record_id", created.ID, "currency", created.Currency)
	s.notifier.changed(ctx, created.UserID, "income_created", period.QuarterOf(created.Date.Time))
	return created, nil
}

// Update applies a partial change. Changing the currency without giving a
// rate triggers a new lookup.
func (s *IncomeService) Update(ctx context.Context, userID, id int64, p core.IncomePatch) (core.IncomeEntry, error) {
	old, err := s.store.GetIncome(ctx, userID, id)
	if err != nil {
		return core.IncomeEntry{}, err
	}

	lookup := false
	if p.Currency != nil {
		c := core.NormalizeCurrency(*p.Currency)
		p.Currency = &c
		lookup = p.ExchangeRate == nil && c != old.Currency
	}

	merged := p.Apply(old)
	if err := validateBeforeLookup(merged); err != nil {
		return core.IncomeEntry{}, err
	}
	if lookup {
		rate, err := s.resolveRate(ctx, merged.Currency, decimal.Zero, merged.Date)
		if err != nil {
			return core.IncomeEntry{}, err
		}
		p.ExchangeRate = &rate
		merged.ExchangeRate = rate
	}
	if err := merged.Validate(); err != nil {
		return core.IncomeEntry{}, err
	}

	updated, err := s.store.UpdateIncome(ctx, userID, id, p)
	if err != nil {
		return core.IncomeEntry{}, fmt.Errorf("update income: %w", err)
	}
	s.notifier.changed(ctx, userID, "income_updated",
		period.QuarterOf(old.Date.Time), period.QuarterOf(updated.Date.Time))
	return updated, nil
}

func (s *IncomeService) Delete(ctx context.Context, userID, id int64) error {
	old, err := s.store.GetIncome(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteIncome(ctx, userID, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	s.notifier.changed(ctx, userID, "income_deleted", period.QuarterOf(old.Date.Time))
	return nil
}

// List returns every entry of the user, newest first.
func (s *IncomeService) List(ctx context.Context, userID int64) ([]core.IncomeEntry, error) {
	return s.store.ListIncomes(ctx, userID)
}

// ListByPeriod returns the entries between start and end inclusive in date
// order.
func (s *IncomeService) ListByPeriod(ctx context.Context, userID int64, start, end string) ([]core.IncomeEntry, error) {
	from, err := period.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	to, err := period.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if to.IsBefore(from) {
		return nil, fmt.Errorf("%w: end %s before start %s", core.ErrInvalidPeriod, to, from)
	}
	return s.store.FetchIncome(ctx, userID, from, to)
}

// MonthlyTotals returns twelve entries, January first, with the normalized
// income of each month of year.
func (s *IncomeService) MonthlyTotals(ctx context.Context, userID int64, year int) ([]MonthTotal, error) {
	if _, err := period.New(year, 1); err != nil {
		return nil, err
	}
	entries, err := s.store.FetchIncome(ctx, userID, core.NewDate(year, 1, 1), core.NewDate(year, 12, 31))
	if err != nil {
		return nil, fmt.Errorf("fetch income: %w", err)
	}

	out := make([]MonthTotal, 12)
	for i := range out {
		out[i] = MonthTotal{Month: i + 1, Total: decimal.Zero}
	}
	for _, e := range entries {
		m := int(e.Date.Month()) - 1
		out[m].Total = out[m].Total.Add(e.NormalizedAmount())
	}
	return out, nil
}

// validateBeforeLookup checks every field but the exchange rate, so that
// invalid input never reaches the rate source. A zero rate means "look it
// up" and passes here.
func validateBeforeLookup(e core.IncomeEntry) error {
	if e.ExchangeRate.IsZero() {
		e.ExchangeRate = decimal.NewFromInt(1)
	}
	return e.Validate()
}

func (s *IncomeService) resolveRate(ctx context.Context, currency string, given decimal.Decimal, date core.Date) (decimal.Decimal, error) {
	if currency == s.baseCurrency {
		if given.IsZero() {
			return decimal.NewFromInt(1), nil
		}
		return given, nil
	}
	if !given.IsZero() {
		return given, nil
	}
	if !core.IsCurrencyCode(currency) {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidCurrency, currency)
	}
	if s.rates == nil {
		return decimal.Zero, fmt.Errorf("%w: no rate given for %s", core.ErrInvalidRate, currency)
	}

	rate, err := s.rates.Rate(ctx, currency, date)
	if err != nil {
		slog.WarnContext(ctx, "Exchange rate lookup failed",
			"currency", currency, "date", date.String(), "error", err)
		if errors.Is(err, rates.ErrRateUnavailable) {
			return decimal.Zero, fmt.Errorf("%w: %w", core.ErrInvalidRate, err)
		}
		return decimal.Zero, fmt.Errorf("look up %s rate: %w", currency, err)
	}
	return rate, nil
}
