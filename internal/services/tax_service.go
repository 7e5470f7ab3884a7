package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/storage"
	"earntracker/internal/taxes"
)

// TaxReport is the tax summary of a date range inside one quarter.
type TaxReport struct {
	Period      string          `json:"period"`
	Year        int             `json:"year"`
	Quarter     int             `json:"quarter"`
	Start       core.Date       `json:"start"`
	End         core.Date       `json:"end"`
	TotalIncome decimal.Decimal `json:"total_income"`
	TotalTax    decimal.Decimal `json:"total_tax"`
	Taxes       []taxes.Line    `json:"taxes"`
}

// CopyResult reports how many rules were written into the target quarter.
type CopyResult struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// YearReport holds the four quarterly reports of a year and their sums.
type YearReport struct {
	Year        int             `json:"year"`
	Quarters    []TaxReport     `json:"quarters"`
	TotalIncome decimal.Decimal `json:"total_income"`
	TotalTax    decimal.Decimal `json:"total_tax"`
}

// Dashboard is the landing summary for a user.
type Dashboard struct {
	Current       TaxReport       `json:"current_quarter"`
	PendingEvents []core.Event    `json:"pending_events"`
	AllTimeIncome decimal.Decimal `json:"all_time_income"`
}

// TaxService computes quarterly taxes and copies rule settings between
// quarters.
type TaxService struct {
	store    TaxStore
	notifier notifier
	now      func() time.Time
}

func NewTaxService(store TaxStore, pub Publisher) *TaxService {
	return &TaxService{store: store, notifier: notifier{pub: pub}, now: time.Now}
}

// WithClock replaces the clock used to find the current quarter.
func (s *TaxService) WithClock(now func() time.Time) *TaxService {
	s.now = now
	return s
}

// ComputeQuarterTaxes applies the active rules of the quarter containing
// start to the income recorded between start and end inclusive. A range
// whose end lies in another quarter is rejected with core.ErrInvalidPeriod.
func (s *TaxService) ComputeQuarterTaxes(ctx context.Context, userID int64, start, end string) (TaxReport, error) {
	from, err := period.ParseDate(start)
	if err != nil {
		return TaxReport{}, fmt.Errorf("start: %w", err)
	}
	to, err := period.ParseDate(end)
	if err != nil {
		return TaxReport{}, fmt.Errorf("end: %w", err)
	}
	if to.IsBefore(from) {
		return TaxReport{}, fmt.Errorf("%w: end %s before start %s", core.ErrInvalidPeriod, to, from)
	}

	p := period.QuarterOf(from.Time)
	if q := period.QuarterOf(to.Time); q != p {
		return TaxReport{}, fmt.Errorf("%w: range %s..%s spans %s and %s", core.ErrInvalidPeriod, from, to, p, q)
	}
	return s.compute(ctx, userID, p, from, to)
}

// ComputePeriod reports on a whole quarter.
func (s *TaxService) ComputePeriod(ctx context.Context, userID int64, p period.Period) (TaxReport, error) {
	if err := p.Validate(); err != nil {
		return TaxReport{}, err
	}
	return s.compute(ctx, userID, p, p.Start(), p.End())
}

func (s *TaxService) compute(ctx context.Context, userID int64, p period.Period, from, to core.Date) (TaxReport, error) {
	incomes, err := s.store.FetchIncome(ctx, userID, from, to)
	if err != nil {
		return TaxReport{}, fmt.Errorf("fetch income: %w", err)
	}
	rules, err := s.store.FetchActiveTaxRules(ctx, userID, p)
	if err != nil {
		return TaxReport{}, fmt.Errorf("fetch tax rules: %w", err)
	}

	res, err := taxes.Aggregate(taxes.FromEntries(incomes), taxes.FromRules(rules))
	if err != nil {
		slog.WarnContext(ctx, "Tax aggregation failed",
			"user_id", userID, "period", p.String(), "error", err)
		return TaxReport{}, err
	}

	return TaxReport{
		Period:      p.String(),
		Year:        p.Year,
		Quarter:     p.Quarter,
		Start:       from,
		End:         to,
		TotalIncome: res.TotalIncome,
		TotalTax:    res.TotalTax,
		Taxes:       res.Taxes,
	}, nil
}

// CopyTaxRules replaces every rule of target with copies of every rule of
// source, active or not. The store reads the source and rewrites the target
// in one transaction, so copying a quarter onto itself keeps its rules.
func (s *TaxService) CopyTaxRules(ctx context.Context, userID int64, source, target period.Period) (CopyResult, error) {
	if err := source.Validate(); err != nil {
		return CopyResult{}, fmt.Errorf("source: %w", err)
	}
	if err := target.Validate(); err != nil {
		return CopyResult{}, fmt.Errorf("target: %w", err)
	}

	count, err := s.store.CopyTaxRules(ctx, userID, source, target)
	if err != nil {
		slog.ErrorContext(ctx, "Tax rule copy failed",
			"user_id", userID, "source_period", source.String(), "target_period", target.String(), "error", err)
		if !errors.Is(err, core.ErrTransactionFailure) {
			err = fmt.Errorf("%w: %w", core.ErrTransactionFailure, err)
		}
		return CopyResult{}, err
	}

	slog.InfoContext(ctx, "Tax rules copied",
		"user_id", userID, "source_period", source.String(), "target_period", target.String(), "count", count)
	s.notifier.changed(ctx, userID, "rules_copied", target)
	return CopyResult{Success: true, Count: count}, nil
}

// YearReport computes the four quarters of year concurrently.
func (s *TaxService) YearReport(ctx context.Context, userID int64, year int) (YearReport, error) {
	quarters := period.QuartersOf(year)
	if err := quarters[0].Validate(); err != nil {
		return YearReport{}, err
	}

	reports := make([]TaxReport, len(quarters))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range quarters {
		g.Go(func() error {
			r, err := s.ComputePeriod(gctx, userID, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return YearReport{}, err
	}

	out := YearReport{Year: year, Quarters: reports, TotalIncome: decimal.Zero, TotalTax: decimal.Zero}
	for _, r := range reports {
		out.TotalIncome = out.TotalIncome.Add(r.TotalIncome)
		out.TotalTax = out.TotalTax.Add(r.TotalTax)
	}
	return out, nil
}

// Dashboard combines the current quarter's report, the pending events and
// the income recorded over all time.
func (s *TaxService) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	current, err := s.ComputePeriod(ctx, userID, period.QuarterOf(s.now()))
	if err != nil {
		return Dashboard{}, err
	}

	pending := false
	events, err := s.store.ListEvents(ctx, userID, storage.EventFilter{Completed: &pending})
	if err != nil {
		return Dashboard{}, fmt.Errorf("pending events: %w", err)
	}

	incomes, err := s.store.ListIncomes(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("all income: %w", err)
	}

	return Dashboard{
		Current:       current,
		PendingEvents: events,
		AllTimeIncome: taxes.TotalIncome(taxes.FromEntries(incomes)),
	}, nil
}
