package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"earntracker/internal/core"
	"earntracker/internal/period"
)

type TaxServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *fakeStore
	pub   *fakePublisher
	svc   *TaxService
}

func (s *TaxServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newFakeStore()
	s.pub = &fakePublisher{}
	s.svc = NewTaxService(s.store, s.pub).WithClock(func() time.Time {
		return time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	})
}

func TestTaxServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaxServiceTestSuite))
}

func (s *TaxServiceTestSuite) income(userID int64, amount, rate string, date core.Date) {
	_, err := s.store.CreateIncome(s.ctx, core.IncomeEntry{
		UserID: userID, Amount: dec(amount), ExchangeRate: dec(rate), Currency: "UAH", Date: date,
	})
	s.Require().NoError(err)
}

func (s *TaxServiceTestSuite) rule(userID int64, name string, kind core.RuleKind, value string, active bool, p period.Period) {
	_, err := s.store.CreateTaxRule(s.ctx, core.TaxRule{
		UserID: userID, Name: name, Kind: kind, Value: dec(value), Active: active, Year: p.Year, Quarter: p.Quarter,
	})
	s.Require().NoError(err)
}

func (s *TaxServiceTestSuite) TestComputeQuarterTaxesExample() {
	q1 := period.Period{Year: 2024, Quarter: 1}
	s.income(1, "100", "2", core.NewDate(2024, 1, 15))
	s.income(1, "50", "1", core.NewDate(2024, 3, 31))
	s.income(1, "999", "1", core.NewDate(2024, 4, 1))
	s.income(2, "999", "1", core.NewDate(2024, 2, 1))
	s.rule(1, "A", core.FixedRule, "500", true, q1)
	s.rule(1, "B", core.PercentageRule, "10", true, q1)
	s.rule(1, "Off", core.FixedRule, "1000", false, q1)

	r, err := s.svc.ComputeQuarterTaxes(s.ctx, 1, "2024-01-01", "2024-03-31")
	s.Require().NoError(err)
	s.Equal("2024-Q1", r.Period)
	s.True(r.TotalIncome.Equal(dec("250")))
	s.True(r.TotalTax.Equal(dec("525")))
	s.Require().Len(r.Taxes, 2)
	s.Equal("A", r.Taxes[0].Name)
	s.True(r.Taxes[0].Amount.Equal(dec("500")))
	s.Equal("B", r.Taxes[1].Name)
	s.True(r.Taxes[1].Amount.Equal(dec("25")))
}

func (s *TaxServiceTestSuite) TestComputeQuarterTaxesIsIdempotent() {
	q1 := period.Period{Year: 2024, Quarter: 1}
	s.income(1, "1234.56", "1", core.NewDate(2024, 2, 29))
	s.rule(1, "EN", core.PercentageRule, "5", true, q1)

	first, err := s.svc.ComputeQuarterTaxes(s.ctx, 1, "2024-01-01", "2024-03-31")
	s.Require().NoError(err)
	second, err := s.svc.ComputeQuarterTaxes(s.ctx, 1, "2024-01-01", "2024-03-31")
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *TaxServiceTestSuite) TestComputeQuarterTaxesEmpty() {
	r, err := s.svc.ComputeQuarterTaxes(s.ctx, 1, "2024-04-01", "2024-06-30")
	s.Require().NoError(err)
	s.True(r.TotalIncome.IsZero())
	s.True(r.TotalTax.IsZero())
	s.NotNil(r.Taxes)
	s.Empty(r.Taxes)
}

func (s *TaxServiceTestSuite) TestComputeQuarterTaxesRejectsBadRanges() {
	cases := map[string][2]string{
		"malformed start":   {"2024-13-01", "2024-03-31"},
		"malformed end":     {"2024-01-01", "31/03/2024"},
		"end before start":  {"2024-03-01", "2024-02-01"},
		"crosses a quarter": {"2024-03-01", "2024-04-01"},
		"crosses a year":    {"2024-12-01", "2025-01-31"},
	}
	for name, c := range cases {
		_, err := s.svc.ComputeQuarterTaxes(s.ctx, 1, c[0], c[1])
		s.ErrorIs(err, core.ErrInvalidPeriod, name)
	}
}

func (s *TaxServiceTestSuite) TestComputeQuarterTaxesPartialRange() {
	q1 := period.Period{Year: 2024, Quarter: 1}
	s.income(1, "100", "1", core.NewDate(2024, 1, 10))
	s.income(1, "200", "1", core.NewDate(2024, 2, 10))
	s.rule(1, "A", core.PercentageRule, "10", true, q1)

	r, err := s.svc.ComputeQuarterTaxes(s.ctx, 1, "2024-02-01", "2024-02-10")
	s.Require().NoError(err)
	s.True(r.TotalIncome.Equal(dec("200")))
	s.True(r.TotalTax.Equal(dec("20")))
}

func (s *TaxServiceTestSuite) TestUnsupportedRuleKindFailsWholeCall() {
	q1 := period.Period{Year: 2024, Quarter: 1}
	s.rule(1, "A", core.FixedRule, "1", true, q1)
	s.rule(1, "weird", core.RuleKind("progressive"), "1", true, q1)

	_, err := s.svc.ComputePeriod(s.ctx, 1, q1)
	s.ErrorIs(err, core.ErrUnsupportedRuleKind)
}

func (s *TaxServiceTestSuite) TestCopyTaxRulesOverwritesTarget() {
	src := period.Period{Year: 2024, Quarter: 1}
	dst := period.Period{Year: 2024, Quarter: 2}
	s.rule(1, "A", core.FixedRule, "1", true, src)
	s.rule(1, "B", core.PercentageRule, "5", false, src)
	s.rule(1, "C", core.FixedRule, "3", true, src)
	s.rule(1, "X", core.FixedRule, "9", true, dst)
	s.rule(1, "Y", core.FixedRule, "9", true, dst)

	res, err := s.svc.CopyTaxRules(s.ctx, 1, src, dst)
	s.Require().NoError(err)
	s.Equal(CopyResult{Success: true, Count: 3}, res)

	got, _ := s.store.FetchAllTaxRules(s.ctx, 1, dst)
	s.Require().Len(got, 3)
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	s.ElementsMatch([]string{"A", "B", "C"}, names)
	for _, r := range got {
		if r.Name == "B" {
			s.False(r.Active, "inactive rules are copied as inactive")
		}
	}

	kept, _ := s.store.FetchAllTaxRules(s.ctx, 1, src)
	s.Len(kept, 3)
	s.Equal([]period.Period{dst}, s.pub.periods())
}

func (s *TaxServiceTestSuite) TestCopyTaxRulesEmptySourceClearsTarget() {
	dst := period.Period{Year: 2024, Quarter: 2}
	s.rule(1, "X", core.FixedRule, "9", true, dst)

	res, err := s.svc.CopyTaxRules(s.ctx, 1, period.Period{Year: 2023, Quarter: 4}, dst)
	s.Require().NoError(err)
	s.Equal(CopyResult{Success: true, Count: 0}, res)

	got, _ := s.store.FetchAllTaxRules(s.ctx, 1, dst)
	s.Empty(got)
}

func (s *TaxServiceTestSuite) TestCopyTaxRulesOntoItselfKeepsRules() {
	p := period.Period{Year: 2024, Quarter: 3}
	s.rule(1, "A", core.FixedRule, "1", true, p)
	s.rule(1, "B", core.FixedRule, "2", true, p)

	res, err := s.svc.CopyTaxRules(s.ctx, 1, p, p)
	s.Require().NoError(err)
	s.Equal(2, res.Count)

	got, _ := s.store.FetchAllTaxRules(s.ctx, 1, p)
	s.Len(got, 2)
}

func (s *TaxServiceTestSuite) TestCopyTaxRulesInvalidPeriod() {
	_, err := s.svc.CopyTaxRules(s.ctx, 1, period.Period{Year: 2024, Quarter: 5}, period.Period{Year: 2024, Quarter: 1})
	s.ErrorIs(err, core.ErrInvalidPeriod)
	_, err = s.svc.CopyTaxRules(s.ctx, 1, period.Period{Year: 2024, Quarter: 1}, period.Period{Year: 2024, Quarter: 0})
	s.ErrorIs(err, core.ErrInvalidPeriod)
}

func (s *TaxServiceTestSuite) TestCopyTaxRulesStoreFailure() {
	s.store.replaceErr = errors.New("disk full")

	res, err := s.svc.CopyTaxRules(s.ctx, 1, period.Period{Year: 2024, Quarter: 1}, period.Period{Year: 2024, Quarter: 2})
	s.ErrorIs(err, core.ErrTransactionFailure)
	s.False(res.Success)
	s.Empty(s.pub.periods())
}

func (s *TaxServiceTestSuite) TestYearReport() {
	for q := 1; q <= 4; q++ {
		p := period.Period{Year: 2024, Quarter: q}
		s.income(1, "1000", "1", p.Start())
		s.rule(1, "EN", core.PercentageRule, "5", true, p)
	}

	y, err := s.svc.YearReport(s.ctx, 1, 2024)
	s.Require().NoError(err)
	s.Require().Len(y.Quarters, 4)
	for i, r := range y.Quarters {
		s.Equal(i+1, r.Quarter)
		s.True(r.TotalTax.Equal(dec("50")))
	}
	s.True(y.TotalIncome.Equal(dec("4000")))
	s.True(y.TotalTax.Equal(dec("200")))
}

func (s *TaxServiceTestSuite) TestYearReportPropagatesFailure() {
	s.rule(1, "weird", core.RuleKind("bogus"), "1", true, period.Period{Year: 2024, Quarter: 3})

	_, err := s.svc.YearReport(s.ctx, 1, 2024)
	s.ErrorIs(err, core.ErrUnsupportedRuleKind)

	_, err = s.svc.YearReport(s.ctx, 1, 0)
	s.ErrorIs(err, core.ErrInvalidPeriod)
}

func (s *TaxServiceTestSuite) TestDashboard() {
	s.income(1, "100", "1", core.NewDate(2024, 1, 5))
	s.income(1, "300", "1", core.NewDate(2023, 11, 5))
	_, _ = s.store.CreateEvent(s.ctx, core.Event{UserID: 1, Kind: core.TaxPaymentEvent, Description: "pay", Date: core.NewDate(2024, 4, 19)})
	_, _ = s.store.CreateEvent(s.ctx, core.Event{UserID: 1, Kind: core.OtherEvent, Description: "done", Date: core.NewDate(2024, 1, 1), Completed: true})

	d, err := s.svc.Dashboard(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("2024-Q1", d.Current.Period)
	s.True(d.Current.TotalIncome.Equal(dec("100")))
	s.True(d.AllTimeIncome.Equal(dec("400")))
	s.Require().Len(d.PendingEvents, 1)
	s.Equal("pay", d.PendingEvents[0].Description)
}

func TestNilPublisherIsNoop(t *testing.T) {
	store := newFakeStore()
	svc := NewTaxService(store, nil)

	res, err := svc.CopyTaxRules(context.Background(), 1, period.Period{Year: 2024, Quarter: 1}, period.Period{Year: 2024, Quarter: 2})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestConcurrentComputeIsSafe(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	_, _ = store.CreateIncome(ctx, core.IncomeEntry{UserID: 1, Amount: dec("10"), ExchangeRate: dec("1"), Currency: "UAH", Date: core.NewDate(2024, 5, 1)})
	svc := NewTaxService(store, nil)

	done := make(chan TaxReport, 8)
	for range 8 {
		go func() {
			r, _ := svc.ComputeQuarterTaxes(ctx, 1, "2024-04-01", "2024-06-30")
			done <- r
		}()
	}
	for range 8 {
		r := <-done
		assert.True(t, r.TotalIncome.Equal(dec("10")))
	}
}
