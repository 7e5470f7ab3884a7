package taxes

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earntracker/internal/core"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAggregateEmpty(t *testing.T) {
	res, err := Aggregate(nil, nil)
	require.NoError(t, err)

	assert.True(t, res.TotalIncome.IsZero())
	assert.True(t, res.TotalTax.IsZero())
	require.NotNil(t, res.Taxes)
	assert.Empty(t, res.Taxes)
}

func TestTotalIncome(t *testing.T) {
	incomes := []Income{
		{Amount: d("100"), ExchangeRate: d("2")},
		{Amount: d("50"), ExchangeRate: d("1")},
	}
	assert.Equal(t, "250", TotalIncome(incomes).String())
}

func TestAggregateFixedAndPercentage(t *testing.T) {
	incomes := []Income{
		{Amount: d("100"), ExchangeRate: d("2")},
		{Amount: d("50"), ExchangeRate: d("1")},
	}
	rules := []Rule{
		{Name: "A", Kind: core.FixedRule, Value: d("500")},
		{Name: "B", Kind: core.PercentageRule, Value: d("10")},
	}

	res, err := Aggregate(incomes, rules)
	require.NoError(t, err)

	assert.True(t, res.TotalIncome.Equal(d("250")))
	require.Len(t, res.Taxes, 2)
	assert.Equal(t, "A", res.Taxes[0].Name)
	assert.True(t, res.Taxes[0].Amount.Equal(d("500")))
	assert.Equal(t, "B", res.Taxes[1].Name)
	assert.True(t, res.Taxes[1].Amount.Equal(d("25")))
	assert.True(t, res.TotalTax.Equal(d("525")))
}

func TestAggregateNoFloatDrift(t *testing.T) {
	incomes := []Income{
		{Amount: d("0.1"), ExchangeRate: d("1")},
		{Amount: d("0.2"), ExchangeRate: d("1")},
	}
	res, err := Aggregate(incomes, []Rule{{Name: "single", Kind: core.PercentageRule, Value: d("5")}})
	require.NoError(t, err)

	assert.Equal(t, "0.3", res.TotalIncome.String())
	assert.Equal(t, "0.015", res.TotalTax.String())
}

func TestAggregateRulesWithoutIncome(t *testing.T) {
	res, err := Aggregate(nil, []Rule{
		{Name: "ESV", Kind: core.FixedRule, Value: d("1760")},
		{Name: "single", Kind: core.PercentageRule, Value: d("5")},
	})
	require.NoError(t, err)

	assert.True(t, res.TotalTax.Equal(d("1760")))
	assert.True(t, res.Taxes[1].Amount.IsZero())
}

func TestAggregateUnsupportedKind(t *testing.T) {
	res, err := Aggregate(
		[]Income{{Amount: d("10"), ExchangeRate: d("1")}},
		[]Rule{
			{Name: "ok", Kind: core.FixedRule, Value: d("1")},
			{Name: "bad", Kind: "progressive", Value: d("1")},
		},
	)
	require.ErrorIs(t, err, core.ErrUnsupportedRuleKind)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Nil(t, res.Taxes)
}

func TestCalculatorFor(t *testing.T) {
	c, err := CalculatorFor(core.FixedRule)
	require.NoError(t, err)
	assert.IsType(t, FixedCalculator{}, c)

	c, err = CalculatorFor(core.PercentageRule)
	require.NoError(t, err)
	assert.IsType(t, PercentageCalculator{}, c)

	_, err = CalculatorFor("")
	assert.ErrorIs(t, err, core.ErrUnsupportedRuleKind)
}

func TestAggregateConcurrentIdempotent(t *testing.T) {
	incomes := []Income{{Amount: d("1234.56"), ExchangeRate: d("41.1")}}
	rules := []Rule{{Name: "single", Kind: core.PercentageRule, Value: d("5")}}
	want, err := Aggregate(incomes, rules)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Aggregate(incomes, rules)
			assert.NoError(t, err)
			assert.True(t, want.TotalTax.Equal(got.TotalTax))
		}()
	}
	wg.Wait()
}

func TestFromEntriesAndRules(t *testing.T) {
	entries := []core.IncomeEntry{{Amount: d("3"), ExchangeRate: d("2"), Currency: "EUR"}}
	assert.Equal(t, []Income{{Amount: d("3"), ExchangeRate: d("2")}}, FromEntries(entries))

	rules := []core.TaxRule{{Name: "x", Kind: core.FixedRule, Value: d("7"), Active: true}}
	assert.Equal(t, []Rule{{Name: "x", Kind: core.FixedRule, Value: d("7")}}, FromRules(rules))
}
