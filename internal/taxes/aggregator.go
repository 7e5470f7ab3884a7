// Package taxes computes the tax liability of a period.
//
// Each rule kind has its own Calculator registered in a lookup table, so a
// new kind is added by registering one more strategy. The aggregation is
// pure and safe for concurrent use.
package taxes

import (
	"fmt"

	"github.com/shopspring/decimal"

	"earntracker/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Income is the part of an income entry the aggregator needs.
type Income struct {
	Amount       decimal.Decimal
	ExchangeRate decimal.Decimal
}

// Rule is the part of a tax rule the aggregator needs.
type Rule struct {
	Name  string
	Kind  core.RuleKind
	Value decimal.Decimal
}

// Line is the amount owed for one rule.
type Line struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Result is the aggregation output. Taxes keeps the order of the input rules.
type Result struct {
	TotalIncome decimal.Decimal `json:"total_income"`
	TotalTax    decimal.Decimal `json:"total_tax"`
	Taxes       []Line          `json:"taxes"`
}

// Calculator is the strategy interface for one rule kind.
type Calculator interface {
	// Amount returns the tax owed under a rule of value v for the given
	// normalized income.
	Amount(v, totalIncome decimal.Decimal) decimal.Decimal
}

// FixedCalculator owes the rule value regardless of income.
type FixedCalculator struct{}

func (FixedCalculator) Amount(v, _ decimal.Decimal) decimal.Decimal {
	return v
}

// PercentageCalculator owes v percent of the total income.
type PercentageCalculator struct{}

func (PercentageCalculator) Amount(v, totalIncome decimal.Decimal) decimal.Decimal {
	return totalIncome.Mul(v).Div(hundred)
}

var calculators = map[core.RuleKind]Calculator{
	core.FixedRule:      FixedCalculator{},
	core.PercentageRule: PercentageCalculator{},
}

// CalculatorFor returns the registered calculator for kind.
func CalculatorFor(kind core.RuleKind) (Calculator, error) {
	c, ok := calculators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedRuleKind, kind)
	}
	return c, nil
}

// TotalIncome sums amount*exchange_rate over incomes. Empty input is zero.
func TotalIncome(incomes []Income) decimal.Decimal {
	total := decimal.Zero
	for _, in := range incomes {
		total = total.Add(in.Amount.Mul(in.ExchangeRate))
	}
	return total
}

// Aggregate applies rules to the normalized total of incomes. A rule of an
// unknown kind fails the whole call; no partial result is returned.
func Aggregate(incomes []Income, rules []Rule) (Result, error) {
	res := Result{
		TotalIncome: TotalIncome(incomes),
		TotalTax:    decimal.Zero,
		Taxes:       make([]Line, 0, len(rules)),
	}
	for _, r := range rules {
		calc, err := CalculatorFor(r.Kind)
		if err != nil {
			return Result{}, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		amount := calc.Amount(r.Value, res.TotalIncome)
		res.Taxes = append(res.Taxes, Line{Name: r.Name, Amount: amount})
		res.TotalTax = res.TotalTax.Add(amount)
	}
	return res, nil
}

// FromEntries projects stored income entries onto aggregator input.
func FromEntries(entries []core.IncomeEntry) []Income {
	out := make([]Income, len(entries))
	for i, e := range entries {
		out[i] = Income{Amount: e.Amount, ExchangeRate: e.ExchangeRate}
	}
	return out
}

// FromRules projects stored tax rules onto aggregator input.
func FromRules(rules []core.TaxRule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Name: r.Name, Kind: r.Kind, Value: r.Value}
	}
	return out
}
