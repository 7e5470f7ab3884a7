package core

import "github.com/shopspring/decimal"

// Patches carry partial updates; nil fields keep their stored value.
type (
	IncomePatch struct {
		Amount       *decimal.Decimal `json:"amount,omitempty"`
		Currency     *string          `json:"currency,omitempty"`
		ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
		Description  *string          `json:"description,omitempty"`
		Date         *Date            `json:"date,omitempty"`
	}

	TaxRulePatch struct {
		Name    *string          `json:"name,omitempty"`
		Kind    *RuleKind        `json:"kind,omitempty"`
		Value   *decimal.Decimal `json:"value,omitempty"`
		Active  *bool            `json:"active,omitempty"`
		Year    *int             `json:"year,omitempty"`
		Quarter *int             `json:"quarter,omitempty"`
	}

	EventPatch struct {
		Kind        *EventKind `json:"kind,omitempty"`
		Description *string    `json:"description,omitempty"`
		Date        *Date      `json:"date,omitempty"`
		Completed   *bool      `json:"completed,omitempty"`
	}
)

func (p IncomePatch) Apply(e IncomeEntry) IncomeEntry {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Currency != nil {
		e.Currency = NormalizeCurrency(*p.Currency)
	}
	if p.ExchangeRate != nil {
		e.ExchangeRate = *p.ExchangeRate
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	return e
}

func (p TaxRulePatch) Apply(r TaxRule) TaxRule {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Kind != nil {
		r.Kind = *p.Kind
	}
	if p.Value != nil {
		r.Value = *p.Value
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.Year != nil {
		r.Year = *p.Year
	}
	if p.Quarter != nil {
		r.Quarter = *p.Quarter
	}
	return r
}

func (p EventPatch) Apply(e Event) Event {
	if p.Kind != nil {
		e.Kind = *p.Kind
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Completed != nil {
		e.Completed = *p.Completed
	}
	return e
}
