package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date layout used for storage and the wire.
const DateLayout = "2006-01-02"

const (
	FixedRule      RuleKind = "fixed"
	PercentageRule RuleKind = "percentage"

	TaxPaymentEvent       EventKind = "tax_payment"
	ReportSubmissionEvent EventKind = "report_submission"
	OtherEvent            EventKind = "other"
)

type (
	RuleKind  string
	EventKind string

	// Date is a calendar date without time of day, always in UTC.
	Date struct {
		time.Time
	}

	User struct {
		ID           int64     `db:"id" json:"id"`
		Username     string    `db:"username" json:"username"`
		PasswordHash string    `db:"password_hash" json:"-"`
		CreatedAt    time.Time `db:"created_at" json:"created_at"`
		UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
	}

	IncomeEntry struct {
		ID           int64           `db:"id" json:"id"`
		UserID       int64           `db:"user_id" json:"user_id"`
		Amount       decimal.Decimal `db:"amount" json:"amount"`
		Currency     string          `db:"currency" json:"currency"`
		ExchangeRate decimal.Decimal `db:"exchange_rate" json:"exchange_rate"`
		Description  string          `db:"description" json:"description,omitempty"`
		Date         Date            `db:"date" json:"date"`
		CreatedAt    time.Time       `db:"created_at" json:"created_at"`
		UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	}

	TaxRule struct {
		ID        int64           `db:"id" json:"id"`
		UserID    int64           `db:"user_id" json:"user_id"`
		Name      string          `db:"name" json:"name"`
		Kind      RuleKind        `db:"kind" json:"kind"`
		Value     decimal.Decimal `db:"value" json:"value"`
		Active    bool            `db:"active" json:"active"`
		Year      int             `db:"year" json:"year"`
		Quarter   int             `db:"quarter" json:"quarter"`
		CreatedAt time.Time       `db:"created_at" json:"created_at"`
		UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
	}

	// TaxRuleSnapshot is the part of a rule that travels when a quarter's
	// settings are copied into another quarter.
	TaxRuleSnapshot struct {
		Name   string          `json:"name"`
		Kind   RuleKind        `json:"kind"`
		Value  decimal.Decimal `json:"value"`
		Active bool            `json:"active"`
	}

	Event struct {
		ID          int64     `db:"id" json:"id"`
		UserID      int64     `db:"user_id" json:"user_id"`
		Kind        EventKind `db:"kind" json:"kind"`
		Description string    `db:"description" json:"description"`
		Date        Date      `db:"date" json:"date"`
		Completed   bool      `db:"completed" json:"completed"`
		CreatedAt   time.Time `db:"created_at" json:"created_at"`
		UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	}

	// QuarterSnapshot is the last computed tax summary of a user's quarter.
	QuarterSnapshot struct {
		UserID      int64           `db:"user_id" json:"user_id"`
		Year        int             `db:"year" json:"year"`
		Quarter     int             `db:"quarter" json:"quarter"`
		TotalIncome decimal.Decimal `db:"total_income" json:"total_income"`
		TotalTax    decimal.Decimal `db:"total_tax" json:"total_tax"`
		Stale       bool            `db:"stale" json:"stale"`
		ComputedAt  time.Time       `db:"computed_at" json:"computed_at"`

		// Version counts the changes seen in the quarter. A snapshot
		// computed from an older version leaves the row stale.
		Version int64 `db:"version" json:"-"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsBefore reports whether d is strictly before other, by calendar day.
func (d Date) IsBefore(other Date) bool {
	return d.String() < other.String()
}

// Value implements driver.Valuer. Dates are stored as ISO strings so that
// range filters compare lexicographically.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case time.Time:
		*d = NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	// Tolerate rows written with a time component.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	return d.parse(s)
}

// IsValid reports whether k is a known rule kind.
func (k RuleKind) IsValid() bool {
	switch k {
	case FixedRule, PercentageRule:
		return true
	default:
		return false
	}
}

// IsValid reports whether k is a known event kind.
func (k EventKind) IsValid() bool {
	switch k {
	case TaxPaymentEvent, ReportSubmissionEvent, OtherEvent:
		return true
	default:
		return false
	}
}

// NormalizedAmount returns the amount converted to the base currency.
func (e IncomeEntry) NormalizedAmount() decimal.Decimal {
	return e.Amount.Mul(e.ExchangeRate)
}

func (e IncomeEntry) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.ExchangeRate.IsPositive() {
		return ErrInvalidRate
	}
	if !IsCurrencyCode(e.Currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, e.Currency)
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 500 {
		return fmt.Errorf("%w: max 500 characters", ErrDescriptionTooLong)
	}
	return nil
}

func (r TaxRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedRuleKind, r.Kind)
	}
	if r.Value.IsNegative() {
		return ErrInvalidAmount
	}
	if r.Year < 1 || r.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, r.Year)
	}
	if r.Quarter < 1 || r.Quarter > 4 {
		return fmt.Errorf("%w: quarter %d", ErrInvalidPeriod, r.Quarter)
	}
	return nil
}

// Snapshot returns the copyable settings of the rule.
func (r TaxRule) Snapshot() TaxRuleSnapshot {
	return TaxRuleSnapshot{Name: r.Name, Kind: r.Kind, Value: r.Value, Active: r.Active}
}

func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedEventKind, e.Kind)
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 500 {
		return fmt.Errorf("%w: max 500 characters", ErrDescriptionTooLong)
	}
	return e.Date.Validate()
}

// IsCurrencyCode reports whether s looks like an ISO 4217 alphabetic code.
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
