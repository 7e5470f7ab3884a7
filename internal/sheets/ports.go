// Package sheets defines the report export ports and their adapters.
package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// QuarterReportRow is one exported line of the quarterly tax report.
type QuarterReportRow struct {
	UserID      int64
	Username    string
	Year        int
	Quarter     int
	TotalIncome decimal.Decimal
	TotalTax    decimal.Decimal
	ComputedAt  time.Time
}

// Ports for outbound adapters.
type (
	ReportWriter interface {
		AppendQuarterReport(ctx context.Context, row QuarterReportRow) (rowRef string, err error)
	}

	// ReportReader reads exported rows back, e.g. to show what was sent.
	ReportReader interface {
		ListQuarterReports(ctx context.Context, year int) ([]QuarterReportRow, error)
	}
)
