package backend

import (
	"context"

	"earntracker/internal/amqp"
	"earntracker/internal/services"
	"earntracker/internal/sheets"
	"earntracker/internal/storage"
)

// Reports is a report destination that can also list what it holds.
type Reports interface {
	sheets.ReportWriter
	sheets.ReportReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the opened infrastructure and its cleanup function.
type Result struct {
	Store   *storage.SQLiteRepository
	Reports Reports
	// Bus is nil when no broker is configured or it could not be reached.
	Bus     *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the bus as a services.Publisher, or nil when the bus
// is disabled. A nil *amqp.Client must not leak into the interface.
func (r *Result) Publisher() services.Publisher {
	if r.Bus == nil {
		return nil
	}
	return r.Bus
}

// Factory opens the infrastructure described by a Config.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Report destination
	Reports ReportType

	// SQLite
	SQLiteDBPath string

	// AMQP; optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

// ReportType selects where quarter reports are exported.
type ReportType string

const (
	MemoryReports ReportType = "memory"
	SheetsReports ReportType = "sheets"
)

// String implements fmt.Stringer
func (rt ReportType) String() string {
	return string(rt)
}

// IsValid returns true if the report type is known
func (rt ReportType) IsValid() bool {
	switch rt {
	case MemoryReports, SheetsReports:
		return true
	default:
		return false
	}
}
