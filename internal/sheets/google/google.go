package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "earntracker/internal/sheets"
)

const defaultSheetName = "Quarterly taxes"

// header is written above the first row of an empty sheet.
var header = []any{"Year", "Quarter", "User", "Total income", "Total tax", "Computed at"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.ReportWriter = (*Client)(nil)
	_ ports.ReportReader = (*Client)(nil)
)

// New creates a Sheets client authenticated with service account
// credentials. Extra options are appended after the credentials.
func New(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = defaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// AppendQuarterReport appends one row after the last filled row of the
// report sheet and returns the A1 range that was written.
func (c *Client) AppendQuarterReport(ctx context.Context, row ports.QuarterReportRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	values := [][]any{formatRow(row)}
	empty, err := c.isEmpty(ctx)
	if err != nil {
		return "", err
	}
	if empty {
		values = append([][]any{header}, values...)
	}

	rng := fmt.Sprintf("'%s'!A:F", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	slog.DebugContext(ctx, "Quarter report exported", "component", "sheets", "ref", ref,
		"year", row.Year, "quarter", row.Quarter)
	return ref, nil
}

func (c *Client) isEmpty(ctx context.Context) (bool, error) {
	rng := fmt.Sprintf("'%s'!A1:A1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	return len(resp.Values) == 0, nil
}

// ListQuarterReports reads every exported row of the given year.
func (c *Client) ListQuarterReports(ctx context.Context, year int) ([]ports.QuarterReportRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("'%s'!A2:F", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows, err := parseRows(resp.Values)
	if err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, r := range rows {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func formatRow(row ports.QuarterReportRow) []any {
	computed := row.ComputedAt
	if computed.IsZero() {
		computed = time.Now()
	}
	user := row.Username
	if user == "" {
		user = fmt.Sprintf("#%d", row.UserID)
	}
	return []any{
		row.Year,
		row.Quarter,
		user,
		row.TotalIncome.StringFixed(2),
		row.TotalTax.StringFixed(2),
		computed.UTC().Format(time.RFC3339),
	}
}
