package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	ports "earntracker/internal/sheets"
)

// parseRows converts a values matrix (as returned by the Sheets API) back
// into report rows. Blank lines are skipped; a malformed line fails the
// whole read with its 1-based row number.
func parseRows(values [][]any) ([]ports.QuarterReportRow, error) {
	out := make([]ports.QuarterReportRow, 0, len(values))
	for i, raw := range values {
		row := toStrings(raw)
		if len(row) == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		r, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseRow(row []string) (ports.QuarterReportRow, error) {
	var r ports.QuarterReportRow
	var err error

	if r.Year, err = strconv.Atoi(safeGet(row, 0)); err != nil {
		return r, fmt.Errorf("year: %w", err)
	}
	if r.Quarter, err = strconv.Atoi(safeGet(row, 1)); err != nil {
		return r, fmt.Errorf("quarter: %w", err)
	}
	r.Username = safeGet(row, 2)
	if r.TotalIncome, err = parseAmount(safeGet(row, 3)); err != nil {
		return r, fmt.Errorf("total income: %w", err)
	}
	if r.TotalTax, err = parseAmount(safeGet(row, 4)); err != nil {
		return r, fmt.Errorf("total tax: %w", err)
	}
	if s := safeGet(row, 5); s != "" {
		if r.ComputedAt, err = time.Parse(time.RFC3339, s); err != nil {
			return r, fmt.Errorf("computed at: %w", err)
		}
	}
	return r, nil
}

// parseAmount accepts the sheet's rendering of a number, which may use
// thousands separators or a decimal comma depending on the locale.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
