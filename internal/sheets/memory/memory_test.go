package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "earntracker/internal/sheets"
)

func TestStoreAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendQuarterReport(ctx, ports.QuarterReportRow{Year: 2025, Quarter: 1})
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)
	_, err = s.AppendQuarterReport(ctx, ports.QuarterReportRow{Year: 2024, Quarter: 4})
	require.NoError(t, err)

	rows, err := s.ListQuarterReports(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, s.Len())
}

func TestStoreRejectsInvalidQuarter(t *testing.T) {
	_, err := New().AppendQuarterReport(context.Background(), ports.QuarterReportRow{Year: 2025, Quarter: 0})
	assert.Error(t, err)
}
