package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"earntracker/internal/amqp"
	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/services"
	"earntracker/internal/sheets"
)

// Computer produces the tax report of a whole quarter.
type Computer interface {
	ComputePeriod(ctx context.Context, userID int64, p period.Period) (services.TaxReport, error)
}

// SnapshotStore persists computed quarter summaries.
type SnapshotStore interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetSnapshot(ctx context.Context, userID int64, p period.Period) (core.QuarterSnapshot, error)
	UpsertSnapshot(ctx context.Context, s core.QuarterSnapshot) error
	ListStaleSnapshots(ctx context.Context, limit int) ([]core.QuarterSnapshot, error)
}

// SnapshotWorker keeps quarter snapshots current and exports each fresh
// summary to the report writer.
type SnapshotWorker struct {
	store     SnapshotStore
	computer  Computer
	writer    sheets.ReportWriter
	batchSize int
	now       func() time.Time
}

func NewSnapshotWorker(store SnapshotStore, computer Computer, writer sheets.ReportWriter, batchSize int) *SnapshotWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SnapshotWorker{
		store:     store,
		computer:  computer,
		writer:    writer,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// HandlePeriodChanged processes a single period change message from AMQP.
func (w *SnapshotWorker) HandlePeriodChanged(ctx context.Context, msg *amqp.PeriodChangedMessage) error {
	slog.InfoContext(ctx, "Processing period change",
		"message_id", msg.ID,
		"user_id", msg.UserID,
		"period", msg.Period().String(),
		"reason", msg.Reason)

	return w.Refresh(ctx, msg.UserID, msg.Period())
}

// Refresh recomputes one quarter, exports it and then stores the snapshot.
// A failed export leaves the quarter stale for the next pass. A user that no
// longer exists is skipped without error.
func (w *SnapshotWorker) Refresh(ctx context.Context, userID int64, p period.Period) error {
	user, err := w.store.GetUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Skipping refresh for missing user", "user_id", userID, "period", p.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	// The version is read before computing so that changes arriving
	// during the computation keep the row stale.
	var version int64
	current, err := w.store.GetSnapshot(ctx, userID, p)
	switch {
	case err == nil:
		version = current.Version
	case !errors.Is(err, core.ErrNotFound):
		return fmt.Errorf("get snapshot: %w", err)
	}

	report, err := w.computer.ComputePeriod(ctx, userID, p)
	if err != nil {
		return fmt.Errorf("compute %s: %w", p, err)
	}

	computedAt := w.now().UTC()
	ref := ""
	if w.writer != nil {
		ref, err = w.writer.AppendQuarterReport(ctx, sheets.QuarterReportRow{
			UserID:      userID,
			Username:    user.Username,
			Year:        p.Year,
			Quarter:     p.Quarter,
			TotalIncome: report.TotalIncome,
			TotalTax:    report.TotalTax,
			ComputedAt:  computedAt,
		})
		if err != nil {
			return fmt.Errorf("export report: %w", err)
		}
	}

	snap := core.QuarterSnapshot{
		UserID:      userID,
		Year:        p.Year,
		Quarter:     p.Quarter,
		TotalIncome: report.TotalIncome,
		TotalTax:    report.TotalTax,
		ComputedAt:  computedAt,
		Version:     version,
	}
	if err := w.store.UpsertSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Quarter snapshot refreshed",
		"user_id", userID,
		"period", p.String(),
		"total_income", report.TotalIncome.String(),
		"total_tax", report.TotalTax.String(),
		"sheets_ref", ref)
	return nil
}

// RefreshStale refreshes one batch of stale snapshots. This is a backup
// mechanism in case AMQP messages are lost. It returns how many were
// refreshed; individual failures are logged and left stale for the next
// pass.
func (w *SnapshotWorker) RefreshStale(ctx context.Context) (int, error) {
	return w.refreshStale(ctx, w.batchSize)
}

// StartupCheck runs a larger stale pass when the worker starts, to recover
// from downtime.
func (w *SnapshotWorker) StartupCheck(ctx context.Context) error {
	n, err := w.refreshStale(ctx, w.batchSize*5)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Startup snapshot check completed", "count", n)
	return nil
}

func (w *SnapshotWorker) refreshStale(ctx context.Context, limit int) (int, error) {
	stale, err := w.store.ListStaleSnapshots(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale snapshots: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	refreshed := 0
	for _, s := range stale {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		p := period.Period{Year: s.Year, Quarter: s.Quarter}
		if err := w.Refresh(ctx, s.UserID, p); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh stale snapshot",
				"user_id", s.UserID, "period", p.String(), "error", err)
			continue
		}
		refreshed++
	}

	slog.InfoContext(ctx, "Stale snapshots processed", "total", len(stale), "refreshed", refreshed)
	return refreshed, nil
}

// Run performs a stale pass every interval until ctx is cancelled.
func (w *SnapshotWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.RefreshStale(ctx); err != nil {
				slog.ErrorContext(ctx, "Stale snapshot pass failed", "error", err)
			}
		}
	}
}
