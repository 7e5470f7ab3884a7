package services

import (
	"context"
	"log/slog"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/storage"
)

// Store interfaces are declared here, next to their consumers, and are
// satisfied by *storage.SQLiteRepository.
type (
	UserStore interface {
		CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		DeleteUser(ctx context.Context, id int64) error
	}

	IncomeStore interface {
		CreateIncome(ctx context.Context, e core.IncomeEntry) (core.IncomeEntry, error)
		GetIncome(ctx context.Context, userID, id int64) (core.IncomeEntry, error)
		UpdateIncome(ctx context.Context, userID, id int64, p core.IncomePatch) (core.IncomeEntry, error)
		DeleteIncome(ctx context.Context, userID, id int64) error
		ListIncomes(ctx context.Context, userID int64) ([]core.IncomeEntry, error)
		FetchIncome(ctx context.Context, userID int64, start, end core.Date) ([]core.IncomeEntry, error)
	}

	RuleStore interface {
		CreateTaxRule(ctx context.Context, rule core.TaxRule) (core.TaxRule, error)
		GetTaxRule(ctx context.Context, userID, id int64) (core.TaxRule, error)
		UpdateTaxRule(ctx context.Context, userID, id int64, p core.TaxRulePatch) (core.TaxRule, error)
		DeleteTaxRule(ctx context.Context, userID, id int64) error
		ListTaxRules(ctx context.Context, userID int64, f storage.RuleFilter) ([]core.TaxRule, error)
	}

	EventStore interface {
		CreateEvent(ctx context.Context, e core.Event) (core.Event, error)
		GetEvent(ctx context.Context, userID, id int64) (core.Event, error)
		UpdateEvent(ctx context.Context, userID, id int64, p core.EventPatch) (core.Event, error)
		DeleteEvent(ctx context.Context, userID, id int64) error
		ListEvents(ctx context.Context, userID int64, f storage.EventFilter) ([]core.Event, error)
	}

	// TaxStore is what the tax computations and the settings copier read
	// and write.
	TaxStore interface {
		FetchIncome(ctx context.Context, userID int64, start, end core.Date) ([]core.IncomeEntry, error)
		ListIncomes(ctx context.Context, userID int64) ([]core.IncomeEntry, error)
		FetchActiveTaxRules(ctx context.Context, userID int64, p period.Period) ([]core.TaxRule, error)
		CopyTaxRules(ctx context.Context, userID int64, source, target period.Period) (int, error)
		ListEvents(ctx context.Context, userID int64, f storage.EventFilter) ([]core.Event, error)
	}

	// Publisher announces that a user's quarter needs recomputation.
	// *amqp.Client implements it.
	Publisher interface {
		PublishPeriodChanged(ctx context.Context, userID int64, p period.Period, reason string) error
	}
)

var (
	_ UserStore   = (*storage.SQLiteRepository)(nil)
	_ IncomeStore = (*storage.SQLiteRepository)(nil)
	_ RuleStore   = (*storage.SQLiteRepository)(nil)
	_ EventStore  = (*storage.SQLiteRepository)(nil)
	_ TaxStore    = (*storage.SQLiteRepository)(nil)
)

// notifier publishes period changes. A nil publisher turns it into a no-op,
// and publish failures are logged but never fail the caller: the stored
// change already succeeded and the worker's stale pass catches up.
type notifier struct {
	pub Publisher
}

func (n notifier) changed(ctx context.Context, userID int64, reason string, periods ...period.Period) {
	if n.pub == nil {
		return
	}
	seen := make(map[period.Period]bool, len(periods))
	for _, p := range periods {
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := n.pub.PublishPeriodChanged(ctx, userID, p, reason); err != nil {
			slog.WarnContext(ctx, "Failed to publish period change",
				"user_id", userID, "period", p.String(), "reason", reason, "error", err)
		}
	}
}
