package services

import (
	"context"
	"fmt"
	"log/slog"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/storage"
)

type RuleService struct {
	store    RuleStore
	notifier notifier
}

func NewRuleService(store RuleStore, pub Publisher) *RuleService {
	return &RuleService{store: store, notifier: notifier{pub: pub}}
}

func (s *RuleService) Create(ctx context.Context, r core.TaxRule) (core.TaxRule, error) {
	if err := r.Validate(); err != nil {
		return core.TaxRule{}, err
	}
	created, err := s.store.CreateTaxRule(ctx, r)
	if err != nil {
		return core.TaxRule{}, fmt.Errorf("save tax rule: %w", err)
	}
	slog.InfoContext(ctx, "Tax rule created",
		"user_id", created.UserID, "record_id", created.ID, "year", created.Year, "quarter", created.Quarter)
	s.notifier.changed(ctx, created.UserID, "rule_created", rulePeriod(created))
	return created, nil
}

// Update applies a partial change. Moving a rule to another quarter marks
// both quarters as changed.
func (s *RuleService) Update(ctx context.Context, userID, id int64, p core.TaxRulePatch) (core.TaxRule, error) {
	old, err := s.store.GetTaxRule(ctx, userID, id)
	if err != nil {
		return core.TaxRule{}, err
	}
	if err := p.Apply(old).Validate(); err != nil {
		return core.TaxRule{}, err
	}
	updated, err := s.store.UpdateTaxRule(ctx, userID, id, p)
	if err != nil {
		return core.TaxRule{}, fmt.Errorf("update tax rule: %w", err)
	}
	s.notifier.changed(ctx, userID, "rule_updated", rulePeriod(old), rulePeriod(updated))
	return updated, nil
}

func (s *RuleService) Delete(ctx context.Context, userID, id int64) error {
	old, err := s.store.GetTaxRule(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTaxRule(ctx, userID, id); err != nil {
		return fmt.Errorf("delete tax rule: %w", err)
	}
	s.notifier.changed(ctx, userID, "rule_deleted", rulePeriod(old))
	return nil
}

// List returns the user's rules, optionally narrowed to a year and quarter.
func (s *RuleService) List(ctx context.Context, userID int64, f storage.RuleFilter) ([]core.TaxRule, error) {
	if f.Quarter != nil && (*f.Quarter < 1 || *f.Quarter > 4) {
		return nil, fmt.Errorf("%w: quarter %d", core.ErrInvalidPeriod, *f.Quarter)
	}
	return s.store.ListTaxRules(ctx, userID, f)
}

func rulePeriod(r core.TaxRule) period.Period {
	return period.Period{Year: r.Year, Quarter: r.Quarter}
}
