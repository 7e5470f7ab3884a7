package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"earntracker/internal/core"
	"earntracker/internal/period"
	"earntracker/internal/storage"
)

// fakeStore is an in-memory stand-in for the SQLite repository.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]core.User
	incomes map[int64]core.IncomeEntry
	rules   map[int64]core.TaxRule
	events  map[int64]core.Event

	replaceErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[int64]core.User{},
		incomes: map[int64]core.IncomeEntry{},
		rules:   map[int64]core.TaxRule{},
		events:  map[int64]core.Event{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateUser(_ context.Context, username, hash string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return core.User{}, core.ErrUserExists
		}
	}
	u := core.User{ID: f.id(), Username: username, PasswordHash: hash, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (f *fakeStore) ListUsers(context.Context) ([]core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CreateIncome(_ context.Context, e core.IncomeEntry) (core.IncomeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.id()
	f.incomes[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetIncome(_ context.Context, userID, id int64) (core.IncomeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.incomes[id]
	if !ok || e.UserID != userID {
		return core.IncomeEntry{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) UpdateIncome(ctx context.Context, userID, id int64, p core.IncomePatch) (core.IncomeEntry, error) {
	e, err := f.GetIncome(ctx, userID, id)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e = p.Apply(e)
	f.incomes[id] = e
	return e, nil
}

func (f *fakeStore) DeleteIncome(ctx context.Context, userID, id int64) error {
	if _, err := f.GetIncome(ctx, userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.incomes, id)
	return nil
}

func (f *fakeStore) ListIncomes(_ context.Context, userID int64) ([]core.IncomeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.IncomeEntry
	for _, e := range f.incomes {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Date.IsBefore(out[i].Date) })
	return out, nil
}

func (f *fakeStore) FetchIncome(_ context.Context, userID int64, start, end core.Date) ([]core.IncomeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []core.IncomeEntry{}
	for _, e := range f.incomes {
		if e.UserID == userID && !e.Date.IsBefore(start) && !end.IsBefore(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.IsBefore(out[j].Date)
	})
	return out, nil
}

func (f *fakeStore) CreateTaxRule(_ context.Context, r core.TaxRule) (core.TaxRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.id()
	f.rules[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetTaxRule(_ context.Context, userID, id int64) (core.TaxRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok || r.UserID != userID {
		return core.TaxRule{}, core.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) UpdateTaxRule(ctx context.Context, userID, id int64, p core.TaxRulePatch) (core.TaxRule, error) {
	r, err := f.GetTaxRule(ctx, userID, id)
	if err != nil {
		return core.TaxRule{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r = p.Apply(r)
	f.rules[id] = r
	return r, nil
}

func (f *fakeStore) DeleteTaxRule(ctx context.Context, userID, id int64) error {
	if _, err := f.GetTaxRule(ctx, userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rules, id)
	return nil
}

func (f *fakeStore) ListTaxRules(_ context.Context, userID int64, flt storage.RuleFilter) ([]core.TaxRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []core.TaxRule{}
	for _, r := range f.rules {
		if r.UserID != userID {
			continue
		}
		if flt.Year != nil && r.Year != *flt.Year {
			continue
		}
		if flt.Quarter != nil && r.Quarter != *flt.Quarter {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) fetchRules(userID int64, p period.Period, activeOnly bool) []core.TaxRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []core.TaxRule{}
	for _, r := range f.rules {
		if r.UserID == userID && r.Year == p.Year && r.Quarter == p.Quarter && (r.Active || !activeOnly) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) FetchActiveTaxRules(_ context.Context, userID int64, p period.Period) ([]core.TaxRule, error) {
	return f.fetchRules(userID, p, true), nil
}

func (f *fakeStore) FetchAllTaxRules(_ context.Context, userID int64, p period.Period) ([]core.TaxRule, error) {
	return f.fetchRules(userID, p, false), nil
}

func (f *fakeStore) ReplaceTaxRules(_ context.Context, userID int64, target period.Period, snaps []core.TaxRuleSnapshot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return 0, f.replaceErr
	}
	for id, r := range f.rules {
		if r.UserID == userID && r.Year == target.Year && r.Quarter == target.Quarter {
			delete(f.rules, id)
		}
	}
	for _, s := range snaps {
		id := f.id()
		f.rules[id] = core.TaxRule{
			ID: id, UserID: userID, Name: s.Name, Kind: s.Kind, Value: s.Value, Active: s.Active,
			Year: target.Year, Quarter: target.Quarter,
		}
	}
	return len(snaps), nil
}

func (f *fakeStore) CopyTaxRules(ctx context.Context, userID int64, source, target period.Period) (int, error) {
	rules := f.fetchRules(userID, source, false)
	snaps := make([]core.TaxRuleSnapshot, len(rules))
	for i, r := range rules {
		snaps[i] = r.Snapshot()
	}
	return f.ReplaceTaxRules(ctx, userID, target, snaps)
}

func (f *fakeStore) CreateEvent(_ context.Context, e core.Event) (core.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.id()
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetEvent(_ context.Context, userID, id int64) (core.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || e.UserID != userID {
		return core.Event{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) UpdateEvent(ctx context.Context, userID, id int64, p core.EventPatch) (core.Event, error) {
	e, err := f.GetEvent(ctx, userID, id)
	if err != nil {
		return core.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e = p.Apply(e)
	f.events[id] = e
	return e, nil
}

func (f *fakeStore) DeleteEvent(ctx context.Context, userID, id int64) error {
	if _, err := f.GetEvent(ctx, userID, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
	return nil
}

func (f *fakeStore) ListEvents(_ context.Context, userID int64, flt storage.EventFilter) ([]core.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []core.Event{}
	for _, e := range f.events {
		if e.UserID != userID {
			continue
		}
		if flt.Completed != nil && e.Completed != *flt.Completed {
			continue
		}
		if flt.From != nil && e.Date.IsBefore(*flt.From) {
			continue
		}
		if flt.To != nil && flt.To.IsBefore(e.Date) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.IsBefore(out[j].Date) })
	if flt.Limit > 0 && uint64(len(out)) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

type published struct {
	UserID int64
	Period period.Period
	Reason string
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) PublishPeriodChanged(_ context.Context, userID int64, pr period.Period, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{UserID: userID, Period: pr, Reason: reason})
	return nil
}

func (p *fakePublisher) periods() []period.Period {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]period.Period, len(p.sent))
	for i, s := range p.sent {
		out[i] = s.Period
	}
	return out
}

type fakeRates struct {
	quotes map[string]decimal.Decimal
	calls  int
}

var errNoQuote = errors.New("no quote")

func (r *fakeRates) Rate(_ context.Context, currency string, _ core.Date) (decimal.Decimal, error) {
	r.calls++
	q, ok := r.quotes[currency]
	if !ok {
		return decimal.Zero, errNoQuote
	}
	return q, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
