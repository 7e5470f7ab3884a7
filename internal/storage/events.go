package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"earntracker/internal/core"
)

var eventColumns = []string{
	"id", "user_id", "kind", "description", "date", "completed", "created_at", "updated_at",
}

// EventFilter narrows ListEvents. Nil fields match everything.
type EventFilter struct {
	Completed *bool
	From      *core.Date
	To        *core.Date
	Limit     uint64
}

func (r *SQLiteRepository) CreateEvent(ctx context.Context, e core.Event) (core.Event, error) {
	id, err := insertID(ctx, r.db, sq.Insert("events").
		Columns("user_id", "kind", "description", "date", "completed").
		Values(e.UserID, string(e.Kind), e.Description, e.Date.String(), e.Completed))
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}
	return r.GetEvent(ctx, e.UserID, id)
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, userID, id int64) (core.Event, error) {
	e, err := getOne[core.Event](ctx, r.db, sq.Select(eventColumns...).From("events").Where(owned(userID, id)))
	if err != nil {
		return core.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateEvent(ctx context.Context, userID, id int64, p core.EventPatch) (core.Event, error) {
	set := map[string]any{}
	if p.Kind != nil {
		set["kind"] = string(*p.Kind)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Date != nil {
		set["date"] = p.Date.String()
	}
	if p.Completed != nil {
		set["completed"] = *p.Completed
	}

	if err := execOne(ctx, r.db, sq.Update("events").SetMap(touch(set)).Where(owned(userID, id))); err != nil {
		return core.Event{}, fmt.Errorf("update event %d: %w", id, err)
	}
	return r.GetEvent(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, userID, id int64) error {
	if err := execOne(ctx, r.db, sq.Delete("events").Where(owned(userID, id))); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

// ListEvents returns the user's events in date order.
func (r *SQLiteRepository) ListEvents(ctx context.Context, userID int64, f EventFilter) ([]core.Event, error) {
	q := sq.Select(eventColumns...).From("events").Where(sq.Eq{"user_id": userID})
	if f.Completed != nil {
		q = q.Where(sq.Eq{"completed": *f.Completed})
	}
	if f.From != nil {
		q = q.Where(sq.GtOrEq{"date": f.From.String()})
	}
	if f.To != nil {
		q = q.Where(sq.LtOrEq{"date": f.To.String()})
	}
	q = q.OrderBy("date", "id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	out, err := selectAll[core.Event](ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}
