package services

import (
	"context"
	"fmt"
	"time"

	"earntracker/internal/core"
	"earntracker/internal/storage"
)

// EventStatus selects events by completion.
type EventStatus string

const (
	EventsAll       EventStatus = "all"
	EventsPending   EventStatus = "pending"
	EventsCompleted EventStatus = "completed"
)

// ParseEventStatus maps a query value to a status. Empty means all.
func ParseEventStatus(s string) (EventStatus, error) {
	switch EventStatus(s) {
	case "", EventsAll:
		return EventsAll, nil
	case EventsPending, EventsCompleted:
		return EventStatus(s), nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

// EventService manages the tax calendar: payments, report submissions and
// other reminders.
type EventService struct {
	store EventStore
	now   func() time.Time
}

func NewEventService(store EventStore) *EventService {
	return &EventService{store: store, now: time.Now}
}

func (s *EventService) WithClock(now func() time.Time) *EventService {
	s.now = now
	return s
}

func (s *EventService) Create(ctx context.Context, e core.Event) (core.Event, error) {
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	created, err := s.store.CreateEvent(ctx, e)
	if err != nil {
		return core.Event{}, fmt.Errorf("save event: %w", err)
	}
	return created, nil
}

func (s *EventService) Update(ctx context.Context, userID, id int64, p core.EventPatch) (core.Event, error) {
	old, err := s.store.GetEvent(ctx, userID, id)
	if err != nil {
		return core.Event{}, err
	}
	if err := p.Apply(old).Validate(); err != nil {
		return core.Event{}, err
	}
	updated, err := s.store.UpdateEvent(ctx, userID, id, p)
	if err != nil {
		return core.Event{}, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *EventService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteEvent(ctx, userID, id)
}

func (s *EventService) List(ctx context.Context, userID int64, status EventStatus) ([]core.Event, error) {
	var f storage.EventFilter
	switch status {
	case EventsPending:
		done := false
		f.Completed = &done
	case EventsCompleted:
		done := true
		f.Completed = &done
	}
	return s.store.ListEvents(ctx, userID, f)
}

// Upcoming returns at most limit pending events dated today or later.
func (s *EventService) Upcoming(ctx context.Context, userID int64, limit int) ([]core.Event, error) {
	if limit <= 0 {
		limit = 5
	}
	now := s.now().UTC()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	done := false
	return s.store.ListEvents(ctx, userID, storage.EventFilter{
		Completed: &done,
		From:      &today,
		Limit:     uint64(limit),
	})
}
