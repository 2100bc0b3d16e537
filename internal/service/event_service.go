package service

import (
	"context"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/repository"
)

const (
	DefaultEventLimit = 100
	MaxEventLimit     = 1000
)

// EventService edits stored events. Edits change the store only; the
// in-memory table behind chat answers is rebuilt on the next seed.
type EventService struct {
	eventRepo repository.EventRepository
}

func NewEventService(eventRepo repository.EventRepository) *EventService {
	return &EventService{eventRepo: eventRepo}
}

// List pages through events by id. A non-positive limit uses the default;
// limits above MaxEventLimit are clamped.
func (s *EventService) List(ctx context.Context, skip, limit int) ([]*domain.Event, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	return s.eventRepo.List(ctx, skip, limit)
}

func (s *EventService) Get(ctx context.Context, id uint) (*domain.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *EventService) Create(ctx context.Context, raw domain.RawEvent) (*domain.Event, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	event := &domain.Event{RawEvent: raw}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) Update(ctx context.Context, id uint, raw domain.RawEvent) (*domain.Event, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	event := &domain.Event{ID: id, RawEvent: raw}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, id uint) error {
	return s.eventRepo.Delete(ctx, id)
}

// Types returns the distinct non-empty event types, sorted.
func (s *EventService) Types(ctx context.Context) ([]string, error) {
	types, err := s.eventRepo.DistinctTypes(ctx)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []string{}
	}
	return types, nil
}
