package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campushub/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
	now            func() time.Time
}

func NewEventService(eventRepo domain.EventRepository, timeout time.Duration) domain.EventService {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &eventService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event == nil {
		return fmt.Errorf("%w: event is required", domain.ErrInvalidInput)
	}
	event.ClubID = strings.TrimSpace(event.ClubID)
	event.Title = strings.TrimSpace(event.Title)
	if err := validateEvent(event); err != nil {
		return err
	}

	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.RefreshStatus(now)

	return s.eventRepo.Create(ctx, event)
}

// GetEvent returns the event with its status recomputed for the current time.
func (s *eventService) GetEvent(ctx context.Context, clubID, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if clubID == "" || eventID == "" {
		return nil, fmt.Errorf("%w: club id and event id are required", domain.ErrInvalidInput)
	}
	event, err := s.eventRepo.GetByID(ctx, clubID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	event.RefreshStatus(s.now())
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, clubID, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, clubID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	if upd.Title != nil {
		event.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		event.Description = *upd.Description
	}
	if upd.Location != nil {
		event.Location = *upd.Location
	}
	if upd.Date != nil {
		event.Date = *upd.Date
	}
	if upd.Capacity != nil {
		event.Capacity = *upd.Capacity
	}
	if upd.RegistrationFee != nil {
		event.RegistrationFee = *upd.RegistrationFee
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	now := s.now()
	event.UpdatedAt = now
	event.RefreshStatus(now)
	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func validateEvent(e *domain.Event) error {
	switch {
	case e.ClubID == "":
		return fmt.Errorf("%w: club id is required", domain.ErrInvalidInput)
	case e.Title == "":
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	case e.Date.IsZero():
		return fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	case e.Capacity < 0:
		return fmt.Errorf("%w: capacity must not be negative", domain.ErrInvalidInput)
	case e.RegistrationFee < 0:
		return fmt.Errorf("%w: registration fee must not be negative", domain.ErrInvalidInput)
	}
	return nil
}
