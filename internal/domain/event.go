package domain

import (
	"context"
	"time"
)

// EventStatus is derived from the event date; it is never edited directly.
type EventStatus string

const (
	EventUpcoming EventStatus = "upcoming"
	EventOngoing  EventStatus = "ongoing"
	EventPast     EventStatus = "past"
)

// EventDuration is how long an event counts as ongoing after its start.
const EventDuration = 24 * time.Hour

// Event is a club-owned activity.
// swagger:model Event
type Event struct {
	ID              string      `json:"id"`
	ClubID          string      `json:"club_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Location        string      `json:"location"`
	Date            time.Time   `json:"date"`
	Capacity        int         `json:"capacity"`
	RegistrationFee float64     `json:"registration_fee"`
	Status          EventStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewEvent returns a new Event with its status computed for now. ID is set by the repository on create.
func NewEvent(clubID, title, description, location string, date time.Time, capacity int, fee float64, now time.Time) *Event {
	e := &Event{
		ClubID:          clubID,
		Title:           title,
		Description:     description,
		Location:        location,
		Date:            date,
		Capacity:        capacity,
		RegistrationFee: fee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	e.RefreshStatus(now)
	return e
}

// EventStatusAt computes the lifecycle status of an event starting at date.
func EventStatusAt(date, now time.Time) EventStatus {
	switch {
	case now.Before(date):
		return EventUpcoming
	case now.Before(date.Add(EventDuration)):
		return EventOngoing
	default:
		return EventPast
	}
}

// RefreshStatus recomputes Status from Date.
func (e *Event) RefreshStatus(now time.Time) {
	e.Status = EventStatusAt(e.Date, now)
}

// Info returns the registration-relevant view of the event.
func (e *Event) Info() EventInfo {
	return EventInfo{
		Title:           e.Title,
		Date:            e.Date,
		RegistrationFee: e.RegistrationFee,
	}
}

// EventInfo carries the event attributes that registration rules depend on.
type EventInfo struct {
	Title           string
	Date            time.Time
	RegistrationFee float64
}

// IsFeeBearing reports whether the event requires the paid registration path.
func (i EventInfo) IsFeeBearing() bool { return i.RegistrationFee > 0 }

// EventUpdate holds optional event fields for a partial update.
type EventUpdate struct {
	Title           *string
	Description     *string
	Location        *string
	Date            *time.Time
	Capacity        *int
	RegistrationFee *float64
}

// EventRepository defines storage for events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, clubID, eventID string) (*Event, error)
	Update(ctx context.Context, event *Event) error
}

// EventService defines event management operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, clubID, eventID string) (*Event, error)
	UpdateEvent(ctx context.Context, clubID, eventID string, upd EventUpdate) (*Event, error)
}
