package domain

import (
	"context"
	"fmt"
	"time"
)

// Partition is the storage area for one kind of actor. Member and guest
// registrations are never mixed because their access and retention rules differ.
type Partition string

const (
	PartitionMember Partition = "member"
	PartitionGuest  Partition = "guest"
)

// ParsePartition validates a partition name from a request path.
func ParsePartition(s string) (Partition, error) {
	switch Partition(s) {
	case PartitionMember, PartitionGuest:
		return Partition(s), nil
	default:
		return "", fmt.Errorf("%w: unknown partition %q", ErrInvalidInput, s)
	}
}

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
)

// ParseRegistrationStatus validates a status value supplied by an administrator.
func ParseRegistrationStatus(s string) (RegistrationStatus, error) {
	switch RegistrationStatus(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return RegistrationStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown registration status %q", ErrInvalidInput, s)
	}
}

// PaymentStatus is only present on registrations for fee-bearing events.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// ParsePaymentStatus validates a payment status value.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return PaymentStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, s)
	}
}

// CheckInStatus records attendance.
type CheckInStatus string

const (
	NotCheckedIn CheckInStatus = "not_checked_in"
	CheckedIn    CheckInStatus = "checked_in"
)

// Contact is the actor's contact information stored on the registration.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// GuestProfile is what an unauthenticated guest submits.
type GuestProfile struct {
	Contact
	Institution string `json:"institution"`
}

// Registration is one actor's intent to attend one event.
// swagger:model Registration
type Registration struct {
	ID            string             `json:"id"`
	Partition     Partition          `json:"partition"`
	ClubID        string             `json:"club_id"`
	EventID       string             `json:"event_id"`
	ActorID       string             `json:"actor_id"`
	Contact       Contact            `json:"contact"`
	Status        RegistrationStatus `json:"status"`
	PaymentStatus *PaymentStatus     `json:"payment_status,omitempty"`
	PaymentID     string             `json:"payment_id,omitempty"`
	CheckInStatus CheckInStatus      `json:"check_in_status"`
	CheckedInAt   *time.Time         `json:"checked_in_at,omitempty"`
	Institution   string             `json:"institution,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewRegistration builds a confirmed, not-checked-in registration for actor in
// the actor's partition. Guest expiry is copied from the actor.
func NewRegistration(clubID, eventID string, actor Actor, contact Contact, now time.Time) *Registration {
	reg := &Registration{
		Partition:     actor.Kind.Partition(),
		ClubID:        clubID,
		EventID:       eventID,
		ActorID:       actor.ID,
		Contact:       contact,
		Status:        StatusConfirmed,
		CheckInStatus: NotCheckedIn,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if actor.IsGuest() && !actor.ExpiresAt.IsZero() {
		exp := actor.ExpiresAt
		reg.ExpiresAt = &exp
	}
	return reg
}

// IsActive reports whether the registration counts toward the one-per-actor limit.
func (r *Registration) IsActive() bool { return r.Status != StatusCancelled }

// Ref returns the address of this registration.
func (r *Registration) Ref() RegistrationRef {
	return RegistrationRef{ClubID: r.ClubID, EventID: r.EventID, Partition: r.Partition, ID: r.ID}
}

// RegistrationRef addresses a single registration document.
type RegistrationRef struct {
	ClubID    string
	EventID   string
	Partition Partition
	ID        string
}

// RegistrationStats is recomputed from the full registration list on every call.
// swagger:model RegistrationStats
type RegistrationStats struct {
	TotalRegistrations int                        `json:"total_registrations"`
	ByStatus           map[RegistrationStatus]int `json:"by_status"`
	CheckedIn          int                        `json:"checked_in"`
	Members            int                        `json:"members"`
	Guests             int                        `json:"guests"`
}

// EventKey identifies an event within its club.
type EventKey struct {
	ClubID  string `json:"club_id"`
	EventID string `json:"event_id"`
}

// RegistrationRepository defines storage for both registration partitions.
type RegistrationRepository interface {
	// Create inserts reg into reg.Partition and sets reg.ID. A second active
	// registration for the same (club, event, actor) fails with ErrAlreadyRegistered.
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, ref RegistrationRef) (*Registration, error)
	ListByActor(ctx context.Context, p Partition, clubID, eventID, actorID string) ([]*Registration, error)
	ListByEvent(ctx context.Context, p Partition, clubID, eventID string) ([]*Registration, error)
	// CountByEvent counts rows server-side without fetching them.
	CountByEvent(ctx context.Context, p Partition, clubID, eventID string) (int, error)
	UpdateStatus(ctx context.Context, ref RegistrationRef, status RegistrationStatus) error
	// UpdatePaymentStatus sets the payment fields; setting PaymentPaid also sets
	// status to confirmed in the same statement.
	UpdatePaymentStatus(ctx context.Context, ref RegistrationRef, status PaymentStatus, paymentID string) error
	CheckIn(ctx context.Context, ref RegistrationRef, at time.Time) error
	Delete(ctx context.Context, ref RegistrationRef) error
	// DeleteExpiredGuests removes guest registrations whose expiry is before cutoff.
	DeleteExpiredGuests(ctx context.Context, cutoff time.Time) (int64, error)
}

// RegistrationEventPublisher announces registration changes to other services.
type RegistrationEventPublisher interface {
	Publish(ctx context.Context, routingKey string, reg *Registration) error
}

// Routing keys for registration events.
const (
	RoutingRegistrationCreated   = "registration.created"
	RoutingRegistrationCancelled = "registration.cancelled"
	RoutingRegistrationCheckedIn = "registration.checked_in"
)

// RegistrationCountCache caches the member-partition count shown on listing pages.
type RegistrationCountCache interface {
	GetOrLoad(ctx context.Context, key EventKey, load func(ctx context.Context) (int, error)) (int, error)
	Invalidate(ctx context.Context, key EventKey) error
}

// RegistrationMetrics records registration outcomes.
type RegistrationMetrics interface {
	RegistrationCreated(partition Partition, path string)
	RegistrationRejected(reason string)
	StoreRetry(op string)
}

// RegistrationService is the registration lifecycle manager.
type RegistrationService interface {
	IsRegistered(ctx context.Context, clubID, eventID string, actor Actor) (bool, error)
	RegisterForEvent(ctx context.Context, clubID, eventID string, actor Actor, contact Contact, info EventInfo) (string, error)
	RegisterForPaidEvent(ctx context.Context, clubID, eventID string, actor Actor, contact Contact, info EventInfo, paymentID string) (string, error)
	RegisterGuestForEvent(ctx context.Context, clubID, eventID string, guest GuestProfile, info EventInfo) (string, error)

	GetRegistration(ctx context.Context, ref RegistrationRef) (*Registration, error)
	CheckIn(ctx context.Context, ref RegistrationRef) (*Registration, error)
	Cancel(ctx context.Context, ref RegistrationRef) (*Registration, error)
	UpdateStatus(ctx context.Context, ref RegistrationRef, status RegistrationStatus) (*Registration, error)
	UpdatePaymentStatus(ctx context.Context, ref RegistrationRef, status PaymentStatus, paymentID string) (*Registration, error)
	Delete(ctx context.Context, ref RegistrationRef) error
	StoreEventPayment(ctx context.Context, payment *PaymentRecord)

	GetEventRegistrations(ctx context.Context, clubID, eventID string) ([]*Registration, error)
	GetEventRegistrationStats(ctx context.Context, clubID, eventID string) (*RegistrationStats, error)
	GetEventRegistrationCount(ctx context.Context, clubID, eventID string) int
	BatchCheckUserRegistrations(ctx context.Context, actor Actor, events []EventKey) ([]string, error)
}
