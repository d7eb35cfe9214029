package domain

import (
	"fmt"
	"strings"
	"time"
)

// GuestIDPrefix marks self-issued guest actor identifiers.
const GuestIDPrefix = "guest_"

// GuestRetentionMonths is how long guest registrations and notifications are kept.
const GuestRetentionMonths = 3

// ActorKind distinguishes authenticated members from self-issued guests.
type ActorKind int

const (
	ActorMember ActorKind = iota + 1
	ActorGuest
)

func (k ActorKind) String() string {
	switch k {
	case ActorMember:
		return "member"
	case ActorGuest:
		return "guest"
	default:
		return "unknown"
	}
}

// Partition returns the storage partition that holds registrations for this kind of actor.
func (k ActorKind) Partition() Partition {
	if k == ActorGuest {
		return PartitionGuest
	}
	return PartitionMember
}

// Actor identifies who is registering. It is carried through the call chain so
// the member/guest distinction is never re-derived from the identifier.
type Actor struct {
	Kind ActorKind
	ID   string
	// ExpiresAt is set for guests only: after it passes, the guest's data is swept.
	ExpiresAt time.Time
}

// MemberActor returns an actor for an authenticated user.
func MemberActor(subjectID string) Actor {
	return Actor{Kind: ActorMember, ID: subjectID}
}

// GuestActor returns a guest actor derived from email, expiring GuestRetentionMonths after now.
func GuestActor(email string, now time.Time) Actor {
	return Actor{
		Kind:      ActorGuest,
		ID:        GuestActorID(email),
		ExpiresAt: GuestExpiry(now),
	}
}

// IsGuest reports whether the actor is a self-issued guest.
func (a Actor) IsGuest() bool { return a.Kind == ActorGuest }

// GuestExpiry returns the retention deadline for guest data created at t.
func GuestExpiry(t time.Time) time.Time {
	return t.AddDate(0, GuestRetentionMonths, 0)
}

// GuestActorID derives the stable guest identifier for an email: "guest_" followed
// by the lowercased email with every character outside [a-z0-9] replaced by '_'.
// The same email always yields the same identifier.
func GuestActorID(email string) string {
	return GuestIDPrefix + sanitizeEmail(email)
}

func sanitizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	var b strings.Builder
	b.Grow(len(email))
	for _, r := range email {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// ParseActorID converts an externally supplied identifier into an Actor. It is
// meant for request boundaries only; inside the service the Actor value is passed along.
func ParseActorID(id string) (Actor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Actor{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if strings.HasPrefix(id, GuestIDPrefix) {
		if len(id) == len(GuestIDPrefix) {
			return Actor{}, fmt.Errorf("%w: malformed guest id", ErrInvalidInput)
		}
		return Actor{Kind: ActorGuest, ID: id}, nil
	}
	return MemberActor(id), nil
}
