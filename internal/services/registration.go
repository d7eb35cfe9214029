package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campushub/internal/domain"
)

// Registration paths, used as metric labels.
const (
	pathFree  = "free"
	pathPaid  = "paid"
	pathGuest = "guest"
)

const guestNotificationConfirmation = "registration_confirmation"

// RegistrationDeps are the collaborators of the registration service. Publisher,
// CountCache, Metrics, Email and Notifications are optional.
type RegistrationDeps struct {
	Registrations domain.RegistrationRepository
	Payments      domain.PaymentRepository
	Notifications domain.GuestNotificationRepository
	Email         domain.EmailService
	Publisher     domain.RegistrationEventPublisher
	CountCache    domain.RegistrationCountCache
	Metrics       domain.RegistrationMetrics
	Logger        *slog.Logger
	StoreTimeout  time.Duration
	Now           func() time.Time
}

type registrationService struct {
	registrations domain.RegistrationRepository
	payments      domain.PaymentRepository
	notifications domain.GuestNotificationRepository
	email         domain.EmailService
	publisher     domain.RegistrationEventPublisher
	countCache    domain.RegistrationCountCache
	metrics       domain.RegistrationMetrics
	logger        *slog.Logger
	store         storeCaller
	now           func() time.Time
}

// NewRegistrationService creates the registration lifecycle manager.
func NewRegistrationService(deps RegistrationDeps) domain.RegistrationService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &registrationService{
		registrations: deps.Registrations,
		payments:      deps.Payments,
		notifications: deps.Notifications,
		email:         deps.Email,
		publisher:     deps.Publisher,
		countCache:    deps.CountCache,
		metrics:       deps.Metrics,
		logger:        logger,
		store:         newStoreCaller(logger, deps.StoreTimeout, deps.Metrics),
		now:           now,
	}
}

func (s *registrationService) IsRegistered(ctx context.Context, clubID, eventID string, actor domain.Actor) (bool, error) {
	// Queries are partitioned per club; without one there is nothing to look up.
	if strings.TrimSpace(clubID) == "" {
		s.logger.DebugContext(ctx, "is-registered without club id", "event_id", eventID)
		return false, nil
	}
	if eventID == "" || actor.ID == "" {
		return false, fmt.Errorf("%w: event id and actor id are required", domain.ErrInvalidInput)
	}

	var regs []*domain.Registration
	err := s.store.do(ctx, "registration.list_by_actor", func(ctx context.Context) error {
		var err error
		regs, err = s.registrations.ListByActor(ctx, actor.Kind.Partition(), clubID, eventID, actor.ID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	for _, r := range regs {
		if r.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (s *registrationService) RegisterForEvent(ctx context.Context, clubID, eventID string, actor domain.Actor, contact domain.Contact, info domain.EventInfo) (string, error) {
	if err := validateTarget(clubID, eventID, actor); err != nil {
		return "", err
	}
	if info.IsFeeBearing() {
		s.reject("payment_required")
		return "", domain.ErrPaymentRequired
	}

	reg := domain.NewRegistration(clubID, eventID, s.withExpiry(actor), contact, s.now())
	if err := s.create(ctx, reg, info, pathFree); err != nil {
		return "", err
	}
	return reg.ID, nil
}

func (s *registrationService) RegisterForPaidEvent(ctx context.Context, clubID, eventID string, actor domain.Actor, contact domain.Contact, info domain.EventInfo, paymentID string) (string, error) {
	if err := validateTarget(clubID, eventID, actor); err != nil {
		return "", err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return "", fmt.Errorf("%w: payment id is required", domain.ErrInvalidInput)
	}

	reg := domain.NewRegistration(clubID, eventID, s.withExpiry(actor), contact, s.now())
	paid := domain.PaymentPaid
	reg.PaymentStatus = &paid
	reg.PaymentID = paymentID
	if err := s.create(ctx, reg, info, pathPaid); err != nil {
		return "", err
	}
	return reg.ID, nil
}

func (s *registrationService) RegisterGuestForEvent(ctx context.Context, clubID, eventID string, guest domain.GuestProfile, info domain.EventInfo) (string, error) {
	email := strings.ToLower(strings.TrimSpace(guest.Email))
	if !emailRegexp.MatchString(email) {
		return "", fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(guest.Name) == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if info.IsFeeBearing() {
		s.reject("payment_required")
		return "", domain.ErrPaymentRequired
	}

	now := s.now()
	actor := domain.GuestActor(email, now)
	if err := validateTarget(clubID, eventID, actor); err != nil {
		return "", err
	}
	registered, err := s.IsRegistered(ctx, clubID, eventID, actor)
	if err != nil {
		return "", err
	}
	if registered {
		s.reject("duplicate")
		return "", domain.ErrAlreadyRegistered
	}

	contact := guest.Contact
	contact.Email = email
	contact.Name = strings.TrimSpace(contact.Name)
	reg := domain.NewRegistration(clubID, eventID, actor, contact, now)
	reg.Institution = strings.TrimSpace(guest.Institution)
	if err := s.create(ctx, reg, info, pathGuest); err != nil {
		return "", err
	}
	return reg.ID, nil
}

// create writes reg and then runs the post-commit side effects.
func (s *registrationService) create(ctx context.Context, reg *domain.Registration, info domain.EventInfo, path string) error {
	err := s.store.do(ctx, "registration.create", func(ctx context.Context) error {
		return s.registrations.Create(ctx, reg)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			s.reject("duplicate")
			return err
		}
		if errors.Is(err, domain.ErrPaymentAlreadyUsed) {
			s.reject("payment_reused")
			return err
		}
		return fmt.Errorf("create registration: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RegistrationCreated(reg.Partition, path)
	}
	s.logger.InfoContext(ctx, "registration created",
		"registration_id", reg.ID, "partition", reg.Partition, "club_id", reg.ClubID,
		"event_id", reg.EventID, "actor_id", reg.ActorID, "path", path)

	runPostCommit(ctx, s.logger,
		s.invalidateCount(reg),
		s.publish(domain.RoutingRegistrationCreated, reg),
		s.sendConfirmation(reg, info),
		s.recordGuestNotification(reg),
	)
	return nil
}

func (s *registrationService) GetRegistration(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	var reg *domain.Registration
	err := s.store.do(ctx, "registration.get", func(ctx context.Context) error {
		var err error
		reg, err = s.registrations.GetByID(ctx, ref)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *registrationService) CheckIn(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	reg, err := s.GetRegistration(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !reg.IsActive() {
		return nil, fmt.Errorf("%w: cannot check in a cancelled registration", domain.ErrInvalidInput)
	}
	if reg.CheckInStatus == domain.CheckedIn {
		return reg, nil
	}

	at := s.now()
	err = s.store.do(ctx, "registration.check_in", func(ctx context.Context) error {
		return s.registrations.CheckIn(ctx, ref, at)
	})
	if err != nil {
		return nil, fmt.Errorf("check in registration: %w", err)
	}
	reg.CheckInStatus = domain.CheckedIn
	reg.CheckedInAt = &at
	reg.UpdatedAt = at

	runPostCommit(ctx, s.logger, s.publish(domain.RoutingRegistrationCheckedIn, reg))
	return reg, nil
}

func (s *registrationService) Cancel(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	reg, err := s.GetRegistration(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !reg.IsActive() {
		return nil, fmt.Errorf("%w: registration already cancelled", domain.ErrInvalidInput)
	}

	err = s.store.do(ctx, "registration.cancel", func(ctx context.Context) error {
		return s.registrations.UpdateStatus(ctx, ref, domain.StatusCancelled)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel registration: %w", err)
	}
	reg.Status = domain.StatusCancelled
	reg.UpdatedAt = s.now()

	runPostCommit(ctx, s.logger,
		s.invalidateCount(reg),
		s.publish(domain.RoutingRegistrationCancelled, reg),
	)
	return reg, nil
}

func (s *registrationService) UpdateStatus(ctx context.Context, ref domain.RegistrationRef, status domain.RegistrationStatus) (*domain.Registration, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	if _, err := domain.ParseRegistrationStatus(string(status)); err != nil {
		return nil, err
	}
	err := s.store.do(ctx, "registration.update_status", func(ctx context.Context) error {
		return s.registrations.UpdateStatus(ctx, ref, status)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("update registration status: %w", err)
	}
	reg, err := s.GetRegistration(ctx, ref)
	if err != nil {
		return nil, err
	}
	runPostCommit(ctx, s.logger, s.invalidateCount(reg))
	return reg, nil
}

func (s *registrationService) UpdatePaymentStatus(ctx context.Context, ref domain.RegistrationRef, status domain.PaymentStatus, paymentID string) (*domain.Registration, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	if _, err := domain.ParsePaymentStatus(string(status)); err != nil {
		return nil, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if status == domain.PaymentPaid && paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required when marking paid", domain.ErrInvalidInput)
	}
	err := s.store.do(ctx, "registration.update_payment_status", func(ctx context.Context) error {
		return s.registrations.UpdatePaymentStatus(ctx, ref, status, paymentID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	reg, err := s.GetRegistration(ctx, ref)
	if err != nil {
		return nil, err
	}
	runPostCommit(ctx, s.logger, s.invalidateCount(reg))
	return reg, nil
}

func (s *registrationService) Delete(ctx context.Context, ref domain.RegistrationRef) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	err := s.store.do(ctx, "registration.delete", func(ctx context.Context) error {
		return s.registrations.Delete(ctx, ref)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}
	if ref.Partition == domain.PartitionMember {
		runPostCommit(ctx, s.logger, s.invalidateCountKey(domain.EventKey{ClubID: ref.ClubID, EventID: ref.EventID}))
	}
	return nil
}

// StoreEventPayment writes the payment record. It is bookkeeping only: a failure
// is logged and never reaches the caller.
func (s *registrationService) StoreEventPayment(ctx context.Context, payment *domain.PaymentRecord) {
	if err := s.storeEventPayment(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "store event payment failed", "err", err)
	}
}

func (s *registrationService) storeEventPayment(ctx context.Context, payment *domain.PaymentRecord) error {
	if payment == nil || strings.TrimSpace(payment.PaymentID) == "" {
		return fmt.Errorf("%w: payment id is required", domain.ErrInvalidInput)
	}
	if s.payments == nil {
		return errors.New("payment repository not configured")
	}
	if payment.Currency == "" {
		payment.Currency = domain.DefaultCurrency
	}
	err := s.store.do(ctx, "payment.upsert", func(ctx context.Context) error {
		return s.payments.Upsert(ctx, payment)
	})
	if err != nil {
		return fmt.Errorf("upsert payment %s: %w", payment.PaymentID, err)
	}
	s.logger.InfoContext(ctx, "event payment stored", "payment_id", payment.PaymentID, "registration_id", payment.RegistrationID)
	return nil
}

func (s *registrationService) withExpiry(actor domain.Actor) domain.Actor {
	if actor.IsGuest() && actor.ExpiresAt.IsZero() {
		actor.ExpiresAt = domain.GuestExpiry(s.now())
	}
	return actor
}

func (s *registrationService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.RegistrationRejected(reason)
	}
}

func (s *registrationService) invalidateCount(reg *domain.Registration) postCommitAction {
	if reg.Partition != domain.PartitionMember {
		return postCommitAction{}
	}
	return s.invalidateCountKey(domain.EventKey{ClubID: reg.ClubID, EventID: reg.EventID})
}

func (s *registrationService) invalidateCountKey(key domain.EventKey) postCommitAction {
	if s.countCache == nil {
		return postCommitAction{}
	}
	return postCommitAction{name: "invalidate_count", run: func(ctx context.Context) error {
		return s.countCache.Invalidate(ctx, key)
	}}
}

func (s *registrationService) publish(routingKey string, reg *domain.Registration) postCommitAction {
	if s.publisher == nil {
		return postCommitAction{}
	}
	return postCommitAction{name: "publish " + routingKey, run: func(ctx context.Context) error {
		return s.publisher.Publish(ctx, routingKey, reg)
	}}
}

func (s *registrationService) sendConfirmation(reg *domain.Registration, info domain.EventInfo) postCommitAction {
	if s.email == nil || reg.Contact.Email == "" {
		return postCommitAction{}
	}
	return postCommitAction{name: "confirmation_email", run: func(ctx context.Context) error {
		return s.email.SendRegistrationConfirmation(ctx, &domain.RegistrationEmailData{
			Email:      reg.Contact.Email,
			Name:       reg.Contact.Name,
			EventTitle: info.Title,
			EventDate:  info.Date,
			Paid:       reg.PaymentStatus != nil && *reg.PaymentStatus == domain.PaymentPaid,
			Guest:      reg.Partition == domain.PartitionGuest,
		})
	}}
}

func (s *registrationService) recordGuestNotification(reg *domain.Registration) postCommitAction {
	if s.notifications == nil || reg.Partition != domain.PartitionGuest || reg.ExpiresAt == nil {
		return postCommitAction{}
	}
	return postCommitAction{name: "guest_notification", run: func(ctx context.Context) error {
		return s.notifications.Create(ctx, &domain.GuestNotification{
			ActorID:   reg.ActorID,
			Email:     reg.Contact.Email,
			Kind:      guestNotificationConfirmation,
			ClubID:    reg.ClubID,
			EventID:   reg.EventID,
			CreatedAt: reg.CreatedAt,
			ExpiresAt: *reg.ExpiresAt,
		})
	}}
}

func validateTarget(clubID, eventID string, actor domain.Actor) error {
	var missing []string
	if strings.TrimSpace(clubID) == "" {
		missing = append(missing, "club id")
	}
	if strings.TrimSpace(eventID) == "" {
		missing = append(missing, "event id")
	}
	if strings.TrimSpace(actor.ID) == "" {
		missing = append(missing, "actor id")
	}
	if actor.Kind != domain.ActorMember && actor.Kind != domain.ActorGuest {
		missing = append(missing, "actor kind")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func validateRef(ref domain.RegistrationRef) error {
	if ref.ClubID == "" || ref.EventID == "" || ref.ID == "" {
		return fmt.Errorf("%w: club id, event id and registration id are required", domain.ErrInvalidInput)
	}
	if _, err := domain.ParsePartition(string(ref.Partition)); err != nil {
		return err
	}
	return nil
}
