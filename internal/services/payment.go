package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"campushub/internal/domain"
)

// maxReceiptLen is the gateway's limit on receipt identifiers.
const maxReceiptLen = 40

// receiptNamespace scopes the name-based receipt ids.
var receiptNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("campushub/payment/receipt"))

// PaymentDeps are the collaborators of the payment service.
type PaymentDeps struct {
	Events        domain.EventRepository
	Registrations domain.RegistrationService
	Gateway       domain.PaymentGateway
	// LinkedAccounts maps a club id to the gateway account its fees are routed to.
	// Clubs without an entry are paid into the main account.
	LinkedAccounts map[string]string
	Logger         *slog.Logger
}

type paymentService struct {
	events         domain.EventRepository
	registrations  domain.RegistrationService
	gateway        domain.PaymentGateway
	linkedAccounts map[string]string
	logger         *slog.Logger
	now            func() time.Time
}

// NewPaymentService returns the checkout orchestrator for fee-bearing events.
func NewPaymentService(deps PaymentDeps) domain.PaymentService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &paymentService{
		events:         deps.Events,
		registrations:  deps.Registrations,
		gateway:        deps.Gateway,
		linkedAccounts: deps.LinkedAccounts,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *paymentService) CreateCheckoutOrder(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	if err := validateTarget(req.ClubID, req.EventID, req.Actor); err != nil {
		return nil, err
	}
	event, err := s.feeBearingEvent(ctx, req)
	if err != nil {
		return nil, err
	}
	registered, err := s.registrations.IsRegistered(ctx, req.ClubID, req.EventID, req.Actor)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, domain.ErrAlreadyRegistered
	}

	order, err := s.gateway.CreateOrder(ctx, domain.OrderRequest{
		AmountMinor: toMinorUnits(event.RegistrationFee),
		Currency:    domain.DefaultCurrency,
		Receipt:     receiptFor(req.ClubID, req.EventID, req.Actor.ID),
		Customer: domain.PaymentCustomer{
			Name:  req.Contact.Name,
			Email: req.Contact.Email,
			Phone: req.Contact.Phone,
		},
		SubMerchantAccount: s.linkedAccounts[req.ClubID],
		Notes:              domain.OrderNotes(req.ClubID, req.EventID, req.Actor.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.logger.InfoContext(ctx, "checkout order created", "order_id", order.OrderID, "event_id", req.EventID, "actor_id", req.Actor.ID)
	return order, nil
}

// CompletePaidRegistration writes the registration once the gateway reports the
// order as paid. The order must have been created for the same club, event and
// actor, and its payment must not back another registration. The payment record
// is written afterwards on a best-effort basis.
func (s *paymentService) CompletePaidRegistration(ctx context.Context, req domain.CheckoutRequest, orderID string) (*domain.Registration, error) {
	if err := validateTarget(req.ClubID, req.EventID, req.Actor); err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidInput)
	}
	event, err := s.feeBearingEvent(ctx, req)
	if err != nil {
		return nil, err
	}

	status, err := s.gateway.FetchPaymentStatus(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment status: %w", err)
	}
	if !status.IssuedFor(req.ClubID, req.EventID, req.Actor.ID) {
		s.logger.WarnContext(ctx, "order issued for another registration",
			"order_id", orderID, "event_id", req.EventID, "actor_id", req.Actor.ID,
			"order_event_id", status.Notes[domain.OrderNoteEventID], "order_actor_id", status.Notes[domain.OrderNoteActorID])
		return nil, fmt.Errorf("%w: order was not issued for this registration", domain.ErrForbidden)
	}
	if !status.Succeeded() {
		s.logger.InfoContext(ctx, "payment not completed", "order_id", orderID, "status", status.Status)
		return nil, domain.ErrPaymentNotCompleted
	}
	if status.Amount+0.005 < event.RegistrationFee {
		s.logger.WarnContext(ctx, "payment amount below fee", "order_id", orderID, "amount", status.Amount, "fee", event.RegistrationFee)
		return nil, domain.ErrPaymentNotCompleted
	}

	id, err := s.registrations.RegisterForPaidEvent(ctx, req.ClubID, req.EventID, req.Actor, req.Contact, event.Info(), status.PaymentID)
	if err != nil {
		return nil, err
	}
	reg := domain.NewRegistration(req.ClubID, req.EventID, req.Actor, req.Contact, s.now())
	reg.ID = id

	paidAt := status.Timestamp
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	runPostCommit(ctx, s.logger, postCommitAction{name: "store_event_payment", run: func(ctx context.Context) error {
		s.registrations.StoreEventPayment(ctx, &domain.PaymentRecord{
			PaymentID:      status.PaymentID,
			OrderID:        orderID,
			Partition:      req.Actor.Kind.Partition(),
			ClubID:         req.ClubID,
			EventID:        req.EventID,
			RegistrationID: id,
			ActorID:        req.Actor.ID,
			Amount:         status.Amount,
			Currency:       domain.DefaultCurrency,
			PaidAt:         paidAt,
		})
		return nil
	}})

	stored, err := s.registrations.GetRegistration(ctx, reg.Ref())
	if err != nil {
		// The registration is committed; a failed read-back is not a failed payment.
		s.logger.WarnContext(ctx, "read back paid registration failed", "registration_id", id, "err", err)
		paid := domain.PaymentPaid
		reg.PaymentStatus = &paid
		reg.PaymentID = status.PaymentID
		return reg, nil
	}
	return stored, nil
}

func (s *paymentService) feeBearingEvent(ctx context.Context, req domain.CheckoutRequest) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, req.ClubID, req.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.Info().IsFeeBearing() {
		return nil, fmt.Errorf("%w: event has no registration fee", domain.ErrInvalidInput)
	}
	return event, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// receiptFor names the order of one actor for one event. Ids of any length map
// to a fixed-size receipt.
func receiptFor(clubID, eventID, actorID string) string {
	id := uuid.NewSHA1(receiptNamespace, []byte(clubID+"/"+eventID+"/"+actorID))
	return "rcpt_" + strings.ReplaceAll(id.String(), "-", "")
}
