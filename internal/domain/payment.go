package domain

import (
	"context"
	"time"
)

// DefaultCurrency is the only currency events are priced in.
const DefaultCurrency = "INR"

// PaymentRecord links a confirmed payment to a registration. It is written once
// per payment id; rewriting the same id overwrites it with the same content.
// swagger:model PaymentRecord
type PaymentRecord struct {
	PaymentID      string    `json:"payment_id"`
	OrderID        string    `json:"order_id"`
	Partition      Partition `json:"partition"`
	ClubID         string    `json:"club_id"`
	EventID        string    `json:"event_id"`
	RegistrationID string    `json:"registration_id"`
	ActorID        string    `json:"actor_id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	PaidAt         time.Time `json:"paid_at"`
}

// PaymentRepository stores payment records in the partition matching the actor.
type PaymentRepository interface {
	Upsert(ctx context.Context, p *PaymentRecord) error
}

// PaymentCustomer is echoed back to the client checkout widget as prefill data.
type PaymentCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"contact,omitempty"`
}

// Order note keys binding a gateway order to the registration it pays for.
const (
	OrderNoteClubID  = "club_id"
	OrderNoteEventID = "event_id"
	OrderNoteActorID = "actor_id"
)

// OrderNotes returns the notes that tie an order to (club, event, actor).
func OrderNotes(clubID, eventID, actorID string) map[string]string {
	return map[string]string{
		OrderNoteClubID:  clubID,
		OrderNoteEventID: eventID,
		OrderNoteActorID: actorID,
	}
}

// OrderRequest describes a gateway order. Amount is in minor units (paise).
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Customer    PaymentCustomer
	// SubMerchantAccount optionally routes the payment to a club's linked account.
	SubMerchantAccount string
	Notes              map[string]string
}

// Order is the gateway's answer to CreateOrder. Mock orders have the same shape.
// swagger:model Order
type Order struct {
	OrderID     string          `json:"order_id"`
	AmountMinor int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Receipt     string          `json:"receipt"`
	KeyID       string          `json:"key_id"`
	Prefill     PaymentCustomer `json:"prefill"`
}

// Gateway payment states relevant to registration.
const (
	GatewayStatusCreated  = "created"
	GatewayStatusPending  = "pending"
	GatewayStatusCaptured = "captured"
	GatewayStatusPaid     = "paid"
	GatewayStatusFailed   = "failed"
)

// PaymentStatusResult is the gateway's view of an order. Amount is in major units.
// swagger:model PaymentStatusResult
type PaymentStatusResult struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Amount    float64   `json:"amount"`
	PaymentID string    `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
	// Receipt and Notes are the values the order was created with.
	Receipt string            `json:"receipt"`
	Notes   map[string]string `json:"notes,omitempty"`
}

// IssuedFor reports whether the order was created for this club, event and actor.
func (r PaymentStatusResult) IssuedFor(clubID, eventID, actorID string) bool {
	return r.Notes[OrderNoteClubID] == clubID &&
		r.Notes[OrderNoteEventID] == eventID &&
		r.Notes[OrderNoteActorID] == actorID
}

// Succeeded reports whether the gateway considers the payment complete.
func (r PaymentStatusResult) Succeeded() bool {
	return (r.Status == GatewayStatusCaptured || r.Status == GatewayStatusPaid) && r.PaymentID != ""
}

// PaymentGateway is the external payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchPaymentStatus(ctx context.Context, orderID string) (*PaymentStatusResult, error)
}

// CheckoutRequest starts or completes a paid registration for a member or guest.
type CheckoutRequest struct {
	ClubID  string
	EventID string
	Actor   Actor
	Contact Contact
}

// PaymentService orchestrates paid registrations around the gateway.
type PaymentService interface {
	CreateCheckoutOrder(ctx context.Context, req CheckoutRequest) (*Order, error)
	CompletePaidRegistration(ctx context.Context, req CheckoutRequest, orderID string) (*Registration, error)
}
