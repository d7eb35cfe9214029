package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"campushub/internal/domain"
)

type paymentRepository struct {
	DB *sql.DB
}

// NewPaymentRepository stores payment records next to the registration partition
// they belong to.
func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{DB: db}
}

func paymentTable(p domain.Partition) (string, error) {
	switch p {
	case domain.PartitionMember:
		return "event_payments", nil
	case domain.PartitionGuest:
		return "guest_event_payments", nil
	default:
		return "", fmt.Errorf("%w: unknown partition %q", domain.ErrInvalidInput, p)
	}
}

// Upsert is keyed by payment id: writing the same payment again overwrites the row.
func (r *paymentRepository) Upsert(ctx context.Context, p *domain.PaymentRecord) error {
	table, err := paymentTable(p.Partition)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO ` + table + ` (payment_id, order_id, club_id, event_id, registration_id, actor_id, amount, currency, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (payment_id) DO UPDATE SET
			order_id = EXCLUDED.order_id,
			club_id = EXCLUDED.club_id,
			event_id = EXCLUDED.event_id,
			registration_id = EXCLUDED.registration_id,
			actor_id = EXCLUDED.actor_id,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			paid_at = EXCLUDED.paid_at
	`
	_, err = r.DB.ExecContext(ctx, query,
		p.PaymentID, p.OrderID, p.ClubID, p.EventID, p.RegistrationID, p.ActorID, p.Amount, p.Currency, p.PaidAt)
	return classify(err, nil)
}
