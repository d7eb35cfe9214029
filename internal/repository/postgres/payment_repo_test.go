package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub/internal/domain"
)

func TestPaymentRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	paidAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		partition domain.Partition
		table     string
		errIs     error
	}{
		{name: "member payment", partition: domain.PartitionMember, table: "event_payments"},
		{name: "guest payment", partition: domain.PartitionGuest, table: "guest_event_payments"},
		{name: "unknown partition", partition: "staff", errIs: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			rec := &domain.PaymentRecord{
				PaymentID: "pay_1", OrderID: "order_1", Partition: tt.partition, ClubID: "C1", EventID: "E1",
				RegistrationID: "reg-1", ActorID: "user-1", Amount: 250, Currency: "INR", PaidAt: paidAt,
			}
			if tt.table != "" {
				// Written twice: the second write hits the conflict clause.
				for range 2 {
					mock.ExpectExec(`INSERT INTO ` + tt.table + ` (.+) ON CONFLICT \(payment_id\) DO UPDATE SET`).
						WithArgs("pay_1", "order_1", "C1", "E1", "reg-1", "user-1", 250.0, "INR", paidAt).
						WillReturnResult(sqlmock.NewResult(0, 1))
				}
			}

			repo := NewPaymentRepository(db)
			err = repo.Upsert(ctx, rec)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			require.NoError(t, repo.Upsert(ctx, rec))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
