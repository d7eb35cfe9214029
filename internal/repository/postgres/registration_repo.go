package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campushub/internal/domain"
)

const registrationColumns = `id, club_id, event_id, actor_id, name, email, phone, status, payment_status,
		payment_id, check_in_status, checked_in_at, institution, expires_at, created_at, updated_at`

type registrationRepository struct {
	DB *sql.DB
}

// NewRegistrationRepository stores member registrations in "registrations" and
// guest registrations in "guest_registrations".
func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func registrationTable(p domain.Partition) (string, error) {
	switch p {
	case domain.PartitionMember:
		return "registrations", nil
	case domain.PartitionGuest:
		return "guest_registrations", nil
	default:
		return "", fmt.Errorf("%w: unknown partition %q", domain.ErrInvalidInput, p)
	}
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	table, err := registrationTable(reg.Partition)
	if err != nil {
		return err
	}
	var paymentStatus any
	if reg.PaymentStatus != nil {
		paymentStatus = string(*reg.PaymentStatus)
	}
	query := `
		INSERT INTO ` + table + ` (club_id, event_id, actor_id, name, email, phone, status, payment_status,
			payment_id, check_in_status, checked_in_at, institution, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query,
		reg.ClubID, reg.EventID, reg.ActorID, reg.Contact.Name, reg.Contact.Email, reg.Contact.Phone,
		string(reg.Status), paymentStatus, nullString(reg.PaymentID), string(reg.CheckInStatus),
		nullTime(reg.CheckedInAt), nullString(reg.Institution), nullTime(reg.ExpiresAt), reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID)
	if isUniqueViolationOn(err, "payment_id") {
		return domain.ErrPaymentAlreadyUsed
	}
	return classify(err, domain.ErrAlreadyRegistered)
}

func (r *registrationRepository) GetByID(ctx context.Context, ref domain.RegistrationRef) (*domain.Registration, error) {
	table, err := registrationTable(ref.Partition)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM ` + table + `
		WHERE id = $1 AND club_id = $2 AND event_id = $3
	`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, ref.ID, ref.ClubID, ref.EventID), ref.Partition)
	if err != nil {
		return nil, classify(err, nil)
	}
	return reg, nil
}

func (r *registrationRepository) ListByActor(ctx context.Context, p domain.Partition, clubID, eventID, actorID string) ([]*domain.Registration, error) {
	table, err := registrationTable(p)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM ` + table + `
		WHERE club_id = $1 AND event_id = $2 AND actor_id = $3
	`
	return r.list(ctx, p, query, clubID, eventID, actorID)
}

func (r *registrationRepository) ListByEvent(ctx context.Context, p domain.Partition, clubID, eventID string) ([]*domain.Registration, error) {
	table, err := registrationTable(p)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM ` + table + `
		WHERE club_id = $1 AND event_id = $2
		ORDER BY created_at
	`
	return r.list(ctx, p, query, clubID, eventID)
}

func (r *registrationRepository) list(ctx context.Context, p domain.Partition, query string, args ...any) ([]*domain.Registration, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, nil)
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows, p)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil)
	}
	return regs, nil
}

func (r *registrationRepository) CountByEvent(ctx context.Context, p domain.Partition, clubID, eventID string) (int, error) {
	table, err := registrationTable(p)
	if err != nil {
		return 0, err
	}
	query := `
		SELECT COUNT(*)
		FROM ` + table + `
		WHERE club_id = $1 AND event_id = $2 AND status <> 'cancelled'
	`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, clubID, eventID).Scan(&n); err != nil {
		return 0, classify(err, nil)
	}
	return n, nil
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, ref domain.RegistrationRef, status domain.RegistrationStatus) error {
	table, err := registrationTable(ref.Partition)
	if err != nil {
		return err
	}
	query := `
		UPDATE ` + table + `
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND club_id = $3 AND event_id = $4
	`
	return r.exec(ctx, query, string(status), ref.ID, ref.ClubID, ref.EventID)
}

// UpdatePaymentStatus writes both fields in one statement so no reader sees
// paid without confirmed.
func (r *registrationRepository) UpdatePaymentStatus(ctx context.Context, ref domain.RegistrationRef, status domain.PaymentStatus, paymentID string) error {
	table, err := registrationTable(ref.Partition)
	if err != nil {
		return err
	}
	query := `
		UPDATE ` + table + `
		SET payment_status = $1::text,
			payment_id = COALESCE(NULLIF($2, ''), payment_id),
			status = CASE WHEN $1::text = 'paid' THEN 'confirmed' ELSE status END,
			updated_at = NOW()
		WHERE id = $3 AND club_id = $4 AND event_id = $5
	`
	return r.exec(ctx, query, string(status), paymentID, ref.ID, ref.ClubID, ref.EventID)
}

func (r *registrationRepository) CheckIn(ctx context.Context, ref domain.RegistrationRef, at time.Time) error {
	table, err := registrationTable(ref.Partition)
	if err != nil {
		return err
	}
	query := `
		UPDATE ` + table + `
		SET check_in_status = 'checked_in', checked_in_at = $1, updated_at = $1
		WHERE id = $2 AND club_id = $3 AND event_id = $4
	`
	return r.exec(ctx, query, at, ref.ID, ref.ClubID, ref.EventID)
}

func (r *registrationRepository) Delete(ctx context.Context, ref domain.RegistrationRef) error {
	table, err := registrationTable(ref.Partition)
	if err != nil {
		return err
	}
	query := `DELETE FROM ` + table + ` WHERE id = $1 AND club_id = $2 AND event_id = $3`
	return r.exec(ctx, query, ref.ID, ref.ClubID, ref.EventID)
}

// DeleteExpiredGuests removes every expired guest registration in one transaction.
func (r *registrationRepository) DeleteExpiredGuests(ctx context.Context, cutoff time.Time) (int64, error) {
	return deleteExpired(ctx, r.DB, `DELETE FROM guest_registrations WHERE expires_at < $1`, cutoff)
}

// exec runs a single-row write and reports domain.ErrNotFound when nothing matched.
func (r *registrationRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err, domain.ErrAlreadyRegistered)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(s rowScanner, p domain.Partition) (*domain.Registration, error) {
	reg := &domain.Registration{Partition: p}
	var (
		status, checkIn                     string
		paymentStatus, paymentID, institute sql.NullString
		checkedInAt, expiresAt              sql.NullTime
	)
	err := s.Scan(
		&reg.ID, &reg.ClubID, &reg.EventID, &reg.ActorID, &reg.Contact.Name, &reg.Contact.Email, &reg.Contact.Phone,
		&status, &paymentStatus, &paymentID, &checkIn, &checkedInAt, &institute, &expiresAt,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	reg.CheckInStatus = domain.CheckInStatus(checkIn)
	if paymentStatus.Valid {
		ps := domain.PaymentStatus(paymentStatus.String)
		reg.PaymentStatus = &ps
	}
	reg.PaymentID = paymentID.String
	reg.Institution = institute.String
	if checkedInAt.Valid {
		reg.CheckedInAt = &checkedInAt.Time
	}
	if expiresAt.Valid {
		reg.ExpiresAt = &expiresAt.Time
	}
	return reg, nil
}

// deleteExpired runs one batch delete inside a transaction and returns the row count.
func deleteExpired(ctx context.Context, db *sql.DB, query string, cutoff time.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, nil)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, classify(err, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(err, nil)
	}
	return n, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
