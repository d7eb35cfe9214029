package postgres

import (
	"context"
	"database/sql"
	"time"

	"campushub/internal/domain"
)

type verificationCodeRepository struct {
	DB *sql.DB
}

// NewVerificationCodeRepository keeps one row per email in verification_codes.
func NewVerificationCodeRepository(db *sql.DB) domain.VerificationCodeRepository {
	return &verificationCodeRepository{DB: db}
}

// Issue inserts or replaces the email's code in a single statement. The upsert
// only fires when the existing code is older than notBefore, so two racing
// requests cannot both pass the throttle.
func (r *verificationCodeRepository) Issue(ctx context.Context, code *domain.VerificationCode, notBefore time.Time) error {
	query := `
		INSERT INTO verification_codes (email, code_hash, expires_at, created_at, attempts)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (email) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at,
			attempts = 0
		WHERE verification_codes.created_at <= $5
	`
	res, err := r.DB.ExecContext(ctx, query, code.Email, code.CodeHash, code.ExpiresAt, code.CreatedAt, notBefore)
	if err != nil {
		return classify(err, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRateLimited
	}
	return nil
}

func (r *verificationCodeRepository) Get(ctx context.Context, email string) (*domain.VerificationCode, error) {
	query := `
		SELECT email, code_hash, expires_at, created_at, attempts
		FROM verification_codes
		WHERE email = $1
	`
	c := &domain.VerificationCode{}
	err := r.DB.QueryRowContext(ctx, query, email).Scan(&c.Email, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt, &c.Attempts)
	if err != nil {
		return nil, classify(err, nil)
	}
	return c, nil
}

func (r *verificationCodeRepository) RecordFailedAttempt(ctx context.Context, email string) (int, error) {
	query := `
		UPDATE verification_codes SET attempts = attempts + 1
		WHERE email = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRowContext(ctx, query, email).Scan(&attempts); err != nil {
		return 0, classify(err, nil)
	}
	return attempts, nil
}

func (r *verificationCodeRepository) Delete(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM verification_codes WHERE email = $1`, email)
	return classify(err, nil)
}
