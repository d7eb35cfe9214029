package postgres

import (
	"context"
	"database/sql"
	"time"

	"campushub/internal/domain"
)

type guestNotificationRepository struct {
	DB *sql.DB
}

func NewGuestNotificationRepository(db *sql.DB) domain.GuestNotificationRepository {
	return &guestNotificationRepository{DB: db}
}

func (r *guestNotificationRepository) Create(ctx context.Context, n *domain.GuestNotification) error {
	query := `
		INSERT INTO guest_notifications (actor_id, email, kind, club_id, event_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, n.ActorID, n.Email, n.Kind, n.ClubID, n.EventID, n.CreatedAt, n.ExpiresAt).
		Scan(&n.ID)
	return classify(err, nil)
}

func (r *guestNotificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return deleteExpired(ctx, r.DB, `DELETE FROM guest_notifications WHERE expires_at < $1`, cutoff)
}
