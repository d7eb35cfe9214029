package postgres

import (
	"context"
	"database/sql"

	"campushub/internal/domain"
)

const eventColumns = `id, club_id, title, description, location, date, capacity, registration_fee, status, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (club_id, title, description, location, date, capacity, registration_fee, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.ClubID, e.Title, e.Description, e.Location, e.Date, e.Capacity, e.RegistrationFee, string(e.Status), e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	return classify(err, nil)
}

func (r *eventRepository) GetByID(ctx context.Context, clubID, eventID string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1 AND club_id = $2
	`
	e := &domain.Event{}
	var status string
	err := r.DB.QueryRowContext(ctx, query, eventID, clubID).Scan(
		&e.ID, &e.ClubID, &e.Title, &e.Description, &e.Location, &e.Date, &e.Capacity, &e.RegistrationFee,
		&status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err, nil)
	}
	e.Status = domain.EventStatus(status)
	return e, nil
}

// Update overwrites every editable column. The stored status is a snapshot taken
// at write time; readers recompute it from the date.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3, date = $4, capacity = $5,
			registration_fee = $6, status = $7, updated_at = $8
		WHERE id = $9 AND club_id = $10
	`
	res, err := r.DB.ExecContext(ctx, query,
		e.Title, e.Description, e.Location, e.Date, e.Capacity, e.RegistrationFee, string(e.Status), e.UpdatedAt, e.ID, e.ClubID,
	)
	if err != nil {
		return classify(err, nil)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
