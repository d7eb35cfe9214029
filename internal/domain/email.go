package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// VerificationCodeEmailData holds data for the account verification code email.
type VerificationCodeEmailData struct {
	Email            string
	Code             string
	ExpiresInMinutes int
}

// RegistrationEmailData holds data for the registration confirmation email.
type RegistrationEmailData struct {
	Email      string
	Name       string
	EventTitle string
	EventDate  time.Time
	Paid       bool
	Guest      bool
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendVerificationCode(ctx context.Context, data *VerificationCodeEmailData) error
	SendRegistrationConfirmation(ctx context.Context, data *RegistrationEmailData) error
}

// GuestNotification records a message sent to a guest. It shares the guest's
// retention deadline and is removed by the retention sweep.
type GuestNotification struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Email     string    `json:"email"`
	Kind      string    `json:"kind"`
	ClubID    string    `json:"club_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GuestNotificationRepository stores guest notification records.
type GuestNotificationRepository interface {
	Create(ctx context.Context, n *GuestNotification) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
