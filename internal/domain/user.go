package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

// Role codes.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User is an authenticated campus member.
// swagger:model User
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is set by the repository on create.
func NewUser(email, name string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:     email,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Role represents an application role (e.g. admin, student).
type Role struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Identity is what the identity supplier knows about the caller.
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the identity carries the role code.
func (i Identity) HasRole(code string) bool {
	for _, r := range i.Roles {
		if r == code {
			return true
		}
	}
	return false
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the caller's identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// CodeHasher hashes one-time verification codes for storage.
type CodeHasher interface {
	Hash(code string) (string, error)
	Compare(hash, code string) error
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	AssignRole(ctx context.Context, userID, roleID string) error
}

// RoleRepository defines the interface for role storage.
type RoleRepository interface {
	GetByCode(ctx context.Context, code string) (*Role, error)
	ListByUserID(ctx context.Context, userID string) ([]*Role, error)
}

// VerificationCode is the single active code for an email.
type VerificationCode struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
	// Attempts counts wrong guesses against this code.
	Attempts int
}

// VerificationCodeRepository stores at most one active code per email.
type VerificationCodeRepository interface {
	// Issue replaces the email's code unless the existing one was created after
	// notBefore, in which case it returns ErrRateLimited.
	Issue(ctx context.Context, code *VerificationCode, notBefore time.Time) error
	Get(ctx context.Context, email string) (*VerificationCode, error)
	// RecordFailedAttempt increments the wrong-guess counter and returns the new value.
	RecordFailedAttempt(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) error
}

// AccountService creates accounts through emailed verification codes.
type AccountService interface {
	RequestVerificationCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (token string, user *User, err error)
	GetProfile(ctx context.Context, userID string) (*User, error)
}
