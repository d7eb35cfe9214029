package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"campushub/internal/domain"
)

const (
	defaultRole              = domain.RoleStudent
	verificationCodeDigits   = 6
	verificationCodeExpiry   = 10 * time.Minute
	verificationCodeThrottle = 60 * time.Second
	// maxVerificationAttempts wrong guesses burn the code.
	maxVerificationAttempts = 5
)

var (
	emailRegexp            = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	verificationCodeRegexp = regexp.MustCompile(`^\d{6}$`)
)

// AccountDeps are the collaborators of the account service. Email is optional.
type AccountDeps struct {
	Users       domain.UserRepository
	Roles       domain.RoleRepository
	Codes       domain.VerificationCodeRepository
	Hasher      domain.CodeHasher
	Tokens      domain.TokenIssuer
	TokenExpiry time.Duration
	Email       domain.EmailService
	// AllowedDomains restricts sign-up to college email domains. Empty allows any domain.
	AllowedDomains []string
	Logger         *slog.Logger
}

type accountService struct {
	users          domain.UserRepository
	roles          domain.RoleRepository
	codes          domain.VerificationCodeRepository
	hasher         domain.CodeHasher
	tokens         domain.TokenIssuer
	tokenExpiry    time.Duration
	email          domain.EmailService
	allowedDomains []string
	logger         *slog.Logger
	now            func() time.Time
}

// NewAccountService creates the verification-code account flow.
func NewAccountService(deps AccountDeps) domain.AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	domains := make([]string, 0, len(deps.AllowedDomains))
	for _, d := range deps.AllowedDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &accountService{
		users:          deps.Users,
		roles:          deps.Roles,
		codes:          deps.Codes,
		hasher:         deps.Hasher,
		tokens:         deps.Tokens,
		tokenExpiry:    deps.TokenExpiry,
		email:          deps.Email,
		allowedDomains: domains,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *accountService) RequestVerificationCode(ctx context.Context, email string) error {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return err
	}
	code, err := generateVerificationCode(verificationCodeDigits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	now := s.now()
	vc := &domain.VerificationCode{
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(verificationCodeExpiry),
		CreatedAt: now,
	}
	if err := s.codes.Issue(ctx, vc, now.Add(-verificationCodeThrottle)); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		return fmt.Errorf("store verification code: %w", err)
	}

	if s.email != nil {
		runPostCommit(ctx, s.logger, postCommitAction{name: "verification_email", run: func(ctx context.Context) error {
			return s.email.SendVerificationCode(ctx, &domain.VerificationCodeEmailData{
				Email:            email,
				Code:             code,
				ExpiresInMinutes: int(verificationCodeExpiry / time.Minute),
			})
		}})
	}
	return nil
}

func (s *accountService) VerifyCode(ctx context.Context, email, code string) (string, *domain.User, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	code = strings.TrimSpace(code)
	if !verificationCodeRegexp.MatchString(code) {
		return "", nil, domain.ErrInvalidCode
	}

	vc, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCode
		}
		return "", nil, fmt.Errorf("get verification code: %w", err)
	}
	if !s.now().Before(vc.ExpiresAt) {
		s.burnCode(ctx, email)
		return "", nil, domain.ErrInvalidCode
	}
	if vc.Attempts >= maxVerificationAttempts {
		s.burnCode(ctx, email)
		return "", nil, domain.ErrInvalidCode
	}
	if err := s.hasher.Compare(vc.CodeHash, code); err != nil {
		attempts, err := s.codes.RecordFailedAttempt(ctx, email)
		switch {
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return "", nil, fmt.Errorf("record failed verification attempt: %w", err)
		case attempts >= maxVerificationAttempts:
			s.logger.WarnContext(ctx, "verification code burned after failed attempts", "email", email, "attempts", attempts)
			s.burnCode(ctx, email)
		}
		return "", nil, domain.ErrInvalidCode
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		return "", nil, fmt.Errorf("consume verification code: %w", err)
	}

	user, created, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if created {
		runPostCommit(ctx, s.logger, s.syncDefaultRole(user))
	}

	roles, err := s.roles.ListByUserID(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("load roles: %w", err)
	}
	roleCodes := make([]string, len(roles))
	for i, r := range roles {
		roleCodes[i] = r.Code
	}
	token, err := s.tokens.Issue(user.ID, user.Email, roleCodes, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

func (s *accountService) findOrCreateUser(ctx context.Context, email string) (*domain.User, bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	now := s.now()
	user = domain.NewUser(email, "", now, now)
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		// Lost a race with a concurrent verification for the same email.
		user, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("get user: %w", err)
		}
		return user, false, nil
	}
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID)
	return user, true, nil
}

func (s *accountService) syncDefaultRole(user *domain.User) postCommitAction {
	return postCommitAction{name: "role_sync", run: func(ctx context.Context) error {
		role, err := s.roles.GetByCode(ctx, defaultRole)
		if err != nil {
			return fmt.Errorf("get role %q: %w", defaultRole, err)
		}
		return s.users.AssignRole(ctx, user.ID, role.ID)
	}}
}

// burnCode deletes a code that can no longer be used.
func (s *accountService) burnCode(ctx context.Context, email string) {
	if err := s.codes.Delete(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "delete verification code failed", "email", email, "err", err)
	}
}

func (s *accountService) normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return "", fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if len(s.allowedDomains) == 0 {
		return email, nil
	}
	host := email[strings.LastIndexByte(email, '@')+1:]
	for _, d := range s.allowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return email, nil
		}
	}
	return "", fmt.Errorf("%w: email must use a college domain", domain.ErrInvalidInput)
}

func generateVerificationCode(digits int) (string, error) {
	b := make([]byte, digits)
	max := big.NewInt(10)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}

// GetProfile returns the user behind a verified token.
func (s *accountService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}
