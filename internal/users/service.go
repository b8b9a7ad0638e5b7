package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trustfund-platform/trustfund/internal/email"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// verificationTokenTTL is how long an email verification link stays valid.
const verificationTokenTTL = 48 * time.Hour

// ErrInvalidCredentials is returned on a failed login. It does not reveal
// whether the email exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrWeakPassword is returned when a signup password is too short.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

// userRepo is the storage interface consumed by UserService.
// *UserRepository satisfies this interface.
type userRepo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetTrustScore(ctx context.Context, userID uuid.UUID, score int) error
	AdjustTrustScore(ctx context.Context, userID uuid.UUID, delta int) error
	CreateVerificationToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error
	UseVerificationToken(ctx context.Context, token string) (*User, error)
}

// UserService implements business logic for user account management.
type UserService struct {
	repo        userRepo
	mailer      email.Sender
	frontendURL string // base URL of the web frontend, used to build verification links
	logger      *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo userRepo, mailer email.Sender, frontendURL string, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, mailer: mailer, frontendURL: frontendURL, logger: logger}
}

// Signup creates a new user with email/password authentication and sends an
// email verification link. New accounts start at InitialTrustScore.
func (s *UserService) Signup(ctx context.Context, emailAddr, password, name, phone string) (*User, error) {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if emailAddr == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        emailAddr,
		PasswordHash: string(hash),
		Name:         name,
		Phone:        phone,
		TrustScore:   InitialTrustScore,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendVerification(ctx, u); err != nil {
		// Non-fatal: the account exists; the user can request a resend.
		s.logger.Warn("failed to send verification email",
			zap.String("user_id", u.ID.String()),
			zap.Error(err),
		)
	}

	return u, nil
}

// Login verifies email/password credentials and returns the user on success.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(emailAddr)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// VerifyEmail consumes a verification token and marks the user's email as verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*User, error) {
	u, err := s.repo.UseVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("verification token not found")
		}
		return nil, fmt.Errorf("verify email: %w", err)
	}

	s.logger.Info("email verified", zap.String("user_id", u.ID.String()))
	return u, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// SetTrustScore overwrites the user's trust score, clamped to the valid range.
// Used by the credit assessment, whose result replaces the previous score.
func (s *UserService) SetTrustScore(ctx context.Context, userID uuid.UUID, score int) error {
	if err := s.repo.SetTrustScore(ctx, userID, score); err != nil {
		return err
	}
	s.logger.Info("trust score set",
		zap.String("user_id", userID.String()),
		zap.Int("score", score),
	)
	return nil
}

// AdjustTrustScore moves the user's trust score by delta, clamped to the
// valid range. Used for repayment and document-verification boosts.
func (s *UserService) AdjustTrustScore(ctx context.Context, userID uuid.UUID, delta int) error {
	if err := s.repo.AdjustTrustScore(ctx, userID, delta); err != nil {
		return err
	}
	s.logger.Info("trust score adjusted",
		zap.String("user_id", userID.String()),
		zap.Int("delta", delta),
	)
	return nil
}

// sendVerification generates a token, persists it, and emails the user.
func (s *UserService) sendVerification(ctx context.Context, u *User) error {
	token, err := generateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	if err := s.repo.CreateVerificationToken(ctx, u.ID, token, time.Now().Add(verificationTokenTTL)); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	link := s.frontendURL + "/verify-email?token=" + token
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to TrustFund. Verify your email address to start requesting and funding loans:\n\n%s\n\nThe link expires in 48 hours.\n",
		u.Name, link,
	)
	return s.mailer.Send(ctx, u.Email, "Verify your TrustFund account", body)
}

// generateSecureToken returns n random bytes hex-encoded.
func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
