package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"fx-client-portal/ledger"
	"fx-client-portal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// authError carries a message safe to show the caller.
type authError struct {
	msg  string
	kind error
}

func (e authError) Error() string { return e.msg }
func (e authError) Unwrap() error { return e.kind }

var (
	// ErrNotOperator rejects an operator sign-in by an account without the role.
	ErrNotOperator error = authError{msg: "You don't have admin privileges.", kind: ledger.ErrForbidden}

	errBadCredentials error = authError{msg: "Invalid login credentials", kind: ledger.ErrUnauthorized}
)

// Session is the authenticated caller.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsOperator() bool {
	for _, r := range s.Roles {
		if r == models.RoleOperator {
			return true
		}
	}
	return false
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type IdentityService struct {
	Accounts AccountStore
	Secret   []byte
	TTL      time.Duration
	Logger   *slog.Logger
}

func (s *IdentityService) SignUp(ctx context.Context, email, password string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	verr := &ledger.ValidationError{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		verr.Add("email", "Enter a valid email")
	}
	if len(password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.Accounts.FindByEmail(ctx, email); err == nil {
		return nil, ledger.NewValidationError("email", "An account with this email already exists")
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := s.Accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.Logger.Info("👤 account created", "user_id", acc.ID)
	return acc, nil
}

// SignIn checks the password and issues a bearer token. asOperator also
// requires the operator role.
func (s *IdentityService) SignIn(ctx context.Context, email, password string, asOperator bool) (string, *Session, error) {
	acc, err := s.Accounts.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ledger.ErrNotFound) {
		return "", nil, errBadCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		return "", nil, errBadCredentials
	}

	roles, err := s.Accounts.Roles(ctx, acc.ID)
	if err != nil {
		return "", nil, err
	}
	sess := &Session{
		UserID:    acc.ID,
		Email:     acc.Email,
		Roles:     roles,
		TokenID:   uuid.NewString(),
		ExpiresAt: now().Add(s.TTL).Truncate(time.Second),
	}
	if asOperator && !sess.IsOperator() {
		s.Logger.Warn("🚫 operator sign-in without role", "user_id", acc.ID)
		return "", nil, ErrNotOperator
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email: acc.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.TokenID,
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}).SignedString(s.Secret)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Authenticate resolves a bearer token into a session. Roles are read fresh
// so a revoked operator loses access on the next request.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ledger.ErrUnauthorized
	}

	revoked, err := s.Accounts.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ledger.ErrUnauthorized
	}

	roles, err := s.Accounts.Roles(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Roles:     roles,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *IdentityService) SignOut(ctx context.Context, sess *Session) error {
	if err := s.Accounts.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
		return err
	}
	s.Logger.Info("👋 signed out", "user_id", sess.UserID)
	return nil
}

// EnsureOperator grants the operator role to an existing account.
func (s *IdentityService) EnsureOperator(ctx context.Context, email string) error {
	acc, err := s.Accounts.FindByEmail(ctx, email)
	if errors.Is(err, ledger.ErrNotFound) {
		s.Logger.Warn("⚠️ operator account not found, sign up first", "email", email)
		return nil
	}
	if err != nil {
		return err
	}
	return s.Accounts.GrantRole(ctx, acc.ID, models.RoleOperator)
}
