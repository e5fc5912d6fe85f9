package auth

import (
	"context"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/user"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

var errBadCredentials = apperr.New(apperr.Unauthorized, "invalid email or password")

// SignupRequest holds the input for creating a customer account.
type SignupRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
}

// Session is the result of a successful signup or login.
type Session struct {
	Token string
	User  *user.User
}

// Service implements account signup, login and bearer token resolution.
type Service struct {
	users  user.Repository
	hasher Hasher
	tokens *TokenIssuer
}

// NewService creates an auth Service.
func NewService(users user.Repository, hasher Hasher, tokens *TokenIssuer) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

// Signup creates an enabled CUSTOMER account and logs it in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	email := user.NormalizeEmail(req.Email)
	switch {
	case strings.TrimSpace(req.FirstName) == "":
		return nil, apperr.New(apperr.Validation, "first name is required")
	case !ValidEmail(email):
		return nil, apperr.New(apperr.Validation, "a valid email is required")
	case len(req.Password) < MinPasswordLength:
		return nil, apperr.New(apperr.Validation, "password must be at least %d characters", MinPasswordLength)
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "check email")
	}
	if exists {
		return nil, apperr.New(apperr.Conflict, "email %s is already registered", email)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	u := &user.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         user.RoleCustomer,
		Enabled:      true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	zctx.From(ctx).Info("User signed up", zap.Int64("user_id", u.ID))

	return s.session(u)
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !u.Enabled {
		return nil, apperr.New(apperr.Forbidden, "account is disabled")
	}
	return s.session(u)
}

// Resolve verifies token and returns the caller's current identity. The role
// is read from the account rather than the token so promotions take effect
// immediately.
func (s *Service) Resolve(ctx context.Context, token string) (Identity, error) {
	claimed, err := s.tokens.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	u, err := s.users.GetByID(ctx, claimed.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, errors.Wrap(err, "get user")
	}
	if !u.Enabled {
		return Identity{}, apperr.New(apperr.Unauthorized, "account is disabled")
	}
	return Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

func (s *Service) session(u *user.User) (*Session, error) {
	token, err := s.tokens.Issue(Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

// ValidEmail reports whether email is a bare RFC 5322 address.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
