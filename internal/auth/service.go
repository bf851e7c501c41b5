package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/conferencer/conferencer/internal/identity"
	"github.com/conferencer/conferencer/internal/logging"
	"github.com/conferencer/conferencer/internal/notification"
)

const (
	signupMessage = "User registered successfully."
	loginMessage  = "Login successful."
)

// TokenIssuer issues bearer tokens for an authenticated subject.
type TokenIssuer interface {
	Issue(subject string) (Token, error)
}

// Service orchestrates signup and login against the credential store.
type Service struct {
	users    identity.Repository
	hasher   Hasher
	tokens   TokenIssuer
	notifier notification.Notifier
	logger   *slog.Logger

	// dummyDigest is compared against on unknown emails so both login failures cost one hash.
	dummyDigest []byte
}

// NewService builds the authentication service. notifier and logger may be nil.
func NewService(users identity.Repository, hasher Hasher, tokens TokenIssuer, notifier notification.Notifier, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, errors.New("user repository is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	dummy, err := hasher.Hash("conferencer-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy digest: %w", err)
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, notifier: notifier, logger: logger, dummyDigest: dummy}, nil
}

// SignupInput captures the fields required to register an account.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
	Phone    string
}

// SignupResult describes a newly created account.
type SignupResult struct {
	UserID  string
	Message string
}

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Message   string
}

// Signup registers a new account. The store's unique index decides races between concurrent signups.
func (s *Service) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	if err := validateSignup(in); err != nil {
		return SignupResult{}, err
	}
	email := identity.NormalizeEmail(in.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return SignupResult{}, ErrDuplicateUser
	case !errors.Is(err, identity.ErrNotFound):
		s.logger.Error("auth.signup lookup failed", slog.String("email", email), slog.Any("error", err))
		return SignupResult{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return SignupResult{}, err
	}

	user, err := s.users.Save(ctx, identity.User{
		Email:        email,
		PasswordHash: digest,
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			s.logger.Warn("auth.signup lost uniqueness race", slog.String("email", email))
			return SignupResult{}, ErrDuplicateUser
		}
		s.logger.Error("auth.signup save failed", slog.String("email", email), slog.Any("error", err))
		return SignupResult{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	s.logger.Info("auth.signup completed", slog.String("user_id", user.ID), slog.String("email", user.Email))

	if s.notifier != nil {
		err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindSignupWelcome,
			Destination: user.Email,
			Body:        fmt.Sprintf("Welcome to Conferencer, %s!", user.Name),
		})
		if err != nil {
			s.logger.Warn("auth.signup welcome notification failed", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	return SignupResult{UserID: user.ID, Message: signupMessage}, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if missing := missingFields(map[string]string{"email": in.Email, "password": in.Password}); len(missing) > 0 {
		return LoginResult{}, fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.hasher.Verify(in.Password, s.dummyDigest)
			s.logger.Info("auth.login rejected", slog.String("reason", "invalid_credentials"))
			return LoginResult{}, ErrInvalidCredentials
		}
		s.logger.Error("auth.login lookup failed", slog.Any("error", err))
		return LoginResult{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.logger.Info("auth.login rejected", slog.String("reason", "invalid_credentials"))
		return LoginResult{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(user.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("auth.login completed", slog.String("user_id", user.ID))
	return LoginResult{Token: tok.Value, IssuedAt: tok.IssuedAt, ExpiresAt: tok.ExpiresAt, Message: loginMessage}, nil
}

// Profile loads the account for email together with its role and authorities.
func (s *Service) Profile(ctx context.Context, email string) (identity.User, error) {
	user, err := s.users.FindByEmailWithRole(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, err
		}
		return identity.User{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	user.PasswordHash = nil
	return user, nil
}

func validateSignup(in SignupInput) error {
	missing := missingFields(map[string]string{
		"email":    in.Email,
		"password": in.Password,
		"name":     in.Name,
		"surname":  in.Surname,
		"phone":    in.Phone,
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	email := strings.TrimSpace(in.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	return nil
}

// missingFields returns the names of blank fields in a stable order.
func missingFields(fields map[string]string) []string {
	order := []string{"email", "password", "name", "surname", "phone"}
	var missing []string
	for _, name := range order {
		value, ok := fields[name]
		if ok && strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
