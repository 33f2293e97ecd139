package auth

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/secure/precis"

	"github.com/postboard/postboard/internal/shared"
)

// Login outcomes reported to the Observer.
const (
	LoginSucceeded   = "success"
	LoginUnknownUser = "unknown_user"
	LoginBadPassword = "bad_password"
)

// Observer receives auth outcomes for metrics. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveLogin(outcome string)
	ObserveTokenRejection(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveLogin(string)          {}
func (nopObserver) ObserveTokenRejection(string) {}

// Service wraps registration and login rules.
type Service struct {
	repo      Repository
	hasher    *Hasher
	tokens    *TokenCodec
	validate  *validator.Validate
	observer  Observer
	now       func() time.Time
	dummyHash string
}

// NewService constructs a new Service. observer may be nil.
func NewService(repo Repository, hasher *Hasher, tokens *TokenCodec, observer Observer) (*Service, error) {
	// Compared against when the username is unknown so both login failures
	// cost one bcrypt verification.
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		validate:  newValidator(),
		observer:  observer,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates an account after checking uniqueness and hashing the password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := checkUsername(in.Username); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, ErrAlreadyHashed) || errors.Is(err, ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password: %s", shared.ErrValidation, err.Error())
		}
		return nil, err
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = in.Username
	}
	account, err := s.repo.Insert(ctx, Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		DisplayName:  displayName,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateIdentity) {
			return nil, shared.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("auth: insert account: %w", err)
	}
	return account, nil
}

// Login validates username/password credentials and issues an access token.
// An unknown username and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.observer.ObserveLogin(LoginUnknownUser)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: lookup account: %w", err)
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		s.observer.ObserveLogin(LoginBadPassword)
		return nil, shared.ErrInvalidCredentials
	}

	signed, expiresAt, err := s.tokens.Issue(account.Username, s.now())
	if err != nil {
		return nil, err
	}
	s.observer.ObserveLogin(LoginSucceeded)
	return &Token{AccessToken: signed, TokenType: TokenTypeBearer, ExpiresAt: expiresAt}, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return shared.ErrDuplicateIdentity
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("auth: lookup username: %w", err)
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return shared.ErrDuplicateIdentity
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("auth: lookup email: %w", err)
	}
	return nil
}

// checkUsername enforces the PRECIS case-preserving username profile and
// requires the input to already be in its normalised form, so the stored
// username is exactly what the client submitted.
func checkUsername(username string) error {
	normalized, err := precis.UsernameCasePreserved.String(username)
	if err != nil || normalized != username {
		return fmt.Errorf("%w: username: contains disallowed characters", shared.ErrValidation)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(parts, "; "))
}
