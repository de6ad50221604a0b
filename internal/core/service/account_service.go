package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
	"github.com/nexus-app/marketplace/internal/pkg/clock"
	"github.com/nexus-app/marketplace/internal/pkg/password"
	"github.com/nexus-app/marketplace/internal/pkg/retry"
	"github.com/nexus-app/marketplace/internal/pkg/token"
)

// timingProbe is hashed once at startup so that logins for unknown usernames
// spend the same bcrypt work as logins with a wrong password.
const timingProbe = "nexus-unknown-account"

// AccountDeps are the collaborators of AccountService.
type AccountDeps struct {
	Repo       ports.AccountRepository
	Hasher     password.Hasher
	Tokens     ports.TokenIssuer
	Strategies map[domain.AccountKind]ports.VerificationStrategy
	Sessions   ports.SessionRevoker
	Clock      clock.Clock
	Retry      retry.Policy
	Logger     zerolog.Logger
}

// AccountService implements registration, login and profile projection.
type AccountService struct {
	repo       ports.AccountRepository
	hasher     password.Hasher
	tokens     ports.TokenIssuer
	strategies map[domain.AccountKind]ports.VerificationStrategy
	sessions   ports.SessionRevoker
	clock      clock.Clock
	retry      retry.Policy
	log        zerolog.Logger
	probeHash  string
}

func NewAccountService(deps AccountDeps) (*AccountService, error) {
	if deps.Repo == nil || deps.Hasher == nil || deps.Tokens == nil {
		return nil, errors.New("account service: repo, hasher and tokens are required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Strategies == nil {
		deps.Strategies = NewVerificationStrategies(false)
	}
	probe, err := deps.Hasher.Hash(timingProbe)
	if err != nil {
		return nil, fmt.Errorf("account service: %w", err)
	}
	return &AccountService{
		repo:       deps.Repo,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		strategies: deps.Strategies,
		sessions:   deps.Sessions,
		clock:      deps.Clock,
		retry:      deps.Retry,
		log:        deps.Logger,
		probeHash:  probe,
	}, nil
}

func (s *AccountService) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := withStorageRetry(ctx, s.retry, s.log, "account.exists", func(ctx context.Context) error {
		var err error
		exists, err = s.repo.ExistsByUsername(ctx, domain.NormalizeUsername(username))
		return err
	})
	return exists, err
}

// Register verifies and creates an account of the given kind. Either exactly
// one account is stored or none is.
func (s *AccountService) Register(ctx context.Context, kind string, reg domain.Registration) (domain.Account, error) {
	accountKind, err := domain.ParseAccountKind(kind)
	if err != nil {
		return nil, err
	}
	reg.Username = domain.NormalizeUsername(reg.Username)
	if reg.Username == "" || reg.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidRegistration)
	}

	exists, err := s.UsernameExists(ctx, reg.Username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateUsername
	}

	strategy, ok := s.strategies[accountKind]
	if !ok {
		return nil, fmt.Errorf("register: no verification for %s: %w", accountKind, domain.ErrUnrecognisedAccountKind)
	}
	passed, err := strategy.Verify(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: verify: %w", err)
	}
	if !passed {
		s.log.Info().Str("username", reg.Username).Str("kind", string(accountKind)).Msg("registration rejected by verification")
		return nil, &domain.VerificationError{Kind: accountKind, Reason: strategy.FailureReason()}
	}

	acc, err := s.buildAccount(accountKind, reg)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	acc.Identity().PasswordHash = hash

	attempts := 0
	err = withStorageRetry(ctx, s.retry, s.log, "account.insert", func(ctx context.Context) error {
		attempts++
		return s.repo.Insert(ctx, acc)
	})
	if err != nil && attempts > 1 && errors.Is(err, domain.ErrConflict) && s.insertLanded(ctx, acc) {
		s.log.Warn().Str("account_id", acc.Identity().ID).Msg("insert acknowledged late, conflict was our own write")
		err = nil
	}
	if err != nil {
		return nil, translateAccountConflict(err)
	}

	s.log.Info().Str("account_id", acc.Identity().ID).Str("kind", string(accountKind)).Msg("account registered")
	return acc, nil
}

func (s *AccountService) buildAccount(kind domain.AccountKind, reg domain.Registration) (domain.Account, error) {
	base := domain.AccountBase{
		ID:          uuid.NewString(),
		Username:    reg.Username,
		Email:       strings.ToLower(strings.TrimSpace(reg.Email)),
		PhoneNumber: strings.TrimSpace(reg.PhoneNumber),
		CreatedAt:   s.clock.Now().UTC(),
	}

	switch kind {
	case domain.KindBusiness:
		return &domain.BusinessAccount{
			AccountBase: base,
			ABN:         strings.ReplaceAll(reg.ABN, " ", ""),
			Address:     reg.Address,
		}, nil
	case domain.KindServiceProvider:
		trade, ok := domain.ParseTrade(reg.Trade)
		if !ok {
			return nil, fmt.Errorf("%w: unknown trade %q", domain.ErrInvalidRegistration, reg.Trade)
		}
		return &domain.ServiceProviderAccount{
			AccountBase: base,
			FirstName:   reg.FirstName,
			LastName:    reg.LastName,
			Address:     reg.Address,
			Trade:       trade,
		}, nil
	}
	return nil, domain.ErrUnrecognisedAccountKind
}

// insertLanded reports whether acc is already stored under its own ID, which
// happens when a write succeeded but its acknowledgement was lost and the
// retry then collided with it.
func (s *AccountService) insertLanded(ctx context.Context, acc domain.Account) bool {
	stored, err := s.Account(ctx, acc.Identity().Username)
	return err == nil && stored.Identity().ID == acc.Identity().ID
}

// translateAccountConflict maps a storage uniqueness rejection to the
// registration error for that field. The store, not the pre-check, is the
// authority on duplicates.
func translateAccountConflict(err error) error {
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		return fmt.Errorf("register: %w", err)
	}
	switch conflict.Field {
	case "username":
		return domain.ErrDuplicateUsername
	case "email":
		return domain.ErrDuplicateEmail
	case "phone_number":
		return domain.ErrDuplicatePhoneNumber
	case "abn":
		return domain.ErrDuplicateABN
	}
	return fmt.Errorf("register: %w", err)
}

func (s *AccountService) Authenticate(ctx context.Context, username, password string) (domain.Account, error) {
	username = domain.NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	var acc domain.Account
	err := withStorageRetry(ctx, s.retry, s.log, "account.find", func(ctx context.Context) error {
		var err error
		acc, err = s.repo.FindByUsername(ctx, username)
		return err
	})
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.hasher.Verify(password, s.probeHash)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(password, acc.Identity().PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return acc, nil
}

func (s *AccountService) IssueSessionToken(_ context.Context, acc domain.Account) (token.Token, error) {
	tok, err := s.tokens.Issue(acc.Identity().Username, string(acc.Kind()), 0)
	if err != nil {
		return token.Token{}, fmt.Errorf("issue session token: %w", err)
	}
	return tok, nil
}

// Account loads the current state of an account. Nothing is cached between calls.
func (s *AccountService) Account(ctx context.Context, username string) (domain.Account, error) {
	username = domain.NormalizeUsername(username)
	var acc domain.Account
	err := withStorageRetry(ctx, s.retry, s.log, "account.find", func(ctx context.Context) error {
		var err error
		acc, err = s.repo.FindByUsername(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *AccountService) Profile(ctx context.Context, username string) (domain.Profile, error) {
	acc, err := s.Account(ctx, username)
	if err != nil {
		return nil, err
	}
	return domain.ProjectProfile(acc), nil
}

// Logout revokes the session until the token would have expired anyway.
func (s *AccountService) Logout(ctx context.Context, session token.Identity) error {
	if s.sessions == nil {
		return errors.New("logout: no session store configured")
	}
	if session.ID == "" {
		return token.ErrInvalid
	}
	if err := s.sessions.Revoke(ctx, session.ID, session.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
