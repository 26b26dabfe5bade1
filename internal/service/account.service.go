package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"microshop/internal/domain"
	"microshop/internal/repo"
)

// TokenIssuer signs tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(identity string, accountID int64, role domain.Role) (string, error)
}

type AccountInput struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Address  string `json:"address"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in AccountInput) validate(requirePassword bool) error {
	var missing []string
	if strings.TrimSpace(in.Username) == "" {
		missing = append(missing, "username")
	}
	if requirePassword && in.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

type AccountService interface {
	Login(ctx context.Context, username, password string) (string, *domain.Account, error)
	Refresh(ctx context.Context, p domain.Principal) (string, error)
	Register(ctx context.Context, in AccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, p domain.Principal, id int64) (*domain.Account, error)
	UpdateAccount(ctx context.Context, p domain.Principal, id int64, in AccountInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, p domain.Principal, id int64) error
	EnsureAdmin(ctx context.Context, username, password string) error
}

type accountService struct {
	tx          repo.Transactor
	accountRepo repo.AccountRepo
	tokens      TokenIssuer
	hashCost    int
	logger      *slog.Logger
}

func NewAccountService(
	tx repo.Transactor,
	accountRepo repo.AccountRepo,
	tokens TokenIssuer,
	logger *slog.Logger,
) AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &accountService{
		tx:          tx,
		accountRepo: accountRepo,
		tokens:      tokens,
		hashCost:    bcrypt.DefaultCost,
		logger:      logger,
	}
}

func (s *accountService) Login(ctx context.Context, username, password string) (string, *domain.Account, error) {
	account, err := s.accountRepo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.Username, account.ID, account.Role)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Refresh reissues a token from the stored account, so a deleted account or
// a changed role is picked up.
func (s *accountService) Refresh(ctx context.Context, p domain.Principal) (string, error) {
	account, err := s.accountRepo.FindById(ctx, p.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("%w: account %d no longer exists", domain.ErrInvalidToken, p.AccountID)
	}
	if err != nil {
		return "", err
	}
	if account.Username != p.Identity {
		return "", fmt.Errorf("%w: identity does not match account %d", domain.ErrInvalidToken, p.AccountID)
	}
	return s.tokens.Issue(account.Username, account.ID, account.Role)
}

func (s *accountService) Register(ctx context.Context, in AccountInput) (*domain.Account, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	return s.create(ctx, in, domain.RoleUser)
}

func (s *accountService) create(ctx context.Context, in AccountInput, role domain.Role) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &domain.Account{
		Name:         in.Name,
		Surname:      in.Surname,
		Address:      in.Address,
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.accountRepo.CreateAccount(ctx, nil, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetAccount(ctx context.Context, p domain.Principal, id int64) (*domain.Account, error) {
	account, err := s.accountRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(account.ID) {
		return nil, fmt.Errorf("%w: account %d", domain.ErrForbidden, id)
	}
	return account, nil
}

// UpdateAccount replaces the profile fields. An empty password keeps the
// current one; the role is never changed here.
func (s *accountService) UpdateAccount(ctx context.Context, p domain.Principal, id int64, in AccountInput) (*domain.Account, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	var updated *domain.Account
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		account, err := s.accountRepo.FindById(ctx, id)
		if err != nil {
			return err
		}
		if !p.CanAccess(account.ID) {
			return fmt.Errorf("%w: account %d", domain.ErrForbidden, id)
		}

		username := strings.TrimSpace(in.Username)
		if username != account.Username {
			other, err := s.accountRepo.FindByUsername(ctx, username)
			if err == nil && other.ID != account.ID {
				return fmt.Errorf("username %q: %w", username, domain.ErrConflict)
			}
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		account.Name = in.Name
		account.Surname = in.Surname
		account.Address = in.Address
		account.Username = username
		if in.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			account.PasswordHash = string(hash)
		}

		if err := s.accountRepo.UpdateAccount(ctx, tx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, p domain.Principal, id int64) error {
	account, err := s.accountRepo.FindById(ctx, id)
	if err != nil {
		return err
	}
	if !p.CanAccess(account.ID) {
		return fmt.Errorf("%w: account %d", domain.ErrForbidden, id)
	}
	return s.accountRepo.DeleteAccount(ctx, nil, id)
}

// EnsureAdmin creates the admin account on first start. An existing account
// with the same username is left untouched.
func (s *accountService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		s.logger.Warn("admin credentials not configured, skipping seed")
		return nil
	}

	_, err := s.accountRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	account, err := s.create(ctx, AccountInput{Name: "Admin", Username: username, Password: password}, domain.RoleAdmin)
	if errors.Is(err, domain.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	s.logger.Info("seeded admin account", slog.Int64("account_id", account.ID))
	return nil
}
