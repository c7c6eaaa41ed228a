package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Service coordinates registration and login flows.
type Service struct {
	directory  Directory
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewService builds the service.
func NewService(cfg config.AuthConfig, directory Directory) *Service {
	return &Service{
		directory:  directory,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a new account and issues a token for it. New accounts
// are customers; a requested role is honored only when the actor opening
// the account is an admin.
func (s *Service) Register(ctx context.Context, actor *domain.Principal, name, email, password string, role domain.Role) (*Account, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password required", nil)
	}

	accountRole := domain.RoleCustomer
	if actor != nil && actor.Role == domain.RoleAdmin && role != "" {
		if !role.Valid() {
			return nil, "", time.Time{}, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
		}
		accountRole = role
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	account := &Account{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         accountRole,
	}
	if err := s.directory.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, "", time.Time{}, apperrors.NewValidationError("email already registered", nil)
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Login verifies credentials and issues a role-bearing token.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, string, time.Time, error) {
	account, err := s.directory.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid email or password")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid email or password")
	}
	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, p domain.Principal, currentPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	account, err := s.directory.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperrors.NewUnauthenticated("account no longer exists")
		}
		return err
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthenticated("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return s.directory.Update(ctx, account)
}

// ListAccounts returns every account. Admin only.
func (s *Service) ListAccounts(ctx context.Context, p domain.Principal) ([]Account, error) {
	if p.Role != domain.RoleAdmin {
		return nil, apperrors.NewRoleNotPermitted("admin role required")
	}
	return s.directory.List(ctx)
}

// DeleteAccount removes an account. Admin only; admins cannot delete
// themselves.
func (s *Service) DeleteAccount(ctx context.Context, p domain.Principal, accountID string) error {
	if p.Role != domain.RoleAdmin {
		return apperrors.NewRoleNotPermitted("admin role required")
	}
	if p.ID == accountID {
		return apperrors.NewValidationError("cannot delete own account", nil)
	}
	if err := s.directory.Delete(ctx, accountID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return apperrors.NewNotFound("account", nil)
		}
		return err
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *Service) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
