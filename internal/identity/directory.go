// Package identity is the credential service: it verifies credentials
// and hands back a Principal. The engine never reads account records
// mid-operation; the role captured at login is ground truth until the
// token expires.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Directory errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// Account is a stored login identity.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Directory defines persistence access for accounts.
type Directory interface {
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Delete(ctx context.Context, id string) error
}
