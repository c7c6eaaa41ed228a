package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory is a map-backed Directory for tests and local runs.
type MemoryDirectory struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

// NewMemoryDirectory returns an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{accounts: make(map[string]*Account)}
}

func (d *MemoryDirectory) Create(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.accounts {
		if existing.Email == account.Email {
			return ErrEmailTaken
		}
	}
	account.ID = uuid.NewString()
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	cp := *account
	d.accounts[account.ID] = &cp
	return nil
}

func (d *MemoryDirectory) Update(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[account.ID]; !ok {
		return ErrAccountNotFound
	}
	account.UpdatedAt = time.Now()
	cp := *account
	d.accounts[account.ID] = &cp
	return nil
}

func (d *MemoryDirectory) GetByID(ctx context.Context, id string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (d *MemoryDirectory) GetByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, account := range d.accounts {
		if account.Email == email {
			cp := *account
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (d *MemoryDirectory) List(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]Account, 0, len(d.accounts))
	for _, account := range d.accounts {
		result = append(result, *account)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (d *MemoryDirectory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(d.accounts, id)
	return nil
}
