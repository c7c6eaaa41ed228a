package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MemoryBackend is a map-backed Backend with the same compare-and-swap
// semantics as the real drivers. It serves tests and local development.
type MemoryBackend struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	humanIDs map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		tickets:  make(map[string]*domain.Ticket),
		humanIDs: make(map[string]string),
	}
}

func (m *MemoryBackend) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (m *MemoryBackend) Insert(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.humanIDs[ticket.HumanID]; taken {
		return ErrDuplicateHumanID
	}
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = time.Now()
	m.humanIDs[ticket.HumanID] = ticket.ID
	m.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (m *MemoryBackend) Replace(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != ticket.Version {
		return ErrConflict
	}
	ticket.Version++
	m.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (m *MemoryBackend) List(ctx context.Context, filter Filter) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]domain.Ticket, 0, len(m.tickets))
	for _, ticket := range m.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *ticket.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastUpdated.After(result[j].LastUpdated)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
