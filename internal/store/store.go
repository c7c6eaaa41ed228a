// Package store is the persistence facade for tickets. Backends implement
// single-document read-modify-write with optimistic conflict detection;
// the Facade layers human-id generation and the listing visibility filter
// on top.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Sentinel errors reported by backends. Anything else coming out of a
// backend is a transport/driver failure and is surfaced as unavailability
// by the operation layer.
var (
	ErrNotFound         = errors.New("ticket not found")
	ErrConflict         = errors.New("concurrent write detected")
	ErrDuplicateHumanID = errors.New("human id already taken")
)

// Filter narrows List results. A nil CustomerID means no ownership filter.
type Filter struct {
	CustomerID *string
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// Backend is a durable store for ticket documents.
type Backend interface {
	// Get loads one ticket or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	// Insert persists a new ticket, assigning ID/Version/CreatedAt.
	// Returns ErrDuplicateHumanID when the human id is taken.
	Insert(ctx context.Context, ticket *domain.Ticket) error
	// Replace writes the full document if the stored version still matches
	// ticket.Version, then bumps the version. Returns ErrConflict when the
	// version moved underneath the caller.
	Replace(ctx context.Context, ticket *domain.Ticket) error
	// List returns tickets matching the filter, most recently updated first.
	List(ctx context.Context, filter Filter) ([]domain.Ticket, error)
}

// HumanIDSource produces candidate human-readable ticket ids. Candidates
// are not guaranteed unique; the facade checks them against the store and
// asks for another on collision.
type HumanIDSource interface {
	Next(ctx context.Context) (string, error)
}

// CreateFields is the caller-supplied part of a new ticket. The owner is
// never taken from here; it always comes from the creating principal.
type CreateFields struct {
	Title    string
	Category domain.TicketCategory
	Priority domain.TicketPriority
}

// Facade exposes the store operations the engine works against.
type Facade struct {
	backend Backend
	ids     HumanIDSource
}

// NewFacade builds a facade over a backend and a human-id source.
func NewFacade(backend Backend, ids HumanIDSource) *Facade {
	return &Facade{backend: backend, ids: ids}
}

// Load fetches one ticket by id.
func (f *Facade) Load(ctx context.Context, id string) (*domain.Ticket, error) {
	return f.backend.Get(ctx, id)
}

// Save writes the ticket back, detecting concurrent writes via the
// version the ticket was loaded with.
func (f *Facade) Save(ctx context.Context, ticket *domain.Ticket) error {
	return f.backend.Replace(ctx, ticket)
}

// humanIDAttempts bounds collision retries during creation.
const humanIDAttempts = 5

// Create persists a new ticket owned by the principal. CustomerID is
// forced to the creator regardless of anything in fields, status starts
// Active and priority defaults to Medium. Human-id collisions are
// detected against the store and retried with a fresh candidate.
func (f *Facade) Create(ctx context.Context, p domain.Principal, fields CreateFields) (*domain.Ticket, error) {
	now := time.Now()
	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(fields.Title),
		Status:      domain.TicketStatusActive,
		Category:    fields.Category,
		Priority:    fields.Priority,
		CustomerID:  p.ID,
		Notes:       []domain.Note{},
		LastUpdated: now,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.PriorityMedium
	}

	var lastErr error
	for attempt := 0; attempt < humanIDAttempts; attempt++ {
		humanID, err := f.ids.Next(ctx)
		if err != nil {
			return nil, err
		}
		ticket.HumanID = humanID
		if err := f.backend.Insert(ctx, ticket); err != nil {
			if errors.Is(err, ErrDuplicateHumanID) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return ticket, nil
	}
	return nil, lastErr
}

// ListVisibleTo returns the tickets the principal may see, most recently
// updated first. Visibility is a filter, never an error: customers get
// their own tickets, staff get everything, anything else gets an empty
// slice.
func (f *Facade) ListVisibleTo(ctx context.Context, p domain.Principal) ([]domain.Ticket, error) {
	switch {
	case p.Role.Staff():
		return f.backend.List(ctx, Filter{})
	case p.Role == domain.RoleCustomer:
		customerID := p.ID
		return f.backend.List(ctx, Filter{CustomerID: &customerID})
	default:
		return []domain.Ticket{}, nil
	}
}
