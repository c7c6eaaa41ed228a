// Package ticket implements the access-controlled ticket lifecycle: who
// may see or mutate a ticket, and how it moves between statuses. Every
// operation takes the acting principal explicitly; there is no ambient
// caller state.
package ticket

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/blob"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/policy"
	"github.com/spec-kit/support-desk/internal/store"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// conflictAttempts bounds reload-and-reapply cycles on write conflicts.
const conflictAttempts = 3

// Service coordinates ticket workflows.
type Service struct {
	store      *store.Facade
	blobs      blob.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// Dependencies bundles collaborators for the service.
type Dependencies struct {
	Store      *store.Facade
	Blobs      blob.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// NewService constructs the service.
func NewService(deps Dependencies) *Service {
	return &Service{
		store:      deps.Store,
		blobs:      deps.Blobs,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// CreateInput describes ticket creation payload. Any owner id supplied by
// the transport layer is ignored; ownership comes from the principal.
type CreateInput struct {
	Title    string
	Category domain.TicketCategory
	Priority domain.TicketPriority
}

// List returns the tickets visible to the principal, most recently
// updated first.
func (s *Service) List(ctx context.Context, p domain.Principal) ([]domain.Ticket, error) {
	tickets, err := s.store.ListVisibleTo(ctx, p)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return tickets, nil
}

// Get fetches one ticket, enforcing view permissions.
func (s *Service) Get(ctx context.Context, p domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Load(ctx, ticketID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if d := policy.Decide(p, ticket, policy.OpViewTicket, nil); !d.Allowed {
		return nil, denyErr(d, "not authorized to view this ticket")
	}
	return ticket, nil
}

// Create opens a new ticket owned by the principal. Only customers may
// create tickets.
func (s *Service) Create(ctx context.Context, p domain.Principal, input CreateInput) (*domain.Ticket, error) {
	if d := policy.Decide(p, nil, policy.OpCreateTicket, nil); !d.Allowed {
		return nil, denyErr(d, "only customers may open tickets")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket, err := s.store.Create(ctx, p, store.CreateFields{
		Title:    input.Title,
		Category: input.Category,
		Priority: input.Priority,
	})
	if err != nil {
		return nil, s.storeErr(err)
	}
	s.metrics.RecordTicketCreated()

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor(p),
		Payload: events.TicketCreatedPayload{
			HumanID:  ticket.HumanID,
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// SetStatus moves the ticket to the given status. Any status is reachable
// from any other; the only gate is authorization. The write stamps
// LastUpdated, which drives listing order.
func (s *Service) SetStatus(ctx context.Context, p domain.Principal, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.mutate(ctx, p, ticketID, "status_change", func(t *domain.Ticket) error {
		if d := policy.Decide(p, t, policy.OpChangeStatus, nil); !d.Allowed {
			return denyErr(d, "only staff may change ticket status")
		}
		oldStatus = t.Status
		t.Status = status
		t.LastUpdated = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor(p),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return ticket, nil
}

// mutate applies a single mutation through a load-check-save cycle,
// reloading and reapplying when the save hits a write conflict. The
// mutation either fully persists or has no effect; permission checks run
// inside the cycle so they always see the freshly loaded ticket.
func (s *Service) mutate(ctx context.Context, p domain.Principal, ticketID, op string, apply func(*domain.Ticket) error) (*domain.Ticket, error) {
	var lastErr error
	for attempt := 0; attempt < conflictAttempts; attempt++ {
		ticket, err := s.store.Load(ctx, ticketID)
		if err != nil {
			return nil, s.storeErr(err)
		}
		if err := apply(ticket); err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, ticket); err != nil {
			if errors.Is(err, store.ErrConflict) {
				lastErr = err
				s.metrics.RecordConflictRetry(op)
				continue
			}
			return nil, s.storeErr(err)
		}
		return ticket, nil
	}
	return nil, s.storeErr(lastErr)
}

func (s *Service) storeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, store.ErrConflict):
		return apperrors.NewConflict("ticket was modified concurrently", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperrors.NewStoreUnavailable(err)
	}
}

func denyErr(d policy.Decision, message string) error {
	if d.Reason == policy.ReasonRoleNotPermitted {
		return apperrors.NewRoleNotPermitted(message)
	}
	return apperrors.NewNotAuthorized(message)
}

func actor(p domain.Principal) events.Actor {
	return events.Actor{ID: p.ID, Role: p.Role}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
