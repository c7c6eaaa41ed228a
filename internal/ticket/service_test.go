package ticket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/blob"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/store"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

var (
	customer      = domain.Principal{ID: "cust-1", Role: domain.RoleCustomer}
	otherCustomer = domain.Principal{ID: "cust-2", Role: domain.RoleCustomer}
	agent         = domain.Principal{ID: "agent-1", Role: domain.RoleAgent}
	admin         = domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}
)

// recordingDispatcher collects published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recordingDispatcher, *blob.MemoryStore) {
	t.Helper()
	dispatcher := &recordingDispatcher{}
	blobs := blob.NewMemoryStore()
	svc := NewService(Dependencies{
		Store:      store.NewFacade(store.NewMemoryBackend(), seqStub{}),
		Blobs:      blobs,
		Dispatcher: dispatcher,
	})
	return svc, dispatcher, blobs
}

type seqStub struct{}

var seqCounter atomic.Int64

func (seqStub) Next(_ context.Context) (string, error) {
	return fmt.Sprintf("TIC%08d", seqCounter.Add(1)), nil
}

func mustCreate(t *testing.T, svc *Service, p domain.Principal) *domain.Ticket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), p, CreateInput{
		Title:    "cannot log in",
		Category: domain.CategoryTechnical,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateOwnershipComesFromPrincipal(t *testing.T) {
	svc, dispatcher, _ := newTestService(t)

	ticket := mustCreate(t, svc, customer)
	assert.Equal(t, customer.ID, ticket.CustomerID)
	assert.Equal(t, domain.TicketStatusActive, ticket.Status)
	assert.Equal(t, domain.PriorityMedium, ticket.Priority)
	assert.NotEmpty(t, ticket.HumanID)

	created := dispatcher.byType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ticket.ID, created[0].TicketID)
	assert.Equal(t, customer.ID, created[0].Actor.ID)
}

func TestCreateDeniedForStaff(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, p := range []domain.Principal{agent, admin} {
		_, err := svc.Create(context.Background(), p, CreateInput{Title: "x", Category: domain.CategoryGeneral})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRoleNotPermitted), "role %s", p.Role)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer, CreateInput{Title: "   ", Category: domain.CategoryGeneral})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = svc.Create(ctx, customer, CreateInput{Title: "x", Category: domain.TicketCategory("Gossip")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = svc.Create(ctx, customer, CreateInput{Title: "x", Category: domain.CategoryGeneral, Priority: domain.TicketPriority("ASAP")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestGetEnforcesVisibility(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	ticket := mustCreate(t, svc, customer)

	got, err := svc.Get(ctx, customer, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	_, err = svc.Get(ctx, agent, ticket.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, otherCustomer, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotAuthorized))

	_, err = svc.Get(ctx, customer, "no-such-id")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListFiltersInsteadOfFailing(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mine := mustCreate(t, svc, customer)
	mustCreate(t, svc, otherCustomer)

	visible, err := svc.List(ctx, customer)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)

	all, err := svc.List(ctx, agent)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetStatusAnyTransitionForStaff(t *testing.T) {
	svc, dispatcher, _ := newTestService(t)
	ctx := context.Background()
	ticket := mustCreate(t, svc, customer)

	// No transition graph: Closed straight back to Active is legal.
	updated, err := svc.SetStatus(ctx, agent, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)

	before := updated.LastUpdated
	time.Sleep(time.Millisecond)

	updated, err = svc.SetStatus(ctx, admin, ticket.ID, domain.TicketStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusActive, updated.Status)
	assert.True(t, updated.LastUpdated.After(before), "status change stamps LastUpdated")

	changes := dispatcher.byType(events.EventTicketStatusChanged)
	require.Len(t, changes, 2)
	payload, ok := changes[1].Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusClosed, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusActive, payload.NewStatus)
}

func TestSetStatusDeniedForCustomers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	ticket := mustCreate(t, svc, customer)

	_, err := svc.SetStatus(ctx, customer, ticket.ID, domain.TicketStatusClosed)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRoleNotPermitted))

	// The denied write left the ticket untouched.
	got, err := svc.Get(ctx, customer, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusActive, got.Status)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ticket := mustCreate(t, svc, customer)

	_, err := svc.SetStatus(context.Background(), agent, ticket.ID, domain.TicketStatus("Reopened"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

// conflictOnceBackend wraps a backend and forces one ErrConflict on the
// first Replace, simulating a concurrent writer.
type conflictOnceBackend struct {
	store.Backend
	mu    sync.Mutex
	fired bool
}

func (b *conflictOnceBackend) Replace(ctx context.Context, ticket *domain.Ticket) error {
	b.mu.Lock()
	fired := b.fired
	b.fired = true
	b.mu.Unlock()
	if !fired {
		return store.ErrConflict
	}
	return b.Backend.Replace(ctx, ticket)
}

func TestMutationRetriesAfterConflict(t *testing.T) {
	backend := &conflictOnceBackend{Backend: store.NewMemoryBackend()}
	svc := NewService(Dependencies{
		Store: store.NewFacade(backend, seqStub{}),
		Blobs: blob.NewMemoryStore(),
	})
	ctx := context.Background()
	ticket := mustCreate(t, svc, customer)

	updated, err := svc.SetStatus(ctx, agent, ticket.ID, domain.TicketStatusPending)
	require.NoError(t, err, "a single conflict must be absorbed by a reload")
	assert.Equal(t, domain.TicketStatusPending, updated.Status)
}

// alwaysConflictBackend never lets a Replace through.
type alwaysConflictBackend struct {
	store.Backend
}

func (b *alwaysConflictBackend) Replace(context.Context, *domain.Ticket) error {
	return store.ErrConflict
}

func TestMutationGivesUpAfterRepeatedConflicts(t *testing.T) {
	backend := &alwaysConflictBackend{Backend: store.NewMemoryBackend()}
	svc := NewService(Dependencies{
		Store: store.NewFacade(backend, seqStub{}),
		Blobs: blob.NewMemoryStore(),
	})
	ctx := context.Background()
	ticket := mustCreate(t, svc, customer)

	_, err := svc.SetStatus(ctx, agent, ticket.ID, domain.TicketStatusPending)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

// TestSupportExchange walks a full conversation: customer opens a ticket,
// agent responds and closes it, customer reopens the thread by replying.
func TestSupportExchange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ticket := mustCreate(t, svc, customer)

	_, err := svc.AddNote(ctx, customer, ticket.ID, "it says invalid password", nil)
	require.NoError(t, err)

	reply, err := svc.AddNote(ctx, agent, ticket.ID, "please reset via the link", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, reply.AuthorRoleSnapshot)

	_, err = svc.SetStatus(ctx, agent, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	// Customer may still comment on their closed ticket.
	_, err = svc.AddNote(ctx, customer, ticket.ID, "still broken after reset", nil)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, agent, ticket.ID, domain.TicketStatusActive)
	require.NoError(t, err)

	final, err := svc.Get(ctx, agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusActive, final.Status)
	require.Len(t, final.Notes, 3)
	assert.Equal(t, customer.ID, final.Notes[0].AuthorID)
	assert.Equal(t, agent.ID, final.Notes[1].AuthorID)
	assert.Equal(t, customer.ID, final.Notes[2].AuthorID)
}
