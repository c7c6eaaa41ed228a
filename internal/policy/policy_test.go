package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

var (
	owner    = domain.Principal{ID: "cust-1", Role: domain.RoleCustomer}
	stranger = domain.Principal{ID: "cust-2", Role: domain.RoleCustomer}
	agent    = domain.Principal{ID: "agent-1", Role: domain.RoleAgent}
	admin    = domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}
)

func ownedTicket() *domain.Ticket {
	return &domain.Ticket{ID: "t-1", CustomerID: owner.ID, Status: domain.TicketStatusActive}
}

func TestDecideViewTicket(t *testing.T) {
	ticket := ownedTicket()

	assert.True(t, Decide(owner, ticket, OpViewTicket, nil).Allowed)
	assert.True(t, Decide(agent, ticket, OpViewTicket, nil).Allowed)
	assert.True(t, Decide(admin, ticket, OpViewTicket, nil).Allowed)

	d := Decide(stranger, ticket, OpViewTicket, nil)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAuthorized, d.Reason)
}

func TestDecideViewAttachmentFollowsTicketVisibility(t *testing.T) {
	ticket := ownedTicket()

	assert.True(t, Decide(owner, ticket, OpViewAttachment, nil).Allowed)
	assert.True(t, Decide(agent, ticket, OpViewAttachment, nil).Allowed)
	assert.False(t, Decide(stranger, ticket, OpViewAttachment, nil).Allowed)
}

func TestDecideCreateTicket(t *testing.T) {
	assert.True(t, Decide(owner, nil, OpCreateTicket, nil).Allowed)

	for _, p := range []domain.Principal{agent, admin} {
		d := Decide(p, nil, OpCreateTicket, nil)
		require.False(t, d.Allowed, "role %s must not create tickets", p.Role)
		assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
	}
}

func TestDecideChangeStatus(t *testing.T) {
	ticket := ownedTicket()

	assert.True(t, Decide(agent, ticket, OpChangeStatus, nil).Allowed)
	assert.True(t, Decide(admin, ticket, OpChangeStatus, nil).Allowed)

	// Even the ticket owner may not move it; status is a staff concern.
	d := Decide(owner, ticket, OpChangeStatus, nil)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonRoleNotPermitted, d.Reason)
}

func TestDecideAddNote(t *testing.T) {
	ticket := ownedTicket()

	assert.True(t, Decide(owner, ticket, OpAddNote, nil).Allowed)
	assert.True(t, Decide(agent, ticket, OpAddNote, nil).Allowed)

	d := Decide(stranger, ticket, OpAddNote, nil)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAuthorized, d.Reason)
}

func TestDecideEditNote(t *testing.T) {
	ticket := ownedTicket()
	ownNote := &domain.Note{ID: "n-1", AuthorID: owner.ID, AuthorRoleSnapshot: domain.RoleCustomer}
	agentNote := &domain.Note{ID: "n-2", AuthorID: agent.ID, AuthorRoleSnapshot: domain.RoleAgent}

	assert.True(t, Decide(owner, ticket, OpEditNote, ownNote).Allowed, "author edits own note")
	assert.True(t, Decide(agent, ticket, OpEditNote, ownNote).Allowed, "staff edit any note")
	assert.True(t, Decide(admin, ticket, OpEditNote, agentNote).Allowed)

	d := Decide(owner, ticket, OpEditNote, agentNote)
	require.False(t, d.Allowed, "customer may not edit someone else's note")
	assert.Equal(t, ReasonNotAuthorized, d.Reason)
}

func TestDecideDeleteNoteIsStaffOnly(t *testing.T) {
	ticket := ownedTicket()
	ownNote := &domain.Note{ID: "n-1", AuthorID: owner.ID, AuthorRoleSnapshot: domain.RoleCustomer}

	assert.True(t, Decide(agent, ticket, OpDeleteNote, ownNote).Allowed)
	assert.True(t, Decide(admin, ticket, OpDeleteNote, ownNote).Allowed)

	// The author may edit but never delete their own note.
	d := Decide(owner, ticket, OpDeleteNote, ownNote)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAuthorized, d.Reason)
}

func TestDecideUnknownOperationDenies(t *testing.T) {
	d := Decide(admin, ownedTicket(), Operation("purge_everything"), nil)
	assert.False(t, d.Allowed)
}

func TestDecideIsDeterministic(t *testing.T) {
	ticket := ownedTicket()
	first := Decide(owner, ticket, OpAddNote, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(owner, ticket, OpAddNote, nil))
	}
}

func TestVisible(t *testing.T) {
	ticket := ownedTicket()

	assert.True(t, Visible(owner, ticket))
	assert.True(t, Visible(agent, ticket))
	assert.True(t, Visible(admin, ticket))
	assert.False(t, Visible(stranger, ticket))

	unknown := domain.Principal{ID: "x", Role: domain.Role("supervisor")}
	assert.False(t, Visible(unknown, ticket), "unknown roles see nothing")
}
