// Package policy holds every permission rule in the system as one pure
// decision table. Handlers and services never test roles themselves; they
// ask Decide and act on the outcome.
package policy

import "github.com/spec-kit/support-desk/internal/domain"

// Operation names an action a principal can attempt against a ticket.
type Operation string

const (
	OpViewTicket     Operation = "view_ticket"
	OpCreateTicket   Operation = "create_ticket"
	OpChangeStatus   Operation = "change_status"
	OpAddNote        Operation = "add_note"
	OpEditNote       Operation = "edit_note"
	OpDeleteNote     Operation = "delete_note"
	OpViewAttachment Operation = "view_attachment"
)

// DenyReason classifies a denial. RoleNotPermitted means the caller's role
// can never perform the operation; NotAuthorized means the role could, but
// not against this particular ticket or note.
type DenyReason string

const (
	ReasonNone             DenyReason = ""
	ReasonNotAuthorized    DenyReason = "not_authorized"
	ReasonRoleNotPermitted DenyReason = "role_not_permitted"
)

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Allow is the positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny is a negative decision with a reason.
func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Decide evaluates whether the principal may perform op. The ticket is
// required for every operation except OpCreateTicket; the note only for
// note-scoped operations. The outcome is deterministic: same inputs, same
// decision, no clock or store involvement.
func Decide(p domain.Principal, ticket *domain.Ticket, op Operation, note *domain.Note) Decision {
	switch op {
	case OpViewTicket, OpViewAttachment:
		// Attachment visibility inherits ticket visibility.
		return decideView(p, ticket)

	case OpCreateTicket:
		// Only customers open tickets; staff respond to them.
		if p.Role != domain.RoleCustomer {
			return Deny(ReasonRoleNotPermitted)
		}
		return Allow()

	case OpChangeStatus:
		if !p.Role.Staff() {
			return Deny(ReasonRoleNotPermitted)
		}
		return Allow()

	case OpAddNote:
		if p.Role.Staff() {
			return Allow()
		}
		if ticket != nil && ticket.CustomerID == p.ID {
			return Allow()
		}
		return Deny(ReasonNotAuthorized)

	case OpEditNote:
		// The original author may edit their own note regardless of role;
		// staff may edit any note.
		if p.Role.Staff() {
			return Allow()
		}
		if note != nil && note.AuthorID == p.ID {
			return Allow()
		}
		return Deny(ReasonNotAuthorized)

	case OpDeleteNote:
		// Delete is staff-only. A customer never deletes a note, not even
		// one they authored; the edit/delete asymmetry is intentional.
		if p.Role.Staff() {
			return Allow()
		}
		return Deny(ReasonNotAuthorized)
	}

	return Deny(ReasonNotAuthorized)
}

func decideView(p domain.Principal, ticket *domain.Ticket) Decision {
	if p.Role.Staff() {
		return Allow()
	}
	if ticket != nil && ticket.CustomerID == p.ID {
		return Allow()
	}
	return Deny(ReasonNotAuthorized)
}

// Visible implements the ListTickets rule: a filter, never a denial.
// Customers see their own tickets; staff see everything. Unknown roles see
// nothing.
func Visible(p domain.Principal, ticket *domain.Ticket) bool {
	if p.Role.Staff() {
		return true
	}
	if p.Role == domain.RoleCustomer {
		return ticket != nil && ticket.CustomerID == p.ID
	}
	return false
}
