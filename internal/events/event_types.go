package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventNoteAdded           EventType = "note_added"
	EventNoteEdited          EventType = "note_edited"
	EventNoteDeleted         EventType = "note_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	HumanID  string                `json:"human_id"`
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	NoteID        string      `json:"note_id"`
	AuthorID      string      `json:"author_id"`
	AuthorRole    domain.Role `json:"author_role"`
	HasAttachment bool        `json:"has_attachment"`
}

// NoteEditedPayload payload.
type NoteEditedPayload struct {
	NoteID string `json:"note_id"`
}

// NoteDeletedPayload payload.
type NoteDeletedPayload struct {
	NoteID string `json:"note_id"`
}
