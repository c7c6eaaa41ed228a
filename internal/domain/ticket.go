package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusActive  TicketStatus = "Active"
	TicketStatusPending TicketStatus = "Pending"
	TicketStatusClosed  TicketStatus = "Closed"
)

// Valid reports whether the status is one of the enumerated values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusActive, TicketStatusPending, TicketStatusClosed:
		return true
	}
	return false
}

// TicketCategory enumerates the kind of request a ticket represents.
type TicketCategory string

const (
	CategoryTechnical      TicketCategory = "Technical"
	CategoryBilling        TicketCategory = "Billing"
	CategoryGeneral        TicketCategory = "General"
	CategoryFeatureRequest TicketCategory = "Feature Request"
)

// Valid reports whether the category is one of the enumerated values.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryBilling, CategoryGeneral, CategoryFeatureRequest:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "Low"
	PriorityMedium TicketPriority = "Medium"
	PriorityHigh   TicketPriority = "High"
	PriorityUrgent TicketPriority = "Urgent"
)

// Valid reports whether the priority is one of the enumerated values.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// MaxAttachmentBytes caps a single note attachment.
const MaxAttachmentBytes = 5_000_000

// Attachment is metadata for a file held in the blob store. StoredPath is
// the blob store's key; retrieval goes through it, not through this record.
type Attachment struct {
	FileName   string
	StoredPath string
	MimeType   string
	SizeBytes  int64
}

// Note is one entry in a ticket's note log. Notes live embedded in their
// ticket and have no independent lifecycle. AuthorRoleSnapshot is the
// author's role at creation time; it is display data and is never
// re-derived from the identity service.
type Note struct {
	ID                 string
	TicketID           string
	Content            string
	AuthorID           string
	AuthorRoleSnapshot Role
	Attachment         *Attachment
	CreatedAt          time.Time
	EditedAt           *time.Time
}

// Ticket is the aggregate for one support request. Notes are owned by the
// ticket and persisted with it as a single document; Version backs the
// store's optimistic write-conflict check.
type Ticket struct {
	ID          string
	HumanID     string
	Title       string
	Status      TicketStatus
	Category    TicketCategory
	Priority    TicketPriority
	CustomerID  string
	AssigneeID  *string
	Notes       []Note
	Version     int64
	CreatedAt   time.Time
	LastUpdated time.Time
}

// NoteByID returns the index of the note with the given id, or -1.
func (t *Ticket) NoteByID(noteID string) int {
	for i := range t.Notes {
		if t.Notes[i].ID == noteID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the ticket, including its notes.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		cp.AssigneeID = &id
	}
	cp.Notes = make([]Note, len(t.Notes))
	copy(cp.Notes, t.Notes)
	for i := range cp.Notes {
		if att := cp.Notes[i].Attachment; att != nil {
			attCopy := *att
			cp.Notes[i].Attachment = &attCopy
		}
		if edited := cp.Notes[i].EditedAt; edited != nil {
			ts := *edited
			cp.Notes[i].EditedAt = &ts
		}
	}
	return &cp
}
