package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload. Ownership is never taken from the body;
// the ticket belongs to the authenticated caller.
type CreateTicketRequest struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Content    string             `json:"content"`
	Attachment *AttachmentRequest `json:"attachment,omitempty"`
}

// EditNoteRequest payload.
type EditNoteRequest struct {
	Content string `json:"content"`
}

// AttachmentRequest describes attachment input. Data carries the payload
// base64-encoded; when absent, StoredPath must point at an already
// uploaded blob.
type AttachmentRequest struct {
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	Data       []byte `json:"data,omitempty"`
	StoredPath string `json:"stored_path,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	HumanID     string                `json:"human_id"`
	Title       string                `json:"title"`
	Status      domain.TicketStatus   `json:"status"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	CustomerID  string                `json:"customer_id"`
	AssigneeID  *string               `json:"assignee_id,omitempty"`
	NoteCount   int                   `json:"note_count"`
	CreatedAt   time.Time             `json:"created_at"`
	LastUpdated time.Time             `json:"last_updated"`
}

// TicketDetail provides full ticket info including notes in append order.
type TicketDetail struct {
	TicketSummary
	Notes []NoteResponse `json:"notes"`
}

// NoteResponse represents one note. FromStaff is derived from the role
// snapshot taken when the note was written, so later role changes do not
// restyle old notes.
type NoteResponse struct {
	ID         string              `json:"id"`
	Content    string              `json:"content"`
	AuthorID   string              `json:"author_id"`
	AuthorRole domain.Role         `json:"author_role"`
	FromStaff  bool                `json:"from_staff"`
	Attachment *AttachmentResponse `json:"attachment,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	EditedAt   *time.Time          `json:"edited_at,omitempty"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	FileName   string `json:"file_name"`
	StoredPath string `json:"stored_path"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:          t.ID,
		HumanID:     t.HumanID,
		Title:       t.Title,
		Status:      t.Status,
		Category:    t.Category,
		Priority:    t.Priority,
		CustomerID:  t.CustomerID,
		AssigneeID:  t.AssigneeID,
		NoteCount:   len(t.Notes),
		CreatedAt:   t.CreatedAt,
		LastUpdated: t.LastUpdated,
	}
}

// NewTicketDetail maps a domain ticket with its notes.
func NewTicketDetail(t *domain.Ticket) TicketDetail {
	detail := TicketDetail{
		TicketSummary: NewTicketSummary(t),
		Notes:         make([]NoteResponse, 0, len(t.Notes)),
	}
	for i := range t.Notes {
		detail.Notes = append(detail.Notes, NewNoteResponse(&t.Notes[i]))
	}
	return detail
}

// NewNoteResponse maps a domain note.
func NewNoteResponse(n *domain.Note) NoteResponse {
	resp := NoteResponse{
		ID:         n.ID,
		Content:    n.Content,
		AuthorID:   n.AuthorID,
		AuthorRole: n.AuthorRoleSnapshot,
		FromStaff:  n.AuthorRoleSnapshot.Staff(),
		CreatedAt:  n.CreatedAt,
		EditedAt:   n.EditedAt,
	}
	if n.Attachment != nil {
		resp.Attachment = &AttachmentResponse{
			FileName:   n.Attachment.FileName,
			StoredPath: n.Attachment.StoredPath,
			MimeType:   n.Attachment.MimeType,
			SizeBytes:  n.Attachment.SizeBytes,
		}
	}
	return resp
}
