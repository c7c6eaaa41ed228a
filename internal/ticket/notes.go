package ticket

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/policy"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AttachmentInput describes an attachment to store alongside a note.
// When Data is present it is uploaded to the blob store and SizeBytes is
// derived from it; otherwise the payload is assumed already stored under
// StoredPath.
type AttachmentInput struct {
	FileName   string
	MimeType   string
	SizeBytes  int64
	Data       []byte
	StoredPath string
}

// AddNote appends a note to the ticket. Content and attachment are
// validated before the blob store or the ticket store is touched; the
// author's role is snapshotted onto the note at creation time.
func (s *Service) AddNote(ctx context.Context, p domain.Principal, ticketID, content string, attachment *AttachmentInput) (*domain.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewInvalidContent("note content must not be empty")
	}
	if attachment != nil {
		size := attachment.SizeBytes
		if attachment.Data != nil {
			size = int64(len(attachment.Data))
		}
		if size > domain.MaxAttachmentBytes {
			return nil, apperrors.NewAttachmentTooLarge(size, domain.MaxAttachmentBytes)
		}
		attachment.SizeBytes = size
	}

	// Check access against the current ticket before uploading the
	// payload, so a denied caller never reaches the blob store.
	preflight, err := s.store.Load(ctx, ticketID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if d := policy.Decide(p, preflight, policy.OpAddNote, nil); !d.Allowed {
		return nil, denyErr(d, "not authorized to add notes to this ticket")
	}

	var stored *domain.Attachment
	if attachment != nil {
		storedPath := attachment.StoredPath
		if attachment.Data != nil {
			storedPath, err = s.blobs.Put(ctx, attachment.FileName, attachment.Data)
			if err != nil {
				return nil, apperrors.NewInternalError(err)
			}
		}
		stored = &domain.Attachment{
			FileName:   attachment.FileName,
			StoredPath: storedPath,
			MimeType:   attachment.MimeType,
			SizeBytes:  attachment.SizeBytes,
		}
	}

	note := domain.Note{
		ID:                 uuid.NewString(),
		TicketID:           ticketID,
		Content:            content,
		AuthorID:           p.ID,
		AuthorRoleSnapshot: p.Role,
		Attachment:         stored,
		CreatedAt:          time.Now(),
	}

	_, err = s.mutate(ctx, p, ticketID, "note_add", func(t *domain.Ticket) error {
		if d := policy.Decide(p, t, policy.OpAddNote, nil); !d.Allowed {
			return denyErr(d, "not authorized to add notes to this ticket")
		}
		t.Notes = append(t.Notes, note)
		t.LastUpdated = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventNoteAdded,
		TicketID: ticketID,
		Actor:    actor(p),
		Payload: events.NoteAddedPayload{
			NoteID:        note.ID,
			AuthorID:      note.AuthorID,
			AuthorRole:    note.AuthorRoleSnapshot,
			HasAttachment: note.Attachment != nil,
		},
	})
	return &note, nil
}

// EditNote swaps a note's content and stamps EditedAt. Author identity,
// creation time and the role snapshot stay untouched.
func (s *Service) EditNote(ctx context.Context, p domain.Principal, ticketID, noteID, content string) (*domain.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewInvalidContent("note content must not be empty")
	}

	var edited domain.Note
	_, err := s.mutate(ctx, p, ticketID, "note_edit", func(t *domain.Ticket) error {
		idx := t.NoteByID(noteID)
		if idx < 0 {
			return apperrors.NewNotFound("note", map[string]any{"note_id": noteID})
		}
		note := &t.Notes[idx]
		if d := policy.Decide(p, t, policy.OpEditNote, note); !d.Allowed {
			return denyErr(d, "not authorized to edit this note")
		}
		now := time.Now()
		note.Content = content
		note.EditedAt = &now
		t.LastUpdated = now
		edited = *note
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventNoteEdited,
		TicketID: ticketID,
		Actor:    actor(p),
		Payload:  events.NoteEditedPayload{NoteID: noteID},
	})
	return &edited, nil
}

// DeleteNote removes a note from the sequence, keeping the remaining
// notes in their original relative order. Staff only; note authors get no
// special treatment here.
func (s *Service) DeleteNote(ctx context.Context, p domain.Principal, ticketID, noteID string) error {
	_, err := s.mutate(ctx, p, ticketID, "note_delete", func(t *domain.Ticket) error {
		idx := t.NoteByID(noteID)
		if idx < 0 {
			return apperrors.NewNotFound("note", map[string]any{"note_id": noteID})
		}
		if d := policy.Decide(p, t, policy.OpDeleteNote, &t.Notes[idx]); !d.Allowed {
			return denyErr(d, "only staff may delete notes")
		}
		t.Notes = append(t.Notes[:idx], t.Notes[idx+1:]...)
		t.LastUpdated = time.Now()
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventNoteDeleted,
		TicketID: ticketID,
		Actor:    actor(p),
		Payload:  events.NoteDeletedPayload{NoteID: noteID},
	})
	return nil
}
