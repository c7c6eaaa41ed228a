// Package postgres backs the ticket store with a pgx pool. The whole
// ticket, notes included, lives in one row so a save is a single
// read-modify-write guarded by the version column.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/store"
)

const uniqueViolation = "23505"

// Backend implements store.Backend on Postgres.
type Backend struct {
	pool *pgxpool.Pool
}

// NewBackend wraps a pgx pool.
func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

type noteRecord struct {
	ID                 string            `json:"id"`
	TicketID           string            `json:"ticket_id"`
	Content            string            `json:"content"`
	AuthorID           string            `json:"author_id"`
	AuthorRoleSnapshot domain.Role       `json:"author_role_snapshot"`
	Attachment         *attachmentRecord `json:"attachment,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	EditedAt           *time.Time        `json:"edited_at,omitempty"`
}

type attachmentRecord struct {
	FileName   string `json:"file_name"`
	StoredPath string `json:"stored_path"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

func encodeNotes(notes []domain.Note) ([]byte, error) {
	records := make([]noteRecord, 0, len(notes))
	for _, n := range notes {
		record := noteRecord{
			ID:                 n.ID,
			TicketID:           n.TicketID,
			Content:            n.Content,
			AuthorID:           n.AuthorID,
			AuthorRoleSnapshot: n.AuthorRoleSnapshot,
			CreatedAt:          n.CreatedAt,
			EditedAt:           n.EditedAt,
		}
		if n.Attachment != nil {
			record.Attachment = &attachmentRecord{
				FileName:   n.Attachment.FileName,
				StoredPath: n.Attachment.StoredPath,
				MimeType:   n.Attachment.MimeType,
				SizeBytes:  n.Attachment.SizeBytes,
			}
		}
		records = append(records, record)
	}
	return json.Marshal(records)
}

func decodeNotes(raw []byte) ([]domain.Note, error) {
	var records []noteRecord
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode notes: %w", err)
		}
	}
	notes := make([]domain.Note, 0, len(records))
	for _, r := range records {
		note := domain.Note{
			ID:                 r.ID,
			TicketID:           r.TicketID,
			Content:            r.Content,
			AuthorID:           r.AuthorID,
			AuthorRoleSnapshot: r.AuthorRoleSnapshot,
			CreatedAt:          r.CreatedAt,
			EditedAt:           r.EditedAt,
		}
		if r.Attachment != nil {
			note.Attachment = &domain.Attachment{
				FileName:   r.Attachment.FileName,
				StoredPath: r.Attachment.StoredPath,
				MimeType:   r.Attachment.MimeType,
				SizeBytes:  r.Attachment.SizeBytes,
			}
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func (b *Backend) Insert(ctx context.Context, ticket *domain.Ticket) error {
	notes, err := encodeNotes(ticket.Notes)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (human_id, title, status, category, priority, customer_id, assignee_id, notes, version, last_updated)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1,$9)
        RETURNING id, version, created_at`
	err = b.pool.QueryRow(ctx, query,
		ticket.HumanID,
		ticket.Title,
		ticket.Status,
		ticket.Category,
		ticket.Priority,
		ticket.CustomerID,
		ticket.AssigneeID,
		notes,
		ticket.LastUpdated,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrDuplicateHumanID
		}
		return err
	}
	return nil
}

func (b *Backend) Replace(ctx context.Context, ticket *domain.Ticket) error {
	notes, err := encodeNotes(ticket.Notes)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET title=$1, status=$2, category=$3, priority=$4, assignee_id=$5,
            notes=$6, last_updated=$7, version=version+1
        WHERE id=$8 AND version=$9`
	cmd, err := b.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Status,
		ticket.Category,
		ticket.Priority,
		ticket.AssigneeID,
		notes,
		ticket.LastUpdated,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// The caller loaded this ticket, so a missed update means the
		// version moved underneath it.
		return store.ErrConflict
	}
	ticket.Version++
	return nil
}

func (b *Backend) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, human_id, title, status, category, priority, customer_id, assignee_id,
               notes, version, created_at, last_updated
        FROM tickets WHERE id=$1`
	ticket, err := b.fetchSingle(ctx, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (b *Backend) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		rawNotes []byte
	)
	if err := b.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.HumanID,
		&ticket.Title,
		&ticket.Status,
		&ticket.Category,
		&ticket.Priority,
		&ticket.CustomerID,
		&ticket.AssigneeID,
		&rawNotes,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.LastUpdated,
	); err != nil {
		return nil, err
	}
	notes, err := decodeNotes(rawNotes)
	if err != nil {
		return nil, err
	}
	ticket.Notes = notes
	return &ticket, nil
}

func (b *Backend) List(ctx context.Context, filter store.Filter) ([]domain.Ticket, error) {
	base := `SELECT id, human_id, title, status, category, priority, customer_id, assignee_id,
                    notes, version, created_at, last_updated
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY last_updated DESC", base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, filter.Limit)
	}
	if filter.Offset > 0 {
		query = fmt.Sprintf("%s OFFSET %d", query, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket   domain.Ticket
			rawNotes []byte
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.HumanID,
			&ticket.Title,
			&ticket.Status,
			&ticket.Category,
			&ticket.Priority,
			&ticket.CustomerID,
			&ticket.AssigneeID,
			&rawNotes,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.LastUpdated,
		); err != nil {
			return nil, err
		}
		notes, err := decodeNotes(rawNotes)
		if err != nil {
			return nil, err
		}
		ticket.Notes = notes
		result = append(result, ticket)
	}
	return result, rows.Err()
}
