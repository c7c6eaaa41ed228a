// Package mongo backs the ticket store with a MongoDB collection. Each
// ticket is one document with its notes embedded, so conflict detection
// is a filtered replace on {_id, version}.
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/store"
)

// Backend implements store.Backend on a Mongo collection.
type Backend struct {
	tickets *mongo.Collection
}

// NewBackend binds to the tickets collection and ensures the unique
// human-id index exists.
func NewBackend(ctx context.Context, db *mongo.Database) (*Backend, error) {
	col := db.Collection("tickets")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "human_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &Backend{tickets: col}, nil
}

type ticketDoc struct {
	ID          string                `bson:"_id"`
	HumanID     string                `bson:"human_id"`
	Title       string                `bson:"title"`
	Status      domain.TicketStatus   `bson:"status"`
	Category    domain.TicketCategory `bson:"category"`
	Priority    domain.TicketPriority `bson:"priority"`
	CustomerID  string                `bson:"customer_id"`
	AssigneeID  *string               `bson:"assignee_id,omitempty"`
	Notes       []noteDoc             `bson:"notes"`
	Version     int64                 `bson:"version"`
	CreatedAt   time.Time             `bson:"created_at"`
	LastUpdated time.Time             `bson:"last_updated"`
}

type noteDoc struct {
	ID                 string         `bson:"id"`
	TicketID           string         `bson:"ticket_id"`
	Content            string         `bson:"content"`
	AuthorID           string         `bson:"author_id"`
	AuthorRoleSnapshot domain.Role    `bson:"author_role_snapshot"`
	Attachment         *attachmentDoc `bson:"attachment,omitempty"`
	CreatedAt          time.Time      `bson:"created_at"`
	EditedAt           *time.Time     `bson:"edited_at,omitempty"`
}

type attachmentDoc struct {
	FileName   string `bson:"file_name"`
	StoredPath string `bson:"stored_path"`
	MimeType   string `bson:"mime_type"`
	SizeBytes  int64  `bson:"size_bytes"`
}

func toDoc(ticket *domain.Ticket) ticketDoc {
	doc := ticketDoc{
		ID:          ticket.ID,
		HumanID:     ticket.HumanID,
		Title:       ticket.Title,
		Status:      ticket.Status,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		CustomerID:  ticket.CustomerID,
		AssigneeID:  ticket.AssigneeID,
		Notes:       make([]noteDoc, 0, len(ticket.Notes)),
		Version:     ticket.Version,
		CreatedAt:   ticket.CreatedAt,
		LastUpdated: ticket.LastUpdated,
	}
	for _, n := range ticket.Notes {
		nd := noteDoc{
			ID:                 n.ID,
			TicketID:           n.TicketID,
			Content:            n.Content,
			AuthorID:           n.AuthorID,
			AuthorRoleSnapshot: n.AuthorRoleSnapshot,
			CreatedAt:          n.CreatedAt,
			EditedAt:           n.EditedAt,
		}
		if n.Attachment != nil {
			nd.Attachment = &attachmentDoc{
				FileName:   n.Attachment.FileName,
				StoredPath: n.Attachment.StoredPath,
				MimeType:   n.Attachment.MimeType,
				SizeBytes:  n.Attachment.SizeBytes,
			}
		}
		doc.Notes = append(doc.Notes, nd)
	}
	return doc
}

func fromDoc(doc ticketDoc) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:          doc.ID,
		HumanID:     doc.HumanID,
		Title:       doc.Title,
		Status:      doc.Status,
		Category:    doc.Category,
		Priority:    doc.Priority,
		CustomerID:  doc.CustomerID,
		AssigneeID:  doc.AssigneeID,
		Notes:       make([]domain.Note, 0, len(doc.Notes)),
		Version:     doc.Version,
		CreatedAt:   doc.CreatedAt,
		LastUpdated: doc.LastUpdated,
	}
	for _, nd := range doc.Notes {
		note := domain.Note{
			ID:                 nd.ID,
			TicketID:           nd.TicketID,
			Content:            nd.Content,
			AuthorID:           nd.AuthorID,
			AuthorRoleSnapshot: nd.AuthorRoleSnapshot,
			CreatedAt:          nd.CreatedAt,
			EditedAt:           nd.EditedAt,
		}
		if nd.Attachment != nil {
			note.Attachment = &domain.Attachment{
				FileName:   nd.Attachment.FileName,
				StoredPath: nd.Attachment.StoredPath,
				MimeType:   nd.Attachment.MimeType,
				SizeBytes:  nd.Attachment.SizeBytes,
			}
		}
		ticket.Notes = append(ticket.Notes, note)
	}
	return ticket
}

func (b *Backend) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	var doc ticketDoc
	err := b.tickets.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return fromDoc(doc), nil
}

func (b *Backend) Insert(ctx context.Context, ticket *domain.Ticket) error {
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = time.Now()
	_, err := b.tickets.InsertOne(ctx, toDoc(ticket))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateHumanID
		}
		return err
	}
	return nil
}

func (b *Backend) Replace(ctx context.Context, ticket *domain.Ticket) error {
	next := toDoc(ticket)
	next.Version = ticket.Version + 1
	result, err := b.tickets.ReplaceOne(ctx, bson.M{
		"_id":     ticket.ID,
		"version": ticket.Version,
	}, next)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrConflict
	}
	ticket.Version++
	return nil
}

func (b *Backend) List(ctx context.Context, filter store.Filter) ([]domain.Ticket, error) {
	query := bson.M{}
	if filter.CustomerID != nil {
		query["customer_id"] = *filter.CustomerID
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	opts := options.Find().SetSort(bson.D{{Key: "last_updated", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := b.tickets.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []ticketDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Ticket, 0, len(docs))
	for _, doc := range docs {
		result = append(result, *fromDoc(doc))
	}
	return result, nil
}
