package identity

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/support-desk/internal/domain"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type mongoDirectory struct {
	coll *mongo.Collection
}

// NewMongoDirectory returns a Directory backed by a mongo collection. It
// ensures the unique email index on startup.
func NewMongoDirectory(ctx context.Context, db *mongo.Database) (Directory, error) {
	coll := db.Collection("accounts")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &mongoDirectory{coll: coll}, nil
}

func toAccountDoc(account *Account) accountDoc {
	return accountDoc{
		ID:           account.ID,
		Name:         account.Name,
		Email:        strings.ToLower(account.Email),
		PasswordHash: account.PasswordHash,
		Role:         string(account.Role),
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
}

func fromAccountDoc(doc accountDoc) *Account {
	return &Account{
		ID:           doc.ID,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         domain.Role(doc.Role),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func (d *mongoDirectory) Create(ctx context.Context, account *Account) error {
	_, err := d.coll.InsertOne(ctx, toAccountDoc(account))
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (d *mongoDirectory) Update(ctx context.Context, account *Account) error {
	account.UpdatedAt = time.Now()
	res, err := d.coll.ReplaceOne(ctx, bson.M{"_id": account.ID}, toAccountDoc(account))
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (d *mongoDirectory) GetByID(ctx context.Context, id string) (*Account, error) {
	return d.fetchSingle(ctx, bson.M{"_id": id})
}

func (d *mongoDirectory) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return d.fetchSingle(ctx, bson.M{"email": strings.ToLower(email)})
}

func (d *mongoDirectory) fetchSingle(ctx context.Context, filter bson.M) (*Account, error) {
	var doc accountDoc
	if err := d.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountDoc(doc), nil
}

func (d *mongoDirectory) List(ctx context.Context) ([]Account, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := d.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accounts []Account
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		accounts = append(accounts, *fromAccountDoc(doc))
	}
	return accounts, cursor.Err()
}

func (d *mongoDirectory) Delete(ctx context.Context, id string) error {
	res, err := d.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
