// Package mongostore is a [goRecover.UserRepository] over a MongoDB
// collection. Documents keep a lower-cased copy of the email so lookups by
// address are case-insensitive and indexed.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	goRecover "github.com/MrEthical07/goRecover"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the default collection name.
const Collection = "accounts"

type accountDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	EmailLower   string    `bson:"email_lower"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d accountDoc) account() goRecover.Account {
	return goRecover.Account{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
	}
}

type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// Connect dials uri, pings, and opens the accounts collection in dbName.
// The returned client is owned by the caller.
func Connect(ctx context.Context, uri, dbName string) (*Store, *mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	log.Printf("goRecover: connected to MongoDB database %s", dbName)

	s := New(client.Database(dbName).Collection(Collection))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return s, client, nil
}

func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll, now: time.Now}
}

// EnsureIndexes creates the unique name index and the email_lower index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_name").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email_lower", Value: 1}},
			Options: options.Index().SetName("idx_email_lower"),
		},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongostore: create indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, account goRecover.Account) error {
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("mongostore: account name is required")
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := s.now().UTC()

	_, err := s.coll.InsertOne(ctx, accountDoc{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		EmailLower:   strings.ToLower(account.Email),
		PasswordHash: account.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", goRecover.ErrAccountExists, account.Name)
		}
		return fmt.Errorf("mongostore: insert account: %w", err)
	}
	return nil
}

func (s *Store) FindByName(ctx context.Context, name string) (goRecover.Account, error) {
	var doc accountDoc
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return goRecover.Account{}, fmt.Errorf("%w: %s", goRecover.ErrAccountNotFound, name)
		}
		return goRecover.Account{}, fmt.Errorf("mongostore: find by name: %w", err)
	}
	return doc.account(), nil
}

// FindByEmail returns matches ordered by name.
func (s *Store) FindByEmail(ctx context.Context, email string) ([]goRecover.Account, error) {
	lower := strings.ToLower(strings.TrimSpace(email))
	if lower == "" {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"email_lower": lower}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: find by email: %w", err)
	}
	defer cur.Close(ctx)

	var out []goRecover.Account
	for cur.Next(ctx) {
		var doc accountDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongostore: decode account: %w", err)
		}
		out = append(out, doc.account())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongostore: find by email: %w", err)
	}
	return out, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, name, hash string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": s.now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mongostore: update password hash: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", goRecover.ErrAccountNotFound, name)
	}
	return nil
}

var _ goRecover.UserRepository = (*Store)(nil)
