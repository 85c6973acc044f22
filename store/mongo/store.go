// Package mongo provides a MongoDB-backed account store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrEthical07/accountgate"
)

// DefaultCollection is used when New is given an empty collection name.
const DefaultCollection = "accounts"

type accountDoc struct {
	ID         string    `bson:"_id"`
	Email      string    `bson:"email"`
	Name       string    `bson:"name"`
	SecretHash string    `bson:"secret_hash"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d accountDoc) account() accountgate.Account {
	return accountgate.Account{
		ID:         d.ID,
		Identifier: d.Email,
		Name:       d.Name,
		SecretHash: d.SecretHash,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

var sortKeys = map[string]string{
	accountgate.SortFieldEmail:     "email",
	accountgate.SortFieldName:      "name",
	accountgate.SortFieldID:        "_id",
	accountgate.SortFieldCreatedAt: "created_at",
}

// Store keeps accounts in one collection with a unique index on email.
type Store struct {
	coll *mongo.Collection
}

var _ accountgate.AccountStore = (*Store)(nil)

// New binds to db.collection and ensures the email index exists.
func New(ctx context.Context, db *mongo.Database, collection string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("mongo database is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	coll := db.Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("create email index: %w", err)
	}
	return &Store{coll: coll}, nil
}

// Connect dials uri and returns a Store on database/collection. The caller
// owns the returned client.
func Connect(ctx context.Context, uri, database, collection string) (*Store, *mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	store, err := New(ctx, client.Database(database), collection)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return store, client, nil
}

// FindAccountByIdentifier looks up a document by email.
func (s *Store) FindAccountByIdentifier(ctx context.Context, identifier string) (accountgate.Account, bool, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: identifier}})
}

// FindAccountByID looks up a document by _id.
func (s *Store) FindAccountByID(ctx context.Context, id string) (accountgate.Account, bool, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (accountgate.Account, bool, error) {
	var doc accountDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return accountgate.Account{}, false, nil
		}
		return accountgate.Account{}, false, fmt.Errorf("find account: %w", err)
	}
	return doc.account(), true, nil
}

// searchFilter matches the term anywhere in email or name, ignoring case.
func searchFilter(f accountgate.RecordFilter) bson.D {
	if f.Search == "" {
		return bson.D{}
	}
	re := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: re}},
		bson.D{{Key: "name", Value: re}},
	}}}
}

// CountRecords counts matching documents exactly.
func (s *Store) CountRecords(ctx context.Context, filter accountgate.RecordFilter) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, searchFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// QueryRecords finds one page of documents.
func (s *Store) QueryRecords(ctx context.Context, q accountgate.RecordQuery) ([]accountgate.Account, error) {
	key, ok := sortKeys[q.Sort.Field]
	if q.Sort.Field == "" {
		key, ok = "email", true
	}
	if !ok {
		return nil, fmt.Errorf("unsupported sort field %q", q.Sort.Field)
	}
	dir := 1
	if q.Sort.Descending() {
		dir = -1
	}
	sort := bson.D{{Key: key, Value: dir}}
	if key != "_id" {
		sort = append(sort, bson.E{Key: "_id", Value: dir})
	}

	opts := options.Find().SetSort(sort).SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.coll.Find(ctx, searchFilter(q.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]accountgate.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.account())
	}
	return out, nil
}

// InsertAccount inserts a document. Duplicate keys map to
// accountgate.ErrAccountExists.
func (s *Store) InsertAccount(ctx context.Context, a accountgate.Account) error {
	_, err := s.coll.InsertOne(ctx, accountDoc{
		ID:         a.ID,
		Email:      a.Identifier,
		Name:       a.Name,
		SecretHash: a.SecretHash,
		CreatedAt:  a.CreatedAt.UTC(),
		UpdatedAt:  a.UpdatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return accountgate.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// UpdateAccountProfile sets name, email and updated_at.
func (s *Store) UpdateAccountProfile(ctx context.Context, a accountgate.Account) error {
	return s.updateOne(ctx, a.ID, bson.D{
		{Key: "email", Value: a.Identifier},
		{Key: "name", Value: a.Name},
		{Key: "updated_at", Value: a.UpdatedAt.UTC()},
	})
}

// UpdateSecretHash sets the secret hash.
func (s *Store) UpdateSecretHash(ctx context.Context, id, secretHash string, updatedAt time.Time) error {
	return s.updateOne(ctx, id, bson.D{
		{Key: "secret_hash", Value: secretHash},
		{Key: "updated_at", Value: updatedAt.UTC()},
	})
}

func (s *Store) updateOne(ctx context.Context, id string, set bson.D) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return accountgate.ErrAccountExists
		}
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return accountgate.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount deletes the document with id.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return accountgate.ErrAccountNotFound
	}
	return nil
}
