// Package mongo stores documents in MongoDB, one collection per document
// type. History merges are serialised by a compare-and-swap on the
// document version.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"doctrack/internal/config"
	"doctrack/internal/domain"
	"doctrack/internal/hooks"
	"doctrack/internal/port"
)

// DocumentStore is a MongoDB-backed DocumentStore.
type DocumentStore struct {
	*hooks.Registry
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// Connect opens a client for cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*DocumentStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return NewDocumentStore(client, cfg.Database), nil
}

// NewDocumentStore wraps an existing client.
func NewDocumentStore(client *mongo.Client, database string) *DocumentStore {
	return &DocumentStore{
		Registry: hooks.NewRegistry(),
		client:   client,
		db:       client.Database(database),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ port.DocumentStore = (*DocumentStore)(nil)

func (s *DocumentStore) collection(docType string) *mongo.Collection {
	return s.db.Collection(docType)
}

// EnsureIndexes creates the creation-order index used to pick the target of
// single-document operations, for every registered type.
func (s *DocumentStore) EnsureIndexes(ctx context.Context) error {
	for _, docType := range s.Types() {
		_, err := s.collection(docType).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: createdAtKey, Value: 1}, {Key: idKey, Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("creating index on %s: %w", docType, err)
		}
	}
	return nil
}

func (s *DocumentStore) New(docType string) (*domain.Document, error) {
	if err := s.Require(docType); err != nil {
		return nil, err
	}
	doc := domain.NewDocument(docType)
	s.ApplyDefaults(doc)
	return doc, nil
}

func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if err := s.Require(doc.Type); err != nil {
		return err
	}
	if err := s.RunSave(ctx, doc); err != nil {
		return fmt.Errorf("documentStore.Save: %w", err)
	}

	now := s.now()
	coll := s.collection(doc.Type)

	if doc.IsNew() {
		if _, err := coll.InsertOne(ctx, newRecord(doc, now)); err != nil {
			return fmt.Errorf("documentStore.Save: %w", err)
		}
		doc.MarkPersisted(1, now)
		return nil
	}

	var stored bson.M
	err := coll.FindOneAndUpdate(ctx,
		bson.D{{Key: idKey, Value: doc.ID.String()}},
		saveUpdate(doc, now),
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.D{{Key: versionKey, Value: 1}}),
	).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("documentStore.Save: %w", err)
	}
	doc.MarkPersisted(asInt64(stored[versionKey]), now)
	return nil
}

func (s *DocumentStore) FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	doc, err := s.findOne(ctx, docType, q)
	if err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("documentStore.FindOne: %w", err)
	}
	return doc, err
}

func (s *DocumentStore) Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	docs, err := s.find(ctx, docType, q)
	if err != nil {
		return nil, fmt.Errorf("documentStore.Find: %w", err)
	}
	return docs, nil
}

func (s *DocumentStore) FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	return s.FindOne(ctx, docType, domain.ByID(id))
}

func (s *DocumentStore) UpdateOne(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	return s.updateSingle(ctx, domain.OpUpdateOne, docType, q, u)
}

func (s *DocumentStore) Update(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	return s.updateSingle(ctx, domain.OpUpdate, docType, q, u)
}

func (s *DocumentStore) UpdateMany(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	filter, err := s.prepare(ctx, domain.OpUpdateMany, docType, q, u)
	if err != nil {
		return port.UpdateResult{}, err
	}
	coll := s.collection(docType)

	if u.IsEmpty() {
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return port.UpdateResult{}, fmt.Errorf("documentStore.updateMany: %w", err)
		}
		return port.UpdateResult{Matched: n}, nil
	}

	res, err := coll.UpdateMany(ctx, filter, payloadUpdate(u, s.now()))
	if err != nil {
		return port.UpdateResult{}, fmt.Errorf("documentStore.updateMany: %w", err)
	}
	return port.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (s *DocumentStore) FindOneAndUpdate(ctx context.Context, docType string, q domain.Query, u *domain.Update) (*domain.Document, error) {
	filter, err := s.prepare(ctx, domain.OpFindOneAndUpdate, docType, q, u)
	if err != nil {
		return nil, err
	}
	if u.IsEmpty() {
		return s.FindOne(ctx, docType, q)
	}

	var raw bson.M
	err = s.collection(docType).FindOneAndUpdate(ctx, filter, payloadUpdate(u, s.now()),
		options.FindOneAndUpdate().
			SetSort(creationOrder).
			SetReturnDocument(options.After),
	).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentStore.findOneAndUpdate: %w", err)
	}
	return s.toDocument(docType, raw)
}

func (s *DocumentStore) Delete(ctx context.Context, docType string, id uuid.UUID) error {
	res, err := s.collection(docType).DeleteOne(ctx, bson.D{{Key: idKey, Value: id.String()}})
	if err != nil {
		return fmt.Errorf("documentStore.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *DocumentStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// prepare validates the call, runs the pre-update hooks and returns the
// filter for q.
func (s *DocumentStore) prepare(ctx context.Context, op domain.OperationKind, docType string, q domain.Query, u *domain.Update) (bson.D, error) {
	if err := s.Require(docType); err != nil {
		return nil, err
	}
	filter, err := filterFor(q)
	if err != nil {
		return nil, err
	}
	uc := &port.UpdateContext{DocType: docType, Op: op, Query: q, Update: u, Session: session{s}}
	if err := s.RunUpdate(ctx, uc); err != nil {
		return nil, fmt.Errorf("documentStore.%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return filter, nil
}

// updateSingle applies u to the earliest created match of q.
func (s *DocumentStore) updateSingle(ctx context.Context, op domain.OperationKind, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	filter, err := s.prepare(ctx, op, docType, q, u)
	if err != nil {
		return port.UpdateResult{}, err
	}
	coll := s.collection(docType)

	if u.IsEmpty() {
		n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return port.UpdateResult{}, fmt.Errorf("documentStore.%s: %w", op, err)
		}
		return port.UpdateResult{Matched: n}, nil
	}

	err = coll.FindOneAndUpdate(ctx, filter, payloadUpdate(u, s.now()),
		options.FindOneAndUpdate().
			SetSort(creationOrder).
			SetProjection(bson.D{{Key: idKey, Value: 1}}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return port.UpdateResult{}, nil
	}
	if err != nil {
		return port.UpdateResult{}, fmt.Errorf("documentStore.%s: %w", op, err)
	}
	return port.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (s *DocumentStore) findOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	filter, err := filterFor(q)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	err = s.collection(docType).FindOne(ctx, filter, options.FindOne().SetSort(creationOrder)).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return s.toDocument(docType, raw)
}

func (s *DocumentStore) find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	filter, err := filterFor(q)
	if err != nil {
		return nil, err
	}
	cursor, err := s.collection(docType).Find(ctx, filter, options.Find().SetSort(creationOrder))
	if err != nil {
		return nil, err
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	docs := make([]*domain.Document, 0, len(raws))
	for _, raw := range raws {
		doc, err := s.toDocument(docType, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *DocumentStore) toDocument(docType string, raw bson.M) (*domain.Document, error) {
	doc, err := fromRecord(docType, raw)
	if err != nil {
		return nil, err
	}
	s.ApplyDefaults(doc)
	return doc, nil
}

// session is the HistorySession handed to hooks. Writes are guarded by the
// document version instead of a transaction.
type session struct {
	s *DocumentStore
}

func (ss session) FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	return ss.s.findOne(ctx, docType, q)
}

func (ss session) Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	return ss.s.find(ctx, docType, q)
}

func (ss session) FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	return ss.s.findOne(ctx, docType, domain.ByID(id))
}

func (ss session) ReplaceHistory(ctx context.Context, docType string, id uuid.UUID, version int64, field string, history domain.HistoryList) error {
	coll := ss.s.collection(docType)
	res, err := coll.UpdateOne(ctx,
		bson.D{{Key: idKey, Value: id.String()}, {Key: versionKey, Value: version}},
		historyUpdate(field, history, ss.s.now()),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.D{{Key: idKey, Value: id.String()}})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return domain.ErrVersionConflict
}
