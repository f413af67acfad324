package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoStore implements Store on a MongoDB database. Documents are keyed by
// the collection's _id; the wire-contract "id" field inside the document is
// stored alongside it untouched.
type MongoStore struct {
	client *mongo.Client
	dbName string
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{
		client: client,
		dbName: dbName,
	}
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var doc bson.M
	err := s.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return normalizeDocument(doc), nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, doc Document) error {
	replacement := withKey(doc, id)
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, replacement, opts)
	if err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Document) error {
	res, err := s.collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	// DeleteOne on an absent id matches zero documents, which is the
	// idempotent behavior the contract asks for.
	_, err := s.collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) FindByIDs(ctx context.Context, collection string, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return []Document{}, nil
	}
	cursor, err := s.collection(collection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query documents by id: %w", err)
	}
	return drainCursor(ctx, cursor)
}

func (s *MongoStore) FindNotContaining(ctx context.Context, collection string, arrayFields []string, member string) ([]Document, error) {
	filter := bson.M{}
	for _, field := range arrayFields {
		filter[field] = bson.M{"$ne": member}
	}
	cursor, err := s.collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents by membership: %w", err)
	}
	return drainCursor(ctx, cursor)
}

// RunTransaction runs fn inside a session transaction with snapshot reads
// and majority writes. WithTransaction re-invokes fn on transient and
// write-conflict errors, which is the retry behavior the repositories
// depend on.
func (s *MongoStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{store: s, ctx: sessCtx})
	}, txOpts)
	return err
}

// mongoTx routes the Tx operations through the session context so they
// participate in the enclosing transaction.
type mongoTx struct {
	store *MongoStore
	ctx   mongo.SessionContext
}

func (t *mongoTx) Get(collection, id string) (Document, error) {
	var doc bson.M
	err := t.store.collection(collection).FindOne(t.ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s in transaction: %w", collection, id, err)
	}
	return normalizeDocument(doc), nil
}

func (t *mongoTx) Set(collection, id string, doc Document) error {
	replacement := withKey(doc, id)
	opts := options.Replace().SetUpsert(true)
	_, err := t.store.collection(collection).ReplaceOne(t.ctx, bson.M{"_id": id}, replacement, opts)
	if err != nil {
		return fmt.Errorf("failed to set document %s/%s in transaction: %w", collection, id, err)
	}
	return nil
}

func (t *mongoTx) Update(collection, id string, fields Document) error {
	res, err := t.store.collection(collection).UpdateOne(t.ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s in transaction: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *mongoTx) Delete(collection, id string) error {
	_, err := t.store.collection(collection).DeleteOne(t.ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s in transaction: %w", collection, id, err)
	}
	return nil
}

func (t *mongoTx) AddToSet(collection, id, field string, values ...string) error {
	update := bson.M{"$addToSet": bson.M{field: bson.M{"$each": values}}}
	res, err := t.store.collection(collection).UpdateOne(t.ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to add to set %s on %s/%s: %w", field, collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *mongoTx) RemoveFromSet(collection, id, field string, values ...string) error {
	update := bson.M{"$pull": bson.M{field: bson.M{"$in": values}}}
	_, err := t.store.collection(collection).UpdateOne(t.ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to remove from set %s on %s/%s: %w", field, collection, id, err)
	}
	return nil
}

func withKey(doc Document, id string) bson.M {
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["_id"] = id
	return out
}

func drainCursor(ctx context.Context, cursor *mongo.Cursor) ([]Document, error) {
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, normalizeDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// normalizeDocument rewrites the driver's container types (primitive.A,
// bson.D) into plain maps and slices so downstream parsing never has to
// know the document came from MongoDB. The _id key is dropped; the wire
// contract carries its own id field.
func normalizeDocument(doc bson.M) Document {
	delete(doc, "_id")
	for k, v := range doc {
		doc[k] = normalizeValue(v)
	}
	return Document(doc)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case bson.M:
		for k, e := range t {
			t[k] = normalizeValue(e)
		}
		return map[string]any(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	default:
		return v
	}
}
