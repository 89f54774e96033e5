package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/your-org/neurovision/internal/config"
)

// Collection names in the durable store.
const (
	SessionsCollection   = "sessions"
	MetricsCollection    = "metrics"
	DetectionsCollection = "detections"
)

// keyField is the single canonical identifier: it is both the durable-store
// lookup key and the field metric/detection documents reference.
const keyField = "session_id"

// DurableStore is the opaque best-effort persistence capability. Callers
// treat every failure as non-fatal; nothing above this layer depends on a
// write having landed.
type DurableStore interface {
	// Upsert replaces the given fields of the document keyed by key,
	// creating the document if absent.
	Upsert(ctx context.Context, collection, key string, fields map[string]any) error
	// Append pushes item onto an array field of the document keyed by key.
	Append(ctx context.Context, collection, key, arrayField string, item any) error
	// Find returns the document keyed by key, or (nil, nil) on a miss.
	Find(ctx context.Context, collection, key string) (map[string]any, error)
	// Insert adds one document to an append-only log collection.
	Insert(ctx context.Context, collection string, doc any) error
	// FindAll returns every document referencing sessionID, oldest first.
	FindAll(ctx context.Context, collection, sessionID string) ([]map[string]any, error)
	Ping(ctx context.Context) error
}

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(cfg config.MongoConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Upsert(ctx context.Context, collection, key string, fields map[string]any) error {
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{keyField: key},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, collection, key, arrayField string, item any) error {
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{keyField: key},
		bson.M{"$push": bson.M{arrayField: item}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("append %s/%s.%s: %w", collection, key, arrayField, err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, collection, key string) (map[string]any, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{keyField: key}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s/%s: %w", collection, key, err)
	}
	return normalizeDoc(doc), nil
}

func (s *MongoStore) Insert(ctx context.Context, collection string, doc any) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) FindAll(ctx context.Context, collection, sessionID string) ([]map[string]any, error) {
	cur, err := s.db.Collection(collection).Find(ctx,
		bson.M{keyField: sessionID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find all %s/%s: %w", collection, sessionID, err)
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, sessionID, err)
	}

	docs := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, normalizeDoc(d))
	}
	return docs, nil
}

// normalizeDoc converts BSON-specific values into plain Go types so callers
// stay driver-agnostic: primitive.DateTime → time.Time, primitive.A → []any,
// nested bson.M → map[string]any.
func normalizeDoc(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.A:
		arr := make([]any, len(val))
		for i, item := range val {
			arr[i] = normalizeValue(item)
		}
		return arr
	case bson.M:
		return normalizeDoc(val)
	case primitive.ObjectID:
		return val.Hex()
	default:
		return v
	}
}
