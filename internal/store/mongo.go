package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/opendata-sync/catalog-sync/internal/item"
	"github.com/opendata-sync/catalog-sync/internal/status"
)

// MongoStore keeps items in a MongoDB collection
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	main   *mongo.Collection
	stats  string
}

var _ Store = (*MongoStore)(nil)

// MongoOptions names the database and collections of a MongoStore
type MongoOptions struct {
	URL             string
	Database        string
	MainCollection  string
	StatsCollection string
}

// NewMongoStore connects to MongoDB and verifies the connection
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(opts.Database)
	return &MongoStore{
		client: client,
		db:     db,
		main:   db.Collection(opts.MainCollection),
		stats:  opts.StatsCollection,
	}, nil
}

// Find implements Store
func (s *MongoStore) Find(ctx context.Context, ckanID string) (item.Item, error) {
	var doc bson.M
	err := s.main.FindOne(ctx, bson.M{item.FieldCKANID: ckanID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", ckanID, err)
	}
	return item.Item(normalizeMap(doc)), nil
}

// Insert implements Store
func (s *MongoStore) Insert(ctx context.Context, it item.Item) error {
	if _, ok := it[item.FieldID]; !ok {
		it[item.FieldID] = primitive.NewObjectID()
	}
	if _, err := s.main.InsertOne(ctx, bson.M(it)); err != nil {
		return fmt.Errorf("failed to insert %s: %w", it.CKANID(), err)
	}
	return nil
}

// Save implements Store
func (s *MongoStore) Save(ctx context.Context, it item.Item) error {
	key, ok := it[item.FieldID]
	if !ok {
		return ErrMissingKey
	}
	_, err := s.main.ReplaceOne(ctx, bson.M{item.FieldID: key}, bson.M(it), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", it.CKANID(), err)
	}
	return nil
}

// ListCKANIDs implements Store
func (s *MongoStore) ListCKANIDs(ctx context.Context) ([]string, error) {
	values, err := s.main.Distinct(ctx, item.FieldCKANID, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list ckan ids: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// RemoveByCKANIDs implements Store
func (s *MongoStore) RemoveByCKANIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.main.DeleteMany(ctx, bson.M{item.FieldCKANID: bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to remove orphans: %w", err)
	}
	return int(res.DeletedCount), nil
}

// SaveStats implements Store
func (s *MongoStore) SaveStats(ctx context.Context, stats *status.RunStats) error {
	if s.stats == "" {
		return nil
	}
	if _, err := s.db.Collection(s.stats).InsertOne(ctx, stats); err != nil {
		return fmt.Errorf("failed to save stats of run %s: %w", stats.RunID, err)
	}
	return nil
}

// ClearCollection implements Store
func (s *MongoStore) ClearCollection(ctx context.Context, name string) error {
	if _, err := s.db.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", name, err)
	}
	return nil
}

// Close implements Store
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// normalizeMap converts decoded BSON containers to plain maps and slices
func normalizeMap(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.A:
		return normalizeSlice(val)
	case []any:
		return normalizeSlice(val)
	case int32:
		return int64(val)
	default:
		return v
	}
}

func normalizeSlice(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalizeValue(v)
	}
	return out
}
