package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const threadsCollection = "threads"

// mongoRecord is the persisted shape of one KV entry. ExpiresAt drives a
// TTL index so Mongo evicts lapsed records server-side.
type mongoRecord struct {
	Key       string     `bson:"_id"`
	Value     []byte     `bson:"value"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

// MongoStore backs threads with a MongoDB collection using a TTL index.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects, verifies with a ping, and ensures the TTL index.
func NewMongoStore(uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	if dbName == "" {
		dbName = "threadmem"
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(threadsCollection),
	}

	// ExpireAfterSeconds(0) evicts each record at its own expiresAt.
	_, err = s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TTL index: %w", err)
	}

	log.Printf("✅ [KVSTORE] Connected to MongoDB database: %s", dbName)
	return s, nil
}

// Get retrieves a value by key. Mongo's TTL monitor runs on a coarse
// interval, so records past their expiresAt are filtered here as well.
func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec mongoRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return nil, ErrKeyNotFound
	}
	return rec.Value, nil
}

// Set upserts a record, refreshing its expiresAt from now.
func (s *MongoStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := mongoRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		rec.ExpiresAt = &expires
	}

	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, rec, options.Replace().SetUpsert(true))
	return err
}

// Ping checks if MongoDB is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// extractDBName extracts the database name from a MongoDB URI.
// mongodb://localhost:27017/threadmem?authSource=admin -> threadmem
func extractDBName(uri string) string {
	rest := uri
	if i := strings.Index(rest, "://"); i != -1 {
		rest = rest[i+3:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 || slash == len(rest)-1 {
		return ""
	}
	name := rest[slash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	return name
}
