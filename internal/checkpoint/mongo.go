package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoDatabase = "sfbridge"

// MongoStore keeps checkpoints in MongoDB: one document per object type in
// the checkpoints collection, one per direction in sync_times.
type MongoStore struct {
	client *mongo.Client
}

// ConnectMongo connects to MongoDB at uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return &MongoStore{client: client}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect from MongoDB: %w", err)
	}
	return nil
}

type checkpointDoc struct {
	ObjectType    string    `bson:"objectType"`
	HighWaterMark time.Time `bson:"highWaterMark"`
}

type syncTimeDoc struct {
	Direction string    `bson:"direction"`
	SyncedAt  time.Time `bson:"syncedAt"`
}

// HighWaterMark implements Store.
func (s *MongoStore) HighWaterMark(ctx context.Context, objectType string) (*time.Time, error) {
	var doc checkpointDoc
	err := s.collection("checkpoints").
		FindOne(ctx, bson.M{"objectType": objectType}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read high-water mark for %s: %w", objectType, err)
	}
	mark := doc.HighWaterMark.UTC()
	return &mark, nil
}

// SetHighWaterMark implements Store.
func (s *MongoStore) SetHighWaterMark(ctx context.Context, objectType string, mark time.Time) error {
	_, err := s.collection("checkpoints").ReplaceOne(ctx,
		bson.M{"objectType": objectType},
		checkpointDoc{ObjectType: objectType, HighWaterMark: mark.UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set high-water mark for %s: %w", objectType, err)
	}
	return nil
}

// SyncedTime implements Store.
func (s *MongoStore) SyncedTime(ctx context.Context, direction Direction) (*time.Time, error) {
	var doc syncTimeDoc
	err := s.collection("sync_times").
		FindOne(ctx, bson.M{"direction": string(direction)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read synced time for %s: %w", direction, err)
	}
	t := doc.SyncedAt.UTC()
	return &t, nil
}

// SetSyncedTime implements Store.
func (s *MongoStore) SetSyncedTime(ctx context.Context, direction Direction, t time.Time) error {
	_, err := s.collection("sync_times").ReplaceOne(ctx,
		bson.M{"direction": string(direction)},
		syncTimeDoc{Direction: string(direction), SyncedAt: t.UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set synced time for %s: %w", direction, err)
	}
	return nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.client.Database(mongoDatabase).Collection(name)
}
