package repository

import (
	"context"
	"time"

	"playermodels-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBAuditLog implements AuditLog for MongoDB. It mirrors the
// relational transaction log for operator tooling; losing a write here
// never affects the economic operation that produced it.
type MongoDBAuditLog struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBAuditLog connects to MongoDB and binds the audit collection.
func NewMongoDBAuditLog(uri, dbName, collectionName string) (*MongoDBAuditLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	collection := client.Database(dbName).Collection(collectionName)

	return &MongoDBAuditLog{
		client:     client,
		collection: collection,
	}, nil
}

// Insert appends an audit entry.
func (r *MongoDBAuditLog) Insert(ctx context.Context, entry *model.TransactionLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// List returns audit entries, newest first, with pagination.
func (r *MongoDBAuditLog) List(ctx context.Context, limit, offset int) ([]model.TransactionLogEntry, int64, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})
	findOptions.SetLimit(int64(limit))
	findOptions.SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var entries []model.TransactionLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}

	total, err := r.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Close disconnects the client.
func (r *MongoDBAuditLog) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Ensure MongoDBAuditLog implements AuditLog
var _ AuditLog = (*MongoDBAuditLog)(nil)
