package activity

import (
	"context"
	"fmt"

	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type documentInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoSink mirrors activity entries into a document collection.
type MongoSink struct {
	collection documentInserter
}

func NewMongoSink(collection documentInserter) *MongoSink {
	return &MongoSink{collection: collection}
}

// ConnectMongo opens a client and returns the activity collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, client.Database(database).Collection(collection), nil
}

func (s *MongoSink) Name() string { return "mongo" }

func (s *MongoSink) Append(ctx context.Context, entry *models.ActivityLog) error {
	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("mongo insert failed: %w", err)
	}
	return nil
}
