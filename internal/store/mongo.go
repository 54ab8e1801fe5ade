package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore keeps one Mongo collection per stage collection, with the user
// id as the document _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoDoc struct {
	ID        string    `bson:"_id"`
	Content   string    `bson:"content"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) Get(ctx context.Context, userID, collection string) (*Document, error) {
	var doc mongoDoc
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &Document{
		UserID:     doc.ID,
		Collection: collection,
		Content:    doc.Content,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

// Put upserts the document; updatedAt is set by the server.
func (s *MongoStore) Put(ctx context.Context, userID, collection, content string) error {
	update := bson.M{
		"$set":         bson.M{"content": content},
		"$currentDate": bson.M{"updatedAt": true},
	}
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": userID},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}
