package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

type MongoRiderStore struct {
	collection *mongo.Collection
}

func NewMongoRiderStore(collection *mongo.Collection) *MongoRiderStore {
	return &MongoRiderStore{collection: collection}
}

func (s *MongoRiderStore) List(ctx context.Context, status string) ([]models.Rider, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if status != "" {
		query["status"] = status
	}

	cur, err := s.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find riders: %w", err)
	}
	defer cur.Close(ctx)

	riders := []models.Rider{}
	if err := cur.All(ctx, &riders); err != nil {
		return nil, fmt.Errorf("decode riders: %w", err)
	}
	return riders, nil
}

func (s *MongoRiderStore) Insert(ctx context.Context, rider *models.Rider) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if rider.ID.IsZero() {
		rider.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, rider); err != nil {
		return "", translate(err)
	}
	return rider.ID.Hex(), nil
}
