package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	UsersCollection    = "users"
	ParcelsCollection  = "parcels"
	PaymentsCollection = "payments"
	RidersCollection   = "riders"
)

// Connect opens a MongoDB client with the stable API v1 and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// Indexes returns the index models each collection needs. The unique index on
// payments.transactionId is what makes payment confirmation idempotent under
// concurrent callbacks.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		PaymentsCollection: {
			{
				Keys:    bson.D{{Key: "transactionId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_transaction_id"),
			},
			{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "paidAt", Value: -1}}},
		},
		ParcelsCollection: {
			{Keys: bson.D{{Key: "SenderEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
			// Lookup only. Tracking ids are random per day and never checked for
			// uniqueness, so a collision must not fail the payment.
			{
				Keys:    bson.D{{Key: "trackingId", Value: 1}},
				Options: options.Index().SetName("tracking_id").SetSparse(true),
			},
		},
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_email"),
			},
		},
		RidersCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
}

// EnsureIndexes creates the indexes returned by Indexes.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, models := range Indexes() {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
