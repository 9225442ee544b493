package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

// MongoPaymentLedger is append-only: there is no update or delete.
type MongoPaymentLedger struct {
	collection *mongo.Collection
}

func NewMongoPaymentLedger(collection *mongo.Collection) *MongoPaymentLedger {
	return &MongoPaymentLedger{collection: collection}
}

func (s *MongoPaymentLedger) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var payment models.Payment
	if err := s.collection.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&payment); err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// Insert returns ErrDuplicateKey when the transaction id is already recorded.
func (s *MongoPaymentLedger) Insert(ctx context.Context, payment *models.Payment) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, payment); err != nil {
		return "", translate(err)
	}
	return payment.ID.Hex(), nil
}

func (s *MongoPaymentLedger) ListByCustomerEmail(ctx context.Context, email string) ([]models.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if email != "" {
		query["customerEmail"] = email
	}

	cur, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "paidAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	defer cur.Close(ctx)

	payments := []models.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return payments, nil
}
