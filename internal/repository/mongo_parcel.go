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

type MongoParcelStore struct {
	collection *mongo.Collection
}

func NewMongoParcelStore(collection *mongo.Collection) *MongoParcelStore {
	return &MongoParcelStore{collection: collection}
}

// List returns parcels newest first, optionally restricted to one sender.
func (s *MongoParcelStore) List(ctx context.Context, senderEmail string) ([]models.Parcel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if senderEmail != "" {
		query["SenderEmail"] = senderEmail
	}

	cur, err := s.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find parcels: %w", err)
	}
	defer cur.Close(ctx)

	parcels := []models.Parcel{}
	if err := cur.All(ctx, &parcels); err != nil {
		return nil, fmt.Errorf("decode parcels: %w", err)
	}
	return parcels, nil
}

func (s *MongoParcelStore) Get(ctx context.Context, id string) (*models.Parcel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var parcel models.Parcel
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&parcel); err != nil {
		return nil, translate(err)
	}
	return &parcel, nil
}

func (s *MongoParcelStore) Create(ctx context.Context, parcel *models.Parcel) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if parcel.ID.IsZero() {
		parcel.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, parcel); err != nil {
		return "", translate(err)
	}
	return parcel.ID.Hex(), nil
}

func (s *MongoParcelStore) Delete(ctx context.Context, id string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	oid, err := parseID(id)
	if err != nil {
		return 0, err
	}
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("delete parcel: %w", err)
	}
	return res.DeletedCount, nil
}

// MarkPaid flips the parcel to paid and binds trackingID. A parcel that
// already carries a different tracking id is not matched.
func (s *MongoParcelStore) MarkPaid(ctx context.Context, id, trackingID string) (UpdateOutcome, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	oid, err := parseID(id)
	if err != nil {
		return UpdateOutcome{}, err
	}

	filter := bson.M{
		"_id":        oid,
		"trackingId": bson.M{"$in": bson.A{nil, "", trackingID}},
	}
	update := bson.M{
		"$set": bson.M{
			"paymentStatus": models.PaymentStatusPaid,
			"trackingId":    trackingID,
		},
	}

	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return UpdateOutcome{}, translate(err)
	}
	return UpdateOutcome{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}
