package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const RiderStatusPending = "pending"

// Rider is a delivery rider application.
type Rider struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Region    string             `bson:"region,omitempty" json:"region,omitempty"`
	District  string             `bson:"district,omitempty" json:"district,omitempty"`
	BikeModel string             `bson:"bikeModel,omitempty" json:"bikeModel,omitempty"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
