package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// Parcel is a booked shipment. TrackingID is set only once PaymentStatus is paid.
type Parcel struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ParcelName      string             `bson:"parcelName" json:"parcelName"`
	ParcelType      string             `bson:"parcelType,omitempty" json:"parcelType,omitempty"`
	ParcelWeight    float64            `bson:"parcelWeight,omitempty" json:"parcelWeight,omitempty"`
	SenderName      string             `bson:"senderName,omitempty" json:"senderName,omitempty"`
	SenderEmail     string             `bson:"SenderEmail" json:"SenderEmail"`
	SenderRegion    string             `bson:"senderRegion,omitempty" json:"senderRegion,omitempty"`
	ReceiverName    string             `bson:"receiverName,omitempty" json:"receiverName,omitempty"`
	ReceiverAddress string             `bson:"receiverAddress,omitempty" json:"receiverAddress,omitempty"`
	ReceiverRegion  string             `bson:"receiverRegion,omitempty" json:"receiverRegion,omitempty"`
	Cost            float64            `bson:"cost" json:"cost"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus"`
	TrackingID      string             `bson:"trackingId,omitempty" json:"trackingId,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsPaid reports whether the parcel has gone through payment confirmation.
func (p *Parcel) IsPaid() bool {
	return p.PaymentStatus == PaymentStatusPaid
}
