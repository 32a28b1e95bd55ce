package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/pkg/money"
	"github.com/shashiranjanraj/storefront/pkg/payment"
)

// OrderStatus is the closed set of fulfilment states. The values are the
// strings storefront clients already send and display.
type OrderStatus string

const (
	StatusNotProcessed OrderStatus = "Not Process"
	StatusProcessing   OrderStatus = "Processing"
	StatusShipped      OrderStatus = "Shipped"
	StatusDelivered    OrderStatus = "Delivered"
	StatusCancelled    OrderStatus = "Cancel"
)

// OrderStatuses lists every status in fulfilment order.
var OrderStatuses = []OrderStatus{
	StatusNotProcessed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled,
}

// ParseOrderStatus accepts the canonical values case-insensitively plus the
// spelled-out aliases "NotProcessed", "Not Processed" and "Cancelled".
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not process", "not processed", "notprocessed", "not_processed":
		return StatusNotProcessed, nil
	case "processing":
		return StatusProcessing, nil
	case "shipped":
		return StatusShipped, nil
	case "delivered":
		return StatusDelivered, nil
	case "cancel", "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// OrderItem is a cart line frozen at checkout time.
type OrderItem struct {
	Product primitive.ObjectID `bson:"product" json:"product"`
	Name    string             `bson:"name" json:"name"`
	Price   money.Amount       `bson:"price" json:"price"`
}

type Order struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Products       []primitive.ObjectID `bson:"products" json:"products"`
	Items          []OrderItem          `bson:"items" json:"items"`
	Amount         money.Amount         `bson:"amount" json:"amount"`
	Payment        payment.Result       `bson:"payment" json:"payment"`
	Buyer          primitive.ObjectID   `bson:"buyer" json:"buyer"`
	Status         OrderStatus          `bson:"status" json:"status"`
	IdempotencyKey string               `bson:"idempotency_key,omitempty" json:"-"`
	CreatedAt      time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updatedAt"`
}

// BuyerRef is the buyer as shown on an order listing.
type BuyerRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
}

// OrderDetail is an order with products and buyer resolved. Products that
// were deleted since checkout are omitted from Products but stay in Items.
type OrderDetail struct {
	Order
	Products []Product `json:"products"`
	Buyer    BuyerRef  `json:"buyer"`
}
