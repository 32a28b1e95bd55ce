package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/pkg/money"
)

type Category struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name string             `bson:"name" json:"name"`
	Slug string             `bson:"slug" json:"slug"`
}

// Photo locates a product image on the storage disk.
type Photo struct {
	Key         string `bson:"key" json:"-"`
	ContentType string `bson:"content_type" json:"contentType"`
	Size        int64  `bson:"size" json:"size"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description" json:"description"`
	Price       money.Amount       `bson:"price" json:"price"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Category    primitive.ObjectID `bson:"category" json:"category"`
	Shipping    bool               `bson:"shipping" json:"shipping"`
	Photo       *Photo             `bson:"photo,omitempty" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (p *Product) HasPhoto() bool { return p.Photo != nil && p.Photo.Key != "" }

// ProductWithCategory is a product with its category document inlined.
// The outer Category field shadows the embedded id in JSON.
type ProductWithCategory struct {
	Product
	Category *Category `json:"category"`
}
