package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/storefront/pkg/validate"
)

type registerInput struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Answer   string `json:"answer"   validate:"required"`
	Phone    string `json:"phone"    validate:"nullable,min=7"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(registerInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret1",
		Answer:   "blue",
	})
	assert.False(t, validate.HasErrors(errs), errs)
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(&registerInput{})
	assert.Equal(t, "The name field is required.", errs["name"])
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "answer")
	assert.NotContains(t, errs, "phone")
}

func TestEmailAndLength(t *testing.T) {
	errs := validate.Struct(registerInput{
		Name: "Alice", Email: "not-an-email", Password: "12345", Answer: "x", Phone: "12",
	})
	assert.Equal(t, "The email must be a valid email address.", errs["email"])
	assert.Equal(t, "The password must be at least 6 characters.", errs["password"])
	assert.Contains(t, errs, "phone")
}

func TestNumericBounds(t *testing.T) {
	type in struct {
		Quantity int `json:"quantity" validate:"gte=0,lte=100000"`
	}
	assert.True(t, validate.HasErrors(validate.Struct(in{Quantity: -1})))
	assert.False(t, validate.HasErrors(validate.Struct(in{Quantity: 0})))
}

func TestInAndObjectID(t *testing.T) {
	type in struct {
		Status string `json:"status" validate:"required,in=Not Processed|Processing|Shipped"`
		ID     string `form:"category" validate:"required,objectid"`
	}
	errs := validate.Struct(in{Status: "Lost", ID: "xyz"})
	assert.Equal(t, "The selected status is invalid.", errs["status"])
	assert.Equal(t, "The category must be a valid id.", errs["category"])

	errs = validate.Struct(in{Status: "Shipped", ID: "65f0a1b2c3d4e5f601234567"})
	assert.Empty(t, errs)
}

func TestSliceLength(t *testing.T) {
	type in struct {
		Cart []string `json:"cart" validate:"required,max=2"`
	}
	assert.Contains(t, validate.Struct(in{}), "cart")
	assert.Contains(t, validate.Struct(in{Cart: []string{"a", "b", "c"}}), "cart")
	assert.Empty(t, validate.Struct(in{Cart: []string{"a"}}))
}
