package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// IdempotencyHeader lets a client retry a checkout without paying twice.
const IdempotencyHeader = "Idempotency-Key"

type PaymentController struct {
	service *services.CheckoutService
}

func NewPaymentController(service *services.CheckoutService) *PaymentController {
	return &PaymentController{service: service}
}

// Token handles GET /product/braintree/token.
func (h *PaymentController) Token(c *ctx.Context) {
	token, err := h.service.ClientToken(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"clientToken": token})
}

// Pay handles POST /product/braintree/payment. A replayed idempotent
// request answers 200 with the original order instead of 201.
func (h *PaymentController) Pay(c *ctx.Context) {
	userID, _ := c.UserID()

	var in services.CheckoutInput
	if !c.BindJSON(&in) {
		return
	}
	in.IdempotencyKey = c.Header(IdempotencyHeader)

	order, replayed, err := h.service.Checkout(c.Context(), userID, in)
	if err != nil {
		c.Fail(err)
		return
	}
	if replayed {
		c.W.Header().Set("Idempotent-Replayed", "true")
		c.OK("Order already placed", response.M{"ok": true, "order": order})
		return
	}
	c.Created("Order placed successfully", response.M{"ok": true, "order": order})
}
