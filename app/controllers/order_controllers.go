package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

type OrderController struct {
	service *services.OrderService
	hub     *ws.Hub
}

func NewOrderController(service *services.OrderService, hub *ws.Hub) *OrderController {
	return &OrderController{service: service, hub: hub}
}

func (h *OrderController) Mine(c *ctx.Context) {
	userID, _ := c.UserID()
	orders, err := h.service.ForBuyer(c.Context(), userID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"orders": orders})
}

func (h *OrderController) All(c *ctx.Context) {
	orders, err := h.service.All(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("", response.M{"orders": orders})
}

func (h *OrderController) UpdateStatus(c *ctx.Context) {
	var in services.StatusInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := h.service.UpdateStatus(c.Context(), c.Param("orderId"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Order status updated", response.M{"orders": order})
}

// Stream upgrades to a websocket that receives the caller's order status
// changes.
func (h *OrderController) Stream(c *ctx.Context) {
	userID, _ := c.UserID()
	h.hub.Serve(c.W, c.R, userID)
}
