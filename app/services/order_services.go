package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/collection"
)

// EventOrderStatusUpdated is fired after an admin changes an order status.
const EventOrderStatusUpdated = "order.status_updated"

// OrderStatusUpdated is the payload of EventOrderStatusUpdated.
type OrderStatusUpdated struct {
	OrderID   string             `json:"orderId"`
	BuyerID   string             `json:"buyerId"`
	Status    models.OrderStatus `json:"status"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Publisher is satisfied by *event.Bus.
type Publisher interface {
	FireAsync(ctx context.Context, name string, payload any)
}

type OrderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	users    repositories.UserRepository
	events   Publisher
}

func NewOrderService(orders repositories.OrderRepository, products repositories.ProductRepository, users repositories.UserRepository, events Publisher) *OrderService {
	return &OrderService{orders: orders, products: products, users: users, events: events}
}

// ForBuyer lists the signed-in user's orders, newest first.
func (s *OrderService) ForBuyer(ctx context.Context, userID string) ([]models.OrderDetail, error) {
	buyer, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.FindByBuyer(ctx, buyer)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, orders)
}

// All lists every order, newest first.
func (s *OrderService) All(ctx context.Context) ([]models.OrderDetail, error) {
	orders, err := s.orders.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, orders)
}

type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus moves an order to a new status and notifies the buyer.
// Concurrent updates are last-write-wins.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, in StatusInput) (*models.OrderDetail, error) {
	id, err := parseID(orderID, "Order not found")
	if err != nil {
		return nil, err
	}
	status, err := models.ParseOrderStatus(in.Status)
	if err != nil {
		return nil, apperror.Validation("Validation failed", map[string]string{
			"status": "The status must be one of: Not Process, Processing, Shipped, Delivered, Cancel.",
		})
	}

	o, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, notFound(err, "Order not found")
	}

	if s.events != nil {
		s.events.FireAsync(ctx, EventOrderStatusUpdated, OrderStatusUpdated{
			OrderID:   o.ID.Hex(),
			BuyerID:   o.Buyer.Hex(),
			Status:    o.Status,
			UpdatedAt: o.UpdatedAt,
		})
	}

	out, err := s.details(ctx, []models.Order{*o})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// details resolves products and buyer names with one batched lookup each.
func (s *OrderService) details(ctx context.Context, orders []models.Order) ([]models.OrderDetail, error) {
	var productIDs, buyerIDs []primitive.ObjectID
	for _, o := range orders {
		productIDs = append(productIDs, o.Products...)
		buyerIDs = append(buyerIDs, o.Buyer)
	}

	products, err := s.products.FindByIDs(ctx, collection.Unique(productIDs))
	if err != nil {
		return nil, err
	}
	byID := collection.KeyBy(products, func(p models.Product) primitive.ObjectID { return p.ID })

	buyers, err := s.users.FindByIDs(ctx, collection.Unique(buyerIDs))
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(buyers))
	for _, u := range buyers {
		names[u.ID] = u.Name
	}

	out := make([]models.OrderDetail, 0, len(orders))
	for _, o := range orders {
		d := models.OrderDetail{
			Order:    o,
			Products: []models.Product{},
			Buyer:    models.BuyerRef{ID: o.Buyer, Name: names[o.Buyer]},
		}
		for _, pid := range o.Products {
			if p, ok := byID[pid]; ok {
				d.Products = append(d.Products, p)
			}
		}
		out = append(out, d)
	}
	return out, nil
}
