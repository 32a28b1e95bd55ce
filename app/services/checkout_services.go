package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/collection"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/money"
	"github.com/shashiranjanraj/storefront/pkg/payment"
)

const maxIdempotencyKey = 128

// CheckoutConfig tunes CheckoutService. Zero values take the defaults.
type CheckoutConfig struct {
	Currency string
	// PersistTimeout bounds the order write, which runs detached from the
	// client's cancellation once the card has been charged.
	PersistTimeout time.Duration
	// LockTTL bounds how long an idempotency key stays locked if the
	// holder dies mid-checkout.
	LockTTL time.Duration
}

func (c CheckoutConfig) withDefaults() CheckoutConfig {
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 10 * time.Second
	}
	if c.LockTTL <= 0 {
		c.LockTTL = time.Minute
	}
	return c
}

// CheckoutService turns a cart into a charged, persisted order.
type CheckoutService struct {
	gateway  payment.Gateway
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	ledger   repositories.ReconciliationRepository
	locker   Locker
	cfg      CheckoutConfig
}

func NewCheckoutService(
	gateway payment.Gateway,
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	ledger repositories.ReconciliationRepository,
	locker Locker,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		gateway:  gateway,
		orders:   orders,
		products: products,
		ledger:   ledger,
		locker:   locker,
		cfg:      cfg.withDefaults(),
	}
}

// CartItem is a line of the client's cart. Price is what the client was
// shown and must match the catalog.
type CartItem struct {
	ID    string       `json:"_id"`
	Price money.Amount `json:"price"`
}

type CheckoutInput struct {
	Cart  []CartItem `json:"cart"  validate:"required"`
	Nonce string     `json:"nonce" validate:"required"`
	// IdempotencyKey comes from the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// ClientToken returns a token for the browser payment form.
func (s *CheckoutService) ClientToken(ctx context.Context) (string, error) {
	token, err := s.gateway.ClientToken(ctx)
	if err != nil {
		return "", apperror.Wrap(apperror.KindGateway, "Payment gateway unavailable", err)
	}
	return token, nil
}

// Checkout charges the cart total and records the order, in that order.
// The response is produced only once the order is stored. With an
// idempotency key, a repeated request returns the first order (replayed ==
// true) without charging again.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, in CheckoutInput) (order *models.Order, replayed bool, err error) {
	buyer, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false, apperror.Unauthorized("Unauthorized")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKey {
		return nil, false, apperror.Validation("Validation failed", map[string]string{
			"Idempotency-Key": fmt.Sprintf("The Idempotency-Key may not be greater than %d characters.", maxIdempotencyKey),
		})
	}

	items, err := s.priceCart(ctx, in)
	if err != nil {
		return nil, false, err
	}

	if key != "" {
		if prior, err := s.replay(ctx, buyer, key); prior != nil || err != nil {
			return prior, prior != nil, err
		}

		release, err := s.locker.Acquire(ctx, "checkout:"+buyer.Hex()+":"+key, s.cfg.LockTTL)
		if errors.Is(err, cache.ErrLocked) {
			return nil, false, apperror.Conflict("A checkout with this Idempotency-Key is already in progress")
		}
		if err != nil {
			return nil, false, fmt.Errorf("checkout: lock: %w", err)
		}
		defer release()

		// The holder we waited on may have finished in between.
		if prior, err := s.replay(ctx, buyer, key); prior != nil || err != nil {
			return prior, prior != nil, err
		}
	}

	total, err := money.Sum(collection.Map(items, func(it models.OrderItem) money.Amount { return it.Price })...)
	if err != nil {
		return nil, false, apperror.Validation("Validation failed", map[string]string{"cart": err.Error()})
	}

	res, err := s.gateway.Sale(ctx, total, in.Nonce)
	switch {
	case errors.Is(err, payment.ErrDeclined):
		status := ""
		if res != nil {
			status = res.Transaction.Status
		}
		logger.WithCtx(ctx).Info("checkout: payment declined",
			"buyer", buyer.Hex(), "amount", total.String(), "status", status)
		return nil, false, apperror.Wrap(apperror.KindPaymentDeclined, "Payment declined", err)
	case err != nil:
		return nil, false, apperror.Wrap(apperror.KindGateway, "Payment gateway unavailable", err)
	}

	order = &models.Order{
		Products:       collection.Map(items, func(it models.OrderItem) primitive.ObjectID { return it.Product }),
		Items:          items,
		Amount:         total,
		Payment:        *res,
		Buyer:          buyer,
		Status:         models.StatusNotProcessed,
		IdempotencyKey: key,
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()

	if err := s.orders.Create(persistCtx, order); err != nil {
		return nil, false, s.compensate(ctx, order, err)
	}

	metrics.OrdersCreated.Inc()
	logger.WithCtx(ctx).Info("checkout: order created",
		"order_id", order.ID.Hex(), "buyer", buyer.Hex(),
		"amount", total.String(), "transaction_id", res.Transaction.ID)
	return order, false, nil
}

// priceCart checks every line against the catalog and freezes it.
func (s *CheckoutService) priceCart(ctx context.Context, in CheckoutInput) ([]models.OrderItem, error) {
	if len(in.Cart) == 0 {
		return nil, apperror.Validation("Validation failed", map[string]string{"cart": "The cart must not be empty."})
	}

	errs := map[string]string{}
	ids := make([]primitive.ObjectID, len(in.Cart))
	for i, line := range in.Cart {
		id, err := primitive.ObjectIDFromHex(line.ID)
		if err != nil {
			errs[fmt.Sprintf("cart.%d._id", i)] = "The product id is invalid."
			continue
		}
		ids[i] = id
	}
	if len(errs) > 0 {
		return nil, apperror.Validation("Validation failed", errs)
	}

	found, err := s.products.FindByIDs(ctx, collection.Unique(ids))
	if err != nil {
		return nil, err
	}
	catalog := collection.KeyBy(found, func(p models.Product) primitive.ObjectID { return p.ID })

	items := make([]models.OrderItem, 0, len(in.Cart))
	for i, line := range in.Cart {
		p, ok := catalog[ids[i]]
		switch {
		case !ok:
			errs[fmt.Sprintf("cart.%d._id", i)] = "The product is no longer available."
		case p.Price != line.Price:
			errs[fmt.Sprintf("cart.%d.price", i)] = fmt.Sprintf("The price changed to %s.", p.Price)
		default:
			items = append(items, models.OrderItem{Product: p.ID, Name: p.Name, Price: p.Price})
		}
	}
	if len(errs) > 0 {
		return nil, apperror.Validation("Validation failed", errs)
	}
	return items, nil
}

func (s *CheckoutService) replay(ctx context.Context, buyer primitive.ObjectID, key string) (*models.Order, error) {
	o, err := s.orders.FindByIdempotencyKey(ctx, buyer, key)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// compensate runs when the charge succeeded but the order could not be
// stored: the charge is reversed and the outcome recorded in the ledger
// for an operator. It gets its own deadline: the write may have failed
// because the persist deadline ran out.
func (s *CheckoutService) compensate(ctx context.Context, order *models.Order, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()

	log := logger.WithCtx(ctx).With(
		"transaction_id", order.Payment.Transaction.ID,
		"buyer", order.Buyer.Hex(),
		"amount", order.Amount.String(),
	)
	log.Error("checkout: order not stored after charge", "error", cause)

	rec := &models.Reconciliation{
		TransactionID: order.Payment.Transaction.ID,
		BuyerID:       order.Buyer.Hex(),
		Amount:        order.Amount.Cents(),
		Currency:      s.cfg.Currency,
		Reason:        cause.Error(),
		Status:        models.ReconPending,
	}
	if c := order.Payment.Transaction.Currency; c != "" {
		rec.Currency = c
	}
	if b, err := json.Marshal(order); err == nil {
		rec.Payload = string(b)
	}

	rev, err := s.gateway.Reverse(ctx, order.Payment.Transaction.ID)
	if err != nil {
		log.Error("checkout: reversal failed", "error", err)
		rec.Note = "reversal failed: " + err.Error()
	} else {
		rec.Status = models.ReconReversed
		rec.ReversalID = rev.Transaction.ID
	}

	if err := s.ledger.Create(ctx, rec); err != nil {
		log.Error("checkout: reconciliation not recorded", "status", string(rec.Status), "payload", rec.Payload, "error", err)
	}
	metrics.PaymentCompensations.WithLabelValues(string(rec.Status)).Inc()

	return apperror.Wrap(apperror.KindInternal, "Order could not be completed", cause)
}
