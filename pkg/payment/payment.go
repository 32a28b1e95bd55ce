// Package payment adapts the external card processor.
//
// Charges are never retried: Sale and Reverse are sent exactly once and a
// failed call is surfaced to the caller, who decides what to do. Only
// ClientToken, which has no side effects, is retried.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/money"
)

// ErrDeclined marks a charge the processor refused. The accompanying
// *Result has Success == false and carries the processor status.
var ErrDeclined = errors.New("payment: declined")

// Gateway is the processor contract used by checkout.
type Gateway interface {
	// ClientToken returns a one-time token for the browser drop-in UI.
	ClientToken(ctx context.Context) (string, error)
	// Sale authorizes amount against the tokenized payment method and
	// submits it for settlement.
	Sale(ctx context.Context, amount money.Amount, nonce string) (*Result, error)
	// Reverse voids an unsettled transaction or refunds a settled one.
	Reverse(ctx context.Context, transactionID string) (*Result, error)
}

// Result is the gateway's answer, stored verbatim on the order.
type Result struct {
	Success     bool        `json:"success" bson:"success"`
	Message     string      `json:"message,omitempty" bson:"message,omitempty"`
	Transaction Transaction `json:"transaction" bson:"transaction"`
}

// Transaction is the processor-side record of a charge or reversal.
type Transaction struct {
	ID        string       `json:"id" bson:"id"`
	LegacyID  string       `json:"legacyId,omitempty" bson:"legacy_id,omitempty"`
	Status    string       `json:"status" bson:"status"`
	Amount    money.Amount `json:"amount" bson:"amount"`
	Currency  string       `json:"currencyCode,omitempty" bson:"currency,omitempty"`
	CreatedAt time.Time    `json:"createdAt,omitempty" bson:"created_at,omitempty"`
}

// GatewayError is any failure to obtain a usable answer: transport error,
// non-2xx status, undecodable body or a non-validation GraphQL error.
type GatewayError struct {
	Op     string
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("payment: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("payment: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// settled lists transaction statuses that mean the money will move.
var settled = map[string]bool{
	"AUTHORIZED":               true,
	"SUBMITTED_FOR_SETTLEMENT": true,
	"SETTLING":                 true,
	"SETTLEMENT_PENDING":       true,
	"SETTLED":                  true,
}

// reversed lists statuses that confirm a successful reversal.
var reversed = map[string]bool{
	"VOIDED":                   true,
	"SUBMITTED_FOR_SETTLEMENT": true,
	"SETTLING":                 true,
	"SETTLEMENT_PENDING":       true,
	"SETTLED":                  true,
}
