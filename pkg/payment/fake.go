package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/storefront/pkg/money"
)

// Nonces understood by Fake, named after the processor's sandbox nonces.
const (
	FakeValidNonce    = "fake-valid-nonce"
	FakeDeclinedNonce = "fake-processor-declined-visa-nonce"
)

// Fake is an in-process Gateway for local runs (BRAINTREE_ENVIRONMENT=fake)
// and tests. It records every call.
type Fake struct {
	mu sync.Mutex

	// SaleErr, when set, is returned by Sale instead of charging.
	SaleErr error
	// ReverseErr, when set, is returned by Reverse.
	ReverseErr error

	Sales     []FakeSale
	Reversals []string
}

// FakeSale is one recorded Sale call.
type FakeSale struct {
	Amount money.Amount
	Nonce  string
	Result *Result
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) ClientToken(context.Context) (string, error) {
	return "fake-client-token-" + uuid.NewString(), nil
}

func (f *Fake) Sale(ctx context.Context, amount money.Amount, nonce string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &GatewayError{Op: "sale", Err: err}
	}
	if f.SaleErr != nil {
		f.Sales = append(f.Sales, FakeSale{Amount: amount, Nonce: nonce})
		return nil, f.SaleErr
	}

	res := &Result{
		Success: true,
		Transaction: Transaction{
			ID:        "fake_txn_" + uuid.NewString(),
			Status:    "SUBMITTED_FOR_SETTLEMENT",
			Amount:    amount,
			Currency:  "USD",
			CreatedAt: time.Now().UTC(),
		},
	}
	if nonce == FakeDeclinedNonce {
		res.Success = false
		res.Transaction.Status = "PROCESSOR_DECLINED"
		f.Sales = append(f.Sales, FakeSale{Amount: amount, Nonce: nonce, Result: res})
		return res, fmt.Errorf("%w: status %s", ErrDeclined, res.Transaction.Status)
	}

	f.Sales = append(f.Sales, FakeSale{Amount: amount, Nonce: nonce, Result: res})
	return res, nil
}

func (f *Fake) Reverse(ctx context.Context, transactionID string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &GatewayError{Op: "reverse", Err: err}
	}
	f.Reversals = append(f.Reversals, transactionID)
	if f.ReverseErr != nil {
		return nil, f.ReverseErr
	}
	return &Result{
		Success:     true,
		Transaction: Transaction{ID: "fake_rev_" + uuid.NewString(), Status: "VOIDED"},
	}, nil
}

// SaleCount returns how many times Sale was called.
func (f *Fake) SaleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sales)
}
