package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/storefront/config"
	pkghttp "github.com/shashiranjanraj/storefront/pkg/http"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/money"
)

const (
	SandboxEndpoint    = "https://payments.sandbox.braintree-api.com/graphql"
	ProductionEndpoint = "https://payments.braintree-api.com/graphql"

	apiVersion = "2019-01-01"
)

// BraintreeConfig holds merchant credentials and call limits.
type BraintreeConfig struct {
	Environment       string // sandbox | production
	Endpoint          string // overrides the environment's endpoint
	MerchantID        string
	MerchantAccountID string
	PublicKey         string
	PrivateKey        string
	Currency          string
	Timeout           time.Duration
}

// BraintreeConfigFromEnv reads BRAINTREE_* and GATEWAY_TIMEOUT.
func BraintreeConfigFromEnv() BraintreeConfig {
	return BraintreeConfig{
		Environment:       config.BraintreeEnvironment(),
		Endpoint:          config.BraintreeEndpoint(),
		MerchantID:        config.BraintreeMerchantID(),
		MerchantAccountID: config.BraintreeMerchantAccountID(),
		PublicKey:         config.BraintreePublicKey(),
		PrivateKey:        config.BraintreePrivateKey(),
		Currency:          config.PaymentCurrency(),
		Timeout:           config.GatewayTimeout(),
	}
}

// Braintree speaks the Braintree GraphQL API.
type Braintree struct {
	cfg      BraintreeConfig
	endpoint string
	client   *pkghttp.Client
}

// NewBraintree validates cfg. client may be nil for the pooled transport.
func NewBraintree(cfg BraintreeConfig, client *pkghttp.Client) (*Braintree, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, errors.New("payment: braintree public and private keys are required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		switch strings.ToLower(cfg.Environment) {
		case "production", "prod":
			endpoint = ProductionEndpoint
		default:
			endpoint = SandboxEndpoint
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = pkghttp.NewClient(nil)
	}

	return &Braintree{cfg: cfg, endpoint: endpoint, client: client}, nil
}

// ─── Operations ───────────────────────────────────────────────────────────────

const clientTokenMutation = `mutation ClientToken($input: CreateClientTokenInput) {
  createClientToken(input: $input) { clientToken }
}`

func (b *Braintree) ClientToken(ctx context.Context) (string, error) {
	start := time.Now()

	input := map[string]any{}
	if b.cfg.MerchantAccountID != "" {
		input["clientToken"] = map[string]any{"merchantAccountId": b.cfg.MerchantAccountID}
	}

	var data struct {
		CreateClientToken struct {
			ClientToken string `json:"clientToken"`
		} `json:"createClientToken"`
	}
	// Issuing a token has no side effects, so transient failures are retried.
	if err := b.call(ctx, "client_token", clientTokenMutation, map[string]any{"input": input}, 3, &data); err != nil {
		metrics.ObservePayment("client_token", "error", start)
		return "", err
	}

	token := data.CreateClientToken.ClientToken
	if token == "" {
		metrics.ObservePayment("client_token", "error", start)
		return "", &GatewayError{Op: "client_token", Err: errors.New("empty client token")}
	}

	metrics.ObservePayment("client_token", "success", start)
	return token, nil
}

const chargeMutation = `mutation Charge($input: ChargePaymentMethodInput!) {
  chargePaymentMethod(input: $input) {
    transaction { id legacyId status createdAt amount { value currencyCode } }
  }
}`

func (b *Braintree) Sale(ctx context.Context, amount money.Amount, nonce string) (*Result, error) {
	start := time.Now()
	log := logger.WithCtx(ctx)

	if nonce == "" {
		return nil, &GatewayError{Op: "sale", Err: errors.New("missing payment method nonce")}
	}
	if amount <= 0 {
		return nil, &GatewayError{Op: "sale", Err: fmt.Errorf("non-positive amount %s", amount)}
	}

	txn := map[string]any{"amount": amount.String()}
	if b.cfg.MerchantAccountID != "" {
		txn["merchantAccountId"] = b.cfg.MerchantAccountID
	}
	vars := map[string]any{"input": map[string]any{
		"paymentMethodId": nonce,
		"transaction":     txn,
	}}

	var data struct {
		ChargePaymentMethod struct {
			Transaction gqlTransaction `json:"transaction"`
		} `json:"chargePaymentMethod"`
	}
	err := b.call(ctx, "sale", chargeMutation, vars, 1, &data)

	var declined *declineError
	if errors.As(err, &declined) {
		metrics.ObservePayment("sale", "declined", start)
		log.Warn("payment: sale declined", "amount", amount.String(), "reason", declined.message)
		return &Result{Success: false, Message: declined.message}, fmt.Errorf("%w: %s", ErrDeclined, declined.message)
	}
	if err != nil {
		metrics.ObservePayment("sale", "error", start)
		return nil, err
	}

	res, err := data.ChargePaymentMethod.Transaction.result(settled)
	if err != nil {
		metrics.ObservePayment("sale", "error", start)
		return nil, &GatewayError{Op: "sale", Err: err}
	}
	if !res.Success {
		metrics.ObservePayment("sale", "declined", start)
		log.Warn("payment: sale declined", "transaction_id", res.Transaction.ID, "status", res.Transaction.Status)
		return res, fmt.Errorf("%w: status %s", ErrDeclined, res.Transaction.Status)
	}

	metrics.ObservePayment("sale", "success", start)
	log.Info("payment: sale settled",
		"transaction_id", res.Transaction.ID,
		"status", res.Transaction.Status,
		"amount", res.Transaction.Amount.String(),
	)
	return res, nil
}

const reverseMutation = `mutation Reverse($input: ReverseTransactionInput!) {
  reverseTransaction(input: $input) {
    reversal {
      ... on Transaction { id legacyId status createdAt amount { value currencyCode } }
      ... on Refund { id legacyId status createdAt amount { value currencyCode } }
    }
  }
}`

func (b *Braintree) Reverse(ctx context.Context, transactionID string) (*Result, error) {
	start := time.Now()

	if transactionID == "" {
		return nil, &GatewayError{Op: "reverse", Err: errors.New("missing transaction id")}
	}

	var data struct {
		ReverseTransaction struct {
			Reversal gqlTransaction `json:"reversal"`
		} `json:"reverseTransaction"`
	}
	vars := map[string]any{"input": map[string]any{"transactionId": transactionID}}

	err := b.call(ctx, "reverse", reverseMutation, vars, 1, &data)
	var declined *declineError
	if errors.As(err, &declined) {
		metrics.ObservePayment("reverse", "declined", start)
		return &Result{Success: false, Message: declined.message}, fmt.Errorf("%w: %s", ErrDeclined, declined.message)
	}
	if err != nil {
		metrics.ObservePayment("reverse", "error", start)
		return nil, err
	}

	res, err := data.ReverseTransaction.Reversal.result(reversed)
	if err != nil {
		metrics.ObservePayment("reverse", "error", start)
		return nil, &GatewayError{Op: "reverse", Err: err}
	}

	outcome := "success"
	if !res.Success {
		outcome = "declined"
	}
	metrics.ObservePayment("reverse", outcome, start)
	logger.WithCtx(ctx).Info("payment: reversal", "transaction_id", transactionID,
		"reversal_id", res.Transaction.ID, "status", res.Transaction.Status)

	if !res.Success {
		return res, fmt.Errorf("%w: reversal status %s", ErrDeclined, res.Transaction.Status)
	}
	return res, nil
}

// ─── GraphQL transport ───────────────────────────────────────────────────────

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		ErrorClass string `json:"errorClass"`
		LegacyCode string `json:"legacyCode"`
	} `json:"extensions"`
}

type gqlTransaction struct {
	ID        string    `json:"id"`
	LegacyID  string    `json:"legacyId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Amount    struct {
		Value        string `json:"value"`
		CurrencyCode string `json:"currencyCode"`
	} `json:"amount"`
}

func (t gqlTransaction) result(ok map[string]bool) (*Result, error) {
	if t.ID == "" {
		return nil, errors.New("response carries no transaction")
	}

	amount, err := money.Parse(t.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("transaction amount: %w", err)
	}

	return &Result{
		Success: ok[t.Status],
		Transaction: Transaction{
			ID:        t.ID,
			LegacyID:  t.LegacyID,
			Status:    t.Status,
			Amount:    amount,
			Currency:  t.Amount.CurrencyCode,
			CreatedAt: t.CreatedAt,
		},
	}, nil
}

// declineError is a GraphQL VALIDATION error: the processor understood the
// request and refused it (bad nonce, processor decline, fraud rules).
type declineError struct {
	message string
}

func (e *declineError) Error() string { return e.message }

func (b *Braintree) call(ctx context.Context, op, query string, vars map[string]any, attempts int, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	resp, err := b.client.Post(b.endpoint).
		WithContext(ctx).
		Timeout(b.cfg.Timeout).
		Retry(attempts, 200*time.Millisecond).
		BasicAuth(b.cfg.PublicKey, b.cfg.PrivateKey).
		Header("Braintree-Version", apiVersion).
		Body(gqlRequest{Query: query, Variables: vars}).
		Send()
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	if err := resp.Throw(); err != nil {
		return &GatewayError{Op: op, Status: resp.StatusCode, Err: err}
	}

	var out gqlResponse
	if err := resp.JSON(&out); err != nil {
		return &GatewayError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if len(out.Errors) > 0 {
		first := out.Errors[0]
		if first.Extensions.ErrorClass == "VALIDATION" {
			return &declineError{message: first.Message}
		}
		return &GatewayError{Op: op, Status: resp.StatusCode,
			Err: fmt.Errorf("%s: %s", strings.ToLower(first.Extensions.ErrorClass), first.Message)}
	}

	if len(out.Data) == 0 || string(out.Data) == "null" {
		return &GatewayError{Op: op, Status: resp.StatusCode, Err: errors.New("empty data")}
	}
	if err := json.Unmarshal(out.Data, dest); err != nil {
		return &GatewayError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
