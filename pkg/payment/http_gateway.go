package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mindease/booking-api/pkg/circuitbreaker"
	apperrors "github.com/mindease/booking-api/pkg/errors"
)

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// httpGateway talks to the payment provider's REST API. Orders and refunds
// go over the wire; signature verification is local HMAC against the key
// secret.
type httpGateway struct {
	cfg    Config
	client *http.Client
	cb     *circuitbreaker.CircuitBreaker
	log    *zap.Logger
}

func NewHTTPGateway(cfg Config, log *zap.Logger) Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &httpGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "payment-gateway",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		log: log,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (g *httpGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*OrderRef, error) {
	g.log.Info("payment gateway create order",
		zap.Int64("amount", amount),
		zap.String("currency", currency),
		zap.String("receipt", receipt),
	)

	body, err := json.Marshal(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	var out createOrderResponse
	err = g.cb.Execute(func() error {
		return g.post(ctx, g.cfg.BaseURL+"/v1/orders", body, &out)
	})
	if err != nil {
		g.log.Error("payment gateway order failed", zap.Error(err))
		return nil, apperrors.Retryable("payment gateway unavailable", err)
	}

	return &OrderRef{OrderID: out.ID, Amount: out.Amount, Currency: out.Currency}, nil
}

func (g *httpGateway) Verify(orderID, paymentID, signature string) bool {
	ok := VerifySignature(g.cfg.KeySecret, orderID, paymentID, signature)
	if !ok {
		g.log.Warn("payment signature mismatch",
			zap.String("order_id", orderID),
			zap.String("payment_id", paymentID),
		)
	}
	return ok
}

type refundRequest struct {
	Amount int64 `json:"amount"`
}

func (g *httpGateway) Refund(ctx context.Context, paymentID string, amount int64) error {
	g.log.Info("payment gateway refund",
		zap.String("payment_id", paymentID),
		zap.Int64("amount", amount),
	)

	body, err := json.Marshal(refundRequest{Amount: amount})
	if err != nil {
		return fmt.Errorf("failed to marshal refund request: %w", err)
	}

	err = g.cb.Execute(func() error {
		return g.post(ctx, g.cfg.BaseURL+"/v1/payments/"+paymentID+"/refund", body, nil)
	})
	if err != nil {
		g.log.Error("payment gateway refund failed", zap.String("payment_id", paymentID), zap.Error(err))
		return apperrors.Retryable("refund request failed", err)
	}
	return nil
}

func (g *httpGateway) post(ctx context.Context, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
