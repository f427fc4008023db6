package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	APIVersion   string
	Timeout      time.Duration
}

// Client talks to the hosted-checkout payment gateway.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-client-id", config.ClientID).
		SetHeader("x-client-secret", config.ClientSecret).
		SetHeader("x-api-version", config.APIVersion)

	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid create order request: %w", err)
	}

	body := createOrderBody{
		OrderID:       req.OrderRef,
		OrderAmount:   req.Amount.Round(2).InexactFloat64(),
		OrderCurrency: req.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    req.Buyer.ID,
			CustomerName:  req.Buyer.Name,
			CustomerEmail: req.Buyer.Email,
			CustomerPhone: req.Buyer.Phone,
		},
		OrderMeta: orderMeta{
			ReturnURL: req.ReturnURL,
			NotifyURL: req.CallbackURL,
		},
	}

	var (
		out     createOrderResponse
		errBody errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&errBody).
		Post("/orders")
	if err != nil {
		c.logger.Error("gateway create order request failed",
			"order_ref", req.OrderRef,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.IsError() {
		c.logger.Error("gateway rejected create order",
			"order_ref", req.OrderRef,
			"status_code", resp.StatusCode(),
			"gateway_code", errBody.Code,
			"gateway_message", errBody.Message)
		return nil, fmt.Errorf("%w: create order returned status %d", ErrGatewayUnavailable, resp.StatusCode())
	}

	if out.PaymentSessionID == "" {
		return nil, fmt.Errorf("%w: create order response has no session token", ErrGatewayUnavailable)
	}

	gatewayOrderID := out.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = req.OrderRef
	}

	c.logger.Info("gateway order created",
		"gateway_order_id", gatewayOrderID,
		"gateway_internal_id", string(out.CFOrderID))

	return &CreateOrderResult{
		GatewayOrderID:     gatewayOrderID,
		GatewayInternalID:  string(out.CFOrderID),
		ClientSessionToken: out.PaymentSessionID,
	}, nil
}

func (c *Client) QueryOrderStatus(ctx context.Context, gatewayOrderID string) ([]PaymentAttempt, error) {
	var (
		out     []paymentEntity
		errBody errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("orderID", gatewayOrderID).
		SetResult(&out).
		SetError(&errBody).
		Get("/orders/{orderID}/payments")
	if err != nil {
		c.logger.Error("gateway order status request failed",
			"gateway_order_id", gatewayOrderID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.IsError() {
		c.logger.Error("gateway rejected order status query",
			"gateway_order_id", gatewayOrderID,
			"status_code", resp.StatusCode(),
			"gateway_message", errBody.Message)
		return nil, fmt.Errorf("%w: order status returned status %d", ErrGatewayUnavailable, resp.StatusCode())
	}

	attempts := make([]PaymentAttempt, 0, len(out))
	for _, p := range out {
		attempts = append(attempts, p.toAttempt())
	}

	c.logger.Debug("gateway order status fetched",
		"gateway_order_id", gatewayOrderID,
		"attempts", len(attempts))

	return attempts, nil
}
