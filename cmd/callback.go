package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/learning-platform/internal/gateway"
	"github.com/frahmantamala/learning-platform/internal/payment"
)

var (
	simulateOrderID   string
	simulateStatus    string
	simulateAmount    string
	simulatePaymentID string
	simulateURL       string
)

var callbackCmd = &cobra.Command{
	Use:   "callback",
	Short: "Payment gateway callback tooling",
}

var simulateCallbackCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send a signed gateway callback to a running server",
	Long: `Builds a gateway callback for an existing order, signs it with the configured
webhook secret and posts it to the webhook endpoint. Useful against sandbox deployments.`,
	RunE: runSimulateCallback,
}

func init() {
	simulateCallbackCmd.Flags().StringVar(&simulateOrderID, "order", "", "gateway order id (required)")
	simulateCallbackCmd.Flags().StringVar(&simulateStatus, "status", "SUCCESS", "payment status: SUCCESS, FAILED, USER_DROPPED, PENDING")
	simulateCallbackCmd.Flags().StringVar(&simulateAmount, "amount", "", "amount the gateway reports as paid (required)")
	simulateCallbackCmd.Flags().StringVar(&simulatePaymentID, "payment-id", "", "gateway payment id, generated when empty")
	simulateCallbackCmd.Flags().StringVar(&simulateURL, "url", "", "webhook endpoint, defaults to the configured callback url")
	_ = simulateCallbackCmd.MarkFlagRequired("order")
	_ = simulateCallbackCmd.MarkFlagRequired("amount")

	callbackCmd.AddCommand(simulateCallbackCmd)
}

func runSimulateCallback(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	amount, err := decimal.NewFromString(simulateAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", simulateAmount, err)
	}

	target := simulateURL
	if target == "" {
		target = cfg.Payment.CallbackURL
	}
	if target == "" {
		return fmt.Errorf("no webhook url: pass --url or set payment.callback_url")
	}

	paymentID := simulatePaymentID
	if paymentID == "" {
		paymentID = strconv.FormatInt(time.Now().UnixNano()/1000, 10)
	}

	payload := gateway.CallbackPayload{
		Type:      "PAYMENT_" + simulateStatus + "_WEBHOOK",
		EventTime: time.Now().Format(time.RFC3339),
		Data: gateway.CallbackData{
			Order: gateway.CallbackOrder{
				OrderID:       simulateOrderID,
				OrderAmount:   amount,
				OrderCurrency: cfg.Payment.Currency,
			},
			Payment: gateway.CallbackPayment{
				CFPaymentID:   gateway.FlexibleID(paymentID),
				PaymentStatus: simulateStatus,
				PaymentAmount: amount,
				PaymentGroup:  "simulated",
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode callback: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	resp, err := resty.New().
		SetTimeout(15*time.Second).
		R().
		SetContext(cmd.Context()).
		SetHeader("Content-Type", "application/json").
		SetHeader(payment.HeaderWebhookTimestamp, timestamp).
		SetHeader(payment.HeaderWebhookSignature, gateway.Sign(cfg.Payment.WebhookSecret, timestamp, body)).
		SetBody(body).
		Post(target)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}

	fmt.Printf("POST %s -> %d %s\n", target, resp.StatusCode(), resp.String())
	return nil
}
