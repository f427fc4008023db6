package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const PatternPurchaseConfirmation = "email.purchase_confirmation"

// PurchaseConfirmation is the message consumed by the mail worker.
type PurchaseConfirmation struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	ProgramName string `json:"program_name"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	SentAt      string `json:"sent_at"`
}

func newPurchaseConfirmation(email, name, programName string, amount decimal.Decimal, currency string) PurchaseConfirmation {
	return PurchaseConfirmation{
		Email:       email,
		Name:        name,
		ProgramName: programName,
		Amount:      amount.StringFixed(2),
		Currency:    currency,
		SentAt:      time.Now().UTC().Format(time.RFC3339),
	}
}

// LogNotifier only logs confirmations. Used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPurchaseConfirmation(_ context.Context, email, name, programName string, amount decimal.Decimal, currency string) error {
	msg := newPurchaseConfirmation(email, name, programName, amount, currency)
	n.logger.Info("purchase confirmation (not delivered, no broker configured)",
		"email", msg.Email,
		"program", msg.ProgramName,
		"amount", msg.Amount,
		"currency", msg.Currency)
	return nil
}
