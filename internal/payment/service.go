package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"github.com/frahmantamala/learning-platform/internal"
	enrollmentmodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
	learnermodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/learner"
	"github.com/frahmantamala/learning-platform/internal/core/datamodel/order"
	programmodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
	"github.com/frahmantamala/learning-platform/internal/gateway"
)

type RepositoryAPI interface {
	CreatePending(ctx context.Context, o *order.Order) error
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error)
	CompleteSuccess(ctx context.Context, orderID int64, gatewayPaymentID, methodLabel string, paidAt time.Time) (Outcome, error)
	MarkFailed(ctx context.Context, orderID int64, reason string, failedAt time.Time) (Outcome, error)
	ListStalePending(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]*order.Order, error)
}

type HistoryAPI interface {
	ListByLearner(ctx context.Context, learnerID int64, limit, offset int) ([]OrderSummary, error)
}

type GatewayAPI interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResult, error)
	QueryOrderStatus(ctx context.Context, gatewayOrderID string) ([]gateway.PaymentAttempt, error)
}

type EnrollmentReader interface {
	GetByLearnerAndProgram(ctx context.Context, learnerID, programID int64) (*enrollmentmodel.Enrollment, error)
}

type ProgramReader interface {
	GetByID(ctx context.Context, id int64) (*programmodel.Program, error)
}

type LearnerReader interface {
	GetByID(ctx context.Context, id int64) (*learnermodel.Learner, error)
}

type ServiceAPI interface {
	InitiatePurchase(ctx context.Context, in InitiatePurchaseInput) (*PurchaseSession, error)
	Verify(ctx context.Context, gatewayOrderID string, learnerID int64) (*VerifyResult, error)
	ListOrders(ctx context.Context, learnerID int64, limit, offset int) ([]OrderSummary, error)
	ProcessCallback(ctx context.Context, payload *gateway.CallbackPayload) error
}

type Config struct {
	Currency    string
	ReturnURL   string
	CallbackURL string
}

type Service struct {
	repo        RepositoryAPI
	history     HistoryAPI
	gateway     GatewayAPI
	enrollments EnrollmentReader
	programs    ProgramReader
	learners    LearnerReader
	reconciler  *Reconciler
	config      Config
	logger      *slog.Logger
}

type Dependencies struct {
	Repository  RepositoryAPI
	History     HistoryAPI
	Gateway     GatewayAPI
	Enrollments EnrollmentReader
	Programs    ProgramReader
	Learners    LearnerReader
	Reconciler  *Reconciler
}

func NewService(deps Dependencies, config Config, logger *slog.Logger) *Service {
	return &Service{
		repo:        deps.Repository,
		history:     deps.History,
		gateway:     deps.Gateway,
		enrollments: deps.Enrollments,
		programs:    deps.Programs,
		learners:    deps.Learners,
		reconciler:  deps.Reconciler,
		config:      config,
		logger:      logger,
	}
}

// InitiatePurchase opens a gateway checkout for a learner's FREE enrollment and records
// the PENDING order.
func (s *Service) InitiatePurchase(ctx context.Context, in InitiatePurchaseInput) (*PurchaseSession, error) {
	enr, err := s.enrollments.GetByLearnerAndProgram(ctx, in.LearnerID, in.ProgramID)
	if err != nil {
		return nil, err
	}
	if enr.IsEntitled() {
		return nil, internal.ErrAlreadyEntitled
	}

	prog, err := s.programs.GetByID(ctx, in.ProgramID)
	if err != nil {
		return nil, err
	}
	if !prog.Price.IsPositive() {
		return nil, internal.ErrNoPrice
	}

	buyer, err := s.learners.GetByID(ctx, in.LearnerID)
	if err != nil {
		return nil, err
	}

	currency := prog.Currency
	if currency == "" {
		currency = s.config.Currency
	}

	created, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		OrderRef: NewOrderRef(enr.ID),
		Amount:   prog.Price,
		Currency: currency,
		Buyer: gateway.Buyer{
			ID:    "learner_" + strconv.FormatInt(buyer.ID, 10),
			Name:  buyer.Name,
			Email: buyer.Email,
			Phone: buyer.Phone,
		},
		ReturnURL:   s.config.ReturnURL,
		CallbackURL: s.config.CallbackURL,
	})
	if err != nil {
		s.logger.Error("gateway order creation failed",
			"error", err,
			"learner_id", in.LearnerID,
			"program_id", in.ProgramID)
		return nil, internal.ErrGatewayUnavailable.WithCause(err)
	}

	o := &order.Order{
		LearnerID:      in.LearnerID,
		EnrollmentID:   enr.ID,
		ProgramID:      prog.ID,
		GatewayOrderID: created.GatewayOrderID,
		Amount:         prog.Price,
		Currency:       currency,
		Status:         StatusPending,
		Metadata: datatypes.JSONMap{
			"gateway_internal_id": created.GatewayInternalID,
			"program_title":       prog.Title,
		},
	}
	if err := s.repo.CreatePending(ctx, o); err != nil {
		s.logger.Error("failed to record pending order",
			"error", err,
			"gateway_order_id", created.GatewayOrderID)
		return nil, internal.NewInternalError("failed to record order", err)
	}

	s.logger.Info("purchase initiated",
		"order_id", o.ID,
		"gateway_order_id", o.GatewayOrderID,
		"learner_id", in.LearnerID,
		"program_id", in.ProgramID,
		"amount", o.Amount.StringFixed(2),
		"currency", currency)

	return &PurchaseSession{
		GatewayOrderID:     created.GatewayOrderID,
		ClientSessionToken: created.ClientSessionToken,
		Amount:             prog.Price,
		Currency:           currency,
	}, nil
}

// Verify is the learner-initiated confirmation path.
func (s *Service) Verify(ctx context.Context, gatewayOrderID string, learnerID int64) (*VerifyResult, error) {
	o, err := s.repo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if o.LearnerID != learnerID {
		s.logger.Warn("learner tried to verify another learner's order",
			"gateway_order_id", gatewayOrderID,
			"learner_id", learnerID)
		return nil, internal.ErrOrderForbidden
	}

	if o.Status == StatusSuccess {
		return resultFor(o.GatewayOrderID, StatusSuccess), nil
	}

	return s.Refresh(ctx, o)
}

// Refresh asks the gateway for the order's attempts and reconciles whatever it reports.
func (s *Service) Refresh(ctx context.Context, o *order.Order) (*VerifyResult, error) {
	attempts, err := s.gateway.QueryOrderStatus(ctx, o.GatewayOrderID)
	if err != nil {
		s.logger.Error("gateway order status query failed",
			"error", err,
			"gateway_order_id", o.GatewayOrderID)
		return nil, internal.ErrGatewayUnavailable.WithCause(err)
	}

	attempt, decided := gateway.SelectAttempt(attempts)
	if !decided {
		return resultFor(o.GatewayOrderID, o.Status), nil
	}

	outcome, err := s.apply(ctx, o, attempt)
	if err != nil {
		return nil, internal.NewInternalError("failed to reconcile payment", err)
	}
	return resultFor(o.GatewayOrderID, outcome.Status), nil
}

// PendingOrders lists orders that are neither fresh nor abandoned, for the sweeper.
func (s *Service) PendingOrders(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]*order.Order, error) {
	now := time.Now().UTC()
	var after time.Time
	if maxAge > 0 {
		after = now.Add(-maxAge)
	}
	return s.repo.ListStalePending(ctx, now.Add(-minAge), after, limit)
}

func (s *Service) ListOrders(ctx context.Context, learnerID int64, limit, offset int) ([]OrderSummary, error) {
	orders, err := s.history.ListByLearner(ctx, learnerID, limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("failed to list orders", err)
	}
	return orders, nil
}

// ProcessCallback applies a verified gateway callback. Unknown orders and non-terminal
// statuses are acknowledged without any change.
func (s *Service) ProcessCallback(ctx context.Context, payload *gateway.CallbackPayload) error {
	gatewayOrderID := payload.Data.Order.OrderID

	o, err := s.repo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, internal.ErrOrderNotFound) {
			s.logger.Warn("callback for unknown order", "gateway_order_id", gatewayOrderID)
			return nil
		}
		return fmt.Errorf("load order %s: %w", gatewayOrderID, err)
	}

	attempt := payload.Attempt()
	if attempt.Status == gateway.AttemptPending {
		s.logger.Info("callback status not actionable",
			"gateway_order_id", gatewayOrderID,
			"payment_status", payload.Data.Payment.PaymentStatus)
		return nil
	}

	_, err = s.apply(ctx, o, attempt)
	return err
}

func (s *Service) apply(ctx context.Context, o *order.Order, attempt gateway.PaymentAttempt) (Outcome, error) {
	switch attempt.Status {
	case gateway.AttemptSuccess:
		return s.reconciler.ReconcileSuccess(ctx, o, attempt.PaidAmount, attempt.GatewayPaymentID, attempt.MethodLabel)
	case gateway.AttemptFailed:
		return s.reconciler.ReconcileFailure(ctx, o, attempt.FailureMessage)
	default:
		return Outcome{Status: o.Status}, nil
	}
}
