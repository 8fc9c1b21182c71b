package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/harvestlink-backend/pkg/redis"
	"github.com/angelmondragon/harvestlink-backend/pkg/types"
)

const paymentLockTTL = 30 * time.Second

// Service starts payments and reconciles gateway callbacks.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	ApplyCallback(ctx context.Context, referenceNo, responseDescription string) (*CallbackResult, error)
}

// InitiateInput is a buyer's request to pay for an order.
type InitiateInput struct {
	OrderID    uuid.UUID
	BuyerID    uuid.UUID
	Amount     decimal.Decimal
	PayerPhone string
}

// InitiateResult echoes the gateway acknowledgement.
type InitiateResult struct {
	OrderID       uuid.UUID       `json:"order_id"`
	ReferenceNo   string          `json:"reference_no"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status"`
	Message       string          `json:"message,omitempty"`
}

// CallbackResult reports how a gateway callback was handled.
type CallbackResult struct {
	OrderID     uuid.UUID        `json:"order_id"`
	ReferenceNo string           `json:"reference_no"`
	Outcome     Outcome          `json:"outcome"`
	Result      string           `json:"result"`
	PaidStatus  enums.PaidStatus `json:"paid_status"`
}

// ServiceParams wires the payment dependencies. Locker is optional; without it
// concurrent initiations for one order are not serialized.
type ServiceParams struct {
	Repo           orders.Repository
	Tx             orders.TxRunner
	Outbox         orders.OutboxEmitter
	Gateway        Gateway
	Locker         redis.Locker
	Sink           notifications.Sink
	Logger         *logger.Logger
	Metrics        *metrics.FulfillmentMetrics
	GatewayTimeout time.Duration
	Currency       string
	Clock          func() time.Time
}

type service struct {
	repo     orders.Repository
	tx       orders.TxRunner
	outbox   orders.OutboxEmitter
	gateway  Gateway
	locker   redis.Locker
	sink     notifications.Sink
	logg     *logger.Logger
	metrics  *metrics.FulfillmentMetrics
	timeout  time.Duration
	currency string
	now      func() time.Time
}

// NewService validates dependencies and builds the payment service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case p.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case p.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	case p.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	s := &service{
		repo:     p.Repo,
		tx:       p.Tx,
		outbox:   p.Outbox,
		gateway:  p.Gateway,
		locker:   p.Locker,
		sink:     p.Sink,
		logg:     p.Logger,
		metrics:  p.Metrics,
		timeout:  p.GatewayTimeout,
		currency: p.Currency,
		now:      p.Clock,
	}
	if s.sink == nil {
		s.sink = notifications.NopSink{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.timeout <= 0 {
		s.timeout = defaultGatewayTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	phone := strings.TrimSpace(input.PayerPhone)
	switch {
	case input.BuyerID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	case input.OrderID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	case phone == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	case !input.Amount.IsPositive():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	amountCents, err := types.CentsFromDecimal(input.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	agg, err := s.repo.LoadByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, orders.MapRepoError(err, "order not found")
	}
	order := agg.Order
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for this order")
	}
	if err := orders.CheckPayable(order); err != nil {
		return nil, err
	}
	if amountCents != order.TotalPriceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match order total").
			WithDetails(map[string]any{"expected": types.DecimalFromCents(order.TotalPriceCents).StringFixed(2)})
	}

	release, err := s.lock(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.gateway.Initiate(callCtx, GatewayRequest{
		ReferenceNo: order.ReferenceNo,
		Amount:      types.DecimalFromCents(amountCents),
		PayerPhone:  phone,
		Currency:    s.currency,
	})
	if err != nil {
		if callCtx.Err() != nil && !pkgerrors.Is(err, pkgerrors.CodeGatewayUnavailable) {
			err = pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway timed out")
		}
		s.logg.Error(ctx, "payment initiation failed", err)
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "gateway_status", resp.Status), "payment initiated")
	return &InitiateResult{
		OrderID:       order.ID,
		ReferenceNo:   order.ReferenceNo,
		Amount:        types.DecimalFromCents(amountCents),
		TransactionID: resp.TransactionID,
		Status:        resp.Status,
		Message:       resp.Message,
	}, nil
}

func (s *service) lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	name := "payment:" + orderID.String()
	token := uuid.NewString()
	ok, err := s.locker.AcquireLock(ctx, name, token, paymentLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire payment lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a payment for this order is already in progress")
	}
	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), name, token); err != nil {
			s.logg.Warn(ctx, "failed to release payment lock: "+err.Error())
		}
	}, nil
}

func (s *service) ApplyCallback(ctx context.Context, referenceNo, responseDescription string) (*CallbackResult, error) {
	referenceNo = strings.TrimSpace(referenceNo)
	if referenceNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference_no is required")
	}
	outcome := ParseOutcome(responseDescription)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"reference_no":    referenceNo,
		"payment_outcome": outcome,
	})

	var (
		batch  notifications.Batch
		result CallbackResult
	)
	err := orders.WithVersionedTx(ctx, s.tx, func(tx *gorm.DB) error {
		batch.Reset()
		repo := s.repo.WithTx(tx)
		agg, err := repo.LoadByReference(ctx, referenceNo)
		if err != nil {
			return orders.MapRepoError(err, "order not found")
		}
		o := agg.Order
		result = CallbackResult{OrderID: o.ID, ReferenceNo: o.ReferenceNo, Outcome: outcome}

		var target enums.PaidStatus
		switch outcome {
		case OutcomeSucceeded:
			target = enums.PaidStatusPaid
		case OutcomeCancelled:
			target = enums.PaidStatusRejected
		default:
			result.Result = metrics.CallbackIgnored
			result.PaidStatus = o.PaidStatus
			return nil
		}

		switch orders.SettlePayment(o, target) {
		case orders.PaymentDuplicate:
			result.Result = metrics.CallbackDuplicate
		case orders.PaymentConflict:
			result.Result = metrics.CallbackConflict
		case orders.PaymentApplied:
			result.Result = metrics.CallbackApplied
			now := s.now().UTC()
			if err := repo.SaveAggregate(ctx, agg); err != nil {
				return err
			}
			if err := s.emitPayment(ctx, tx, o, responseDescription, now); err != nil {
				return err
			}
			for _, msg := range paymentMessages(o, responseDescription) {
				batch.Add(msg)
			}
		}
		result.PaidStatus = o.PaidStatus
		return nil
	})
	if err != nil {
		return nil, orders.MapRepoError(err, "order not found")
	}

	s.metrics.PaymentCallback(string(outcome), result.Result)
	ctx = s.logg.WithOrderID(ctx, result.OrderID.String())
	switch result.Result {
	case metrics.CallbackApplied:
		batch.Flush(ctx, s.sink)
		s.logg.Info(ctx, "payment callback applied")
	case metrics.CallbackConflict:
		s.logg.Warn(s.logg.WithField(ctx, "paid_status", result.PaidStatus),
			"payment callback contradicts recorded outcome, ignored")
	case metrics.CallbackIgnored:
		s.logg.Warn(s.logg.WithField(ctx, "response_description", responseDescription),
			"payment failed at gateway, order remains payable")
	default:
		s.logg.Info(ctx, "payment callback already applied")
	}
	return &result, nil
}

func (s *service) emitPayment(ctx context.Context, tx *gorm.DB, o *models.Order, description string, now time.Time) error {
	eventType := enums.EventOrderPaid
	event := payloads.PaymentStatusEvent{
		OrderID:     o.ID,
		ReferenceNo: o.ReferenceNo,
		BuyerID:     o.BuyerID,
		SellerID:    o.SellerID,
		AmountCents: o.TotalPriceCents,
		PaidStatus:  o.PaidStatus,
	}
	if o.PaidStatus == enums.PaidStatusRejected {
		eventType = enums.EventPaymentRejected
		event.Reason = description
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   o.ID,
		Data:          event,
		OccurredAt:    now,
	})
}

func paymentMessages(o *models.Order, description string) []notifications.Message {
	amount := types.DecimalFromCents(o.TotalPriceCents).StringFixed(2)
	if o.PaidStatus == enums.PaidStatusPaid {
		received := orders.SellerMessage(o, enums.NotificationTypePaymentReceived, "Payment received",
			fmt.Sprintf("Payment of %s received for order %s.", amount, o.ReferenceNo))
		received.Data["amount"] = amount
		return []notifications.Message{
			orders.BuyerMessage(o, enums.NotificationTypePaymentSuccess, "Payment successful",
				fmt.Sprintf("Your payment of %s for order %s went through.", amount, o.ReferenceNo)),
			received,
		}
	}
	failed := orders.BuyerMessage(o, enums.NotificationTypePaymentFailed, "Payment failed",
		fmt.Sprintf("Your payment for order %s did not complete: %s.", o.ReferenceNo, strings.TrimSpace(description)))
	failed.Data["reason"] = strings.TrimSpace(description)
	return []notifications.Message{failed}
}
