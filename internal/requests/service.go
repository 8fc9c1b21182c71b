package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/harvestlink-backend/pkg/pagination"
)

// Service lets sellers review the purchase requests addressed to them.
type Service interface {
	Decide(ctx context.Context, requestID, sellerID uuid.UUID, decision enums.RequestStatus) (*Decision, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[orders.RequestView], error)
}

// Decision is the outcome of a seller decision. Order is nil when the request
// has no resolvable order.
type Decision struct {
	Request orders.RequestView `json:"request"`
	Order   *orders.OrderView  `json:"order,omitempty"`
}

// ListParams filters the seller request listing.
type ListParams struct {
	SellerID uuid.UUID
	Status   *enums.RequestStatus
	Limit    int
	Cursor   string
}

// ServiceParams wires the request approval dependencies.
type ServiceParams struct {
	Repo    orders.Repository
	Tx      orders.TxRunner
	Outbox  orders.OutboxEmitter
	Sink    notifications.Sink
	Logger  *logger.Logger
	Metrics *metrics.FulfillmentMetrics
	Clock   func() time.Time
}

type service struct {
	repo    orders.Repository
	tx      orders.TxRunner
	outbox  orders.OutboxEmitter
	sink    notifications.Sink
	logg    *logger.Logger
	metrics *metrics.FulfillmentMetrics
	now     func() time.Time
}

// NewService validates dependencies and builds the request approval service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case p.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case p.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	s := &service{
		repo:    p.Repo,
		tx:      p.Tx,
		outbox:  p.Outbox,
		sink:    p.Sink,
		logg:    p.Logger,
		metrics: p.Metrics,
		now:     p.Clock,
	}
	if s.sink == nil {
		s.sink = notifications.NopSink{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *service) Decide(ctx context.Context, requestID, sellerID uuid.UUID, decision enums.RequestStatus) (*Decision, error) {
	if !decision.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be accepted or rejected").
			WithDetails(map[string]any{"status": decision})
	}
	ctx = s.logg.WithField(ctx, "purchase_request_id", requestID.String())

	var (
		batch notifications.Batch
		agg   *orders.Aggregate
	)
	err := orders.WithVersionedTx(ctx, s.tx, func(tx *gorm.DB) error {
		batch.Reset()
		repo := s.repo.WithTx(tx)
		loaded, err := repo.LoadByRequestID(ctx, requestID)
		if err != nil {
			return orders.MapRepoError(err, "request not found")
		}
		if loaded.Request.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another seller")
		}
		agg = loaded

		now := s.now().UTC()
		if err := orders.Decide(agg, decision, now); err != nil {
			return err
		}
		if err := repo.SaveAggregate(ctx, agg); err != nil {
			return err
		}
		if err := s.emitDecided(ctx, tx, agg, now); err != nil {
			return err
		}
		for _, msg := range decisionMessages(agg) {
			batch.Add(msg)
		}
		return nil
	})
	if err != nil {
		s.metrics.Transition("decide", metrics.TransitionRejected)
		return nil, orders.MapRepoError(err, "request not found")
	}

	if agg.Order == nil {
		s.logg.Warn(s.logg.WithField(ctx, "order_id", agg.Request.OrderID.String()),
			"order for purchase request not found, decision recorded on request only")
	}
	s.metrics.Transition("decide", metrics.TransitionApplied)
	batch.Flush(ctx, s.sink)
	s.logg.Info(s.logg.WithField(ctx, "decision", decision), "purchase request decided")

	out := &Decision{Request: orders.NewRequestView(agg.Request)}
	if agg.Order != nil {
		view := orders.NewOrderView(agg.Order)
		out.Order = &view
	}
	return out, nil
}

func (s *service) emitDecided(ctx context.Context, tx *gorm.DB, agg *orders.Aggregate, now time.Time) error {
	req := agg.Request
	event := payloads.RequestDecidedEvent{
		RequestID: req.ID,
		SellerID:  req.SellerID,
		BuyerID:   req.BuyerID,
		Decision:  req.Status,
		DecidedAt: now,
	}
	if agg.Order != nil {
		orderID := agg.Order.ID
		event.OrderID = &orderID
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRequestDecided,
		AggregateType: enums.AggregateRequest,
		AggregateID:   req.ID,
		Actor:         &outbox.ActorRef{UserID: req.SellerID, Role: string(enums.UserRoleSeller)},
		Data:          event,
		OccurredAt:    now,
	})
}

func decisionMessages(agg *orders.Aggregate) []notifications.Message {
	req := agg.Request
	o := agg.Order
	if o == nil {
		return []notifications.Message{{
			UserID: req.SellerID,
			Role:   enums.UserRoleSeller,
			Type:   enums.NotificationTypeDecisionRecorded,
			Title:  "Decision recorded",
			Body:   fmt.Sprintf("You %s a purchase request.", req.Status),
			Data:   map[string]any{"request_id": req.ID.String()},
		}}
	}

	var out []notifications.Message
	switch req.Status {
	case enums.RequestStatusAccepted:
		out = append(out, orders.BuyerMessage(o, enums.NotificationTypeRequestAccepted, "Request accepted",
			fmt.Sprintf("The seller accepted your order %s.", o.ReferenceNo)))
		if o.DeliveryStatus != enums.DeliveryStatusDelivered {
			out = append(out, orders.BuyerMessage(o, enums.NotificationTypeDeliveryScheduled, "Delivery scheduled",
				fmt.Sprintf("%s is scheduled for delivery on %s.", o.ProductName, o.DeliveryDate.Format("2006-01-02"))))
		}
	case enums.RequestStatusRejected:
		out = append(out, orders.BuyerMessage(o, enums.NotificationTypeRequestRejected, "Request declined",
			fmt.Sprintf("The seller declined your order %s.", o.ReferenceNo)))
	}
	out = append(out, orders.SellerMessage(o, enums.NotificationTypeDecisionRecorded, "Decision recorded",
		fmt.Sprintf("You %s order %s.", req.Status, o.ReferenceNo)))
	return out
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[orders.RequestView], error) {
	if params.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListSellerRequests(ctx, orders.RequestFilter{SellerID: params.SellerID, Status: params.Status},
		pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase requests")
	}
	views := make([]orders.RequestView, 0, len(rows))
	for i := range rows {
		views = append(views, orders.NewRequestView(&rows[i]))
	}
	page := pagination.Build(views, params.Limit, func(v orders.RequestView) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	return &page, nil
}
