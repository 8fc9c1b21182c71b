package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	product "github.com/angelmondragon/harvestlink-backend/internal/products"
	"github.com/angelmondragon/harvestlink-backend/pkg/db"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/harvestlink-backend/pkg/pagination"
	"github.com/angelmondragon/harvestlink-backend/pkg/types"
)

const referenceAttempts = 3

// Service is the buyer-facing order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OrderView, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID) (*OrderView, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderView], error)
	Cancel(ctx context.Context, orderID, buyerID uuid.UUID) (*OrderView, error)
	Delete(ctx context.Context, orderID, buyerID uuid.UUID) error
	ConfirmDelivery(ctx context.Context, orderID, buyerID uuid.UUID) (*OrderView, error)
}

// ServiceParams wires the order lifecycle dependencies.
type ServiceParams struct {
	Repo     Repository
	Products product.Reader
	Tx       TxRunner
	Outbox   OutboxEmitter
	Sink     notifications.Sink
	Logger   *logger.Logger
	Metrics  *metrics.FulfillmentMetrics
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	products product.Reader
	tx       TxRunner
	outbox   OutboxEmitter
	sink     notifications.Sink
	logg     *logger.Logger
	metrics  *metrics.FulfillmentMetrics
	now      func() time.Time
}

// NewService validates dependencies and builds the order service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case p.Products == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product reader required")
	case p.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case p.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	s := &service{
		repo:     p.Repo,
		products: p.Products,
		tx:       p.Tx,
		outbox:   p.Outbox,
		sink:     p.Sink,
		logg:     p.Logger,
		metrics:  p.Metrics,
		now:      p.Clock,
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

func (s *service) Create(ctx context.Context, input CreateInput) (*OrderView, error) {
	switch {
	case input.BuyerID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	case input.ProductID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	case input.Quantity < 1:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	case input.DeliveryDate.IsZero():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_date is required")
	}
	now := s.now().UTC()
	if input.DeliveryDate.Before(types.NewDate(now)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_date cannot be in the past")
	}
	var claimedTotal *int64
	if input.TotalPrice != nil {
		cents, err := types.CentsFromDecimal(*input.TotalPrice)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid total_price")
		}
		claimedTotal = &cents
	}

	var (
		batch   notifications.Batch
		created *models.Order
		err     error
	)
	for attempt := 1; attempt <= referenceAttempts; attempt++ {
		batch.Reset()
		created, err = s.createOnce(ctx, input, claimedTotal, now, &batch)
		if err == nil || !db.IsUniqueViolation(err, "ux_orders_reference_no") {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order reference collision, regenerating")
	}
	if err != nil {
		s.metrics.Transition("create", metrics.TransitionRejected)
		return nil, MapRepoError(err, "product not found")
	}

	s.metrics.Transition("create", metrics.TransitionApplied)
	batch.Flush(ctx, s.sink)
	s.logg.Info(s.logg.WithOrderID(ctx, created.ID.String()), "order created")
	view := NewOrderView(created)
	return &view, nil
}

func (s *service) createOnce(ctx context.Context, input CreateInput, claimedTotal *int64, now time.Time, batch *notifications.Batch) (*models.Order, error) {
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		p, err := s.products.WithTx(tx).GetProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if p.Status != enums.ProductStatusAvailable || !p.IsActive {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "product is not available").
				WithDetails(map[string]any{"status": p.Status, "is_active": p.IsActive})
		}
		if p.SellerID == input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot order their own products")
		}

		total := p.PriceCents * int64(input.Quantity)
		if claimedTotal != nil && *claimedTotal != total {
			return pkgerrors.New(pkgerrors.CodeValidation, "total_price does not match unit price times quantity").
				WithDetails(map[string]any{"expected": types.DecimalFromCents(total).StringFixed(2)})
		}

		orderID, requestID := uuid.New(), uuid.New()
		order := &models.Order{
			ID:              orderID,
			ReferenceNo:     NewReferenceNo(now),
			BuyerID:         input.BuyerID,
			SellerID:        p.SellerID,
			ProductID:       p.ID,
			ProductName:     p.Name,
			ProductImageURL: p.ImageURL,
			Unit:            p.Unit,
			UnitPriceCents:  p.PriceCents,
			Quantity:        input.Quantity,
			TotalPriceCents: total,
			DeliveryDate:    input.DeliveryDate.Time,
			RequestStatus:   enums.RequestStatusPending,
			PaidStatus:      enums.PaidStatusPending,
			DeliveryStatus:  enums.DeliveryStatusPending,
			RequestID:       &requestID,
			Version:         1,
		}
		request := &models.PurchaseRequest{
			ID:        requestID,
			OrderID:   orderID,
			SellerID:  p.SellerID,
			BuyerID:   input.BuyerID,
			ProductID: p.ID,
			Status:    enums.RequestStatusPending,
			Version:   1,
		}
		if err := s.repo.WithTx(tx).CreateAggregate(ctx, &Aggregate{Order: order, Request: request}); err != nil {
			return err
		}
		if err := s.emitState(ctx, tx, enums.EventOrderCreated, order, input.BuyerID, now); err != nil {
			return err
		}
		for _, msg := range createdMessages(order) {
			batch.Add(msg)
		}
		created = order
		return nil
	})
	return created, err
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID) (*OrderView, error) {
	agg, err := s.repo.LoadByOrderID(ctx, orderID)
	if err != nil {
		return nil, MapRepoError(err, "order not found")
	}
	if agg.Order.BuyerID != actorID && agg.Order.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	view := NewOrderView(agg.Order)
	return &view, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderView], error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListBuyerOrders(ctx, buyerID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]OrderView, 0, len(rows))
	for i := range rows {
		views = append(views, NewOrderView(&rows[i]))
	}
	page := pagination.Build(views, params.Limit, func(v OrderView) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	return &page, nil
}

func (s *service) Cancel(ctx context.Context, orderID, buyerID uuid.UUID) (*OrderView, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	var (
		batch   notifications.Batch
		result  *models.Order
		changed bool
	)
	err := WithVersionedTx(ctx, s.tx, func(tx *gorm.DB) error {
		batch.Reset()
		repo := s.repo.WithTx(tx)
		agg, err := s.loadOwned(ctx, repo, orderID, buyerID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		changed, err = Cancel(agg, now)
		if err != nil {
			return err
		}
		result = agg.Order
		if !changed {
			return nil
		}
		if err := repo.SaveAggregate(ctx, agg); err != nil {
			return err
		}
		if err := s.emitState(ctx, tx, enums.EventOrderCanceled, agg.Order, buyerID, now); err != nil {
			return err
		}
		for _, msg := range cancelledMessages(agg.Order) {
			batch.Add(msg)
		}
		return nil
	})
	if err != nil {
		s.metrics.Transition("cancel", metrics.TransitionRejected)
		return nil, MapRepoError(err, "order not found")
	}
	if !changed {
		s.metrics.Transition("cancel", metrics.TransitionNoop)
		s.logg.Info(ctx, "order already cancelled")
	} else {
		s.metrics.Transition("cancel", metrics.TransitionApplied)
		batch.Flush(ctx, s.sink)
		s.logg.Info(ctx, "order cancelled")
	}
	view := NewOrderView(result)
	return &view, nil
}

func (s *service) Delete(ctx context.Context, orderID, buyerID uuid.UUID) error {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	err := WithVersionedTx(ctx, s.tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		agg, err := s.loadOwned(ctx, repo, orderID, buyerID)
		if err != nil {
			return err
		}
		if err := CheckDeletable(agg.Order); err != nil {
			return err
		}
		if err := repo.DeleteAggregate(ctx, agg); err != nil {
			return err
		}
		return s.emitState(ctx, tx, enums.EventOrderDeleted, agg.Order, buyerID, s.now().UTC())
	})
	if err != nil {
		s.metrics.Transition("delete", metrics.TransitionRejected)
		return MapRepoError(err, "order not found")
	}
	s.metrics.Transition("delete", metrics.TransitionApplied)
	s.logg.Info(ctx, "order deleted")
	return nil
}

func (s *service) ConfirmDelivery(ctx context.Context, orderID, buyerID uuid.UUID) (*OrderView, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	var (
		batch  notifications.Batch
		result *models.Order
	)
	err := WithVersionedTx(ctx, s.tx, func(tx *gorm.DB) error {
		batch.Reset()
		repo := s.repo.WithTx(tx)
		agg, err := s.loadOwned(ctx, repo, orderID, buyerID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := ConfirmDelivery(agg, now); err != nil {
			return err
		}
		if err := repo.SaveAggregate(ctx, agg); err != nil {
			return err
		}
		if err := s.emitState(ctx, tx, enums.EventOrderDelivered, agg.Order, buyerID, now); err != nil {
			return err
		}
		for _, msg := range deliveredMessages(agg.Order) {
			batch.Add(msg)
		}
		result = agg.Order
		return nil
	})
	if err != nil {
		s.metrics.Transition("confirm_delivery", metrics.TransitionRejected)
		return nil, MapRepoError(err, "order not found")
	}
	s.metrics.Transition("confirm_delivery", metrics.TransitionApplied)
	batch.Flush(ctx, s.sink)
	s.logg.Info(ctx, "order delivered")
	view := NewOrderView(result)
	return &view, nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, orderID, buyerID uuid.UUID) (*Aggregate, error) {
	agg, err := repo.LoadByOrderID(ctx, orderID)
	if err != nil {
		return nil, MapRepoError(err, "order not found")
	}
	if agg.Order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can modify this order")
	}
	return agg, nil
}

func (s *service) emitState(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, o *models.Order, actorID uuid.UUID, now time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   o.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: string(enums.UserRoleBuyer)},
		Data:          StateEvent(o),
		OccurredAt:    now,
	})
}

// StateEvent snapshots the order status triple for outbox consumers.
func StateEvent(o *models.Order) payloads.OrderStateEvent {
	return payloads.OrderStateEvent{
		OrderID:         o.ID,
		ReferenceNo:     o.ReferenceNo,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		RequestStatus:   o.RequestStatus,
		PaidStatus:      o.PaidStatus,
		DeliveryStatus:  o.DeliveryStatus,
		TotalPriceCents: o.TotalPriceCents,
		DeliveredAt:     o.DeliveredAt,
	}
}
